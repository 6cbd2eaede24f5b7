package postgres

import (
	"context"
	"fmt"

	"forest-valley-trail/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SurveyStore appends visitor feedback to Postgres. Submissions are
// best-effort by contract; callers drop the error.
type SurveyStore struct {
	pool *pgxpool.Pool
}

func NewSurveyStore(pool *pgxpool.Pool) *SurveyStore {
	return &SurveyStore{pool: pool}
}

func (s *SurveyStore) Append(ctx context.Context, response domain.SurveyResponse) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO survey_responses (age_bracket, gender_bracket, comments, submitted_at)
		 VALUES ($1, $2, $3, $4)`,
		response.AgeBracket, response.GenderBracket, response.Comments, response.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("append survey response: %w", err)
	}
	return nil
}
