package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"forest-valley-trail/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CheckpointLoader loads the trail catalog from Postgres JSONB, allowing the
// trail to be re-authored without a deploy.
type CheckpointLoader struct {
	pool *pgxpool.Pool
}

func NewCheckpointLoader(pool *pgxpool.Pool) *CheckpointLoader {
	return &CheckpointLoader{pool: pool}
}

func (l *CheckpointLoader) LoadCheckpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM checkpoints ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []domain.Checkpoint
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		var cp domain.Checkpoint
		if err := json.Unmarshal(raw, &cp); err != nil {
			return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	if len(checkpoints) == 0 {
		return nil, domain.ErrCheckpointNotFound
	}
	return checkpoints, nil
}
