package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"forest-valley-trail/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CheckpointLoader fetches trail content from a backing store (e.g., Postgres).
type CheckpointLoader interface {
	LoadCheckpoints(ctx context.Context) ([]domain.Checkpoint, error)
}

// CheckpointRepository caches the trail catalog with TTL to avoid repeated
// loader hits; concurrent misses collapse into one load via singleflight.
type CheckpointRepository struct {
	loader CheckpointLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    []domain.Checkpoint
	expiresAt time.Time
}

func NewCheckpointRepository(loader CheckpointLoader, ttl time.Duration) *CheckpointRepository {
	return &CheckpointRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CheckpointRepository) Checkpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	now := r.clock()

	r.mu.RLock()
	if r.cached != nil && r.expiresAt.After(now) {
		cached := r.cached
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("checkpoints", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.cached != nil && r.expiresAt.After(now) {
			cached := r.cached
			r.mu.RUnlock()
			return cached, nil
		}
		r.mu.RUnlock()

		checkpoints, err := r.loader.LoadCheckpoints(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cached = checkpoints
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return checkpoints, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Checkpoint), nil
}

func (r *CheckpointRepository) Checkpoint(ctx context.Context, id int) (domain.Checkpoint, error) {
	checkpoints, err := r.Checkpoints(ctx)
	if err != nil {
		return domain.Checkpoint{}, err
	}
	for _, cp := range checkpoints {
		if cp.ID == id {
			return cp, nil
		}
	}
	return domain.Checkpoint{}, domain.ErrCheckpointNotFound
}

func (r *CheckpointRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCheckpointLoader serves a fixed catalog (the built-in trail, tests).
type StaticCheckpointLoader struct {
	checkpoints []domain.Checkpoint
}

func NewStaticCheckpointLoader(checkpoints []domain.Checkpoint) *StaticCheckpointLoader {
	return &StaticCheckpointLoader{checkpoints: checkpoints}
}

func (l *StaticCheckpointLoader) LoadCheckpoints(_ context.Context) ([]domain.Checkpoint, error) {
	return l.checkpoints, nil
}

// SurveyStore collects feedback in memory (single-instance deployments).
type SurveyStore struct {
	mu        sync.Mutex
	responses []domain.SurveyResponse
}

func NewSurveyStore() *SurveyStore {
	return &SurveyStore{}
}

func (s *SurveyStore) Append(_ context.Context, response domain.SurveyResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
	return nil
}

// Responses returns a copy of everything collected so far.
func (s *SurveyStore) Responses() []domain.SurveyResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SurveyResponse, len(s.responses))
	copy(out, s.responses)
	return out
}
