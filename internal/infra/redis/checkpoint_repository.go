package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"forest-valley-trail/internal/domain"
	"forest-valley-trail/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const checkpointsKey = "trail:checkpoints"

// CheckpointRepository caches the trail catalog in a Redis hash (one field
// per checkpoint, JSON-encoded) and falls back to a loader on cache miss.
// Shared across instances, so an edited trail in Postgres shows up everywhere
// once the TTL lapses.
type CheckpointRepository struct {
	client *redis.Client
	loader memory.CheckpointLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCheckpointRepository(client *redis.Client, loader memory.CheckpointLoader, ttl time.Duration) *CheckpointRepository {
	return &CheckpointRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CheckpointRepository) Checkpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	cached, err := r.client.HGetAll(ctx, checkpointsKey).Result()
	if err == nil && len(cached) > 0 {
		if checkpoints, ok := decodeCatalog(cached); ok {
			return checkpoints, nil
		}
	}

	result, err, _ := r.sf.Do(checkpointsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := r.client.HGetAll(ctx, checkpointsKey).Result()
		if err == nil && len(cached) > 0 {
			if checkpoints, ok := decodeCatalog(cached); ok {
				return checkpoints, nil
			}
		}

		checkpoints, err := r.loader.LoadCheckpoints(ctx)
		if err != nil {
			return nil, err
		}

		pipe := r.client.Pipeline()
		for _, cp := range checkpoints {
			raw, err := json.Marshal(cp)
			if err != nil {
				continue
			}
			pipe.HSet(ctx, checkpointsKey, strconv.Itoa(cp.ID), raw)
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, checkpointsKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

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

func decodeCatalog(cached map[string]string) ([]domain.Checkpoint, bool) {
	checkpoints := make([]domain.Checkpoint, 0, len(cached))
	for _, raw := range cached {
		var cp domain.Checkpoint
		if err := json.Unmarshal([]byte(raw), &cp); err != nil {
			return nil, false
		}
		checkpoints = append(checkpoints, cp)
	}
	sort.Slice(checkpoints, func(i, j int) bool { return checkpoints[i].ID < checkpoints[j].ID })
	return checkpoints, true
}

func (r *CheckpointRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
