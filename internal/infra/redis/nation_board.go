package redis

import (
	"context"
	"fmt"
	"strconv"

	"forest-valley-trail/internal/app"
	"forest-valley-trail/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	scoresKey       = "trail:leaderboard:scores"
	nationKeyPrefix = "trail:nation:"
)

// NationBoard backs the shared leaderboard with Redis. Scores live in a
// single hash mutated only by HINCRBY, so concurrent devices never race a
// read-modify-write; display name and flag are merged in with HSETNX the
// first time a nation scores. The in-process app.Board keeps the live
// subscriber fanout and is hydrated from Redis at startup.
type NationBoard struct {
	client *redis.Client
	board  *app.Board
}

func NewNationBoard(client *redis.Client, board *app.Board) *NationBoard {
	return &NationBoard{client: client, board: board}
}

// Hydrate seeds the in-process board from the persisted aggregates.
func (b *NationBoard) Hydrate(ctx context.Context) error {
	scores, err := b.client.HGetAll(ctx, scoresKey).Result()
	if err != nil {
		return fmt.Errorf("load leaderboard scores: %w", err)
	}
	for code, rawScore := range scores {
		score, err := strconv.Atoi(rawScore)
		if err != nil {
			continue
		}
		meta, _ := b.client.HGetAll(ctx, nationKeyPrefix+code).Result()
		b.board.Seed(domain.NationAggregate{
			Code:  code,
			Name:  meta["name"],
			Flag:  meta["flag"],
			Score: score,
		})
	}
	return nil
}

// Increment adds one point atomically. The in-process board is updated first
// so connected clients see the point even if the Redis write fails; the
// returned error lets the caller decide to ignore the persistence gap.
func (b *NationBoard) Increment(ctx context.Context, nation domain.Nation) (domain.Leaderboard, error) {
	lb := b.board.Increment(nation)

	pipe := b.client.Pipeline()
	pipe.HIncrBy(ctx, scoresKey, nation.Code, 1)
	pipe.HSetNX(ctx, nationKeyPrefix+nation.Code, "name", nation.Name)
	pipe.HSetNX(ctx, nationKeyPrefix+nation.Code, "flag", nation.Flag)
	if _, err := pipe.Exec(ctx); err != nil {
		return lb, fmt.Errorf("persist increment: %w", err)
	}
	return lb, nil
}

func (b *NationBoard) Snapshot(_ context.Context) (domain.Leaderboard, error) {
	return b.board.Snapshot(), nil
}

func (b *NationBoard) Subscribe(_ context.Context) (<-chan domain.Leaderboard, func(), error) {
	ch, cancel := b.board.Subscribe()
	return ch, cancel, nil
}
