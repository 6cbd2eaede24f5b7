package app

import (
	"sort"
	"sync"
	"time"

	"forest-valley-trail/internal/domain"
)

// Board is the in-process view of the shared nation leaderboard. It fans out a
// fresh snapshot to every subscriber whenever a nation scores. Aggregates are
// only ever created or incremented by one, never read-then-written.
type Board struct {
	now         func() time.Time
	mu          sync.RWMutex
	nations     map[string]*domain.NationAggregate
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewBoard() *Board {
	return NewBoardWithClock(time.Now)
}

// NewBoardWithClock allows deterministic timestamps in tests.
func NewBoardWithClock(now func() time.Time) *Board {
	return &Board{
		now:         now,
		nations:     make(map[string]*domain.NationAggregate),
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Increment adds one point to the nation's aggregate, creating it with the
// cached display name and flag if this is the nation's first point.
func (b *Board) Increment(nation domain.Nation) domain.Leaderboard {
	b.mu.Lock()
	defer b.mu.Unlock()

	if agg, ok := b.nations[nation.Code]; ok {
		agg.Score++
	} else {
		b.nations[nation.Code] = &domain.NationAggregate{
			Code:  nation.Code,
			Name:  nation.Name,
			Flag:  nation.Flag,
			Score: 1,
		}
	}
	return b.broadcastLocked()
}

// Seed installs an aggregate loaded from a backing store without notifying
// subscribers. Used to hydrate the board at startup.
func (b *Board) Seed(agg domain.NationAggregate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seeded := agg
	b.nations[agg.Code] = &seeded
}

// Snapshot returns the current ordered board.
func (b *Board) Snapshot() domain.Leaderboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

// Subscribe returns a channel fed with board updates, primed with the current
// snapshot. The caller must invoke the cancel function to avoid leaks.
func (b *Board) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := b.snapshotLocked()
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Board) broadcastLocked() domain.Leaderboard {
	lb := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale update so a slow subscriber never blocks scoring.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return lb
}

func (b *Board) snapshotLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(b.nations))
	for _, agg := range b.nations {
		entries = append(entries, domain.LeaderboardEntry{
			Code:  agg.Code,
			Name:  agg.Name,
			Flag:  agg.Flag,
			Score: agg.Score,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})

	return domain.Leaderboard{
		Entries:   entries,
		UpdatedAt: b.now(),
	}
}
