package memory

import (
	"context"

	"forest-valley-trail/internal/app"
	"forest-valley-trail/internal/domain"
)

// NationBoard adapts the in-process app.Board to the app.NationBoard port for
// single-instance deployments with no backing store.
type NationBoard struct {
	board *app.Board
}

func NewNationBoard(board *app.Board) *NationBoard {
	return &NationBoard{board: board}
}

func (b *NationBoard) Increment(_ context.Context, nation domain.Nation) (domain.Leaderboard, error) {
	return b.board.Increment(nation), nil
}

func (b *NationBoard) Snapshot(_ context.Context) (domain.Leaderboard, error) {
	return b.board.Snapshot(), nil
}

func (b *NationBoard) Subscribe(_ context.Context) (<-chan domain.Leaderboard, func(), error) {
	ch, cancel := b.board.Subscribe()
	return ch, cancel, nil
}
