package board

import (
	"fmt"

	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

// Replay folds the actions over an empty board. It is pure: the same log always gives
// an equal snapshot. Any inconsistency aborts the whole replay with ErrBoardCorrupt.
// Actions after the game ended by double pass are ignored.
func Replay(size game.BoardSize, actions []game.Action) (*game.Snapshot, error) {
	snap := game.NewSnapshot(size)

	for i, action := range actions {
		if snap.Ended() {
			break
		}

		switch act := action.(type) {
		case game.AddStone:
			if err := place(snap, size, act.Stone); err != nil {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
			snap.ClearPass()

		case game.CaptureStones:
			if err := place(snap, size, act.Capturing); err != nil {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
			for _, removed := range act.Removed {
				if !size.Contains(removed.X, removed.Y) {
					return nil, fmt.Errorf("action %d: %w: removed stone (%d,%d) is off the board",
						i, apperr.ErrBoardCorrupt, removed.X, removed.Y)
				}
				if snap.Get(removed.X, removed.Y) != game.CellOf(removed.Color) {
					return nil, fmt.Errorf("action %d: %w: no %s stone to remove at (%d,%d)",
						i, apperr.ErrBoardCorrupt, removed.Color, removed.X, removed.Y)
				}
				snap.Set(removed.X, removed.Y, game.Empty)
			}
			snap.ClearPass()

		case game.Pass:
			pending, ok := snap.InPass()
			if !ok {
				snap.SetInPass(act.Color)
			} else if pending != act.Color {
				snap.SetEnded()
			}

		default:
			return nil, fmt.Errorf("action %d: %w: unknown action %T", i, apperr.ErrBoardCorrupt, action)
		}
	}

	return snap, nil
}

func place(snap *game.Snapshot, size game.BoardSize, stone game.Stone) error {
	if !size.Contains(stone.X, stone.Y) {
		return fmt.Errorf("%w: stone (%d,%d) is off the board", apperr.ErrBoardCorrupt, stone.X, stone.Y)
	}
	if snap.Get(stone.X, stone.Y) != game.Empty {
		return fmt.Errorf("%w: cell (%d,%d) is already occupied", apperr.ErrBoardCorrupt, stone.X, stone.Y)
	}
	snap.Set(stone.X, stone.Y, game.CellOf(stone.Color))
	return nil
}

// minKoHistory is the shortest visible log before the candidate for which a capture can bring
// back an earlier position.
const minKoHistory = 6

// IsRepetition reports whether playing candidate after visible recreates the position
// from two plies earlier. Only that narrow case is detected, not superko.
func IsRepetition(size game.BoardSize, visible []game.Action, candidate game.CaptureStones) bool {
	if len(visible) < minKoHistory {
		return false
	}

	actions := make([]game.Action, 0, len(visible)+1)
	actions = append(actions, visible...)
	actions = append(actions, candidate)

	curr, err := Replay(size, actions)
	if err != nil {
		return false
	}
	prev, err := Replay(size, actions[:len(actions)-2])
	if err != nil {
		return false
	}

	return curr.Equal(prev)
}
