package game

import (
	"fmt"

	"goban/internal/domain/game"
	apperr "goban/internal/errors"
	"goban/internal/rules"
	"goban/internal/usecase/board"
)

// State owns the append-only action log of one board, the undo cursor and the
// snapshot replayed from the visible part of the log. It is not safe for concurrent use.
type State struct {
	size      game.BoardSize
	actions   []game.Action
	undoDepth int
	snap      *game.Snapshot

	// corrupt holds the replay error that stopped play until Clear.
	corrupt error
}

func NewState(size game.BoardSize) *State {
	return &State{
		size: size,
		snap: game.NewSnapshot(size),
	}
}

// NewStateFromLog restores a state saved earlier, replaying it to validate the log.
// A log that does not replay still yields a state, latched corrupt until Clear,
// together with the error.
func NewStateFromLog(size game.BoardSize, actions []game.Action, undoDepth int) (*State, error) {
	s := &State{
		size:      size,
		actions:   append([]game.Action(nil), actions...),
		undoDepth: undoDepth,
		snap:      game.NewSnapshot(size),
	}
	if undoDepth < 0 || undoDepth > len(actions) {
		s.undoDepth = 0
		s.corrupt = fmt.Errorf("%w: undo depth %d out of range for a log of %d actions",
			apperr.ErrBoardCorrupt, undoDepth, len(actions))
		return s, s.corrupt
	}
	if err := s.recompute(); err != nil {
		return s, err
	}
	return s, nil
}

// newCorruptState is an empty board that refuses play until Clear.
func newCorruptState(size game.BoardSize, err error) *State {
	s := NewState(size)
	s.corrupt = err
	return s
}

// Corrupt reports the error that halted play, if any.
func (s *State) Corrupt() error {
	return s.corrupt
}

func (s *State) Size() game.BoardSize {
	return s.size
}

func (s *State) Snapshot() *game.Snapshot {
	return s.snap
}

func (s *State) UndoDepth() int {
	return s.undoDepth
}

func (s *State) Ended() bool {
	return s.snap.Ended()
}

// Actions returns a copy of the whole log, including undone actions.
func (s *State) Actions() []game.Action {
	return append([]game.Action(nil), s.actions...)
}

// Visible returns a copy of the actions currently replayed onto the board.
func (s *State) Visible() []game.Action {
	return append([]game.Action(nil), s.visible()...)
}

func (s *State) visible() []game.Action {
	return s.actions[:len(s.actions)-s.undoDepth]
}

// AddStone plays stone if it is legal. Occupied points, suicide and moves after the
// end of the game are refused with false and no error.
func (s *State) AddStone(stone game.Stone) (bool, error) {
	if s.corrupt != nil {
		return false, s.corrupt
	}
	if s.snap.Ended() {
		return false, nil
	}
	if !s.size.Contains(stone.X, stone.Y) || s.snap.Get(stone.X, stone.Y) != game.Empty {
		return false, nil
	}

	if groups := rules.CapturedGroups(s.snap, stone); len(groups) > 0 {
		s.push(game.CaptureStones{Capturing: stone, Removed: flatten(groups)})
	} else if rules.IsValidIgnoringCapture(s.snap, stone) {
		s.push(game.AddStone{Stone: stone})
	} else {
		return false, nil
	}

	if err := s.recompute(); err != nil {
		return false, err
	}
	return true, nil
}

// Pass records a pass unless the last visible action already is a pass by the same color.
func (s *State) Pass(color game.Color) (bool, error) {
	if s.corrupt != nil {
		return false, s.corrupt
	}
	if s.snap.Ended() {
		return false, nil
	}

	if visible := s.visible(); len(visible) > 0 {
		if prev, ok := visible[len(visible)-1].(game.Pass); ok && prev.Color == color {
			return false, nil
		}
	}

	s.push(game.Pass{Color: color})
	if err := s.recompute(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *State) Undo() (bool, error) {
	if s.corrupt != nil {
		return false, s.corrupt
	}
	if s.undoDepth >= len(s.actions) {
		return false, nil
	}
	s.undoDepth++
	if err := s.recompute(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *State) Redo() (bool, error) {
	if s.corrupt != nil {
		return false, s.corrupt
	}
	if s.undoDepth == 0 {
		return false, nil
	}
	s.undoDepth--
	if err := s.recompute(); err != nil {
		return false, err
	}
	return true, nil
}

// Clear empties the log and resets the board, also after corruption.
func (s *State) Clear() {
	s.actions = nil
	s.undoDepth = 0
	s.snap = game.NewSnapshot(s.size)
	s.corrupt = nil
}

// Captures counts the stones color has taken in the visible part of the log.
// It rescans the log on every call.
func (s *State) Captures(color game.Color) int {
	captures := 0
	for _, a := range s.visible() {
		if c, ok := a.(game.CaptureStones); ok && c.Capturing.Color == color {
			captures += len(c.Removed)
		}
	}
	return captures
}

// IsRepetition tells whether playing stone would capture back into the position of
// two plies ago. Callers must ask before committing a capture.
func (s *State) IsRepetition(stone game.Stone) bool {
	if !s.size.Contains(stone.X, stone.Y) || s.snap.Get(stone.X, stone.Y) != game.Empty {
		return false
	}
	groups := rules.CapturedGroups(s.snap, stone)
	if len(groups) == 0 {
		return false
	}
	candidate := game.CaptureStones{Capturing: stone, Removed: flatten(groups)}
	return board.IsRepetition(s.size, s.visible(), candidate)
}

// push drops the undone tail before appending, so redo history is lost on a new action.
func (s *State) push(a game.Action) {
	s.actions = append(s.actions[:len(s.actions)-s.undoDepth], a)
	s.undoDepth = 0
}

func (s *State) recompute() error {
	snap, err := board.Replay(s.size, s.visible())
	if err != nil {
		s.corrupt = err
		return err
	}
	s.snap = snap
	return nil
}

func flatten(groups [][]game.Stone) []game.Stone {
	var stones []game.Stone
	for _, g := range groups {
		stones = append(stones, g...)
	}
	return stones
}
