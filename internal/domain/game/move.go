package game

import (
	"encoding/json"
	"fmt"
)

// Action is one entry of the append-only game log. The set of variants is closed:
// AddStone, CaptureStones and Pass.
type Action interface {
	isAction()
}

type AddStone struct {
	Stone Stone
}

type CaptureStones struct {
	Capturing Stone
	Removed   []Stone
}

type Pass struct {
	Color Color
}

func (AddStone) isAction()      {}
func (CaptureStones) isAction() {}
func (Pass) isAction()          {}

// MoveColor returns the color of the player who made the action.
func MoveColor(a Action) Color {
	switch act := a.(type) {
	case AddStone:
		return act.Stone.Color
	case CaptureStones:
		return act.Capturing.Color
	case Pass:
		return act.Color
	}
	return Black
}

const (
	KindAdd     = "add"
	KindCapture = "capture"
	KindPass    = "pass"
)

// @name Move
// Move is the persisted form of an Action.
type Move struct {
	Kind    string  `json:"kind" bson:"kind"`
	Color   Color   `json:"color" bson:"color"`
	Stone   *Stone  `json:"stone,omitempty" bson:"stone,omitempty"`
	Removed []Stone `json:"removed,omitempty" bson:"removed,omitempty"`
}

func ToMove(a Action) Move {
	switch act := a.(type) {
	case AddStone:
		s := act.Stone
		return Move{Kind: KindAdd, Color: s.Color, Stone: &s}
	case CaptureStones:
		s := act.Capturing
		return Move{Kind: KindCapture, Color: s.Color, Stone: &s, Removed: append([]Stone(nil), act.Removed...)}
	case Pass:
		return Move{Kind: KindPass, Color: act.Color}
	}
	return Move{}
}

func (m Move) Action() (Action, error) {
	switch m.Kind {
	case KindAdd:
		if m.Stone == nil {
			return nil, fmt.Errorf("move %q without stone", m.Kind)
		}
		return AddStone{Stone: *m.Stone}, nil
	case KindCapture:
		if m.Stone == nil {
			return nil, fmt.Errorf("move %q without stone", m.Kind)
		}
		return CaptureStones{Capturing: *m.Stone, Removed: append([]Stone(nil), m.Removed...)}, nil
	case KindPass:
		return Pass{Color: m.Color}, nil
	}
	return nil, fmt.Errorf("unknown move kind %q", m.Kind)
}

func ToMoves(actions []Action) []Move {
	moves := make([]Move, 0, len(actions))
	for _, a := range actions {
		moves = append(moves, ToMove(a))
	}
	return moves
}

func FromMoves(moves []Move) ([]Action, error) {
	actions := make([]Action, 0, len(moves))
	for i, m := range moves {
		a, err := m.Action()
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// @name Record
// Record is a whole game log with its undo cursor, as stored between requests.
type Record struct {
	BoardSize BoardSize `json:"board_size" bson:"board_size"`
	UndoDepth int       `json:"undo_depth" bson:"undo_depth"`
	Moves     []Move    `json:"moves" bson:"moves"`
}

func MarshalRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("failed to decode game record: %w", err)
	}
	if _, err := ParseBoardSize(int(r.BoardSize)); err != nil {
		return Record{}, err
	}
	return r, nil
}
