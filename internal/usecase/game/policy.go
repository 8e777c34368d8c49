package game

import (
	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

// Policy applies player input to a State: it knows whose turn it is, refuses ko
// retakes and switches the turn after each accepted action when AutoSwitch is on.
type Policy struct {
	Turn       game.Color
	AutoSwitch bool
}

func NewPolicy() *Policy {
	return &Policy{Turn: game.Black, AutoSwitch: true}
}

func (p *Policy) ToggleTurn() {
	p.Turn = p.Turn.Opponent()
}

// Play puts a stone of the current color at (x, y).
func (p *Policy) Play(s *State, x, y int) (bool, error) {
	stone := game.Stone{Color: p.Turn, X: x, Y: y}
	if s.IsRepetition(stone) {
		return false, apperr.ErrRepetition
	}
	return p.after(s.AddStone(stone))
}

func (p *Policy) Pass(s *State) (bool, error) {
	return p.after(s.Pass(p.Turn))
}

func (p *Policy) Undo(s *State) (bool, error) {
	return p.after(s.Undo())
}

func (p *Policy) Redo(s *State) (bool, error) {
	return p.after(s.Redo())
}

func (p *Policy) Clear(s *State) {
	s.Clear()
	p.Turn = game.Black
}

func (p *Policy) after(ok bool, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	if ok && p.AutoSwitch {
		p.ToggleTurn()
	}
	return ok, nil
}
