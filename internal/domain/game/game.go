package game

import (
	"fmt"
	"sort"

	apperr "goban/internal/errors"
)

type Color int

const (
	Black Color = iota
	White
)

func (c Color) Opponent() Color {
	if c == Black {
		return White
	}
	return Black
}

func (c Color) String() string {
	if c == Black {
		return "B"
	}
	return "W"
}

// ParseColor accepts the engine spellings "B"/"W" as well as "black"/"white".
func ParseColor(s string) (Color, error) {
	switch s {
	case "B", "b", "black", "Black", "BLACK":
		return Black, nil
	case "W", "w", "white", "White", "WHITE":
		return White, nil
	}
	return Black, fmt.Errorf("unknown color %q", s)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Cell is the occupancy of one intersection.
type Cell int

const (
	Empty Cell = iota
	BlackCell
	WhiteCell
)

func CellOf(c Color) Cell {
	if c == Black {
		return BlackCell
	}
	return WhiteCell
}

// Color returns the stone color of an occupied cell; ok is false for Empty.
func (c Cell) Color() (Color, bool) {
	switch c {
	case BlackCell:
		return Black, true
	case WhiteCell:
		return White, true
	}
	return Black, false
}

type Stone struct {
	Color Color `json:"color" bson:"color"`
	X     int   `json:"x" bson:"x"`
	Y     int   `json:"y" bson:"y"`
}

func (s Stone) Less(o Stone) bool {
	if s.X != o.X {
		return s.X < o.X
	}
	return s.Y < o.Y
}

// SortStones orders stones by (X, Y) so that groups can be compared as sets.
func SortStones(stones []Stone) {
	sort.Slice(stones, func(i, j int) bool { return stones[i].Less(stones[j]) })
}

type BoardSize int

const (
	Size9  BoardSize = 9
	Size13 BoardSize = 13
	Size19 BoardSize = 19
)

var BoardSizes = []BoardSize{Size9, Size13, Size19}

func ParseBoardSize(n int) (BoardSize, error) {
	for _, s := range BoardSizes {
		if int(s) == n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: got %d", apperr.ErrBoardSize, n)
}

func (s BoardSize) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < int(s) && y < int(s)
}

// Snapshot is the board derived from a replayed action log. Cells are indexed [x][y].
// It is never edited in place once published; replay builds a fresh one.
type Snapshot struct {
	cells  [][]Cell
	inPass *Color
	ended  bool
}

func NewSnapshot(size BoardSize) *Snapshot {
	n := int(size)
	cells := make([][]Cell, n)
	for x := range cells {
		cells[x] = make([]Cell, n)
	}
	return &Snapshot{cells: cells}
}

// SnapshotFromCells builds a snapshot from a prepared grid, mostly for fixtures.
func SnapshotFromCells(cells [][]Cell) *Snapshot {
	copied := make([][]Cell, len(cells))
	for x := range cells {
		copied[x] = append([]Cell(nil), cells[x]...)
	}
	return &Snapshot{cells: copied}
}

func (s *Snapshot) Size() int {
	return len(s.cells)
}

func (s *Snapshot) Get(x, y int) Cell {
	return s.cells[x][y]
}

// Set is used by replay while the snapshot is still being built.
func (s *Snapshot) Set(x, y int, c Cell) {
	s.cells[x][y] = c
}

func (s *Snapshot) Ended() bool {
	return s.ended
}

func (s *Snapshot) SetEnded() {
	s.ended = true
}

// InPass returns the color that passed last when no stone has been played since.
func (s *Snapshot) InPass() (Color, bool) {
	if s.inPass == nil {
		return Black, false
	}
	return *s.inPass, true
}

func (s *Snapshot) SetInPass(c Color) {
	s.inPass = &c
}

func (s *Snapshot) ClearPass() {
	s.inPass = nil
}

// Equal compares occupancy cell by cell.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.Size() != o.Size() {
		return false
	}
	for x := range s.cells {
		for y := range s.cells[x] {
			if s.cells[x][y] != o.cells[x][y] {
				return false
			}
		}
	}
	return true
}

// Rows returns a copy of the grid for serialization.
func (s *Snapshot) Rows() [][]Cell {
	rows := make([][]Cell, len(s.cells))
	for x := range s.cells {
		rows[x] = append([]Cell(nil), s.cells[x]...)
	}
	return rows
}
