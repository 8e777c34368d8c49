package katago

import (
	"fmt"
	"strconv"
	"strings"

	"goban/internal/domain"
	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

// PassMove is the coordinate KataGo uses for a pass.
const PassMove = "pass"

// skippedColumn never appears in engine coordinates.
const skippedColumn = 'I'

// EncodeStone converts a stone to engine notation: the letter comes from Y and the
// number counts X from the far edge. On 9x9, (x=4, y=8) is "J5".
func EncodeStone(size game.BoardSize, stone game.Stone) [2]string {
	letter := 'A' + rune(stone.Y)
	if letter >= skippedColumn {
		letter++
	}
	return [2]string{stone.Color.String(), fmt.Sprintf("%c%d", letter, int(size)-stone.X)}
}

// EncodeAction converts one log entry to the [color, coordinate] pair sent to the engine.
func EncodeAction(size game.BoardSize, a game.Action) [2]string {
	switch act := a.(type) {
	case game.AddStone:
		return EncodeStone(size, act.Stone)
	case game.CaptureStones:
		return EncodeStone(size, act.Capturing)
	case game.Pass:
		return [2]string{act.Color.String(), PassMove}
	}
	return [2]string{}
}

// TranslateLog converts a visible action log into the engine's move list.
func TranslateLog(size game.BoardSize, actions []game.Action) [][2]string {
	moves := make([][2]string, 0, len(actions))
	for _, a := range actions {
		moves = append(moves, EncodeAction(size, a))
	}
	return moves
}

// DecodeMove is the inverse of EncodeStone; it also accepts passes.
func DecodeMove(size game.BoardSize, move [2]string) (domain.EngineMove, error) {
	color, err := game.ParseColor(move[0])
	if err != nil {
		return domain.EngineMove{}, fmt.Errorf("%w: %v", apperr.ErrUnparseableMove, err)
	}

	coord := strings.ToUpper(strings.TrimSpace(move[1]))
	if strings.EqualFold(coord, PassMove) {
		return domain.EngineMove{Color: color, Pass: true}, nil
	}
	if len(coord) < 2 {
		return domain.EngineMove{}, fmt.Errorf("%w: %q", apperr.ErrUnparseableMove, move[1])
	}

	letter := rune(coord[0])
	if letter < 'A' || letter > 'Z' || letter == skippedColumn {
		return domain.EngineMove{}, fmt.Errorf("%w: bad column in %q", apperr.ErrUnparseableMove, move[1])
	}
	y := int(letter - 'A')
	if letter > skippedColumn {
		y--
	}

	n, err := strconv.Atoi(coord[1:])
	if err != nil {
		return domain.EngineMove{}, fmt.Errorf("%w: bad row in %q", apperr.ErrUnparseableMove, move[1])
	}
	x := int(size) - n

	if !size.Contains(x, y) {
		return domain.EngineMove{}, fmt.Errorf("%w: %q is off a %dx%d board", apperr.ErrUnparseableMove, move[1], size, size)
	}
	return domain.EngineMove{Color: color, Stone: game.Stone{Color: color, X: x, Y: y}}, nil
}
