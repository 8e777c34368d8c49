// Package export renders stored games as printable PDF sheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"goban/internal/domain/game"
	"goban/internal/usecase/board"
	"goban/internal/usecase/katago"
)

const (
	margin     = 25.0
	boardWidth = 160.0
	labelSize  = 8.0
)

// VisibleActions decodes rec and drops the undone tail.
func VisibleActions(rec game.Record) ([]game.Action, error) {
	actions, err := game.FromMoves(rec.Moves)
	if err != nil {
		return nil, err
	}
	if rec.UndoDepth < 0 || rec.UndoDepth > len(actions) {
		return nil, fmt.Errorf("undo depth %d out of range for %d moves", rec.UndoDepth, len(actions))
	}
	return actions[:len(actions)-rec.UndoDepth], nil
}

// MoveList returns one line per action in engine notation, e.g. "3. W C7 x2".
func MoveList(size game.BoardSize, actions []game.Action) []string {
	lines := make([]string, 0, len(actions))
	for i, a := range actions {
		move := katago.EncodeAction(size, a)
		line := fmt.Sprintf("%d. %s %s", i+1, move[0], move[1])
		if c, ok := a.(game.CaptureStones); ok {
			line += fmt.Sprintf(" x%d", len(c.Removed))
		}
		lines = append(lines, line)
	}
	return lines
}

// Title heads the sheet of an archived game.
func Title(g game.ArchivedGame) string {
	return fmt.Sprintf("Game %s, finished %s", g.GameID, g.FinishedAt.Format("2006-01-02 15:04"))
}

// Summary is one line of the archive listing.
func Summary(g game.ArchivedGame) string {
	visible := len(g.Record.Moves) - g.Record.UndoDepth
	return fmt.Sprintf("%s  %s  %dx%d  %d moves  captures B:%d W:%d",
		g.GameID, g.FinishedAt.Format("2006-01-02 15:04"), g.Record.BoardSize, g.Record.BoardSize,
		visible, g.CapturesBlack, g.CapturesWhite)
}

// Render writes a two-page sheet: the final position and the move list.
func Render(w io.Writer, title string, rec game.Record) error {
	actions, err := VisibleActions(rec)
	if err != nil {
		return err
	}
	snap, err := board.Replay(rec.BoardSize, actions)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, title)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	black, white := captures(actions)
	pdf.Cell(0, 6, fmt.Sprintf("%dx%d, %d moves, captured by black: %d, by white: %d",
		rec.BoardSize, rec.BoardSize, len(actions), black, white))
	if snap.Ended() {
		pdf.Ln(6)
		pdf.Cell(0, 6, "Game over: both players passed")
	}
	drawBoard(pdf, snap)

	pdf.AddPage()
	pdf.SetFont("Courier", "", 10)
	lines := MoveList(rec.BoardSize, actions)
	if len(lines) == 0 {
		lines = []string{"no moves"}
	}
	pdf.MultiCell(0, 4.5, strings.Join(lines, "\n"), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func captures(actions []game.Action) (black, white int) {
	for _, a := range actions {
		c, ok := a.(game.CaptureStones)
		if !ok {
			continue
		}
		if c.Capturing.Color == game.Black {
			black += len(c.Removed)
		} else {
			white += len(c.Removed)
		}
	}
	return black, white
}

// drawBoard puts column Y left to right and row X top to bottom, labelled like the engine does.
func drawBoard(pdf *gofpdf.Fpdf, snap *game.Snapshot) {
	n := snap.Size()
	top := margin + 25
	step := boardWidth / float64(n-1)
	pos := func(i int) (float64, float64) {
		return margin + float64(i)*step, top + float64(i)*step
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	for i := 0; i < n; i++ {
		x, y := pos(i)
		pdf.Line(x, top, x, top+boardWidth)
		pdf.Line(margin, y, margin+boardWidth, y)
	}

	pdf.SetFont("Helvetica", "", labelSize)
	size := game.BoardSize(n)
	for i := 0; i < n; i++ {
		x, y := pos(i)
		label := katago.EncodeStone(size, game.Stone{X: n - 1, Y: i})[1]
		pdf.Text(x-1, top-3, label[:1])
		pdf.Text(margin-8, y+1, fmt.Sprint(n-i))
	}

	radius := step * 0.45
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			color, ok := snap.Get(x, y).Color()
			if !ok {
				continue
			}
			if color == game.Black {
				pdf.SetFillColor(0, 0, 0)
			} else {
				pdf.SetFillColor(255, 255, 255)
			}
			cx, _ := pos(y)
			_, cy := pos(x)
			pdf.Circle(cx, cy, radius, "FD")
		}
	}
}
