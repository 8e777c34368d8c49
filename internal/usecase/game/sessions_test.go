package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]game.Record
	saves   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]game.Record)}
}

func (m *memoryStore) SaveRecord(_ context.Context, id string, rec game.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = rec
	m.saves++
	return nil
}

func (m *memoryStore) LoadRecord(_ context.Context, id string) (game.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return game.Record{}, apperr.ErrGameNotFound
	}
	return rec, nil
}

func (m *memoryStore) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

type archiveCall struct {
	id       string
	rec      game.Record
	captures map[game.Color]int
}

type memoryArchive struct {
	calls []archiveCall
	err   error
}

func (m *memoryArchive) ArchiveGame(_ context.Context, id string, rec game.Record, captures map[game.Color]int) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, archiveCall{id: id, rec: rec, captures: captures})
	return nil
}

func newTestUseCase(store LogStore, archive Archive) *GameUseCase {
	return NewGameUseCase(zap.NewNop().Sugar(), store, archive)
}

func TestCreateGame(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(nil, nil)

	view, err := uc.CreateGame(ctx, 13)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ID == "" || view.BoardSize != game.Size13 || len(view.Board) != 13 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Turn != game.Black {
		t.Fatal("black moves first")
	}

	if _, err := uc.CreateGame(ctx, 10); !errors.Is(err, apperr.ErrBoardSize) {
		t.Fatalf("expected ErrBoardSize, got %v", err)
	}
	if _, err := uc.GetGame(ctx, "missing"); !errors.Is(err, apperr.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestPlayAndCaptureView(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(nil, nil)
	created, _ := uc.CreateGame(ctx, 9)

	// black surrounds white in the corner
	for _, pt := range [][2]int{{1, 0}, {0, 0}, {0, 1}} {
		if _, ok, err := uc.Play(ctx, created.ID, pt[0], pt[1]); err != nil || !ok {
			t.Fatalf("play %v: ok=%v err=%v", pt, ok, err)
		}
	}

	view, err := uc.GetGame(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Board[0][0] != game.Empty {
		t.Fatal("white corner stone should be gone")
	}
	if view.Captures["B"] != 1 || view.Captures["W"] != 0 {
		t.Fatalf("unexpected captures %v", view.Captures)
	}
	if len(view.Moves) != 3 || view.Moves[2].Kind != game.KindCapture {
		t.Fatalf("unexpected moves %+v", view.Moves)
	}
	if view.Turn != game.White {
		t.Fatal("white should be next")
	}
}

func TestPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	uc := newTestUseCase(store, nil)
	created, _ := uc.CreateGame(ctx, 9)

	uc.Play(ctx, created.ID, 2, 2)
	uc.Play(ctx, created.ID, 6, 6)
	uc.Play(ctx, created.ID, 4, 4)
	uc.Undo(ctx, created.ID)

	rec := store.records[created.ID]
	if len(rec.Moves) != 3 || rec.UndoDepth != 1 {
		t.Fatalf("unexpected stored record %+v", rec)
	}

	// a fresh process sees the same game
	other := newTestUseCase(store, nil)
	view, err := other.GetGame(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Board[2][2] != game.BlackCell || view.Board[6][6] != game.WhiteCell || view.Board[4][4] != game.Empty {
		t.Fatal("restored board differs")
	}
	if view.Turn != game.Black {
		t.Fatalf("black should move after white's last visible move, got %v", view.Turn)
	}
	if _, ok, _ := other.Redo(ctx, created.ID); !ok {
		t.Fatal("redo history must survive a restore")
	}

	if err := other.DeleteGame(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.records[created.ID]; ok {
		t.Fatal("delete must drop the stored record")
	}
}

func TestRestoreCorruptRecordUntilClear(t *testing.T) {
	capture := game.Stone{Color: game.Black, X: 0, Y: 0}
	tests := []struct {
		name string
		rec  game.Record
	}{
		{
			name: "capture of a missing stone",
			rec: game.Record{BoardSize: game.Size9, Moves: []game.Move{{
				Kind:    game.KindCapture,
				Color:   game.Black,
				Stone:   &capture,
				Removed: []game.Stone{{Color: game.White, X: 0, Y: 1}},
			}}},
		},
		{
			name: "unknown move kind",
			rec:  game.Record{BoardSize: game.Size9, Moves: []game.Move{{Kind: "jump", Color: game.Black}}},
		},
		{
			name: "undo depth past the log",
			rec:  game.Record{BoardSize: game.Size9, UndoDepth: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newMemoryStore()
			store.records["broken"] = tt.rec
			uc := newTestUseCase(store, nil)

			view, err := uc.GetGame(ctx, "broken")
			if err != nil {
				t.Fatalf("a corrupt game must still load: %v", err)
			}
			if !view.Corrupt {
				t.Fatal("view should report the corruption")
			}
			if _, _, err := uc.Play(ctx, "broken", 4, 4); !errors.Is(err, apperr.ErrBoardCorrupt) {
				t.Fatalf("expected ErrBoardCorrupt, got %v", err)
			}

			view, err = uc.Clear(ctx, "broken")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if view.Corrupt || len(view.Moves) != 0 {
				t.Fatalf("clear should reset the game, got %+v", view)
			}
			view, ok, err := uc.Play(ctx, "broken", 4, 4)
			if err != nil || !ok || view.Board[4][4] != game.BlackCell {
				t.Fatalf("play after clear: ok=%v err=%v", ok, err)
			}
			if rec := store.records["broken"]; len(rec.Moves) != 1 || rec.UndoDepth != 0 {
				t.Fatalf("cleared game should be stored again, got %+v", rec)
			}
		})
	}
}

func TestArchiveOnDoublePass(t *testing.T) {
	ctx := context.Background()
	archive := &memoryArchive{}
	uc := newTestUseCase(newMemoryStore(), archive)
	created, _ := uc.CreateGame(ctx, 9)

	uc.Play(ctx, created.ID, 4, 4)
	uc.Pass(ctx, created.ID)
	if len(archive.calls) != 0 {
		t.Fatal("game is not over after a single pass")
	}

	view, ok, err := uc.Pass(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("pass: ok=%v err=%v", ok, err)
	}
	if !view.Ended {
		t.Fatal("double pass must end the game")
	}
	if len(archive.calls) != 1 {
		t.Fatalf("expected one archive call, got %d", len(archive.calls))
	}
	call := archive.calls[0]
	if call.id != created.ID || len(call.rec.Moves) != 3 {
		t.Fatalf("unexpected archive call %+v", call)
	}

	if _, ok, _ := uc.Play(ctx, created.ID, 0, 0); ok {
		t.Fatal("ended game must refuse moves")
	}
	if len(archive.calls) != 1 {
		t.Fatal("a finished game is archived once")
	}
}

func TestArchiveFailureKeepsGamePlayable(t *testing.T) {
	ctx := context.Background()
	archive := &memoryArchive{err: errors.New("mongo down")}
	uc := newTestUseCase(nil, archive)
	created, _ := uc.CreateGame(ctx, 9)

	uc.Pass(ctx, created.ID)
	if _, ok, err := uc.Pass(ctx, created.ID); err != nil || !ok {
		t.Fatalf("pass must succeed even if archiving fails: ok=%v err=%v", ok, err)
	}
	if _, ok, err := uc.Undo(ctx, created.ID); err != nil || !ok {
		t.Fatalf("undo: ok=%v err=%v", ok, err)
	}
}

func TestRepetitionSurfaces(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(nil, nil)
	created, _ := uc.CreateGame(ctx, 9)

	for _, pt := range [][2]int{{1, 0}, {2, 0}, {0, 1}, {3, 1}, {1, 2}, {2, 2}, {5, 5}, {1, 1}, {2, 1}} {
		if _, ok, err := uc.Play(ctx, created.ID, pt[0], pt[1]); err != nil || !ok {
			t.Fatalf("play %v: ok=%v err=%v", pt, ok, err)
		}
	}
	if _, _, err := uc.Play(ctx, created.ID, 1, 1); !errors.Is(err, apperr.ErrRepetition) {
		t.Fatalf("expected ErrRepetition, got %v", err)
	}
}

func TestSetTurnAndClear(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(nil, nil)
	created, _ := uc.CreateGame(ctx, 19)

	view, err := uc.SetTurn(ctx, created.ID, game.White, false)
	if err != nil || view.Turn != game.White {
		t.Fatalf("set turn: view=%+v err=%v", view, err)
	}
	uc.Play(ctx, created.ID, 3, 3)
	uc.Play(ctx, created.ID, 15, 15)

	view, _ = uc.GetGame(ctx, created.ID)
	if view.Board[3][3] != game.WhiteCell || view.Board[15][15] != game.WhiteCell {
		t.Fatal("both stones should be white without auto switch")
	}

	view, err = uc.Clear(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Moves) != 0 || view.Turn != game.Black {
		t.Fatalf("unexpected view after clear %+v", view)
	}
}

func TestConcurrentPlay(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(newMemoryStore(), nil)
	created, _ := uc.CreateGame(ctx, 19)

	var wg sync.WaitGroup
	for x := 0; x < 19; x++ {
		wg.Add(1)
		go func(x int) {
			defer wg.Done()
			uc.Play(ctx, created.ID, x, 9)
		}(x)
	}
	wg.Wait()

	view, _ := uc.GetGame(ctx, created.ID)
	if len(view.Moves) != 19 {
		t.Fatalf("expected 19 moves, got %d", len(view.Moves))
	}
}
