package repository

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"goban/internal/domain"
	"goban/internal/domain/game"
	apperr "goban/internal/errors"
	katagoUC "goban/internal/usecase/katago"
	katagoRPC "goban/microservices/proto"
	"goban/microservices/usecase"
)

type fakeEngine struct {
	mu      sync.Mutex
	level   int
	busy    bool
	err     error
	size    game.BoardSize
	actions []game.Action
	n       int
}

func (f *fakeEngine) SuggestMoves(_ context.Context, size game.BoardSize, actions []game.Action, n int) (domain.EngineMove, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.size, f.actions, f.n = size, actions, n
	if f.err != nil {
		return domain.EngineMove{}, f.err
	}
	return domain.EngineMove{Color: game.White, Stone: game.Stone{Color: game.White, X: 2, Y: 3}}, nil
}

func (f *fakeEngine) Evaluate(_ context.Context, size game.BoardSize, actions []game.Action) (domain.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.size, f.actions = size, actions
	if f.err != nil {
		return domain.Evaluation{}, f.err
	}
	return domain.Evaluation{ScoreLead: -2.5, Ownership: [][]float64{{0.5, -1}, {0, 1}}}, nil
}

func (f *fakeEngine) IsBusy(context.Context, game.BoardSize) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeEngine) UpdateDifficulty(_ context.Context, level int) error {
	if err := katagoUC.ValidateLevel(level); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = level
	return nil
}

func (f *fakeEngine) Difficulty(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level, nil
}

func newRemote(t *testing.T, engine *fakeEngine) *RemoteAnalyzer {
	t.Helper()
	log := zap.NewNop().Sugar()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	katagoRPC.RegisterKatagoServiceServer(server, usecase.NewKatagoUseCase(log, engine))
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	remote, err := DialRemoteAnalyzer("passthrough:///bufnet", log, grpc.WithContextDialer(dialer))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { remote.Close() })
	return remote
}

func TestRemoteSuggestMoves(t *testing.T) {
	engine := &fakeEngine{level: katagoUC.DefaultLevel}
	remote := newRemote(t, engine)

	actions := []game.Action{
		game.AddStone{Stone: game.Stone{Color: game.Black, X: 4, Y: 4}},
		game.CaptureStones{
			Capturing: game.Stone{Color: game.White, X: 0, Y: 1},
			Removed:   []game.Stone{{Color: game.Black, X: 0, Y: 0}},
		},
		game.Pass{Color: game.Black},
	}

	move, err := remote.SuggestMoves(context.Background(), game.Size9, actions, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if move.Pass || move.Color != game.White || move.Stone != (game.Stone{Color: game.White, X: 2, Y: 3}) {
		t.Fatalf("unexpected move %+v", move)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.size != game.Size9 || engine.n != 2 {
		t.Fatalf("call not forwarded: size %d n %d", engine.size, engine.n)
	}
	if len(engine.actions) != len(actions) {
		t.Fatalf("got %d actions, want %d", len(engine.actions), len(actions))
	}
	capture, ok := engine.actions[1].(game.CaptureStones)
	if !ok || len(capture.Removed) != 1 || capture.Removed[0] != (game.Stone{Color: game.Black, X: 0, Y: 0}) {
		t.Fatalf("capture not preserved: %#v", engine.actions[1])
	}
	if _, ok := engine.actions[2].(game.Pass); !ok {
		t.Fatalf("pass not preserved: %#v", engine.actions[2])
	}
}

func TestRemoteEvaluate(t *testing.T) {
	remote := newRemote(t, &fakeEngine{level: katagoUC.DefaultLevel})

	eval, err := remote.Evaluate(context.Background(), game.Size9, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.ScoreLead != -2.5 || len(eval.Ownership) != 2 || eval.Ownership[0][1] != -1 {
		t.Fatalf("unexpected evaluation %+v", eval)
	}
}

func TestRemoteErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"busy", apperr.ErrEngineBusy},
		{"unavailable", apperr.ErrEngineUnavailable},
		{"not usable", apperr.ErrEngineNotUsable},
		{"unparseable", apperr.ErrUnparseableMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newRemote(t, &fakeEngine{err: tt.err})
			_, err := remote.SuggestMoves(context.Background(), game.Size19, nil, 1)
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
		})
	}

	t.Run("missing engine files", func(t *testing.T) {
		remote := newRemote(t, &fakeEngine{err: apperr.ErrEngineModelMissing})
		_, err := remote.Evaluate(context.Background(), game.Size19, nil)
		if !errors.Is(err, apperr.ErrEngineUnavailable) {
			t.Fatalf("got %v, want %v", err, apperr.ErrEngineUnavailable)
		}
	})

	t.Run("bad board size", func(t *testing.T) {
		remote := newRemote(t, &fakeEngine{})
		_, err := remote.Evaluate(context.Background(), game.BoardSize(7), nil)
		if !errors.Is(err, apperr.ErrBoardSize) {
			t.Fatalf("got %v, want %v", err, apperr.ErrBoardSize)
		}
	})
}

func TestRemoteDifficultyAndStatus(t *testing.T) {
	engine := &fakeEngine{level: katagoUC.DefaultLevel}
	remote := newRemote(t, engine)
	ctx := context.Background()

	if err := remote.UpdateDifficulty(ctx, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	level, err := remote.Difficulty(ctx)
	if err != nil || level != 2 {
		t.Fatalf("got level %d (%v), want 2", level, err)
	}

	if err := remote.UpdateDifficulty(ctx, 6); !errors.Is(err, apperr.ErrDifficultyRange) {
		t.Fatalf("got %v, want %v", err, apperr.ErrDifficultyRange)
	}

	if remote.IsBusy(ctx, game.Size19) {
		t.Fatal("idle engine reported busy")
	}
	engine.mu.Lock()
	engine.busy = true
	engine.mu.Unlock()
	if !remote.IsBusy(ctx, game.Size19) {
		t.Fatal("busy engine reported idle")
	}
}
