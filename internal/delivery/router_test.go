package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	gameDelivery "goban/internal/delivery/game"
	katagoDelivery "goban/internal/delivery/katago"
	"goban/internal/domain"
	"goban/internal/domain/game"
	apperr "goban/internal/errors"
	"goban/internal/usecase/analysis"
	gameuc "goban/internal/usecase/game"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	busy  bool
	level int
	seen  [][]game.Action
}

func (f *fakeAnalyzer) SuggestMoves(_ context.Context, size game.BoardSize, actions []game.Action, n int) (domain.EngineMove, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, actions)
	return domain.EngineMove{Color: game.White, Stone: game.Stone{Color: game.White, X: 2, Y: 6}}, nil
}

func (f *fakeAnalyzer) Evaluate(_ context.Context, size game.BoardSize, actions []game.Action) (domain.Evaluation, error) {
	return domain.Evaluation{ScoreLead: float64(len(actions)) + 0.5, Ownership: [][]float64{{1}}}, nil
}

func (f *fakeAnalyzer) IsBusy(context.Context, game.BoardSize) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeAnalyzer) UpdateDifficulty(_ context.Context, level int) error {
	if level < 1 || level > 5 {
		return apperr.ErrDifficultyRange
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = level
	return nil
}

func (f *fakeAnalyzer) Difficulty(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level, nil
}

type envelope struct {
	Status int
	Body   json.RawMessage
}

func newTestServer(t *testing.T, engine *fakeAnalyzer) *httptest.Server {
	t.Helper()
	log := zap.NewNop().Sugar()
	gameUC := gameuc.NewGameUseCase(log, nil, nil)

	var worker *analysis.Worker
	if engine != nil {
		worker = analysis.NewWorker(log, engine, 8)
		ctx, cancel := context.WithCancel(context.Background())
		go worker.Run(ctx)
		t.Cleanup(cancel)
	}

	h := &Handlers{
		Game:   gameDelivery.NewGameHandler(log, gameUC, worker),
		Katago: katagoDelivery.NewKatagoHandler(log, gameUC, nil),
	}
	if engine != nil {
		h.Katago = katagoDelivery.NewKatagoHandler(log, gameUC, engine)
	}

	srv := httptest.NewServer(h.Router(false))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
		if err := json.Unmarshal(env.Body, out); err != nil {
			t.Fatalf("%s %s: decode body %s: %v", method, path, env.Body, err)
		}
	}
	return resp.StatusCode
}

func createGame(t *testing.T, srv *httptest.Server, size int) gameuc.View {
	t.Helper()
	var view gameuc.View
	if code := call(t, srv, http.MethodPost, "/games", `{"board_size":`+jsonInt(size)+`}`, &view); code != http.StatusCreated {
		t.Fatalf("create game: status %d", code)
	}
	return view
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestGameFlow(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{level: 5})
	view := createGame(t, srv, 9)
	base := "/games/" + view.ID

	var action gameDelivery.ActionResponse
	if code := call(t, srv, http.MethodPost, base+"/move", `{"x":4,"y":4}`, &action); code != http.StatusOK {
		t.Fatalf("move: status %d", code)
	}
	if !action.Accepted || action.Game.Board[4][4] != game.BlackCell || action.Game.Turn != game.White {
		t.Fatalf("unexpected move result %+v", action)
	}

	call(t, srv, http.MethodPost, base+"/move", `{"x":4,"y":4}`, &action)
	if action.Accepted {
		t.Fatal("occupied point must not be accepted")
	}

	call(t, srv, http.MethodPost, base+"/undo", "", &action)
	if !action.Accepted || len(action.Game.Moves) != 0 {
		t.Fatalf("undo: %+v", action)
	}
	call(t, srv, http.MethodPost, base+"/redo", "", &action)
	if !action.Accepted || len(action.Game.Moves) != 1 {
		t.Fatalf("redo: %+v", action)
	}

	call(t, srv, http.MethodPost, base+"/pass", "", &action)
	call(t, srv, http.MethodPost, base+"/pass", "", &action)
	if !action.Game.Ended {
		t.Fatal("two passes end the game")
	}
	if code := call(t, srv, http.MethodPost, base+"/move", `{"x":0,"y":0}`, nil); code != http.StatusConflict {
		t.Fatalf("move after the end: expected 409, got %d", code)
	}

	call(t, srv, http.MethodPost, base+"/clear", "", &action)
	if action.Game.Ended || len(action.Game.Moves) != 0 {
		t.Fatalf("clear: %+v", action.Game)
	}

	var got gameuc.View
	if code := call(t, srv, http.MethodGet, base, "", &got); code != http.StatusOK || got.ID != view.ID {
		t.Fatalf("get game: status %d, %+v", code, got)
	}
	if code := call(t, srv, http.MethodDelete, base, "", nil); code != http.StatusNoContent {
		t.Fatalf("delete game: status %d", code)
	}
	if code := call(t, srv, http.MethodGet, base, "", nil); code != http.StatusNotFound {
		t.Fatalf("deleted game: expected 404, got %d", code)
	}
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	if code := call(t, srv, http.MethodPost, "/games", `{"board_size":10}`, nil); code != http.StatusBadRequest {
		t.Fatalf("bad size: expected 400, got %d", code)
	}
	if code := call(t, srv, http.MethodPost, "/games", `{"size":9}`, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", code)
	}
	if code := call(t, srv, http.MethodPost, "/games/nope/pass", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing game: expected 404, got %d", code)
	}
}

func TestEngineEndpoints(t *testing.T) {
	engine := &fakeAnalyzer{level: 5}
	srv := newTestServer(t, engine)
	view := createGame(t, srv, 9)
	base := "/games/" + view.ID
	call(t, srv, http.MethodPost, base+"/move", `{"x":2,"y":2}`, nil)

	var bot katagoDelivery.BotMoveResponse
	if code := call(t, srv, http.MethodPost, base+"/suggest", "", &bot); code != http.StatusOK {
		t.Fatalf("suggest: status %d", code)
	}
	if bot.BotMove.Stone != (game.Stone{Color: game.White, X: 2, Y: 6}) {
		t.Fatalf("unexpected suggestion %+v", bot)
	}
	engine.mu.Lock()
	seen := engine.seen
	engine.mu.Unlock()
	if len(seen) != 1 || len(seen[0]) != 1 {
		t.Fatalf("engine must see the visible log, got %v", seen)
	}

	var eval domain.Evaluation
	if code := call(t, srv, http.MethodPost, base+"/evaluate", `{"wait":true}`, &eval); code != http.StatusOK || eval.ScoreLead != 1.5 {
		t.Fatalf("evaluate: status %d, %+v", code, eval)
	}

	engine.mu.Lock()
	engine.busy = true
	engine.mu.Unlock()
	if code := call(t, srv, http.MethodPost, base+"/evaluate", `{"wait":false}`, nil); code != http.StatusConflict {
		t.Fatalf("busy engine: expected 409, got %d", code)
	}
	if code := call(t, srv, http.MethodPost, base+"/suggest", `{"n":1,"wait":true}`, nil); code != http.StatusOK {
		t.Fatalf("waiting caller must be served, got %d", code)
	}

	var level katagoDelivery.DifficultyResponse
	if code := call(t, srv, http.MethodPut, "/engine/difficulty", `{"level":2}`, &level); code != http.StatusOK || level.Level != 2 {
		t.Fatalf("set difficulty: status %d, %+v", code, level)
	}
	if code := call(t, srv, http.MethodPut, "/engine/difficulty", `{"level":6}`, nil); code != http.StatusBadRequest {
		t.Fatalf("out of range difficulty: expected 400, got %d", code)
	}
	if code := call(t, srv, http.MethodGet, "/engine/difficulty", "", &level); code != http.StatusOK || level.Level != 2 {
		t.Fatalf("get difficulty: status %d, %+v", code, level)
	}
}

func TestEngineDisabled(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createGame(t, srv, 13)

	if code := call(t, srv, http.MethodPost, "/games/"+view.ID+"/suggest", "", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	var action gameDelivery.ActionResponse
	if code := call(t, srv, http.MethodPost, "/games/"+view.ID+"/move", `{"x":3,"y":3}`, &action); code != http.StatusOK || !action.Accepted {
		t.Fatalf("game must stay playable without engine: status %d", code)
	}
}

func TestStream(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{level: 5})
	view := createGame(t, srv, 9)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/games/" + view.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first gameDelivery.StreamMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Type != "game" || first.Game == nil || first.Game.ID != view.ID {
		t.Fatalf("unexpected first message %+v", first)
	}

	call(t, srv, http.MethodPost, "/games/"+view.ID+"/move", `{"x":4,"y":4}`, nil)

	var next gameDelivery.StreamMessage
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read: %v", err)
	}
	if next.Type != "evaluation" || next.Evaluation == nil || next.Evaluation.Turn != 1 || next.Evaluation.Evaluation.ScoreLead != 1.5 {
		t.Fatalf("unexpected evaluation message %+v", next)
	}
}

