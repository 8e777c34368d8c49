package game

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"goban/internal/domain/game"
	apperr "goban/internal/errors"
	"goban/internal/httpresponse"
	"goban/internal/usecase/analysis"
	gameuc "goban/internal/usecase/game"
	"goban/internal/utils"
)

const (
	wsIdlePingInterval = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type CreateGameRequest struct {
	BoardSize int `json:"board_size"`
}

type MoveRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type TurnRequest struct {
	Color      game.Color `json:"color"`
	AutoSwitch bool       `json:"auto_switch"`
}

// ActionResponse tells whether the action was accepted and shows the game after it.
type ActionResponse struct {
	Accepted bool        `json:"accepted"`
	Game     gameuc.View `json:"game"`
}

// StreamMessage is pushed over the game websocket.
type StreamMessage struct {
	Type       string           `json:"type"` // "game", "evaluation", "error", "ping"
	Game       *gameuc.View     `json:"game,omitempty"`
	Evaluation *analysis.Result `json:"evaluation,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type GameHandler struct {
	log    *zap.SugaredLogger
	gameUC *gameuc.GameUseCase
	// worker is nil when the engine is disabled
	worker *analysis.Worker
}

func NewGameHandler(log *zap.SugaredLogger, gameUC *gameuc.GameUseCase, worker *analysis.Worker) *GameHandler {
	return &GameHandler{
		log:    log,
		gameUC: gameUC,
		worker: worker,
	}
}

func (g *GameHandler) HandleNewGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("JSON decode error:", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	view, err := g.gameUC.CreateGame(r.Context(), req.BoardSize)
	if err != nil {
		g.log.Warnw("failed to create game", "error", err)
		httpresponse.WriteError(w, err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusCreated, view)
}

func (g *GameHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	view, err := g.gameUC.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, view)
}

func (g *GameHandler) HandleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := g.gameUC.DeleteGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		g.log.Errorw("failed to delete game", "error", err)
		httpresponse.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *GameHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	id := chi.URLParam(r, "id")
	view, ok, err := g.gameUC.Play(r.Context(), id, req.X, req.Y)
	g.respondAction(w, id, view, ok, err)
}

func (g *GameHandler) HandlePass(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok, err := g.gameUC.Pass(r.Context(), id)
	g.respondAction(w, id, view, ok, err)
}

func (g *GameHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok, err := g.gameUC.Undo(r.Context(), id)
	g.respondAction(w, id, view, ok, err)
}

func (g *GameHandler) HandleRedo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok, err := g.gameUC.Redo(r.Context(), id)
	g.respondAction(w, id, view, ok, err)
}

func (g *GameHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := g.gameUC.Clear(r.Context(), id)
	g.respondAction(w, id, view, err == nil, err)
}

func (g *GameHandler) HandleSetTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	view, err := g.gameUC.SetTurn(r.Context(), chi.URLParam(r, "id"), req.Color, req.AutoSwitch)
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, view)
}

func (g *GameHandler) respondAction(w http.ResponseWriter, id string, view gameuc.View, ok bool, err error) {
	if err != nil {
		if !errors.Is(err, apperr.ErrRepetition) {
			g.log.Warnw("game action failed", "game", id, "error", err)
		}
		httpresponse.WriteError(w, err)
		return
	}
	if !ok && view.Ended {
		httpresponse.WriteError(w, apperr.ErrGameEnded)
		return
	}

	if ok {
		g.evaluateLater(view)
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, ActionResponse{Accepted: ok, Game: view})
}

// evaluateLater queues an evaluation of the new position; the result reaches stream subscribers.
func (g *GameHandler) evaluateLater(view gameuc.View) {
	if g.worker == nil {
		return
	}
	reply := g.worker.Submit(analysis.Job{
		GameID:  view.ID,
		Size:    view.BoardSize,
		Actions: view.Visible,
		Turn:    len(view.Visible),
	})
	go func() {
		if res := <-reply; res.Err != nil && !errors.Is(res.Err, apperr.ErrEngineBusy) {
			g.log.Debugw("background evaluation failed", "game", view.ID, "error", res.Err)
		}
	}()
}

// HandleStream upgrades to a websocket that first sends the game and then every
// evaluation computed for it.
func (g *GameHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := g.gameUC.GetGame(r.Context(), id)
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("upgrade error:", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// клиент ничего не присылает, читаем только чтобы заметить закрытие
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := make(chan StreamMessage, 8)
	send <- StreamMessage{Type: "game", Game: &view}

	var results <-chan analysis.Result
	if g.worker != nil {
		sub, unsubscribe := g.worker.Subscribe(id)
		defer unsubscribe()
		results = sub
	}

	go func() {
		defer close(send)
		for {
			select {
			case <-ctx.Done():
				return
			case res, ok := <-results:
				if !ok {
					return
				}
				msg := StreamMessage{Type: "evaluation", Evaluation: &res}
				if res.Err != nil {
					msg = StreamMessage{Type: "error", Error: res.Err.Error()}
				}
				select {
				case send <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	if err := writeWithHeartbeat(conn, send); err != nil {
		g.log.Debugw("stream closed", "game", id, "error", err)
	}
}

func writeWithHeartbeat(conn *websocket.Conn, send <-chan StreamMessage) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(StreamMessage{Type: "ping"}); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
