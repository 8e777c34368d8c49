package katago

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"goban/internal/domain"
	apperr "goban/internal/errors"
	"goban/internal/httpresponse"
	gameuc "goban/internal/usecase/game"
	katagoUC "goban/internal/usecase/katago"
	"goban/internal/utils"
)

type SuggestRequest struct {
	N    int   `json:"n"`
	Wait *bool `json:"wait"`
}

type EvaluateRequest struct {
	Wait *bool `json:"wait"`
}

type DifficultyRequest struct {
	Level int `json:"level"`
}

type DifficultyResponse struct {
	Level int `json:"level"`
}

type BotMoveResponse struct {
	BotMove domain.EngineMove `json:"bot_move"`
}

type KatagoHandler struct {
	log    *zap.SugaredLogger
	gameUC *gameuc.GameUseCase
	// engine is nil when analysis is disabled
	engine katagoUC.Analyzer
}

func NewKatagoHandler(log *zap.SugaredLogger, gameUC *gameuc.GameUseCase, engine katagoUC.Analyzer) *KatagoHandler {
	return &KatagoHandler{
		log:    log,
		gameUC: gameUC,
		engine: engine,
	}
}

// HandleSuggestMove returns the engine's move for the side to move. With n > 1 the engine
// plays n moves ahead and the last one is returned.
func (k *KatagoHandler) HandleSuggestMove(w http.ResponseWriter, r *http.Request) {
	req := SuggestRequest{N: 1}
	if err := decodeOptional(r, &req); err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}
	if req.N < 1 {
		req.N = 1
	}

	ctx := r.Context()
	view, err := k.gameUC.GetGame(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}
	if err := k.ready(r, view, req.Wait); err != nil {
		httpresponse.WriteError(w, err)
		return
	}

	move, err := k.engine.SuggestMoves(ctx, view.BoardSize, view.Visible, req.N)
	if err != nil {
		k.log.Warnw("failed to generate bot move", "game", view.ID, "error", err)
		httpresponse.WriteError(w, err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, BotMoveResponse{BotMove: move})
}

func (k *KatagoHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeOptional(r, &req); err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	ctx := r.Context()
	view, err := k.gameUC.GetGame(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}
	if err := k.ready(r, view, req.Wait); err != nil {
		httpresponse.WriteError(w, err)
		return
	}

	eval, err := k.engine.Evaluate(ctx, view.BoardSize, view.Visible)
	if err != nil {
		k.log.Warnw("failed to evaluate position", "game", view.ID, "error", err)
		httpresponse.WriteError(w, err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, eval)
}

func (k *KatagoHandler) HandleGetDifficulty(w http.ResponseWriter, r *http.Request) {
	if k.engine == nil {
		httpresponse.WriteError(w, apperr.ErrEngineUnavailable)
		return
	}
	level, err := k.engine.Difficulty(r.Context())
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, DifficultyResponse{Level: level})
}

func (k *KatagoHandler) HandleSetDifficulty(w http.ResponseWriter, r *http.Request) {
	var req DifficultyRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}
	if k.engine == nil {
		httpresponse.WriteError(w, apperr.ErrEngineUnavailable)
		return
	}

	if err := k.engine.UpdateDifficulty(r.Context(), req.Level); err != nil {
		httpresponse.WriteError(w, err)
		return
	}

	k.log.Infof("difficulty set to %d", req.Level)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, DifficultyResponse{Level: req.Level})
}

// ready refuses the query when the engine is off, or busy and the caller asked not to wait.
func (k *KatagoHandler) ready(r *http.Request, view gameuc.View, wait *bool) error {
	if k.engine == nil {
		return apperr.ErrEngineUnavailable
	}
	if wait != nil && !*wait && k.engine.IsBusy(r.Context(), view.BoardSize) {
		return apperr.ErrEngineBusy
	}
	return nil
}

// decodeOptional accepts an empty body and keeps the defaults in dst.
func decodeOptional(r *http.Request, dst any) error {
	err := utils.DecodeJSONRequest(r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
