package katago

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goban/internal/domain"
	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

const (
	DefaultRules = "japanese"
	DefaultKomi  = 6.5
)

// Transport carries newline-delimited JSON to and from one engine process.
type Transport interface {
	Send(msg any) error
	Receive(ctx context.Context) (json.RawMessage, error)
	Usable() bool
	Close() error
}

// Client runs analysis queries for one board size. Queries are strictly serialized:
// a second caller waits until the running one completes.
type Client struct {
	log       *zap.SugaredLogger
	transport Transport
	settings  *Settings
	size      game.BoardSize
	rules     string
	komi      float64

	mu    sync.Mutex
	busy  atomic.Bool
	level atomic.Int32
}

func NewClient(log *zap.SugaredLogger, transport Transport, settings *Settings, size game.BoardSize, rules string, komi float64) *Client {
	if settings == nil {
		settings = DefaultSettings()
	}
	if rules == "" {
		rules = DefaultRules
	}
	c := &Client{
		log:       log,
		transport: transport,
		settings:  settings,
		size:      size,
		rules:     rules,
		komi:      komi,
	}
	c.level.Store(DefaultLevel)
	return c
}

func (c *Client) Size() game.BoardSize {
	return c.size
}

func (c *Client) Difficulty() int {
	return int(c.level.Load())
}

func (c *Client) UpdateDifficulty(level int) error {
	if err := ValidateLevel(level); err != nil {
		return err
	}
	c.level.Store(int32(level))
	return nil
}

// IsBusy reports whether a query is running right now.
func (c *Client) IsBusy() bool {
	return c.busy.Load()
}

func (c *Client) Usable() bool {
	return c.transport.Usable()
}

// SuggestMoves asks the engine for n successive moves, feeding every suggestion back into the
// move list before the next query, and returns the last one.
func (c *Client) SuggestMoves(ctx context.Context, actions []game.Action, n int) (domain.EngineMove, error) {
	if !c.transport.Usable() {
		return domain.EngineMove{}, apperr.ErrEngineUnavailable
	}
	if n < 1 {
		return domain.EngineMove{}, fmt.Errorf("suggest %d moves: count must be positive", n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy.Store(true)
	defer c.busy.Store(false)

	moves := TranslateLog(c.size, actions)
	setting := c.settings.Level(c.Difficulty())

	var suggestion domain.EngineMove
	for i := 0; i < n; i++ {
		resp, err := c.query(ctx, c.request(moves, setting, false))
		if err != nil {
			return domain.EngineMove{}, err
		}
		move, err := parseMove(resp)
		if err != nil {
			return domain.EngineMove{}, err
		}

		suggestion, err = DecodeMove(c.size, move)
		if err != nil {
			return domain.EngineMove{}, err
		}
		moves = append(moves, move)
		c.log.Debugw("engine suggested a move", "color", move[0], "move", move[1], "x", suggestion.Stone.X, "y", suggestion.Stone.Y)
	}
	return suggestion, nil
}

// Evaluate asks for the score lead and the ownership grid of the position after actions.
func (c *Client) Evaluate(ctx context.Context, actions []game.Action) (domain.Evaluation, error) {
	if !c.transport.Usable() {
		return domain.Evaluation{}, apperr.ErrEngineUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy.Store(true)
	defer c.busy.Store(false)

	resp, err := c.query(ctx, c.request(TranslateLog(c.size, actions), c.settings.Evaluation(), true))
	if err != nil {
		return domain.Evaluation{}, err
	}
	return parseEvaluation(resp)
}

func (c *Client) request(moves [][2]string, setting domain.Setting, ownership bool) domain.AnalysisRequest {
	return domain.AnalysisRequest{
		ID:                    uuid.New().String(),
		Moves:                 append(make([][2]string, 0, len(moves)), moves...),
		Rules:                 c.rules,
		Komi:                  c.komi,
		BoardXSize:            int(c.size),
		BoardYSize:            int(c.size),
		MaxVisits:             setting.MaxVisits,
		RootPolicyTemperature: setting.RootPolicyTemperature,
		RootFpuReductionMax:   setting.RootFpuReductionMax,
		IncludeOwnership:      ownership,
	}
}

// query sends req and waits for the final response carrying its id. Responses of earlier,
// abandoned queries and warnings are skipped.
func (c *Client) query(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResponse, error) {
	if err := c.transport.Send(req); err != nil {
		return domain.AnalysisResponse{}, err
	}

	for {
		raw, err := c.transport.Receive(ctx)
		if err != nil {
			return domain.AnalysisResponse{}, err
		}

		if len(raw) == 0 || raw[0] != '{' {
			c.log.Warnw("skipping engine output that is not an object", "line", string(raw))
			continue
		}

		var resp domain.AnalysisResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return domain.AnalysisResponse{}, fmt.Errorf("%w: %v", apperr.ErrEngineNotUsable, err)
		}

		switch {
		case resp.ID != req.ID:
			c.log.Warnw("skipping engine response of another query", "id", resp.ID, "want", req.ID)
		case resp.Error != "":
			return domain.AnalysisResponse{}, fmt.Errorf("%w: %s", apperr.ErrEngineNotUsable, resp.Error)
		case resp.Warning != "":
			c.log.Warnw("engine warning", "id", resp.ID, "warning", resp.Warning)
		case resp.IsDuringSearch:
		default:
			return resp, nil
		}
	}
}

func parseMove(resp domain.AnalysisResponse) ([2]string, error) {
	if resp.RootInfo == nil || resp.RootInfo.CurrentPlayer == nil {
		return [2]string{}, fmt.Errorf("%w: response without rootInfo.currentPlayer", apperr.ErrEngineNotUsable)
	}
	if len(resp.MoveInfos) == 0 || resp.MoveInfos[0].Move == "" {
		return [2]string{}, fmt.Errorf("%w: response without moveInfos[0].move", apperr.ErrEngineNotUsable)
	}
	return [2]string{*resp.RootInfo.CurrentPlayer, resp.MoveInfos[0].Move}, nil
}

func parseEvaluation(resp domain.AnalysisResponse) (domain.Evaluation, error) {
	if resp.RootInfo == nil || resp.RootInfo.ScoreLead == nil {
		return domain.Evaluation{}, fmt.Errorf("%w: response without rootInfo.scoreLead", apperr.ErrEngineNotUsable)
	}
	if resp.Ownership == nil {
		return domain.Evaluation{}, fmt.Errorf("%w: response without ownership", apperr.ErrEngineNotUsable)
	}

	side := isqrt(len(resp.Ownership))
	if side*side != len(resp.Ownership) {
		return domain.Evaluation{}, fmt.Errorf("%w: ownership of %d values is not a square grid", apperr.ErrEngineNotUsable, len(resp.Ownership))
	}

	ownership := make([][]float64, side)
	for x := range ownership {
		ownership[x] = make([]float64, side)
	}
	for i, v := range resp.Ownership {
		ownership[i/side][i%side] = v
	}

	return domain.Evaluation{ScoreLead: *resp.RootInfo.ScoreLead, Ownership: ownership}, nil
}

func isqrt(n int) int {
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
