package katago

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"goban/internal/domain"
	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

// Analyzer is the engine as seen by delivery: a local Registry or a remote service.
type Analyzer interface {
	SuggestMoves(ctx context.Context, size game.BoardSize, actions []game.Action, n int) (domain.EngineMove, error)
	Evaluate(ctx context.Context, size game.BoardSize, actions []game.Action) (domain.Evaluation, error)
	IsBusy(ctx context.Context, size game.BoardSize) bool
	UpdateDifficulty(ctx context.Context, level int) error
	Difficulty(ctx context.Context) (int, error)
}

// TransportFactory starts one engine process. onFailure reports why it could not start.
type TransportFactory func(onFailure func(error)) Transport

// Registry owns one Client, and so one engine process, per board size. Clients are started
// on first use and share the difficulty level.
type Registry struct {
	log          *zap.SugaredLogger
	newTransport TransportFactory
	settings     *Settings
	rules        string
	komi         float64

	mu      sync.Mutex
	clients map[game.BoardSize]*Client
	level   int
	closed  bool
}

func NewRegistry(log *zap.SugaredLogger, newTransport TransportFactory, settings *Settings, rules string, komi float64) *Registry {
	return &Registry{
		log:          log,
		newTransport: newTransport,
		settings:     settings,
		rules:        rules,
		komi:         komi,
		clients:      make(map[game.BoardSize]*Client),
		level:        DefaultLevel,
	}
}

// Client returns the client for size, starting its engine if needed.
func (r *Registry) Client(size game.BoardSize) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, apperr.ErrEngineUnavailable
	}
	if c, ok := r.clients[size]; ok {
		return c, nil
	}

	transport := r.newTransport(func(err error) {
		r.log.Errorw("engine unavailable, analysis disabled", "board_size", size, "error", err)
	})
	c := NewClient(r.log, transport, r.settings, size, r.rules, r.komi)
	if err := c.UpdateDifficulty(r.level); err != nil {
		return nil, err
	}
	r.clients[size] = c
	r.log.Infof("engine client for %dx%d started", size, size)
	return c, nil
}

func (r *Registry) SuggestMoves(ctx context.Context, size game.BoardSize, actions []game.Action, n int) (domain.EngineMove, error) {
	c, err := r.Client(size)
	if err != nil {
		return domain.EngineMove{}, err
	}
	return c.SuggestMoves(ctx, actions, n)
}

func (r *Registry) Evaluate(ctx context.Context, size game.BoardSize, actions []game.Action) (domain.Evaluation, error) {
	c, err := r.Client(size)
	if err != nil {
		return domain.Evaluation{}, err
	}
	return c.Evaluate(ctx, actions)
}

// IsBusy does not start an engine.
func (r *Registry) IsBusy(_ context.Context, size game.BoardSize) bool {
	r.mu.Lock()
	c, ok := r.clients[size]
	r.mu.Unlock()
	return ok && c.IsBusy()
}

func (r *Registry) UpdateDifficulty(_ context.Context, level int) error {
	if err := ValidateLevel(level); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = level
	for _, c := range r.clients {
		if err := c.UpdateDifficulty(level); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Difficulty(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level, nil
}

// Close stops every engine process. Later calls to Client fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for size, c := range r.clients {
		if err := c.transport.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.clients, size)
	}
	r.closed = true
	return errors.Join(errs...)
}
