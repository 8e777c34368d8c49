package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

// LogStore keeps the action log of live games between requests.
type LogStore interface {
	SaveRecord(ctx context.Context, id string, rec game.Record) error
	LoadRecord(ctx context.Context, id string) (game.Record, error)
	DeleteRecord(ctx context.Context, id string) error
}

// Archive stores games that ended by double pass.
type Archive interface {
	ArchiveGame(ctx context.Context, id string, rec game.Record, captures map[game.Color]int) error
}

type session struct {
	mu       sync.Mutex
	state    *State
	policy   *Policy
	archived bool
}

// View is a read-only picture of one game handed to delivery.
type View struct {
	ID        string         `json:"id"`
	BoardSize game.BoardSize `json:"board_size"`
	Board     [][]game.Cell  `json:"board"`
	Turn      game.Color     `json:"turn"`
	InPass    *game.Color    `json:"in_pass,omitempty"`
	Ended     bool           `json:"ended"`
	Captures  map[string]int `json:"captures"`
	UndoDepth int            `json:"undo_depth"`
	Moves     []game.Move    `json:"moves"`
	Visible   []game.Action  `json:"-"`
	// Corrupt is set while the log fails to replay and play waits for a clear.
	Corrupt bool `json:"corrupt,omitempty"`
}

// GameUseCase serializes access to every live game and persists it after each change.
// store and archive may be nil, then games only live in memory.
type GameUseCase struct {
	log     *zap.SugaredLogger
	store   LogStore
	archive Archive

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewGameUseCase(log *zap.SugaredLogger, store LogStore, archive Archive) *GameUseCase {
	return &GameUseCase{
		log:      log,
		store:    store,
		archive:  archive,
		sessions: make(map[string]*session),
	}
}

func (g *GameUseCase) CreateGame(ctx context.Context, size int) (View, error) {
	boardSize, err := game.ParseBoardSize(size)
	if err != nil {
		return View{}, err
	}

	id := uuid.New().String()
	s := &session{state: NewState(boardSize), policy: NewPolicy()}

	g.mu.Lock()
	g.sessions[id] = s
	g.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	g.persist(ctx, id, s)
	g.log.Infof("game %s created, board %dx%d", id, size, size)
	return g.view(id, s), nil
}

func (g *GameUseCase) GetGame(ctx context.Context, id string) (View, error) {
	var view View
	err := g.with(ctx, id, func(s *session) error {
		view = g.view(id, s)
		return nil
	})
	return view, err
}

// Play puts a stone of the side to move. ok is false for an illegal move.
func (g *GameUseCase) Play(ctx context.Context, id string, x, y int) (View, bool, error) {
	return g.mutate(ctx, id, func(s *session) (bool, error) {
		return s.policy.Play(s.state, x, y)
	})
}

func (g *GameUseCase) Pass(ctx context.Context, id string) (View, bool, error) {
	return g.mutate(ctx, id, func(s *session) (bool, error) {
		return s.policy.Pass(s.state)
	})
}

func (g *GameUseCase) Undo(ctx context.Context, id string) (View, bool, error) {
	return g.mutate(ctx, id, func(s *session) (bool, error) {
		return s.policy.Undo(s.state)
	})
}

func (g *GameUseCase) Redo(ctx context.Context, id string) (View, bool, error) {
	return g.mutate(ctx, id, func(s *session) (bool, error) {
		return s.policy.Redo(s.state)
	})
}

func (g *GameUseCase) Clear(ctx context.Context, id string) (View, error) {
	view, _, err := g.mutate(ctx, id, func(s *session) (bool, error) {
		s.policy.Clear(s.state)
		s.archived = false
		return true, nil
	})
	return view, err
}

// SetTurn overrides the side to move; AutoSwitch toggles automatic alternation.
func (g *GameUseCase) SetTurn(ctx context.Context, id string, color game.Color, autoSwitch bool) (View, error) {
	var view View
	err := g.with(ctx, id, func(s *session) error {
		s.policy.Turn = color
		s.policy.AutoSwitch = autoSwitch
		view = g.view(id, s)
		return nil
	})
	return view, err
}

// DeleteGame forgets a game, typically when the player picks another board size.
func (g *GameUseCase) DeleteGame(ctx context.Context, id string) error {
	g.mu.Lock()
	delete(g.sessions, id)
	g.mu.Unlock()

	if g.store == nil {
		return nil
	}
	return g.store.DeleteRecord(ctx, id)
}

func (g *GameUseCase) mutate(ctx context.Context, id string, fn func(s *session) (bool, error)) (View, bool, error) {
	var (
		view View
		ok   bool
	)
	err := g.with(ctx, id, func(s *session) error {
		var err error
		ok, err = fn(s)
		if err != nil {
			if errors.Is(err, apperr.ErrBoardCorrupt) {
				g.log.Errorw("board state corrupt, game halted until cleared", "game", id, "error", err)
			}
			return err
		}
		if ok {
			g.persist(ctx, id, s)
		}
		view = g.view(id, s)
		return nil
	})
	return view, ok, err
}

func (g *GameUseCase) with(ctx context.Context, id string, fn func(s *session) error) error {
	s, err := g.session(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func (g *GameUseCase) session(ctx context.Context, id string) (*session, error) {
	g.mu.RLock()
	s, ok := g.sessions[id]
	g.mu.RUnlock()
	if ok {
		return s, nil
	}

	if g.store == nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrGameNotFound, id)
	}
	rec, err := g.store.LoadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	var state *State
	actions, err := game.FromMoves(rec.Moves)
	if err != nil {
		state = newCorruptState(rec.BoardSize, fmt.Errorf("%w: %v", apperr.ErrBoardCorrupt, err))
	} else {
		state, _ = NewStateFromLog(rec.BoardSize, actions, rec.UndoDepth)
	}
	if err := state.Corrupt(); err != nil {
		g.log.Errorw("stored game does not replay, play halted until cleared", "game", id, "error", err)
	}

	policy := NewPolicy()
	if visible := state.Visible(); len(visible) > 0 {
		policy.Turn = game.MoveColor(visible[len(visible)-1]).Opponent()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// another request may have restored it meanwhile
	if existing, ok := g.sessions[id]; ok {
		return existing, nil
	}
	s = &session{state: state, policy: policy, archived: state.Ended()}
	g.sessions[id] = s
	g.log.Infof("game %s restored from store, %d actions", id, len(actions))
	return s, nil
}

// persist saves the log and archives the game once it ended. Storage failures are
// only logged: the game stays playable.
func (g *GameUseCase) persist(ctx context.Context, id string, s *session) {
	rec := record(s.state)

	if g.store != nil {
		if err := g.store.SaveRecord(ctx, id, rec); err != nil {
			g.log.Errorw("failed to save game record", "game", id, "error", err)
		}
	}

	if g.archive != nil && s.state.Ended() && !s.archived {
		captures := map[game.Color]int{
			game.Black: s.state.Captures(game.Black),
			game.White: s.state.Captures(game.White),
		}
		if err := g.archive.ArchiveGame(ctx, id, rec, captures); err != nil {
			g.log.Errorw("failed to archive finished game", "game", id, "error", err)
			return
		}
		s.archived = true
	}
}

func record(s *State) game.Record {
	return game.Record{
		BoardSize: s.Size(),
		UndoDepth: s.UndoDepth(),
		Moves:     game.ToMoves(s.Actions()),
	}
}

func (g *GameUseCase) view(id string, s *session) View {
	snap := s.state.Snapshot()
	visible := s.state.Visible()
	v := View{
		ID:        id,
		BoardSize: s.state.Size(),
		Board:     snap.Rows(),
		Turn:      s.policy.Turn,
		Ended:     snap.Ended(),
		UndoDepth: s.state.UndoDepth(),
		Captures: map[string]int{
			game.Black.String(): s.state.Captures(game.Black),
			game.White.String(): s.state.Captures(game.White),
		},
		Moves:   game.ToMoves(visible),
		Visible: visible,
		Corrupt: s.state.Corrupt() != nil,
	}
	if c, ok := snap.InPass(); ok {
		v.InPass = &c
	}
	return v
}
