// Package analysis runs position evaluations off the request path. Results come back on
// the channel returned by Submit and are also fanned out to the game's subscribers.
package analysis

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"goban/internal/domain"
	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

const subscriberBuffer = 8

// Evaluator is the part of the engine the worker needs.
type Evaluator interface {
	Evaluate(ctx context.Context, size game.BoardSize, actions []game.Action) (domain.Evaluation, error)
}

type Job struct {
	GameID  string
	Size    game.BoardSize
	Actions []game.Action
	// Turn is the number of visible actions the evaluation describes.
	Turn int
}

type Result struct {
	GameID     string            `json:"game_id"`
	Turn       int               `json:"turn"`
	Evaluation domain.Evaluation `json:"evaluation"`
	Err        error             `json:"-"`
}

type request struct {
	job   Job
	reply chan Result
}

type Worker struct {
	log  *zap.SugaredLogger
	eval Evaluator
	jobs chan request

	mu      sync.Mutex
	subs    map[string]map[int]chan Result
	nextSub int
	stopped bool
}

func NewWorker(log *zap.SugaredLogger, eval Evaluator, queueSize int) *Worker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Worker{
		log:  log,
		eval: eval,
		jobs: make(chan request, queueSize),
		subs: make(map[string]map[int]chan Result),
	}
}

// Submit queues job. The returned channel yields exactly one Result and is then closed.
// A full queue yields ErrEngineBusy right away.
func (w *Worker) Submit(job Job) <-chan Result {
	reply := make(chan Result, 1)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		reply <- Result{GameID: job.GameID, Turn: job.Turn, Err: apperr.ErrEngineUnavailable}
		close(reply)
		return reply
	}

	select {
	case w.jobs <- request{job: job, reply: reply}:
	default:
		reply <- Result{GameID: job.GameID, Turn: job.Turn, Err: apperr.ErrEngineBusy}
		close(reply)
	}
	return reply
}

// Subscribe delivers every later result of gameID until cancel is called or the worker stops.
// A subscriber that does not keep up misses results.
func (w *Worker) Subscribe(gameID string) (<-chan Result, func()) {
	ch := make(chan Result, subscriberBuffer)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		close(ch)
		return ch, func() {}
	}

	id := w.nextSub
	w.nextSub++
	if w.subs[gameID] == nil {
		w.subs[gameID] = make(map[int]chan Result)
	}
	w.subs[gameID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if sub, ok := w.subs[gameID][id]; ok {
				delete(w.subs[gameID], id)
				if len(w.subs[gameID]) == 0 {
					delete(w.subs, gameID)
				}
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Run evaluates queued jobs one by one until ctx is done. Jobs still queued then fail
// with ErrEngineUnavailable and subscriber channels are closed.
func (w *Worker) Run(ctx context.Context) error {
	defer w.stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case req := <-w.jobs:
			res := w.process(ctx, req.job)
			req.reply <- res
			close(req.reply)
			w.publish(res)
		}
	}
}

func (w *Worker) process(ctx context.Context, job Job) (res Result) {
	res = Result{GameID: job.GameID, Turn: job.Turn}

	defer func() {
		if r := recover(); r != nil {
			w.log.Errorw("evaluation panicked", "game", job.GameID, "panic", r)
			res.Err = fmt.Errorf("evaluation panicked: %v", r)
		}
	}()

	eval, err := w.eval.Evaluate(ctx, job.Size, job.Actions)
	if err != nil {
		w.log.Warnw("evaluation failed", "game", job.GameID, "error", err)
		res.Err = err
		return res
	}
	res.Evaluation = eval
	return res
}

func (w *Worker) publish(res Result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subs[res.GameID] {
		select {
		case sub <- res:
		default:
			w.log.Warnw("subscriber too slow, evaluation dropped", "game", res.GameID, "turn", res.Turn)
		}
	}
}

func (w *Worker) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	for {
		select {
		case req := <-w.jobs:
			req.reply <- Result{GameID: req.job.GameID, Turn: req.job.Turn, Err: apperr.ErrEngineUnavailable}
			close(req.reply)
		default:
			for gameID, subs := range w.subs {
				for _, sub := range subs {
					close(sub)
				}
				delete(w.subs, gameID)
			}
			return
		}
	}
}
