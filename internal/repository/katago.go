package repo

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	apperr "goban/internal/errors"
)

const (
	// maxLineSize bounds one line of engine output; ownership grids of long games are large.
	// Longer lines are skipped.
	maxLineSize    = 4 << 20
	readBufferSize = 64 << 10
)

// EngineConfig locates the KataGo executable and the files it is started with.
type EngineConfig struct {
	Path       string
	ConfigPath string
	ModelPath  string
}

// KatagoTransport talks newline-delimited JSON with one `katago analysis` process.
// A background goroutine reads the process output into a FIFO consumed by Receive.
// A transport that failed to start stays unusable: Send and Receive fail immediately.
type KatagoTransport struct {
	log    *zap.SugaredLogger
	proc   ProcessTransport
	usable bool

	writeMu sync.Mutex

	mu    sync.Mutex
	queue []json.RawMessage
	wake  chan struct{}

	readerDone chan struct{}
	stopping   atomic.Bool
	closeOnce  sync.Once
	closeErr   error
}

// NewKatagoTransport checks the engine files and starts the process.
// onFailure, if set, is told once why the engine cannot be used.
func NewKatagoTransport(cfg EngineConfig, log *zap.SugaredLogger, onFailure func(error)) *KatagoTransport {
	if err := checkEngine(cfg); err != nil {
		return unusableTransport(log, err, onFailure)
	}

	proc, err := newExecProcess(cfg.Path, "analysis", "-config", cfg.ConfigPath, "-model", cfg.ModelPath)
	if err != nil {
		return unusableTransport(log, fmt.Errorf("%w: %v", apperr.ErrEngineNotFound, err), onFailure)
	}
	return StartTransport(proc, log, onFailure)
}

// StartTransport starts proc and the reader goroutine.
func StartTransport(proc ProcessTransport, log *zap.SugaredLogger, onFailure func(error)) *KatagoTransport {
	if err := proc.Start(); err != nil {
		return unusableTransport(log, fmt.Errorf("%w: %v", apperr.ErrEngineNotFound, err), onFailure)
	}

	t := &KatagoTransport{
		log:        log,
		proc:       proc,
		usable:     true,
		wake:       make(chan struct{}, 1),
		readerDone: make(chan struct{}),
	}
	go t.readLoop()

	log.Infof("KataGo запущен")
	return t
}

func checkEngine(cfg EngineConfig) error {
	if _, err := exec.LookPath(cfg.Path); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrEngineNotFound, err)
	}
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrEngineConfigMissing, err)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrEngineModelMissing, err)
	}
	return nil
}

func unusableTransport(log *zap.SugaredLogger, err error, onFailure func(error)) *KatagoTransport {
	log.Errorw("KataGo недоступен, анализ отключён", "error", err)
	if onFailure != nil {
		onFailure(err)
	}
	return &KatagoTransport{log: log}
}

// Usable is false when the engine never started or its process has exited.
func (t *KatagoTransport) Usable() bool {
	if !t.usable {
		return false
	}
	select {
	case <-t.readerDone:
		return false
	default:
		return true
	}
}

// Send writes msg as one JSON line.
func (t *KatagoTransport) Send(msg any) error {
	if !t.usable {
		return apperr.ErrEngineUnavailable
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal engine request: %w", err)
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.proc.Write(data); err != nil {
		return fmt.Errorf("%w: write to engine: %v", apperr.ErrEngineUnavailable, err)
	}
	return nil
}

// Receive pops the oldest message, blocking until one arrives, the engine output closes
// or ctx is done.
func (t *KatagoTransport) Receive(ctx context.Context) (json.RawMessage, error) {
	if !t.usable {
		return nil, apperr.ErrEngineUnavailable
	}

	for {
		if msg, ok := t.pop(); ok {
			return msg, nil
		}

		select {
		case <-t.wake:
		case <-t.readerDone:
			if msg, ok := t.pop(); ok {
				return msg, nil
			}
			return nil, fmt.Errorf("%w: engine output closed", apperr.ErrEngineUnavailable)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops the engine: the process is killed first so the blocked read returns,
// then the reader is joined and the process reaped. Safe to call more than once.
func (t *KatagoTransport) Close() error {
	if !t.usable {
		return nil
	}

	t.closeOnce.Do(func() {
		t.stopping.Store(true)
		if err := t.proc.Terminate(); err != nil {
			t.closeErr = fmt.Errorf("failed to terminate engine: %w", err)
		}
		<-t.readerDone
		if err := t.proc.Wait(); err != nil && t.closeErr == nil {
			t.closeErr = fmt.Errorf("failed to reap engine: %w", err)
		}
		t.log.Infof("KataGo остановлен")
	})
	return t.closeErr
}

func (t *KatagoTransport) readLoop() {
	defer close(t.readerDone)

	reader := bufio.NewReaderSize(t.proc.Reader(), readBufferSize)
	var line []byte
	tooLong := false

	for {
		chunk, err := reader.ReadSlice('\n')
		if !tooLong && len(line)+len(chunk) > maxLineSize {
			tooLong = true
			line = line[:0]
		}
		if !tooLong {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if tooLong {
			t.log.Warnw("dropping over-long engine output line", "limit", maxLineSize)
		} else {
			t.handleLine(line)
		}
		line, tooLong = line[:0], false

		if err != nil {
			if t.stopping.Load() {
				return
			}
			if !errors.Is(err, io.EOF) {
				t.log.Errorw("failed to read engine output", "error", err)
				return
			}
			t.log.Errorw("KataGo process exited unexpectedly")
			return
		}
	}
}

// handleLine queues line when it is valid JSON and drops it otherwise.
func (t *KatagoTransport) handleLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	if !json.Valid(line) {
		t.log.Debugw("dropping non-JSON engine output", "line", string(line))
		return
	}
	t.push(json.RawMessage(bytes.Clone(line)))
}

func (t *KatagoTransport) push(msg json.RawMessage) {
	t.mu.Lock()
	t.queue = append(t.queue, msg)
	t.mu.Unlock()
	t.notify()
}

func (t *KatagoTransport) pop() (json.RawMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) == 0 {
		return nil, false
	}
	msg := t.queue[0]
	t.queue[0] = nil
	t.queue = t.queue[1:]
	if len(t.queue) > 0 {
		// hand the rest to another waiting receiver
		t.notify()
	}
	return msg, true
}

func (t *KatagoTransport) notify() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
