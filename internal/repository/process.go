package repo

import (
	"errors"
	"io"
	"os"
	"os/exec"
)

// ProcessTransport is a spawned child process seen as a byte stream.
type ProcessTransport interface {
	Start() error
	Write(p []byte) (int, error)
	Reader() io.Reader
	// Terminate kills the process and closes its input; the output reaches EOF afterwards.
	Terminate() error
	// Wait reaps the process once its output has been drained.
	Wait() error
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func newExecProcess(path string, args ...string) (*execProcess, error) {
	cmd := exec.Command(path, args...)
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

func (p *execProcess) Start() error {
	return p.cmd.Start()
}

func (p *execProcess) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *execProcess) Reader() io.Reader {
	return p.stdout
}

func (p *execProcess) Terminate() error {
	_ = p.stdin.Close()
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed on purpose
		return nil
	}
	return err
}
