package engine

import (
	"io"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// Pipe is the standard streams of a running engine. Stop must release the engine and make Out
// (and Err, if set) reach EOF.
type Pipe struct {
	In   io.WriteCloser
	Out  io.Reader
	Err  io.Reader
	Stop func() error
}

// Spawner launches an engine.
type Spawner interface {
	Spawn() (Pipe, error)
}

// ExecSpawner runs an engine binary. Stop waits up to Wait for the process to exit on its own
// before killing it.
type ExecSpawner struct {
	Path string
	Args []string
	Wait time.Duration
}

func (s ExecSpawner) Spawn() (Pipe, error) {
	cmd := exec.Command(s.Path, s.Args...)
	in, err := cmd.StdinPipe()
	if err != nil {
		return Pipe{}, errors.Wrap(err, "stdin")
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return Pipe{}, errors.Wrap(err, "stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Pipe{}, errors.Wrap(err, "stderr")
	}
	if err := cmd.Start(); err != nil {
		return Pipe{}, errors.Wrapf(err, "starting %s", s.Path)
	}

	stop := func() error {
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case err := <-done:
			return err
		case <-time.After(s.Wait):
			if err := cmd.Process.Kill(); err != nil {
				return errors.Wrap(err, "kill")
			}
			<-done
			return errors.Wrapf(ErrTimeout, "%s did not exit after quit", s.Path)
		}
	}
	return Pipe{In: in, Out: out, Err: stderr, Stop: stop}, nil
}
