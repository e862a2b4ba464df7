package process

import (
	"arena-runner/applog"
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Command describes an external program to supervise. Name identifies the
// process in logs and in the per-process log file names.
type Command struct {
	Name string
	Path string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Path, c.Args)
}

type Options struct {
	// LogDir receives "<name>.out.log" and "<name>.err.log"; when empty the
	// output goes to the debug log instead.
	LogDir string
}

type Process struct {
	name     string
	pid      int
	stdout   *Stream
	stderr   *Stream
	wait     func() error
	waitOnce sync.Once
	waitErr  error
}

// Start launches the command. The child is killed when ctx is done.
func Start(ctx context.Context, c Command, opts Options) (*Process, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("could not open stdout of %s: %w", c.Name, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("could not open stderr of %s: %w", c.Name, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not start %s process: %w", c.Name, err)
	}

	applog.Debug("Process started",
		zap.String("process", c.Name),
		zap.Strings("args", cmd.Args),
		zap.Int("pid", cmd.Process.Pid))

	p := Attach(ctx, c.Name, stdout, stderr, cmd.Wait, opts)
	p.pid = cmd.Process.Pid
	return p, nil
}

// Attach supervises already opened output pipes. wait is called once both
// streams are drained; it may be nil.
func Attach(ctx context.Context, name string, stdout, stderr io.Reader, wait func() error, opts Options) *Process {
	p := &Process{
		name: name,
		pid:  -1,
		wait: wait,
	}

	p.stdout = newStream(ctx, name, "stdout", stdout, opts.openLog(name, "out"))
	if stderr != nil {
		p.stderr = newStream(ctx, name, "stderr", stderr, opts.openLog(name, "err"))
	} else {
		p.stderr = closedStream(name, "stderr")
	}
	return p
}

func (p *Process) Name() string {
	return p.name
}

func (p *Process) Pid() int {
	return p.pid
}

func (p *Process) Stdout() *Stream {
	return p.stdout
}

func (p *Process) Stderr() *Stream {
	return p.stderr
}

// Wait blocks until both streams hit EOF and the process exited.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		<-p.stdout.Done()
		<-p.stderr.Done()
		if p.wait != nil {
			p.waitErr = p.wait()
		}
		applog.Debug("Process exited",
			zap.String("process", p.name),
			zap.Int("pid", p.pid),
			zap.NamedError("exitError", p.waitErr))
	})
	return p.waitErr
}

// OutputErr reports read failures of either pipe, such as a line longer
// than the scanner accepts. It blocks until both streams are done.
func (p *Process) OutputErr() error {
	return errors.Join(p.stdout.Err(), p.stderr.Err())
}

// DrainStderr discards stderr lines (they still reach the log sink).
func (p *Process) DrainStderr() {
	p.stderr.Stop()
}

func (o Options) openLog(name, suffix string) io.WriteCloser {
	if o.LogDir == "" {
		return nil
	}

	if err := os.MkdirAll(o.LogDir, 0o755); err != nil {
		applog.Warn("Could not create process log directory",
			zap.String("logDir", o.LogDir),
			zap.Error(err))
		return nil
	}

	path := filepath.Join(o.LogDir, fmt.Sprintf("%s.%s.log", name, suffix))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		applog.Warn("Could not open process log file",
			zap.String("path", path),
			zap.Error(err))
		return nil
	}
	return f
}

func closedStream(process, kind string) *Stream {
	s := &Stream{
		process: process,
		kind:    kind,
		lines:   make(chan string),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	close(s.lines)
	close(s.done)
	return s
}
