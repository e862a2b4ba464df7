package process

import (
	"arena-runner/applog"
	"bufio"
	"context"
	"fmt"
	"go.uber.org/zap"
	"io"
	"strings"
	"sync"
)

const (
	streamLineBuffer = 64
	maxLineSize      = 1024 * 1024
)

// Stream is one output pipe of a supervised process, split into lines.
// Lines are delivered until EOF or until the consumer calls Stop; after
// that the pipe is still drained so the child never blocks on a full buffer.
type Stream struct {
	process  string
	kind     string
	lines    chan string
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	err      error
}

func newStream(ctx context.Context, process, kind string, r io.Reader, sink io.WriteCloser) *Stream {
	s := &Stream{
		process: process,
		kind:    kind,
		lines:   make(chan string, streamLineBuffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go s.read(ctx, r, sink)
	return s
}

func (s *Stream) read(ctx context.Context, r io.Reader, sink io.WriteCloser) {
	defer close(s.done)
	defer close(s.lines)
	if sink != nil {
		defer func(sink io.WriteCloser) {
			_ = sink.Close()
		}(sink)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		raw := scanner.Text()
		if sink != nil {
			_, _ = fmt.Fprintln(sink, raw)
		} else {
			applog.Debug("Process output",
				zap.String("process", s.process),
				zap.String("stream", s.kind),
				zap.String("line", raw))
		}

		if s.stopped() {
			continue
		}

		select {
		case s.lines <- strings.TrimSpace(raw):
		case <-s.quit:
		case <-ctx.Done():
			s.Stop()
		}
	}

	if err := scanner.Err(); err != nil {
		s.err = err
		applog.Warn("Process output stream failed",
			zap.String("process", s.process),
			zap.String("stream", s.kind),
			zap.Error(err))

		// Lines stays open until EOF so consumers keep treating the
		// process as alive.
		var rest io.Writer = io.Discard
		if sink != nil {
			rest = sink
		}
		_, _ = io.Copy(rest, r)
	}
}

func (s *Stream) stopped() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// Lines is closed once the pipe reaches EOF.
func (s *Stream) Lines() <-chan string {
	return s.lines
}

// Stop tells the reader that no more lines will be consumed.
func (s *Stream) Stop() {
	s.quitOnce.Do(func() {
		close(s.quit)
	})
}

// Done is closed after the reader hit EOF and released the pipe.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err is only meaningful after Done is closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}
