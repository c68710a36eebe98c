package pipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DefaultSentinel delimits one request and one response in Sentinel mode.
const DefaultSentinel = "<P>"

// Shape is the request/response framing a Worker speaks.
type Shape int

const (
	// FixedArity sends one line and reads exactly one line back.
	FixedArity Shape = iota
	// Sentinel sends N lines and the sentinel, then reads lines until the
	// sentinel comes back.
	Sentinel
)

func (s Shape) String() string {
	switch s {
	case FixedArity:
		return "fixed-arity"
	case Sentinel:
		return "sentinel"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Worker frames requests over a Process. Calls on one Worker are serialized.
type Worker struct {
	proc     *Process
	shape    Shape
	sentinel string

	mu sync.Mutex
}

// NewWorker wraps proc. sentinel is only used by the Sentinel shape and
// defaults to DefaultSentinel.
func NewWorker(proc *Process, shape Shape, sentinel string) *Worker {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &Worker{proc: proc, shape: shape, sentinel: sentinel}
}

func (w *Worker) Shape() Shape {
	return w.shape
}

func (w *Worker) Process() *Process {
	return w.proc
}

// Call performs one request. FixedArity takes exactly one line and returns
// exactly one; Sentinel takes any number of lines and returns every line the
// engine wrote before echoing the sentinel, the sentinel itself excluded.
//
// Every line is validated before anything is written. Engine output that
// no request asked for, seen before the request or right after its
// response, is a ProtocolError and leaves the handle dead.
func (w *Worker) Call(ctx context.Context, lines []string) ([]string, error) {
	if err := w.validate(lines); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.proc.checkIdle(); err != nil {
		return nil, err
	}

	var (
		out []string
		err error
	)
	switch w.shape {
	case FixedArity:
		out, err = w.callFixed(ctx, lines[0])
	default:
		out, err = w.callSentinel(ctx, lines)
	}
	if err != nil {
		return nil, err
	}
	if err := w.proc.checkIdle(); err != nil {
		return nil, err
	}
	return out, nil
}

// CallLine is Call for a single FixedArity line.
func (w *Worker) CallLine(ctx context.Context, line string) (string, error) {
	out, err := w.Call(ctx, []string{line})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// Close closes the underlying process.
func (w *Worker) Close() error {
	return w.proc.Close()
}

func (w *Worker) callFixed(ctx context.Context, line string) ([]string, error) {
	if err := w.proc.WriteLine(ctx, line); err != nil {
		return nil, err
	}
	out, err := w.proc.ReadLine(ctx)
	if err != nil {
		return nil, err
	}
	return []string{out}, nil
}

func (w *Worker) callSentinel(ctx context.Context, lines []string) ([]string, error) {
	for i := 0; i <= len(lines); i++ {
		line := w.sentinel
		if i < len(lines) {
			line = lines[i]
		}
		if err := w.proc.WriteLine(ctx, line); err != nil {
			if i > 0 {
				// Part of the request is already with the engine.
				return nil, w.proc.Abort(err)
			}
			return nil, err
		}
	}

	var out []string
	for {
		line, err := w.proc.ReadLine(ctx)
		if err != nil {
			var exitErr *ExitError
			if errors.Is(err, ErrEOF) || errors.As(err, &exitErr) {
				return nil, &ProtocolError{
					Msg:   fmt.Sprintf("engine output ended before sentinel after %d lines", len(out)),
					Cause: err,
				}
			}
			return nil, err
		}
		if strings.TrimSpace(line) == w.sentinel {
			return out, nil
		}
		out = append(out, line)
	}
}

func (w *Worker) validate(lines []string) error {
	switch w.shape {
	case FixedArity:
		if len(lines) != 1 {
			return InvalidArgument("%s request takes exactly one line, got %d", w.shape, len(lines))
		}
	case Sentinel:
	default:
		return InvalidArgument("unknown request shape %s", w.shape)
	}
	for i, line := range lines {
		if strings.Contains(line, "\n") {
			return InvalidArgument("line %d contains a newline", i)
		}
		if w.shape == Sentinel && strings.TrimSpace(line) == w.sentinel {
			return InvalidArgument("line %d is the sentinel %q", i, w.sentinel)
		}
	}
	return nil
}
