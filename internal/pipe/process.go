// Package pipe runs long-lived line-oriented engine processes and talks to
// them one request at a time over their standard streams.
package pipe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/samcharles93/mosespipe/internal/logger"
)

const (
	// DefaultExitTimeout is how long Close waits for the engine to exit on
	// its own after stdin is closed.
	DefaultExitTimeout = time.Second
	// DefaultKillTimeout is the grace period between SIGTERM and SIGKILL.
	DefaultKillTimeout = 5 * time.Second

	// exitProbe bounds how long a reader waits, after stdout hits EOF, to
	// learn whether the process itself is gone.
	exitProbe = 250 * time.Millisecond

	// lineBacklog is how many output lines the pump reads ahead.
	lineBacklog = 64
)

// Config describes the engine to start.
type Config struct {
	// Argv is the program and its arguments. Argv[0] is resolved via PATH.
	Argv []string
	// Env is appended to the current environment.
	Env []string
	Dir string
	// Name labels log records; defaults to the base of Argv[0].
	Name string
	// Stderr receives the engine's diagnostics. When nil each stderr line is
	// logged at debug level.
	Stderr      io.Writer
	ExitTimeout time.Duration
	KillTimeout time.Duration
	Logger      logger.Logger
}

// Process owns one engine child process and its three standard streams.
//
// Reads and writes are line-framed and flushed per call. A Process is not
// safe for concurrent requests; Worker serializes them.
type Process struct {
	cfg   Config
	log   logger.Logger
	cmd   *exec.Cmd
	pid   int
	stdin io.WriteCloser
	w     *bufio.Writer
	out   *stream

	// trailing is set when more output was already buffered behind the
	// last line ReadLine returned.
	trailing bool

	cleanup runtime.Cleanup

	mu     sync.Mutex
	closed bool
	fault  error

	closeOnce sync.Once
	closeErr  error
}

// stream pumps stdout lines to the reader and reaps the process once stdout
// is drained. It holds no reference to the owning Process so an abandoned
// Process stays collectable.
type stream struct {
	pid   int
	lines chan outLine
	quit  chan struct{}
	once  sync.Once

	readErr error // valid once lines is closed
	exited  chan struct{}
	waitErr error // valid once exited is closed
}

// outLine is one stdout line. more reports whether further bytes were
// already read from the pipe when the line was complete.
type outLine struct {
	text string
	more bool
}

// Start launches the engine described by cfg.
func Start(cfg Config) (*Process, error) {
	if len(cfg.Argv) == 0 || strings.TrimSpace(cfg.Argv[0]) == "" {
		return nil, InvalidArgument("engine command is required")
	}
	if cfg.ExitTimeout <= 0 {
		cfg.ExitTimeout = DefaultExitTimeout
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = DefaultKillTimeout
	}
	if cfg.Name == "" {
		cfg.Name = baseName(cfg.Argv[0])
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("engine", cfg.Name)

	cmd := exec.Command(cfg.Argv[0], cfg.Argv[1:]...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	if cfg.Stderr != nil {
		cmd.Stderr = cfg.Stderr
	} else {
		cmd.Stderr = &stderrLog{log: log}
	}
	configureCommand(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &StartError{Argv: cfg.Argv, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, &StartError{Argv: cfg.Argv, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Argv: cfg.Argv, Err: err}
	}

	st := &stream{
		pid:    cmd.Process.Pid,
		lines:  make(chan outLine, lineBacklog),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go st.pump(bufio.NewReader(stdout), cmd)

	p := &Process{
		cfg:   cfg,
		log:   log,
		cmd:   cmd,
		pid:   cmd.Process.Pid,
		stdin: stdin,
		w:     bufio.NewWriter(stdin),
		out:   st,
	}
	// Last-resort teardown for handles dropped without Close.
	p.cleanup = runtime.AddCleanup(p, func(s *stream) {
		s.stop()
		select {
		case <-s.exited:
		default:
			_ = killProcess(s.pid)
		}
	}, st)

	log.Debug("engine started", "pid", p.pid, "argv", strings.Join(cfg.Argv, " "))
	return p, nil
}

// Pid returns the engine's process id.
func (p *Process) Pid() int {
	return p.pid
}

// Name returns the label used in log records.
func (p *Process) Name() string {
	return p.cfg.Name
}

// WriteLine sends text followed by a newline and flushes. text must not
// contain a newline. A ctx that is already done fails the call without
// touching the engine; cancelling ctx while the write is blocked kills the
// engine and leaves the handle dead.
func (p *Process) WriteLine(ctx context.Context, text string) error {
	if strings.Contains(text, "\n") {
		return InvalidArgument("line must not contain a newline: %q", text)
	}
	if err := p.usable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write to engine: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		p.abort(fmt.Errorf("write to engine: %w", ctx.Err()))
	})
	defer stop()

	_, err := p.w.WriteString(text)
	if err == nil {
		err = p.w.WriteByte('\n')
	}
	if err == nil {
		err = p.w.Flush()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("write to engine: %w", ctxErr)
		}
		return p.abort(fmt.Errorf("%w: %v", ErrBrokenPipe, err))
	}
	return nil
}

// ReadLine returns the next output line without its trailing newline. It
// fails with ErrEOF when the engine closed stdout but is still running, and
// with *ExitError when the engine is gone. Cancelling ctx kills the engine.
func (p *Process) ReadLine(ctx context.Context) (string, error) {
	if err := p.usable(); err != nil {
		return "", err
	}
	select {
	case line, ok := <-p.out.lines:
		if !ok {
			return "", p.abort(p.eofError())
		}
		p.trailing = line.more
		return line.text, nil
	case <-ctx.Done():
		return "", p.abort(fmt.Errorf("read from engine: %w", ctx.Err()))
	}
}

// Pending reports an output line that is already waiting to be read, without
// blocking. Between requests there should never be one.
func (p *Process) Pending() (string, bool) {
	select {
	case line, ok := <-p.out.lines:
		if !ok {
			return "", false
		}
		return line.text, true
	default:
		return "", false
	}
}

// checkIdle fails with a ProtocolError, and aborts the handle, when the
// engine has produced output no request asked for: bytes that arrived
// together with the last response line, or lines the pump already holds.
func (p *Process) checkIdle() error {
	if err := p.usable(); err != nil {
		return err
	}
	if p.trailing {
		p.trailing = false
		return p.abort(&ProtocolError{Msg: "unsolicited engine output after response"})
	}
	if line, ok := p.Pending(); ok {
		return p.abort(&ProtocolError{Msg: fmt.Sprintf("unsolicited engine output %q", line)})
	}
	return nil
}

// Alive reports whether the handle can still serve requests.
func (p *Process) Alive() bool {
	return p.usable() == nil
}

// Abort marks the handle dead with cause and kills the engine. Use it when the
// conversation can no longer be trusted.
func (p *Process) Abort(cause error) error {
	return p.abort(cause)
}

// Close terminates the engine and releases its streams. It closes stdin,
// waits for a voluntary exit, then signals the process group with SIGTERM and
// finally SIGKILL. Close is idempotent and returns the same result each time.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.shutdown()
	})
	return p.closeErr
}

func (p *Process) shutdown() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cleanup.Stop()

	var errs []error
	if err := p.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("%w: close stdin: %v", ErrResource, err))
	}
	p.out.stop()

	if !p.waitExit(p.cfg.ExitTimeout) {
		p.log.Debug("engine still running after stdin closed; sending SIGTERM", "pid", p.pid)
		if err := terminateProcess(p.pid); err != nil {
			errs = append(errs, fmt.Errorf("%w: terminate pid %d: %v", ErrResource, p.pid, err))
		}
		if !p.waitExit(p.cfg.KillTimeout) {
			p.log.Warn("engine did not exit in time; sending SIGKILL", "pid", p.pid)
			if err := killProcess(p.pid); err != nil {
				errs = append(errs, fmt.Errorf("%w: kill pid %d: %v", ErrResource, p.pid, err))
			}
			if !p.waitExit(p.cfg.KillTimeout) {
				errs = append(errs, fmt.Errorf("%w: pid %d was not reaped", ErrResource, p.pid))
			}
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		p.log.Error("engine teardown incomplete", "pid", p.pid, "err", err)
	} else {
		p.log.Debug("engine stopped", "pid", p.pid)
	}
	return err
}

func (p *Process) usable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.fault != nil {
		return fmt.Errorf("%w: %w", ErrDead, p.fault)
	}
	return nil
}

// abort records the first fault and kills the engine. The synchronous line
// protocol cannot resynchronize after a partial exchange.
func (p *Process) abort(cause error) error {
	p.mu.Lock()
	first := p.fault == nil && !p.closed
	if first {
		p.fault = cause
	}
	p.mu.Unlock()
	if !first {
		return cause
	}

	p.log.Warn("engine handle faulted", "pid", p.pid, "err", cause)
	select {
	case <-p.out.exited:
	default:
		if err := killProcess(p.pid); err != nil {
			p.log.Debug("kill after fault failed", "pid", p.pid, "err", err)
		}
	}
	return cause
}

func (p *Process) eofError() error {
	if err := p.out.readErr; err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("%w: read: %v", ErrBrokenPipe, err)
	}
	select {
	case <-p.out.exited:
		return &ExitError{Pid: p.pid, Err: p.out.waitErr}
	case <-time.After(exitProbe):
		return ErrEOF
	}
}

func (p *Process) waitExit(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.out.exited:
		return true
	case <-t.C:
		return false
	}
}

func (s *stream) pump(r *bufio.Reader, cmd *exec.Cmd) {
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			out := outLine{
				text: strings.TrimSuffix(line, "\n"),
				more: r.Buffered() > 0,
			}
			select {
			case s.lines <- out:
			case <-s.quit:
			}
		}
		if err != nil {
			s.readErr = err
			close(s.lines)
			break
		}
	}
	s.waitErr = cmd.Wait()
	close(s.exited)
}

// stop discards any further output so the pump can reach EOF and reap.
func (s *stream) stop() {
	s.once.Do(func() { close(s.quit) })
}

// stderrLog forwards engine diagnostics to the logger one line at a time.
type stderrLog struct {
	log logger.Logger
	buf []byte
}

func (s *stderrLog) Write(b []byte) (int, error) {
	s.buf = append(s.buf, b...)
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		if line := string(bytes.TrimRight(s.buf[:i], "\r")); line != "" {
			s.log.Debug("engine stderr", "line", line)
		}
		s.buf = s.buf[i+1:]
	}
	return len(b), nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
