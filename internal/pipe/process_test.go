package pipe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/samcharles93/mosespipe/internal/logger"
)

func TestProcessLineRoundTrip(t *testing.T) {
	t.Parallel()
	p := startEngine(t, "upper")
	ctx := context.Background()

	for _, in := range []string{"hello world", "", "  padded  ", "ünïcode"} {
		if err := p.WriteLine(ctx, in); err != nil {
			t.Fatalf("WriteLine(%q) error = %v", in, err)
		}
		got, err := p.ReadLine(ctx)
		if err != nil {
			t.Fatalf("ReadLine after %q error = %v", in, err)
		}
		if want := strings.ToUpper(in); got != want {
			t.Fatalf("ReadLine() = %q, want %q", got, want)
		}
	}
	if !p.Alive() {
		t.Fatal("expected process to be alive")
	}
}

func TestWriteLineRejectsNewline(t *testing.T) {
	t.Parallel()
	p := startEngine(t, "echo")
	ctx := context.Background()

	err := p.WriteLine(ctx, "two\nlines")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	// The rejected line never reached the engine, so the handle is intact.
	if err := p.WriteLine(ctx, "still fine"); err != nil {
		t.Fatalf("WriteLine after rejection error = %v", err)
	}
	got, err := p.ReadLine(ctx)
	if err != nil || got != "still fine" {
		t.Fatalf("ReadLine() = %q, %v; want %q", got, err, "still fine")
	}
}

func TestStartErrors(t *testing.T) {
	t.Parallel()

	if _, err := Start(Config{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty argv: expected ErrInvalidArgument, got %v", err)
	}

	_, err := Start(Config{Argv: []string{"/nonexistent/engine-binary"}, Logger: logger.Nop()})
	var startErr *StartError
	if !errors.As(err, &startErr) {
		t.Fatalf("expected *StartError, got %T %v", err, err)
	}
	if !errors.Is(err, ErrLifecycle) {
		t.Fatalf("expected StartError to match ErrLifecycle: %v", err)
	}
	if !strings.Contains(err.Error(), "/nonexistent/engine-binary") {
		t.Fatalf("error should name the command: %v", err)
	}
}

func TestCloseIsIdempotentAndFailsFurtherCalls(t *testing.T) {
	t.Parallel()
	p := startEngine(t, "echo")
	ctx := context.Background()

	if err := p.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if p.Alive() {
		t.Fatal("expected closed process to report not alive")
	}

	done := make(chan error, 2)
	go func() {
		done <- p.WriteLine(ctx, "x")
		_, err := p.ReadLine(ctx)
		done <- err
	}()
	for range 2 {
		select {
		case err := <-done:
			if !errors.Is(err, ErrClosed) || !errors.Is(err, ErrLifecycle) {
				t.Fatalf("expected ErrClosed, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("call on closed handle hung")
		}
	}
}

func TestReadAfterEngineExitReportsExitError(t *testing.T) {
	t.Parallel()
	p := startEngine(t, "die-after-one")
	ctx := context.Background()

	if err := p.WriteLine(ctx, "first"); err != nil {
		t.Fatalf("WriteLine error = %v", err)
	}
	if got, err := p.ReadLine(ctx); err != nil || got != "first" {
		t.Fatalf("ReadLine() = %q, %v", got, err)
	}
	if err := p.WriteLine(ctx, "second"); err != nil {
		t.Fatalf("WriteLine error = %v", err)
	}

	_, err := p.ReadLine(ctx)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T %v", err, err)
	}
	var status *exec.ExitError
	if !errors.As(err, &status) || status.ExitCode() != 3 {
		t.Fatalf("expected exit status 3, got %v", err)
	}

	err = p.WriteLine(ctx, "third")
	if !errors.Is(err, ErrDead) {
		t.Fatalf("expected ErrDead after exit, got %v", err)
	}
}

func TestReadAfterStdoutClosedReportsEOF(t *testing.T) {
	t.Parallel()
	p := startEngine(t, "close-stdout")
	ctx := context.Background()

	if err := p.WriteLine(ctx, "only"); err != nil {
		t.Fatalf("WriteLine error = %v", err)
	}
	if got, err := p.ReadLine(ctx); err != nil || got != "only" {
		t.Fatalf("ReadLine() = %q, %v", got, err)
	}

	_, err := p.ReadLine(ctx)
	if !errors.Is(err, ErrEOF) {
		t.Fatalf("expected ErrEOF, got %v", err)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("engine was still running; did not expect *ExitError: %v", err)
	}
}

func TestReadTimeoutKillsEngine(t *testing.T) {
	t.Parallel()
	p := startEngine(t, "silent")

	if err := p.WriteLine(context.Background(), "anyone there?"); err != nil {
		t.Fatalf("WriteLine error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := p.ReadLine(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if p.Alive() {
		t.Fatal("expected handle to be dead after a read timeout")
	}

	_, err = p.ReadLine(context.Background())
	if !errors.Is(err, ErrDead) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ErrDead wrapping the timeout, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() after fault error = %v", err)
	}
}

func TestWriteWithCancelledContext(t *testing.T) {
	t.Parallel()
	p := startEngine(t, "echo")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.WriteLine(ctx, "late"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !p.Alive() {
		t.Fatal("nothing was written, expected the handle to stay usable")
	}

	bg := context.Background()
	if err := p.WriteLine(bg, "on time"); err != nil {
		t.Fatalf("WriteLine error = %v", err)
	}
	if got, err := p.ReadLine(bg); err != nil || got != "on time" {
		t.Fatalf("ReadLine() = %q, %v", got, err)
	}
}

func TestCloseEscalatesToKill(t *testing.T) {
	t.Parallel()
	cfg := engineConfig("stubborn")
	cfg.ExitTimeout = 100 * time.Millisecond
	cfg.KillTimeout = 200 * time.Millisecond
	p := startEngineWith(t, cfg)

	ctx := context.Background()
	if err := p.WriteLine(ctx, "ping"); err != nil {
		t.Fatalf("WriteLine error = %v", err)
	}
	if got, err := p.ReadLine(ctx); err != nil || got != "ping" {
		t.Fatalf("ReadLine() = %q, %v", got, err)
	}

	start := time.Now()
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("Close() took %v", elapsed)
	}
}

func TestStderrIsLogged(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	cfg := engineConfig("stderr")
	cfg.Logger = logger.JSON(&buf, slog.LevelDebug)
	p := startEngineWith(t, cfg)

	ctx := context.Background()
	if err := p.WriteLine(ctx, "hello"); err != nil {
		t.Fatalf("WriteLine error = %v", err)
	}
	if _, err := p.ReadLine(ctx); err != nil {
		t.Fatalf("ReadLine error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"line":"diag: hello"`) {
		t.Fatalf("expected stderr line in log, got: %s", output)
	}
	if !strings.Contains(output, `"engine":"stderr"`) {
		t.Fatalf("expected engine name in log, got: %s", output)
	}
}

func TestStderrLogSplitsLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := &stderrLog{log: logger.JSON(&buf, slog.LevelDebug)}

	_, _ = w.Write([]byte("one\ntw"))
	_, _ = w.Write([]byte("o\r\n\nthree"))

	output := buf.String()
	if strings.Count(output, "engine stderr") != 2 {
		t.Fatalf("expected two complete lines logged, got: %s", output)
	}
	if !strings.Contains(output, `"line":"two"`) {
		t.Fatalf("expected joined line, got: %s", output)
	}
	if string(w.buf) != "three" {
		t.Fatalf("expected partial line to stay buffered, got %q", w.buf)
	}
}
