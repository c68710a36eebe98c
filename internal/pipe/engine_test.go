package pipe

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/samcharles93/mosespipe/internal/logger"
)

// engineEnv makes the test binary act as a line engine instead of running
// tests. Each mode exercises one behavior of the wire protocol.
const engineEnv = "PIPE_TEST_ENGINE"

func TestMain(m *testing.M) {
	if mode := os.Getenv(engineEnv); mode != "" {
		os.Exit(runEngine(mode))
	}
	os.Exit(m.Run())
}

func runEngine(mode string) int {
	in := bufio.NewScanner(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	emit := func(s string) {
		_, _ = out.WriteString(s)
		_ = out.WriteByte('\n')
		_ = out.Flush()
	}

	switch mode {
	case "echo":
		for in.Scan() {
			emit(in.Text())
		}
	case "upper":
		for in.Scan() {
			emit(strings.ToUpper(in.Text()))
		}
	case "sentinel":
		var para []string
		for in.Scan() {
			line := in.Text()
			if line != DefaultSentinel {
				para = append(para, line)
				continue
			}
			for _, l := range para {
				emit("S:" + l)
			}
			emit(DefaultSentinel)
			para = para[:0]
		}
	case "chatty":
		// The extra line goes out in the same write as the answer.
		for in.Scan() {
			emit(in.Text() + "\nunsolicited")
		}
	case "chatty-sentinel":
		for in.Scan() {
			if in.Text() == DefaultSentinel {
				emit(DefaultSentinel + "\nunsolicited")
			}
		}
	case "die-after-one":
		if in.Scan() {
			emit(in.Text())
		}
		in.Scan()
		return 3
	case "crash-mid":
		for in.Scan() {
			if in.Text() == DefaultSentinel {
				emit("partial")
				return 2
			}
		}
	case "close-stdout":
		if in.Scan() {
			emit(in.Text())
		}
		_ = os.Stdout.Close()
		for in.Scan() {
		}
	case "silent":
		for in.Scan() {
		}
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
		for in.Scan() {
			emit(in.Text())
		}
		time.Sleep(time.Hour)
	case "stderr":
		for in.Scan() {
			fmt.Fprintln(os.Stderr, "diag: "+in.Text())
			emit(in.Text())
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown engine mode %q\n", mode)
		return 1
	}
	return 0
}

func engineConfig(mode string) Config {
	return Config{
		Argv:        []string{os.Args[0]},
		Env:         []string{engineEnv + "=" + mode},
		Name:        mode,
		ExitTimeout: 500 * time.Millisecond,
		KillTimeout: time.Second,
		Logger:      logger.Nop(),
	}
}

func startEngine(t *testing.T, mode string) *Process {
	t.Helper()
	return startEngineWith(t, engineConfig(mode))
}

func startEngineWith(t *testing.T, cfg Config) *Process {
	t.Helper()
	p, err := Start(cfg)
	if err != nil {
		t.Fatalf("Start(%s) error = %v", cfg.Name, err)
	}
	t.Cleanup(func() {
		_ = p.Close()
	})
	return p
}
