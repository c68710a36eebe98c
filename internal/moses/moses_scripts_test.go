package moses

import (
	"context"
	"os"
	"os/exec"
	"reflect"
	"testing"
	"time"

	"github.com/samcharles93/mosespipe/internal/logger"
)

// These tests run the real Moses scripts from $MOSES_SCRIPTS_DIR.
func scriptsConfig(t *testing.T) EngineConfig {
	t.Helper()
	dir := os.Getenv(ScriptsDirEnv)
	if dir == "" {
		t.Skipf("%s not set", ScriptsDirEnv)
	}
	if _, err := exec.LookPath("perl"); err != nil {
		t.Skip("perl not installed")
	}
	return EngineConfig{Lang: "en", ScriptsDir: dir, Logger: logger.Nop()}
}

func TestScriptsTokenizer(t *testing.T) {
	cfg := scriptsConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := WithTokenizer(cfg, func(tok *Tokenizer) error {
		got, err := tok.Tokenize(ctx, "Hello World!")
		if err != nil {
			return err
		}
		if want := []string{"Hello", "World", "!"}; !reflect.DeepEqual(got, want) {
			t.Errorf("Tokenize() = %q, want %q", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTokenizer() error = %v", err)
	}
}

func TestScriptsSplitter(t *testing.T) {
	cfg := scriptsConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	split := DefaultSplitterConfig("en")
	split.EngineConfig = cfg
	err := WithSplitter(split, func(s *SentenceSplitter) error {
		got, err := s.Split(ctx, []string{"Hello World! Hello", "again."})
		if err != nil {
			return err
		}
		if want := []string{"Hello World!", "Hello again."}; !reflect.DeepEqual(got, want) {
			t.Errorf("Split() = %q, want %q", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithSplitter() error = %v", err)
	}
}

func TestScriptsNormalizerIdempotent(t *testing.T) {
	cfg := scriptsConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := WithNormalizer(cfg, func(n *PunctNormalizer) error {
		once, err := n.Normalize(ctx, "«Hello» , she said ...")
		if err != nil {
			return err
		}
		twice, err := n.Normalize(ctx, once)
		if err != nil {
			return err
		}
		if once != twice {
			t.Errorf("Normalize not idempotent: %q then %q", once, twice)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithNormalizer() error = %v", err)
	}
}
