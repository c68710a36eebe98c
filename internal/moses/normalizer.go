package moses

import (
	"context"
	"fmt"

	"github.com/samcharles93/mosespipe/internal/pipe"
)

// PunctNormalizer runs normalize-punctuation.perl one line at a time.
type PunctNormalizer struct {
	lang string
	w    *pipe.Worker
}

// NewPunctNormalizer starts a punctuation normalizer engine.
func NewPunctNormalizer(cfg EngineConfig) (*PunctNormalizer, error) {
	w, err := cfg.start("normalizer", NormalizerScript, pipe.FixedArity, "-b")
	if err != nil {
		return nil, err
	}
	return &PunctNormalizer{lang: cfg.lang(), w: w}, nil
}

// Normalize returns the engine's output line verbatim, trailing whitespace
// included. The empty line maps to itself without an engine round trip.
func (n *PunctNormalizer) Normalize(ctx context.Context, line string) (string, error) {
	if line == "" {
		return "", nil
	}
	out, err := n.w.CallLine(ctx, line)
	if err != nil {
		return "", fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

func (n *PunctNormalizer) Lang() string {
	return n.lang
}

func (n *PunctNormalizer) Alive() bool {
	return n.w.Process().Alive()
}

func (n *PunctNormalizer) Close() error {
	return n.w.Close()
}

func (n *PunctNormalizer) String() string {
	return fmt.Sprintf("MosesPunctNormalizer(lang=%q)", n.lang)
}
