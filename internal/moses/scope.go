package moses

import "errors"

// WithTokenizer starts a tokenizer, runs fn, and closes the engine on every
// return path. A close failure is joined to fn's error.
func WithTokenizer(cfg EngineConfig, fn func(*Tokenizer) error) error {
	t, err := NewTokenizer(cfg)
	if err != nil {
		return err
	}
	return scoped(t, func() error { return fn(t) })
}

// WithSplitter is WithTokenizer for a SentenceSplitter.
func WithSplitter(cfg SplitterConfig, fn func(*SentenceSplitter) error) error {
	s, err := NewSentenceSplitter(cfg)
	if err != nil {
		return err
	}
	return scoped(s, func() error { return fn(s) })
}

// WithNormalizer is WithTokenizer for a PunctNormalizer.
func WithNormalizer(cfg EngineConfig, fn func(*PunctNormalizer) error) error {
	n, err := NewPunctNormalizer(cfg)
	if err != nil {
		return err
	}
	return scoped(n, func() error { return fn(n) })
}

func scoped(c interface{ Close() error }, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			_ = c.Close()
			panic(r)
		}
		err = errors.Join(err, c.Close())
	}()
	return fn()
}
