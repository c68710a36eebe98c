package api

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/samcharles93/mosespipe/internal/moses"
	"github.com/samcharles93/mosespipe/internal/pipe"
)

func TestCachedEngineProviderReusesHandles(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t)
	ctx := context.Background()

	var first, second *moses.Tokenizer
	if err := p.WithTokenizer(ctx, "", func(tok *moses.Tokenizer) error {
		first = tok
		return nil
	}); err != nil {
		t.Fatalf("WithTokenizer() error = %v", err)
	}
	if err := p.WithTokenizer(ctx, "en", func(tok *moses.Tokenizer) error {
		second = tok
		return nil
	}); err != nil {
		t.Fatalf("WithTokenizer() error = %v", err)
	}
	if first != second {
		t.Fatal("expected the default language to share the en handle")
	}

	if err := p.WithSplitter(ctx, SplitOptions{Lang: "en", More: true}, func(*moses.SentenceSplitter) error { return nil }); err != nil {
		t.Fatalf("WithSplitter() error = %v", err)
	}
	if err := p.WithSplitter(ctx, SplitOptions{Lang: "en", More: false}, func(*moses.SentenceSplitter) error { return nil }); err != nil {
		t.Fatalf("WithSplitter() error = %v", err)
	}

	want := []string{
		"split/en/more=false/even_more=false",
		"split/en/more=true/even_more=false",
		"tokenize/en",
	}
	if got := p.Handles(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Handles() = %q, want %q", got, want)
	}
}

func TestCachedEngineProviderEvictsFaultedHandle(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t)
	ctx := context.Background()

	err := p.WithTokenizer(ctx, "en", func(tok *moses.Tokenizer) error {
		_, err := tok.Tokenize(ctx, "die")
		return err
	})
	if !errors.Is(err, pipe.ErrLifecycle) {
		t.Fatalf("expected lifecycle error, got %v", err)
	}
	if got := p.Handles(); len(got) != 0 {
		t.Fatalf("expected faulted handle to be evicted, got %q", got)
	}

	err = p.WithTokenizer(ctx, "en", func(tok *moses.Tokenizer) error {
		got, err := tok.Tokenize(ctx, "back again!")
		if err == nil && !reflect.DeepEqual(got, []string{"back", "again", "!"}) {
			t.Errorf("Tokenize() = %q", got)
		}
		return err
	})
	if err != nil {
		t.Fatalf("expected a fresh engine, got %v", err)
	}
}

func TestCachedEngineProviderKeepsHandleOnContractViolation(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t)
	ctx := context.Background()

	err := p.WithSplitter(ctx, SplitOptions{Lang: "en"}, func(s *moses.SentenceSplitter) error {
		_, err := s.Split(ctx, []string{"ok", " "})
		return err
	})
	if !errors.Is(err, pipe.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if got := p.Handles(); len(got) != 1 {
		t.Fatalf("expected handle to stay cached, got %q", got)
	}
}

func TestCachedEngineProviderConcurrentFirstUse(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.WithNormalizer(ctx, "de", func(n *moses.PunctNormalizer) error {
				_, err := n.Normalize(ctx, "«x»")
				return err
			})
			if err != nil {
				t.Errorf("WithNormalizer() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := p.Handles(); !reflect.DeepEqual(got, []string{"normalize/de"}) {
		t.Fatalf("Handles() = %q", got)
	}
}

func TestCachedEngineProviderClose(t *testing.T) {
	t.Parallel()
	p := newTestProvider(t)
	ctx := context.Background()

	var kept *moses.Tokenizer
	if err := p.WithTokenizer(ctx, "en", func(tok *moses.Tokenizer) error {
		kept = tok
		return nil
	}); err != nil {
		t.Fatalf("WithTokenizer() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if kept.Alive() {
		t.Fatal("expected cached engine to be closed")
	}
	err := p.WithTokenizer(ctx, "en", func(*moses.Tokenizer) error { return nil })
	if !errors.Is(err, errProviderClosed) {
		t.Fatalf("expected errProviderClosed, got %v", err)
	}
}
