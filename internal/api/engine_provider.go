package api

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/samcharles93/mosespipe/internal/logger"
	"github.com/samcharles93/mosespipe/internal/moses"
)

// EngineProvider hands out long-lived engine handles. Calls for the same
// handle are serialized.
type EngineProvider interface {
	WithTokenizer(ctx context.Context, lang string, fn func(*moses.Tokenizer) error) error
	WithSplitter(ctx context.Context, opts SplitOptions, fn func(*moses.SentenceSplitter) error) error
	WithNormalizer(ctx context.Context, lang string, fn func(*moses.PunctNormalizer) error) error
	Handles() []string
	Close() error
}

// SplitOptions selects a sentence splitter handle.
type SplitOptions struct {
	Lang     string
	More     bool
	EvenMore bool
}

// EngineProviderConfig holds the launch template for each engine. Lang in the
// templates is replaced per request.
type EngineProviderConfig struct {
	DefaultLang string
	Tokenizer   moses.EngineConfig
	Splitter    moses.EngineConfig
	Normalizer  moses.EngineConfig
	Logger      logger.Logger
}

// CachedEngineProvider starts one engine per (operation, language, flags) on
// first use and keeps it. A handle that faults is closed and dropped so the
// next request starts a fresh engine.
type CachedEngineProvider struct {
	cfg EngineProviderConfig
	log logger.Logger

	mu     sync.Mutex
	cache  map[string]*engineEntry
	closed bool
}

type engineHandle interface {
	Alive() bool
	Close() error
}

type engineEntry struct {
	handle engineHandle
	mu     sync.Mutex
}

var errProviderClosed = errors.New("engine provider closed")

func NewCachedEngineProvider(cfg EngineProviderConfig) *CachedEngineProvider {
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = moses.DefaultLang
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &CachedEngineProvider{
		cfg:   cfg,
		log:   log,
		cache: make(map[string]*engineEntry),
	}
}

func (p *CachedEngineProvider) WithTokenizer(ctx context.Context, lang string, fn func(*moses.Tokenizer) error) error {
	lang = p.lang(lang)
	return withHandle(ctx, p, "tokenize/"+lang, func() (*moses.Tokenizer, error) {
		cfg := p.engineConfig(p.cfg.Tokenizer, lang)
		return moses.NewTokenizer(cfg)
	}, fn)
}

func (p *CachedEngineProvider) WithSplitter(ctx context.Context, opts SplitOptions, fn func(*moses.SentenceSplitter) error) error {
	opts.Lang = p.lang(opts.Lang)
	key := fmt.Sprintf("split/%s/more=%t/even_more=%t", opts.Lang, opts.More, opts.EvenMore)
	return withHandle(ctx, p, key, func() (*moses.SentenceSplitter, error) {
		return moses.NewSentenceSplitter(moses.SplitterConfig{
			EngineConfig: p.engineConfig(p.cfg.Splitter, opts.Lang),
			More:         opts.More,
			EvenMore:     opts.EvenMore,
		})
	}, fn)
}

func (p *CachedEngineProvider) WithNormalizer(ctx context.Context, lang string, fn func(*moses.PunctNormalizer) error) error {
	lang = p.lang(lang)
	return withHandle(ctx, p, "normalize/"+lang, func() (*moses.PunctNormalizer, error) {
		return moses.NewPunctNormalizer(p.engineConfig(p.cfg.Normalizer, lang))
	}, fn)
}

// Handles lists the cached handle keys in sorted order.
func (p *CachedEngineProvider) Handles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.cache))
}

// Close stops every cached engine. Later requests fail.
func (p *CachedEngineProvider) Close() error {
	p.mu.Lock()
	p.closed = true
	entries := p.cache
	p.cache = make(map[string]*engineEntry)
	p.mu.Unlock()

	var errs []error
	for key, entry := range entries {
		entry.mu.Lock()
		if err := entry.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		entry.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (p *CachedEngineProvider) lang(lang string) string {
	if lang == "" {
		return p.cfg.DefaultLang
	}
	return lang
}

func (p *CachedEngineProvider) engineConfig(tmpl moses.EngineConfig, lang string) moses.EngineConfig {
	tmpl.Lang = lang
	if tmpl.Logger == nil {
		tmpl.Logger = p.log
	}
	return tmpl
}

func withHandle[H engineHandle](ctx context.Context, p *CachedEngineProvider, key string, start func() (H, error), fn func(H) error) error {
	entry, err := p.getOrStart(key, func() (engineHandle, error) { return start() })
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	h, ok := entry.handle.(H)
	if !ok {
		return fmt.Errorf("handle %s has type %T", key, entry.handle)
	}
	err = fn(h)
	if !h.Alive() {
		p.evict(key, entry)
	}
	return err
}

func (p *CachedEngineProvider) getOrStart(key string, start func() (engineHandle, error)) (*engineEntry, error) {
	p.mu.Lock()
	entry, ok := p.cache[key]
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errProviderClosed
	}
	if ok {
		return entry, nil
	}

	h, err := start()
	if err != nil {
		return nil, err
	}
	newEntry := &engineEntry{handle: h}

	p.mu.Lock()
	existing, ok := p.cache[key]
	closed = p.closed
	if !ok && !closed {
		p.cache[key] = newEntry
	}
	p.mu.Unlock()
	if closed || ok {
		_ = h.Close()
		if closed {
			return nil, errProviderClosed
		}
		return existing, nil
	}

	p.log.Info("engine handle started", "handle", key)
	return newEntry, nil
}

// evict drops a faulted handle. The caller holds entry.mu.
func (p *CachedEngineProvider) evict(key string, entry *engineEntry) {
	p.mu.Lock()
	cached := p.cache[key] == entry
	if cached {
		delete(p.cache, key)
	}
	p.mu.Unlock()

	if err := entry.handle.Close(); err != nil {
		p.log.Warn("closing faulted engine handle", "handle", key, "err", err)
	}
	if cached {
		p.log.Info("engine handle evicted", "handle", key)
	}
}
