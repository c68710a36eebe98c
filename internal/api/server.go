// Package api serves the Moses engines over HTTP.
package api

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/mosespipe/internal/logger"
	"github.com/samcharles93/mosespipe/internal/moses"
)

const headerRequestID = "X-Request-Id"

var langPattern = regexp.MustCompile(`^[A-Za-z]{2,3}([_-][A-Za-z0-9]{2,8})?$`)

type Server struct {
	provider    EngineProvider
	defaultLang string
	log         logger.Logger
}

type ServerConfig struct {
	DefaultLang string
	Logger      logger.Logger
}

func NewServer(provider EngineProvider, cfg ServerConfig) *Server {
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = moses.DefaultLang
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	return &Server{
		provider:    provider,
		defaultLang: cfg.DefaultLang,
		log:         cfg.Logger,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/tokenize", s.handleTokenize)
	e.POST("/v1/split", s.handleSplit)
	e.POST("/v1/normalize", s.handleNormalize)
}

func (s *Server) handleHealth(c *echo.Context) error {
	handles := s.provider.Handles()
	if handles == nil {
		handles = []string{}
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Handles: handles})
}

func (s *Server) handleTokenize(c *echo.Context) error {
	req, err := decodeJSON[TokenizeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	lang, err := s.resolveLang(req.Lang)
	if err != nil {
		return writeEngineError(c, err)
	}

	id := requestID(c)
	tokens := make([][]string, 0, len(req.Lines))
	err = s.provider.WithTokenizer(c.Request().Context(), lang, func(tok *moses.Tokenizer) error {
		for _, line := range req.Lines {
			out, err := tok.Tokenize(c.Request().Context(), line)
			if err != nil {
				return err
			}
			tokens = append(tokens, out)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("tokenize failed", "request_id", id, "lang", lang, "err", err)
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, TokenizeResponse{
		ID:     id,
		Object: "tokenize",
		Lang:   lang,
		Tokens: tokens,
	})
}

func (s *Server) handleSplit(c *echo.Context) error {
	req, err := decodeJSON[SplitRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	lang, err := s.resolveLang(req.Lang)
	if err != nil {
		return writeEngineError(c, err)
	}
	if req.Text != "" && len(req.Paragraphs) > 0 {
		return writeBadRequest(c, "text and paragraphs are mutually exclusive")
	}
	paragraphs := req.Paragraphs
	if req.Text != "" {
		paragraphs, err = moses.ReadParagraphs(strings.NewReader(req.Text), true)
		if err != nil {
			return writeBadRequest(c, fmt.Sprintf("text: %v", err))
		}
	}

	opts := SplitOptions{Lang: lang, More: true, EvenMore: req.EvenMore}
	if req.More != nil {
		opts.More = *req.More
	}

	id := requestID(c)
	out := make([][]string, 0, len(paragraphs))
	err = s.provider.WithSplitter(c.Request().Context(), opts, func(sp *moses.SentenceSplitter) error {
		for _, para := range paragraphs {
			sentences, err := sp.Split(c.Request().Context(), para)
			if err != nil {
				return err
			}
			out = append(out, sentences)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("split failed", "request_id", id, "lang", lang, "err", err)
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, SplitResponse{
		ID:         id,
		Object:     "split",
		Lang:       lang,
		Paragraphs: out,
	})
}

func (s *Server) handleNormalize(c *echo.Context) error {
	req, err := decodeJSON[NormalizeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	lang, err := s.resolveLang(req.Lang)
	if err != nil {
		return writeEngineError(c, err)
	}

	id := requestID(c)
	lines := make([]string, 0, len(req.Lines))
	err = s.provider.WithNormalizer(c.Request().Context(), lang, func(n *moses.PunctNormalizer) error {
		for _, line := range req.Lines {
			out, err := n.Normalize(c.Request().Context(), line)
			if err != nil {
				return err
			}
			lines = append(lines, out)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("normalize failed", "request_id", id, "lang", lang, "err", err)
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, NormalizeResponse{
		ID:     id,
		Object: "normalize",
		Lang:   lang,
		Lines:  lines,
	})
}

func (s *Server) resolveLang(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return s.defaultLang, nil
	}
	if !langPattern.MatchString(lang) {
		return "", newInvalidRequest(fmt.Sprintf("invalid lang %q", lang))
	}
	return lang, nil
}

// requestID reuses the caller's X-Request-Id or assigns a new one, and echoes
// it on the response.
func requestID(c *echo.Context) string {
	id := strings.TrimSpace(c.Request().Header.Get(headerRequestID))
	if id == "" {
		id = uuid.NewString()
	}
	c.Response().Header().Set(headerRequestID, id)
	return id
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
