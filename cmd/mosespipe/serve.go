package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mosespipe/internal/api"
	"github.com/samcharles93/mosespipe/internal/logger"
	"github.com/samcharles93/mosespipe/internal/moses"
)

func serveCmd(o *options) *cli.Command {
	var (
		addr        string
		lang        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve tokenize, split and normalize over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "lang",
				Usage:       "language used when a request does not name one",
				Value:       moses.DefaultLang,
				Destination: &lang,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, o.file, &addr, &lang)

			provider := api.NewCachedEngineProvider(api.EngineProviderConfig{
				DefaultLang: lang,
				Tokenizer:   engineConfig(ctx, o, lang, o.file.Engines.Tokenizer),
				Splitter:    engineConfig(ctx, o, lang, o.file.Engines.Splitter),
				Normalizer:  engineConfig(ctx, o, lang, o.file.Engines.Normalizer),
				Logger:      log,
			})
			defer func() {
				if err := provider.Close(); err != nil {
					log.Error("closing engines", "err", err)
				}
			}()

			server := api.NewServer(provider, api.ServerConfig{DefaultLang: lang, Logger: log})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr, "lang", lang)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			if err := sc.Start(ctx, e); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
