package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/menuscan/menuscan/internal/cache"
	"github.com/menuscan/menuscan/internal/classify"
	"github.com/menuscan/menuscan/internal/extract"
	"github.com/menuscan/menuscan/internal/menu"
	"github.com/menuscan/menuscan/internal/scrape"
	"github.com/menuscan/menuscan/pkg/anthropic"
)

// appEnv holds the wired service and the resources behind it.
type appEnv struct {
	Cache   *cache.Cache
	Service *menu.Service
}

// initService wires the orchestrator from config: cache, fetcher,
// classifier, extractor.
func initService(ctx context.Context) (*appEnv, error) {
	c := cache.New(cfg.Cache.Path)
	if err := c.Open(ctx); err != nil {
		return nil, err
	}

	fetcher := scrape.NewHTTPFetcher(scrape.Options{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		RatePerSec:   cfg.Fetch.RatePerSec,
	})

	classifier := classify.New(classify.Options{
		WindowRadius:  cfg.Classify.WindowRadius,
		NavTermCutoff: cfg.Classify.NavTermCutoff,
		PriceMin:      cfg.Classify.PriceMin,
		PriceMax:      cfg.Classify.PriceMax,
	})

	extractor := extract.New(anthropic.NewClient(cfg.Anthropic.Key), extract.Options{
		Model:        cfg.Anthropic.Model,
		MaxTokens:    cfg.Extract.MaxTokens,
		MaxToolTurns: cfg.Extract.MaxToolTurns,
		MaxTextChars: cfg.Extract.MaxTextChars,
		MaxHTMLChars: cfg.Extract.MaxHTMLChars,
	})

	return &appEnv{
		Cache:   c,
		Service: menu.NewService(fetcher, classifier, extractor, c),
	}, nil
}

func (e *appEnv) Close() {
	if err := e.Cache.Close(); err != nil {
		zap.L().Warn("close cache", zap.Error(err))
	}
}
