package main

import (
	"fmt"

	"github.com/mraffaele/guida/internal/cache"
	"github.com/mraffaele/guida/internal/config"
	"github.com/mraffaele/guida/internal/epg"
	"github.com/mraffaele/guida/internal/fetch"
	"github.com/mraffaele/guida/internal/guide"
	"github.com/mraffaele/guida/internal/merger"
)

// pipeline bundles the wired components shared by every command.
type pipeline struct {
	cfg     *config.Config
	store   *cache.Store
	client  *fetch.Client
	norm    *epg.Normalizer
	manager *guide.Manager
	merger  *merger.Merger
}

func buildPipeline(cfg *config.Config) (*pipeline, error) {
	store, err := cache.New(cfg.CacheDir, cfg.TTL())
	if err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}

	norm, err := epg.NewNormalizer(cfg.Normalization)
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}

	client := fetch.New(fetch.Options{
		UserAgent:  cfg.UserAgent,
		Retries:    cfg.Fetch.Retries,
		BaseDelay:  cfg.Backoff(),
		Timeout:    cfg.Timeout(),
		RatePerSec: cfg.Fetch.RatePerSec,
	})

	manager := guide.New(guide.Config{
		Sources:     cfg.Sources,
		Store:       store,
		Client:      client,
		Normalizer:  norm,
		Window:      cfg.Window(),
		FuzzyMax:    cfg.Guide.FuzzyMax,
		Concurrency: cfg.Guide.MaxConcurrency,
	})

	return &pipeline{
		cfg:     cfg,
		store:   store,
		client:  client,
		norm:    norm,
		manager: manager,
		merger:  merger.New(store, client, norm),
	}, nil
}
