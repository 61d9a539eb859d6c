package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/docqa/internal/config"
	"github.com/metalagman/docqa/internal/linter"
	"github.com/metalagman/docqa/internal/llm"
	"github.com/metalagman/docqa/internal/review"
	"github.com/metalagman/docqa/internal/store"
)

type collaborators struct {
	reviewer *review.Reviewer
	primary  *llm.TGIClient
	fallback *llm.OpenRouterClient
	closeFn  func()
}

// buildCollaborators wires the review pipeline from configuration. The
// returned closeFn releases the audit database handle, if one was opened.
func buildCollaborators(cfg config.Config) (*collaborators, error) {
	params := llm.Params{
		MaxNewTokens: cfg.Generation.MaxNewTokens,
		Temperature:  float32(cfg.Generation.Temperature),
		TopP:         float32(cfg.Generation.TopP),
		Stop:         cfg.Generation.StopSequences,
	}

	primary, err := llm.NewTGIClient(llm.TGIConfig{
		BaseURL: cfg.TGI.BaseURL,
		Params:  params,
	}, &http.Client{Timeout: cfg.TGI.Timeout})
	if err != nil {
		return nil, err
	}

	fallback, err := llm.NewOpenRouterClient(llm.OpenRouterConfig{
		BaseURL: cfg.Fallback.BaseURL,
		APIKey:  cfg.Fallback.APIKey,
		Model:   cfg.Fallback.Model,
		Params:  params,
	}, nil)
	if err != nil {
		return nil, err
	}

	lint, err := linter.New(linter.Config{
		BaseURL:  cfg.Linter.BaseURL,
		Enabled:  cfg.Linter.Enabled,
		Language: cfg.Linter.Language,
	}, nil)
	if err != nil {
		return nil, err
	}

	closeFn := func() {}
	var audit review.Auditor
	if cfg.AuditDB != "" {
		auditDB, err := store.Open(cfg.AuditDB)
		if err != nil {
			return nil, err
		}
		closeFn = func() { _ = auditDB.Close() }
		audit = store.New(auditDB)
		log.Info().Str("path", cfg.AuditDB).Msg("audit database opened")
	}

	reviewer := review.New(review.Config{
		RetriesOnMalformed:     cfg.Review.RetriesOnMalformed,
		CodeEditThresholdRatio: cfg.Review.CodeEditThresholdRatio,
		LintLanguage:           cfg.Linter.Language,
	}, primary, fallback, lint, audit)

	return &collaborators{
		reviewer: reviewer,
		primary:  primary,
		fallback: fallback,
		closeFn:  closeFn,
	}, nil
}
