package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/yanqian/gistflow/internal/domain/studyguide"
	"github.com/yanqian/gistflow/internal/infra/config"
	"github.com/yanqian/gistflow/internal/infra/llm/openrouter"
	"github.com/yanqian/gistflow/internal/infra/llm/tokens"
	"github.com/yanqian/gistflow/internal/infra/ratelimit"
	"github.com/yanqian/gistflow/pkg/logger"
)

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.LogLevel)
}

func provideStudyGuideConfig(cfg *config.Config) studyguide.Config {
	return studyguide.Config{
		Model:          cfg.LLM.Model,
		DefaultStyle:   studyguide.StyleID(cfg.StudyGuide.DefaultStyle),
		MaxUploadBytes: cfg.StudyGuide.MaxUploadBytes,
	}
}

func provideOpenRouterClient(cfg *config.Config, logger *slog.Logger) (*openrouter.Client, error) {
	client, err := openrouter.NewClient(openrouter.Options{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Referer:       cfg.LLM.Referer,
		AppName:       cfg.LLM.AppName,
		Timeout:       cfg.LLM.Timeout,
		RetryAttempts: cfg.LLM.RetryAttempts,
	})
	if err != nil {
		return nil, err
	}
	if !client.Configured() {
		logger.Warn("llm api key not set, summarization requests will fail until LLM_API_KEY is provided")
	}
	return client, nil
}

const tokenizerWarmupTimeout = 3 * time.Second

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) *tokens.Counter {
	counter := tokens.NewCounter(cfg.LLM.Model, logger)
	ctx, cancel := context.WithTimeout(context.Background(), tokenizerWarmupTimeout)
	defer cancel()
	if !counter.Wait(ctx) {
		logger.Warn("tokenizer not ready, token usage will be approximated until it loads", "model", cfg.LLM.Model)
	}
	return counter
}

// provideRateLimiter returns a nil limiter when rate limiting is disabled.
// An unreachable Valkey falls back to the in-process limiter.
func provideRateLimiter(cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, func()) {
	rl := cfg.HTTP.RateLimit
	noop := func() {}
	if !rl.Enabled || rl.RequestsPerMinute <= 0 {
		return nil, noop
	}
	if rl.Backend != config.RateLimitBackendValkey {
		return ratelimit.NewMemoryLimiter(rl.RequestsPerMinute, rl.Burst), noop
	}

	client, err := ratelimit.NewValkeyClient(cfg.Valkey.Addr)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory rate limiter", "error", err)
		return ratelimit.NewMemoryLimiter(rl.RequestsPerMinute, rl.Burst), noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory rate limiter", "error", err)
		client.Close()
		return ratelimit.NewMemoryLimiter(rl.RequestsPerMinute, rl.Burst), noop
	}
	logger.Info("valkey rate limiter enabled", "addr", cfg.Valkey.Addr)
	return ratelimit.NewValkeyLimiter(client, "gistflow", rl.RequestsPerMinute, rl.Burst), client.Close
}
