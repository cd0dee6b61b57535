//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/gistflow/internal/bootstrap"
	"github.com/yanqian/gistflow/internal/domain/studyguide"
	"github.com/yanqian/gistflow/internal/infra/config"
	"github.com/yanqian/gistflow/internal/infra/llm/openrouter"
	"github.com/yanqian/gistflow/internal/infra/llm/tokens"
	"github.com/yanqian/gistflow/internal/infra/render"
	httpiface "github.com/yanqian/gistflow/internal/interface/http"
)

var studyGuideSet = wire.NewSet(
	config.Load,
	provideLogger,
	provideStudyGuideConfig,
	provideOpenRouterClient,
	provideTokenCounter,
	render.NewHTMLRenderer,
	studyguide.NewService,
	wire.Bind(new(studyguide.ChatClient), new(*openrouter.Client)),
	wire.Bind(new(studyguide.TokenCounter), new(*tokens.Counter)),
	wire.Bind(new(studyguide.HTMLRenderer), new(*render.HTMLRenderer)),
)

func initializeApp(configPath string) (*bootstrap.App, func(), error) {
	wire.Build(
		studyGuideSet,
		provideRateLimiter,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}

func initializeRunner(configPath string) (*runner, error) {
	wire.Build(
		studyGuideSet,
		newRunner,
	)
	return nil, nil
}
