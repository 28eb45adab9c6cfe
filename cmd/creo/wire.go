package main

import (
	"context"
	"fmt"

	"github.com/oron-mozes/creo-sub000/agent"
	"github.com/oron-mozes/creo-sub000/compact"
	"github.com/oron-mozes/creo-sub000/config"
	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/dispatch"
	"github.com/oron-mozes/creo-sub000/identity"
	"github.com/oron-mozes/creo-sub000/logging"
	"github.com/oron-mozes/creo-sub000/model"
	anthropicmodel "github.com/oron-mozes/creo-sub000/model/anthropic"
	openaimodel "github.com/oron-mozes/creo-sub000/model/openai"
	"github.com/oron-mozes/creo-sub000/runner"
	"github.com/oron-mozes/creo-sub000/session"
	"github.com/oron-mozes/creo-sub000/store"
	"github.com/oron-mozes/creo-sub000/transport"
)

type app struct {
	cfg        *config.Config
	store      core.Store
	closeStore func() error
	hub        *transport.Hub
	identity   *identity.Static
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
}

func wireApp(ctx context.Context, cfg *config.Config, logger *logging.ContextLogger) (*app, error) {
	st, closeStore, err := store.New(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("wire store: %w", err)
	}

	llm, err := newModel(ctx, cfg)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("wire model: %w", err)
	}

	factory := func(userID string) (core.Pipeline, error) {
		team, err := agent.NewTeam(llm, func(o *agent.TeamOptions) {
			o.CoordinatorName = cfg.Dispatch.CoordinatorWorker
			o.PresenterName = cfg.Dispatch.PresentationWorker
		})
		if err != nil {
			return nil, err
		}
		return runner.New(team, func(o *runner.Options) {
			o.EventBufferSize = cfg.Dispatch.EventBuffer
			o.MaxConcurrentRuns = cfg.Dispatch.MaxConcurrentRuns
			o.MaxModelCalls = cfg.Dispatch.MaxModelCalls
			o.Logger = logger.WithComponent("runner").WithContext("user_id", userID)
		}), nil
	}

	registry, err := session.NewRegistry(factory, func(o *session.Options) {
		o.Logger = logger.WithComponent("registry")
		o.IdleTTL = cfg.Registry.IdleTTL
	})
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("wire registry: %w", err)
	}

	hub := transport.NewHub()
	ids := identity.NewStatic()

	d, err := dispatch.New(registry, hub, func(o *dispatch.Options) {
		o.PresentationWorker = cfg.Dispatch.PresentationWorker
		o.CoordinatorWorker = cfg.Dispatch.CoordinatorWorker
		o.TurnTimeout = cfg.Dispatch.TurnTimeout
		o.Compaction = compact.Options{
			Threshold:        cfg.Compaction.Threshold,
			SnippetChars:     cfg.Compaction.SnippetChars,
			MaxOtherSessions: cfg.Compaction.OtherSessions,
		}
		o.Store = st
		o.Identity = ids
		o.Logger = logger.WithComponent("dispatch")
	})
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("wire dispatcher: %w", err)
	}

	return &app{
		cfg:        cfg,
		store:      st,
		closeStore: closeStore,
		hub:        hub,
		identity:   ids,
		registry:   registry,
		dispatcher: d,
	}, nil
}

// Close drops every user context and closes the store.
func (a *app) Close(ctx context.Context) error {
	if err := a.registry.ClearAll(ctx); err != nil {
		_ = a.closeStore()
		return err
	}
	return a.closeStore()
}

func newModel(ctx context.Context, cfg *config.Config) (model.Model, error) {
	m := cfg.Model

	switch m.Provider {
	case "mock":
		return model.NewMockModel("mock", "mock"), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = m.Name
			o.MaxTokens = m.MaxTokens
			o.Temperature = m.Temperature
			o.APIKey = cfg.Anthropic.APIKey
		}), nil
	case "bedrock":
		return anthropicmodel.NewBedrockModel(ctx, m.AWSRegion, m.AWSProfile, func(o *anthropicmodel.Options) {
			o.Model = m.Name
			o.MaxTokens = m.MaxTokens
			o.Temperature = m.Temperature
		}), nil
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if m.Name != "" {
				o.Model = m.Name
			}
			o.MaxCompletionTokens = m.MaxTokens
			o.Temperature = m.Temperature
			o.APIKey = cfg.OpenAI.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", m.Provider)
	}
}
