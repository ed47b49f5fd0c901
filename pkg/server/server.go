// Package server provides the public entry point for initializing the
// Numeri agent proxy: configuration, telemetry, the credential manager, the
// provider adapters for the configured backend, and the HTTP router.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/numeri/numeri/proxy/internal/api"
	"github.com/numeri/numeri/proxy/internal/api/handlers"
	"github.com/numeri/numeri/proxy/internal/config"
	"github.com/numeri/numeri/proxy/internal/iam"
	"github.com/numeri/numeri/proxy/internal/provider"
	"github.com/numeri/numeri/proxy/internal/router"
	"github.com/numeri/numeri/proxy/internal/telemetry"
	"github.com/numeri/numeri/proxy/pkg/contracts"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized proxy.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Config is the validated configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New loads configuration from the environment and initializes the proxy.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the proxy with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	tokens := iam.NewManager(cfg.IBM.IAMURL, cfg.IBM.APIKey)

	logic, vision := buildAdapters(cfg, tokens)
	cross := provider.NewOrchestrate(cfg.Orchestrate.BaseURL, cfg.Orchestrate.InstanceID, cfg.Orchestrate.AgentID, tokens)

	dispatcher := router.New(logic, vision, cross)
	h := handlers.New(dispatcher, cfg.Production())

	log.Info().
		Str("provider", cfg.Provider).
		Str("logic_adapter", logic.Name()).
		Str("vision_adapter", vision.Name()).
		Msg("agent proxy initialized")

	return &Server{
		Handler:      api.NewRouter(cfg, h),
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// buildAdapters wires the logic and vision adapters for the configured
// backend. The cross-agent route always targets Orchestrate.
func buildAdapters(cfg *config.Config, tokens contracts.TokenSource) (logic, vision contracts.Adapter) {
	if cfg.Provider == config.ProviderGemini {
		client := provider.NewGeminiClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey)
		return provider.NewGeminiLogic(client, cfg.Gemini.Model),
			provider.NewGeminiVision(client, cfg.Gemini.VisionModel)
	}

	client := provider.NewWatsonxClient(
		cfg.IBM.WatsonxURL(),
		cfg.IBM.ProjectID,
		tokens,
		cfg.IBM.APIKey,
		cfg.IBM.AllowKeyFallback,
	)
	return provider.NewWatsonxLogic(client), provider.NewWatsonxVision(client, cfg.IBM.VisionTwoStage)
}
