package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	svcconfig "github.com/adrianhensler/botterverse/internal/config"
	"github.com/adrianhensler/botterverse/internal/director"
	"github.com/adrianhensler/botterverse/internal/integrations"
	"github.com/adrianhensler/botterverse/internal/llm"
	"github.com/adrianhensler/botterverse/internal/persona"
	"github.com/adrianhensler/botterverse/internal/scheduler"
	apiserver "github.com/adrianhensler/botterverse/internal/server"
	"github.com/adrianhensler/botterverse/internal/store"
	"github.com/adrianhensler/botterverse/internal/tooling"
	"github.com/adrianhensler/botterverse/pkg/config"
	"github.com/adrianhensler/botterverse/pkg/logging"
	"github.com/adrianhensler/botterverse/pkg/server"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("botterverse")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Botterverse (persona simulator)")

	cfg := svcconfig.LoadConfig()

	// Open the database
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.WithError(err).Fatal("Failed to create data directory")
		}
	}
	st, err := store.Open(cfg.SQLitePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed personas and the default human author, rebinding persona ids to
	// authors persisted by earlier runs.
	personas, err := seedAuthors(ctx, st, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to seed authors")
	}

	// Model routing
	models := llm.NewModelRouter(llm.RouterConfig{
		EconomyModel:     orDefault(cfg.EconomyModel, llm.DefaultEconomyModel),
		PremiumModel:     orDefault(cfg.PremiumModel, llm.DefaultPremiumModel),
		EconomyProvider:  orDefault(cfg.EconomyProvider, llm.OpenRouterProviderName),
		PremiumProvider:  orDefault(cfg.PremiumProvider, llm.OpenRouterProviderName),
		FallbackProvider: llm.LocalProviderName,
		Adapters: map[string]llm.Adapter{
			llm.OpenRouterProviderName: llm.NewOpenRouterAdapter(llm.OpenRouterConfig{
				APIKey: cfg.OpenRouterKey,
				APIURL: cfg.OpenRouterURL,
			}),
			llm.LocalProviderName: llm.NewLocalAdapter(),
		},
	})
	client := llm.NewClient(models, logger)

	// Tools
	news := integrations.NewNewsClient(integrations.NewsConfig{APIKey: cfg.NewsAPIKey})
	weather := integrations.NewWeatherClient(integrations.WeatherConfig{APIKey: cfg.WeatherAPIKey})
	registry := tooling.NewDefaultRegistry(tooling.DefaultRegistryConfig{
		Guard:   tooling.NewEgressGuard(cfg.EgressAllowHosts...),
		News:    news,
		Weather: weather,
	})
	tools := tooling.NewRouter(registry, logger)

	// Director and scheduler
	d := director.New(director.Config{
		Personas:    personas,
		QuoteChance: cfg.QuoteChance,
		Tools:       tools,
		Logger:      logger,
	})
	state := director.NewSchedulerState()

	jobs := &scheduler.Jobs{
		Director: d,
		State:    state,
		Store:    st,
		Client:   client,
		News:     news,
		Weather:  weather,
		Logger:   logger,
		Config:   cfg,
	}
	sched := scheduler.New(logger)
	jobs.Register(sched)
	go func() {
		if err := sched.Run(ctx); err != nil {
			logger.WithError(err).Error("Scheduler stopped")
		}
	}()

	// HTTP API
	router := server.SetupRouter(logger, "botterverse")
	apiserver.New(st, d, state, client, tools, logger).RegisterRoutes(router)

	serverConfig := server.DefaultConfig("botterverse", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

// seedAuthors persists the default roster and human author, reusing author
// rows from previous runs so persona identities survive restarts.
func seedAuthors(ctx context.Context, st store.Store, logger logging.Logger) ([]persona.Persona, error) {
	existing, err := st.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}
	byHandle := make(map[string]store.Author, len(existing))
	for _, author := range existing {
		byHandle[strings.ToLower(author.Handle)] = author
	}

	roster := persona.DefaultRoster()
	personas := make([]persona.Persona, 0, len(roster))
	for _, p := range roster {
		if author, ok := byHandle[strings.ToLower(p.Handle())]; ok {
			personas = append(personas, persona.Restore(author.ID, p.Handle(), p.DisplayName(), p.Tone(), p.Interests(), p.Cadence()))
			continue
		}
		if err := st.AddAuthor(ctx, store.Author{
			ID: p.ID(), Handle: p.Handle(), DisplayName: p.DisplayName(), Type: store.AuthorBot,
		}); err != nil {
			return nil, err
		}
		logger.WithFields(logging.Fields{"handle": p.Handle()}).Info("Seeded persona author")
		personas = append(personas, p)
	}

	if _, ok := byHandle["you"]; !ok {
		if err := st.AddAuthor(ctx, store.Author{
			ID: uuid.New(), Handle: "you", DisplayName: "You", Type: store.AuthorHuman,
		}); err != nil {
			return nil, err
		}
		logger.Info("Seeded default human author")
	}
	return personas, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
