package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/doctranslate/internal/breaker"
	cfgpkg "github.com/local/doctranslate/internal/config"
	"github.com/local/doctranslate/internal/executor"
	"github.com/local/doctranslate/internal/filetype"
	"github.com/local/doctranslate/internal/llm"
	logpkg "github.com/local/doctranslate/internal/logger"
	"github.com/local/doctranslate/internal/metrics"
	"github.com/local/doctranslate/internal/planner"
	"github.com/local/doctranslate/internal/progress"
	"github.com/local/doctranslate/internal/request"
	"github.com/local/doctranslate/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	engines := map[string]llm.Client{
		"openai":    llm.NewOpenAIClient(),
		"anthropic": llm.NewAnthropicClient(),
	}

	primaryClient, ok := engines[cfg.Providers.PrimaryEngine]
	if !ok {
		log.Fatal().Str("engine", cfg.Providers.PrimaryEngine).Msg("unknown primary engine")
	}
	secondaryClient, ok := engines[cfg.Providers.SecondaryEngine]
	if !ok {
		log.Fatal().Str("engine", cfg.Providers.SecondaryEngine).Msg("unknown secondary engine")
	}

	primary := &executor.Provider{Client: primaryClient, Model: modelFor(cfg.Providers, cfg.Providers.PrimaryEngine)}
	secondary := &executor.Provider{Client: secondaryClient, Model: modelFor(cfg.Providers, cfg.Providers.SecondaryEngine)}

	br := breaker.New(cfg.Executor.BreakerBaseBackoff, cfg.Executor.BreakerMaxBackoff)
	progressStore := progress.New(cfg.Server.ProgressLinger)

	execCfg := executor.Config{
		MaxConcurrentBatches: cfg.Executor.MaxConcurrentBatches,
		PerAttemptTimeout:    cfg.Executor.PerAttemptTimeout,
		MaxRetries:           cfg.Executor.MaxRetries,
		RetryBackoff:         cfg.Executor.RetryBackoff,
	}
	plannerCfg := planner.Config{
		WindowSize:           cfg.Planner.WindowSize,
		TokenTargetSimple:    cfg.Planner.TokenTargetSimple,
		TokenTargetModerate:  cfg.Planner.TokenTargetModerate,
		TokenTargetComplex:   cfg.Planner.TokenTargetComplex,
		LegacyClassification: cfg.Planner.LegacyClassification,
	}

	pipeline := &request.Pipeline{
		PlannerConfig:   plannerCfg,
		ExecutorConfig:  execCfg,
		Primary:         primary,
		Secondary:       secondary,
		Breaker:         br,
		ProgressStore:   progressStore,
		FileTypeChecker: filetype.New(),
	}

	srv := server.New(pipeline)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	addr := cfg.Server.Addr
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}

func modelFor(cfg cfgpkg.ProvidersConfig, engine string) string {
	switch engine {
	case "openai":
		return cfg.OpenAI.Primary
	case "anthropic":
		return cfg.Anthropic.Primary
	default:
		return ""
	}
}
