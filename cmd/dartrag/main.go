// Dartrag serves question answering over Korean DART disclosures.
//
// The daemon indexes disclosure text files into a vector store, summarizes
// them, and answers questions with retrieved chunks and optional Naver news.
//
// Configuration is read from an optional YAML file, a .env file and
// DARTRAG_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	dartrag
//
//	# Use a config file
//	dartrag -config /etc/dartrag/config.yaml
//
//	# Override via environment
//	DARTRAG_SERVER_PORT=9000 OPENAI_API_KEY=sk-... dartrag
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/dartrag/internal/config"
	dhttp "github.com/fyrsmithlabs/dartrag/internal/http"
	"github.com/fyrsmithlabs/dartrag/internal/logging"
	"github.com/fyrsmithlabs/dartrag/internal/services"
	"github.com/fyrsmithlabs/dartrag/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("DARTRAG_CONFIG"), "path to YAML config file")
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  dartrag           Start the dartrag daemon\n")
			fmt.Fprintf(os.Stderr, "  dartrag version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := config.Options{ConfigPath: *configPath, DotEnvPath: *envPath}
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "dartrag: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("dartrag\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until ctx is cancelled or the HTTP
// server fails. Shutdown order: HTTP server, background indexing, stores,
// telemetry.
func run(ctx context.Context, opts config.Options) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	logCfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	log, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	logger := log.Underlying()

	if v := cfg.Server.Version; v != "" && version == "dev" {
		version = v
	}
	log.Info(ctx, "starting dartrag",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.String("tasks", cfg.Tasks.Backend),
		logging.Secret("openai_api_key", cfg.OpenAI.APIKey),
	)

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version), logger.Named("telemetry"))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}()

	reg, err := services.Build(ctx, cfg, logger, services.WithRegisterer(tel.Registerer()))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	// Tasks left in flight by a previous process can never finish.
	if err := reg.Janitor().RunOnce(ctx); err != nil {
		log.Warn(ctx, "startup task sweep failed", zap.Error(err))
	}
	reg.Janitor().Start()

	srv, err := dhttp.NewServer(dhttp.Deps{
		Index:     reg.Index(),
		Tasks:     reg.Tasks(),
		Runner:    reg.Runner(),
		Querier:   reg.Querier(),
		FollowUps: reg.Analyzer(),
		News:      reg.News(),
		Metrics:   tel.Handler(),
	}, logger.Named("http"), dhttp.ConfigFrom(cfg))
	if err != nil {
		_ = reg.Close(context.WithoutCancel(ctx))
		return fmt.Errorf("failed to create http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := reg.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("services shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	log.Info(ctx, "dartrag stopped", zap.Error(err))
	return err
}
