// Package main wires together the enrichment service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/asibalo/netflix-critic/internal/api"
	archivegcs "github.com/asibalo/netflix-critic/internal/archive/gcs"
	archivelocal "github.com/asibalo/netflix-critic/internal/archive/local"
	archivememory "github.com/asibalo/netflix-critic/internal/archive/memory"
	"github.com/asibalo/netflix-critic/internal/clock/system"
	"github.com/asibalo/netflix-critic/internal/config"
	"github.com/asibalo/netflix-critic/internal/critic"
	"github.com/asibalo/netflix-critic/internal/enrich"
	"github.com/asibalo/netflix-critic/internal/fetch"
	"github.com/asibalo/netflix-critic/internal/fetch/headless"
	"github.com/asibalo/netflix-critic/internal/id/uuid"
	"github.com/asibalo/netflix-critic/internal/jobs"
	"github.com/asibalo/netflix-critic/internal/logging"
	memorypublisher "github.com/asibalo/netflix-critic/internal/publisher/memory"
	pubsubpublisher "github.com/asibalo/netflix-critic/internal/publisher/pubsub"
	"github.com/asibalo/netflix-critic/internal/react"
	"github.com/asibalo/netflix-critic/internal/serp"
	"github.com/asibalo/netflix-critic/internal/session"
	memorystorage "github.com/asibalo/netflix-critic/internal/storage/memory"
	"github.com/asibalo/netflix-critic/internal/storage/postgres"
	"github.com/asibalo/netflix-critic/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, "netflix-critic")
	if err != nil {
		logger.Warn("tracer init failed", zap.Error(err))
	} else {
		defer func() {
			if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
				logger.Warn("tracer shutdown failed", zap.Error(shutdownErr))
			}
		}()
	}

	archiver, err := buildArchiver(ctx, cfg)
	if err != nil {
		logger.Fatal("archiver init failed", zap.Error(err))
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("title store init failed", zap.Error(err))
	}
	if closer, ok := store.(interface{ Close() }); ok {
		defer closer.Close()
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}

	netflixSession := session.New("netflix", session.Config{
		MaxInFlight:       cfg.Netflix.MaxConnections,
		RequestsPerSecond: cfg.Netflix.RequestsPerSecond,
	})
	serpSession := session.New("brightdata", session.Config{
		MaxInFlight:       cfg.Serp.MaxConnections,
		RequestsPerSecond: cfg.Serp.RequestsPerSecond,
	})

	detailFetcher := fetch.NewClient(fetch.Config{
		BaseURL:   cfg.Netflix.BaseURL,
		UserAgent: cfg.Netflix.UserAgent,
		Timeout:   cfg.NetflixTimeout(),
	}, netflixSession, archiver, logger.Named("fetch"))

	serpClient := serp.NewClient(serp.Config{
		APIURL:        cfg.Serp.APIURL,
		Zone:          cfg.Serp.Zone,
		Token:         cfg.Serp.Token,
		SearchBaseURL: cfg.Serp.SearchBaseURL,
		Timeout:       cfg.SerpTimeout(),
	}, serpSession, logger.Named("serp"))
	ratingsFetcher := serp.NewFetcher(serpClient, archiver, logger.Named("serp"))

	var renderer critic.Renderer
	if cfg.Headless.Enabled {
		chromeRenderer, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Netflix.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			logger.Warn("headless renderer init failed", zap.Error(err))
		} else {
			defer chromeRenderer.Close()
			renderer = chromeRenderer
		}
	}

	orch := enrich.New(
		enrich.Config{
			Country:           cfg.Enrich.Country,
			PersistTimeout:    cfg.PersistTimeout(),
			KeepAliveInterval: cfg.KeepAliveInterval(),
			CompletionTopic:   cfg.PubSub.TopicName,
		},
		detailFetcher,
		react.NewExtractor(logger.Named("react")),
		renderer,
		ratingsFetcher,
		store,
		publisher,
		system.New(),
		logger.Named("enrich"),
	)

	apiServer := api.NewServer(jobs.NewStore(), orch, store, uuid.NewGenerator(), logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildArchiver(ctx context.Context, cfg config.Config) (critic.Archiver, error) {
	switch cfg.Archive.Provider {
	case "none":
		return nil, nil
	case "memory":
		return archivememory.New(), nil
	case "local":
		return archivelocal.New(archivelocal.Config{
			BaseDir: cfg.Archive.LocalDir,
			Prefix:  cfg.Archive.Prefix,
		})
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return archivegcs.New(client, archivegcs.Config{
			Bucket: cfg.Archive.GCSBucket,
			Prefix: cfg.Archive.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Archive.Provider)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (critic.TitleStore, error) {
	if cfg.DB.DSN == "" {
		return memorystorage.NewTitleStore(), nil
	}
	return postgres.NewTitleStore(ctx, postgres.TitleStoreConfig{DSN: cfg.DB.DSN})
}

func buildPublisher(ctx context.Context, cfg config.Config) (critic.Publisher, error) {
	if cfg.PubSub.TopicName == "" {
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return pubsubpublisher.New(client.Topic(cfg.PubSub.TopicName)), nil
}
