package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"quiz-desk/internal/attempt"
	"quiz-desk/internal/config"
	"quiz-desk/internal/httpapi"
	"quiz-desk/internal/importer"
	"quiz-desk/internal/kv"
	"quiz-desk/internal/kv/backend"
	"quiz-desk/internal/logger"
	"quiz-desk/internal/opentdb"
	"quiz-desk/internal/quiz"
	"quiz-desk/internal/quiz/kvstore"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	flag.Parse()

	logger.Init("info", false)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)

	app := fx.New(
		fx.Supply(cfg),

		fx.Provide(
			newStore,
			newRepositories,
			newService,
		),

		fx.Provide(
			newAttemptManager,
			newTriviaImporter,
			httpapi.NewAPI,
			newHandler,
		),

		fx.Invoke(WatchExternalChanges),
		fx.Invoke(StartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}

func newStore(lc fx.Lifecycle, cfg *config.Config) (kv.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := backend.Open(ctx, backend.Options{
		Driver:       backend.Driver(cfg.Storage.Driver),
		SQLitePath:   cfg.Storage.SQLitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		PollInterval: cfg.Storage.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Storage.Driver).Msg("Storage opened")

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func newRepositories(store kv.Store, cfg *config.Config) (*kvstore.TestRepository, *kvstore.SubmissionRepository) {
	return kvstore.NewTestRepository(store, cfg.Storage.TestsKey),
		kvstore.NewSubmissionRepository(store, cfg.Storage.SubmissionsKey)
}

func newService(tests *kvstore.TestRepository, submissions *kvstore.SubmissionRepository) *quiz.Service {
	return quiz.NewService(tests, submissions)
}

func newAttemptManager(lc fx.Lifecycle, service *quiz.Service, cfg *config.Config) *attempt.Manager {
	manager := attempt.NewManager(service, attempt.ManagerConfig{
		SecondsPerQuestion: cfg.Attempt.SecondsPerQuestion,
		Retention:          cfg.Attempt.Retention,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			manager.Close()
			return nil
		},
	})
	return manager
}

// newTriviaImporter returns nil when no trivia URL is configured, which
// turns the import endpoint off.
func newTriviaImporter(cfg *config.Config) httpapi.TriviaImporter {
	if strings.TrimSpace(cfg.Trivia.URL) == "" {
		return nil
	}
	client := opentdb.NewClientWithURL(&http.Client{Timeout: cfg.Trivia.Timeout}, cfg.Trivia.URL)
	return importer.NewTrivia(client)
}

func newHandler(api *httpapi.API, cfg *config.Config) http.Handler {
	return httpapi.NewRouter(api, cfg.Server.CORSOrigins)
}

// WatchExternalChanges logs rewrites of the stored blobs made by other
// processes sharing the same database.
func WatchExternalChanges(lc fx.Lifecycle, tests *kvstore.TestRepository, submissions *kvstore.SubmissionRepository) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				err := tests.Watch(ctx, func(all []quiz.Test) {
					log.Info().Int("tests", len(all)).Msg("Tests changed by another process")
				})
				logWatchEnd("tests", err)
			}()
			go func() {
				err := submissions.Watch(ctx, func(all []quiz.TestSubmission) {
					log.Info().Int("submissions", len(all)).Msg("Submissions changed by another process")
				})
				logWatchEnd("submissions", err)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func logWatchEnd(what string, err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, kv.ErrClosed) {
		return
	}
	log.Warn().Err(err).Str("watch", what).Msg("Stopped watching for changes")
}

func StartServer(lc fx.Lifecycle, handler http.Handler, cfg *config.Config) {
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Str("addr", server.Addr).Msg("Starting HTTP server")
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Failed to start HTTP server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
