package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"quiz-desk/internal/cli"
	"quiz-desk/internal/config"
	"quiz-desk/internal/importer"
	"quiz-desk/internal/kv/backend"
	"quiz-desk/internal/logger"
	"quiz-desk/internal/opentdb"
	"quiz-desk/internal/quiz"
	"quiz-desk/internal/quiz/kvstore"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, backend.Options{
		Driver:       backend.Driver(cfg.Storage.Driver),
		SQLitePath:   cfg.Storage.SQLitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		PollInterval: cfg.Storage.PollInterval,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	tests := kvstore.NewTestRepository(store, cfg.Storage.TestsKey)
	submissions := kvstore.NewSubmissionRepository(store, cfg.Storage.SubmissionsKey)

	appCfg := cli.Config{
		Service:            quiz.NewService(tests, submissions),
		SecondsPerQuestion: cfg.Attempt.SecondsPerQuestion,
		Watcher:            tests,
	}
	if strings.TrimSpace(cfg.Trivia.URL) != "" {
		client := opentdb.NewClientWithURL(&http.Client{Timeout: cfg.Trivia.Timeout}, cfg.Trivia.URL)
		appCfg.Trivia = importer.NewTrivia(client)
	}

	return cli.Run(ctx, os.Stdin, os.Stdout, appCfg)
}
