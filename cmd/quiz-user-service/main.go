package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-desk/internal/logger"
	"quiz-desk/internal/userclient"
)

func main() {
	username := flag.String("username", "", "username for quiz attempts (required)")
	server := flag.String("server", "http://127.0.0.1:8080", "quiz service base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP timeout")
	poll := flag.Duration("poll", time.Second, "how often a running attempt is refreshed")
	results := flag.Int("results", 10, "default number of results to list")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "error: --username is required")
		os.Exit(1)
	}
	logger.Init(*logLevel, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := userclient.Run(ctx, os.Stdin, os.Stdout, userclient.Config{
		Username:     *username,
		ServerURL:    *server,
		ResultsLimit: *results,
		HTTPTimeout:  *timeout,
		PollInterval: *poll,
	})
	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
