// Package userclient is a terminal learner client for quiz-service. The
// attempt, its countdown and scoring all live on the server; the client
// renders the server's view and polls it so a timeout ends the prompt.
package userclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultServer        = "http://127.0.0.1:8080"
	defaultResultsLimit  = 10
	defaultHTTPTimeout   = 5 * time.Second
	defaultPollInterval  = time.Second
	defaultAbandonPeriod = 2 * time.Second
	abandonAttempts      = 3
	abandonBackoff       = 200 * time.Millisecond
)

type Config struct {
	Username     string
	ServerURL    string
	ResultsLimit int
	HTTPTimeout  time.Duration
	// PollInterval is how often a running attempt is re-read from the
	// server to notice a timeout.
	PollInterval time.Duration
}

type session struct {
	client       *HTTPClient
	out          io.Writer
	lines        <-chan string
	username     string
	serverURL    string
	pollInterval time.Duration
}

func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return errors.New("username is required")
	}

	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultServer
	}

	resultsLimit := cfg.ResultsLimit
	if resultsLimit <= 0 {
		resultsLimit = defaultResultsLimit
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	stop := make(chan struct{})
	defer close(stop)

	s := &session{
		client:       NewHTTPClient(serverURL, &http.Client{Timeout: timeout}),
		out:          out,
		lines:        readLines(in, stop),
		username:     username,
		serverURL:    serverURL,
		pollInterval: pollInterval,
	}

	fmt.Fprintf(out, "quiz-user-service\nusername=%s\nserver=%s\n\n", username, serverURL)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-s.lines:
		}
		if !ok {
			fmt.Fprintln(out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		switch command {
		case "help":
			printHelp(out)
		case "exit":
			return nil
		case "tests":
			if err := s.listTests(ctx); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "results":
			limit, parseErr := parsePositiveLimit(args, 1, resultsLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid results limit: %v\n", parseErr)
				continue
			}
			if err := s.listResults(ctx, limit); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "take":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: take <test_id>")
				continue
			}
			err := s.take(ctx, args[1])
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
		}
	}
}

func readLines(in io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines
}

func (s *session) listTests(ctx context.Context) error {
	tests, err := s.client.ListTests(ctx)
	if err != nil {
		return describeClientError(err, s.serverURL)
	}

	if len(tests) == 0 {
		fmt.Fprintln(s.out, "No tests available.")
		return nil
	}

	fmt.Fprintln(s.out, "Tests:")
	for idx, test := range tests {
		fmt.Fprintf(s.out, "%d. %s  %s (%d questions, by %s)\n",
			idx+1,
			test.ID,
			test.Title,
			test.QuestionCount,
			test.TeacherName,
		)
	}
	return nil
}

func (s *session) listResults(ctx context.Context, limit int) error {
	submissions, err := s.client.ListSubmissions(ctx, s.username, limit)
	if err != nil {
		return describeClientError(err, s.serverURL)
	}

	if len(submissions) == 0 {
		fmt.Fprintln(s.out, "No results yet.")
		return nil
	}

	for idx, submission := range submissions {
		fmt.Fprintf(s.out, "%d. %s %d/%d (%d%%) at %s\n",
			idx+1,
			submission.TestTitle,
			submission.Score,
			submission.TotalQuestions,
			submission.Percentage,
			submission.SubmittedAt,
		)
	}
	return nil
}

// take runs one attempt until it is submitted, abandoned or timed out.
// io.EOF means the input ended mid-attempt.
func (s *session) take(ctx context.Context, testID string) error {
	view, err := s.client.StartAttempt(ctx, testID, s.username)
	if err != nil {
		return describeClientError(err, s.serverURL)
	}

	fmt.Fprintf(s.out, "Starting %q: %d questions, %s on the clock.\n", view.TestTitle, view.TotalQuestions, formatClock(view.TimeLeftSeconds))
	printAttemptHelp(s.out)
	printView(s.out, view)

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			s.abandon(view.AttemptID)
			return ctx.Err()
		case <-poll.C:
			current, err := s.client.GetAttempt(ctx, view.AttemptID)
			if err != nil {
				log.Debug().Err(err).Str("attempt_id", view.AttemptID).Msg("poll attempt")
				continue
			}
			if current.State != attemptStateActive {
				s.finish(current)
				return nil
			}
		case line, ok := <-s.lines:
			if !ok {
				s.abandon(view.AttemptID)
				return io.EOF
			}
			next, finished, err := s.apply(ctx, view, strings.TrimSpace(line))
			if err != nil {
				if !finished {
					s.abandon(view.AttemptID)
				}
				return describeClientError(err, s.serverURL)
			}
			if finished {
				return nil
			}
			view = next
			printView(s.out, view)
		}
	}
}

// apply sends one command and returns the new view, or finished once the
// attempt is over.
func (s *session) apply(ctx context.Context, view attemptView, input string) (attemptView, bool, error) {
	var (
		next attemptView
		err  error
	)

	switch strings.ToLower(input) {
	case "":
		return view, false, nil
	case "n":
		next, err = s.client.Next(ctx, view.AttemptID)
		if err == nil && next.QuestionIndex == view.QuestionIndex && next.State == attemptStateActive {
			if next.IsLast {
				fmt.Fprintln(s.out, "This is the last question. Type s to submit.")
			} else {
				fmt.Fprintln(s.out, "Answer this question before moving on.")
			}
		}
	case "p":
		next, err = s.client.Prev(ctx, view.AttemptID)
	case "s":
		var submission submissionView
		submission, err = s.client.Submit(ctx, view.AttemptID)
		if err == nil {
			printResult(s.out, submission)
			return view, true, nil
		}
	case "q":
		err = s.client.Abandon(ctx, view.AttemptID)
		if err == nil {
			fmt.Fprintln(s.out, "Test abandoned. No result was recorded.")
			return view, true, nil
		}
	default:
		idx, ok := letterIndex(input, len(view.Question.Options))
		if !ok {
			fmt.Fprintln(s.out, "Unknown command.")
			return view, false, nil
		}
		next, err = s.client.SelectAnswer(ctx, view.AttemptID, view.Question.Options[idx].ID)
	}

	if isStatus(err, http.StatusConflict) {
		// The server ended the attempt first, usually on timeout.
		current, getErr := s.client.GetAttempt(ctx, view.AttemptID)
		if getErr != nil {
			return view, true, getErr
		}
		s.finish(current)
		return view, true, nil
	}
	if err != nil {
		return view, false, err
	}
	if next.State != attemptStateActive {
		s.finish(next)
		return view, true, nil
	}
	return next, false, nil
}

func (s *session) finish(view attemptView) {
	if view.Submission == nil {
		fmt.Fprintln(s.out, "\nThe attempt ended without a result.")
		return
	}
	if view.TimedOut {
		fmt.Fprintln(s.out, "\nTime is up! Your answers were submitted.")
	}
	printResult(s.out, *view.Submission)
}

// abandon ends the attempt on the server without a result, retrying a few
// times. If the server never hears it, the countdown will submit the
// answers, so the user is told.
func (s *session) abandon(attemptID string) {
	var err error
	for i := 0; i < abandonAttempts; i++ {
		if i > 0 {
			time.Sleep(abandonBackoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultAbandonPeriod)
		err = s.client.Abandon(ctx, attemptID)
		cancel()
		if err == nil || isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusConflict) {
			return
		}
		log.Debug().Err(err).Str("attempt_id", attemptID).Int("try", i+1).Msg("abandon attempt")
	}
	fmt.Fprintf(s.out, "warning: could not abandon the attempt (%v); the server will submit it when its time runs out.\n", describeClientError(err, s.serverURL))
}
