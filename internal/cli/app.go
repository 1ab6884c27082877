// Package cli is the local interactive quiz application: role selection,
// the teacher dashboard with authoring and results, and the student
// dashboard with timed test taking.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"quiz-desk/internal/attempt"
	"quiz-desk/internal/opentdb"
	"quiz-desk/internal/quiz"
)

const maxAttempts = 3

// errQuit ends the session from any prompt.
var errQuit = errors.New("quit")

// TestsWatcher reports rewrites of the stored test list made by other
// sessions and keeps the reconciled list.
type TestsWatcher interface {
	Watch(ctx context.Context, onChange func([]quiz.Test)) error
	Cached() []quiz.Test
}

// TriviaImporter builds a test from Open Trivia DB questions.
type TriviaImporter interface {
	Import(ctx context.Context, teacherName, title string, query opentdb.Query) (quiz.Test, error)
}

type Config struct {
	Service *quiz.Service
	// Trivia may be nil, which hides the trivia import.
	Trivia             TriviaImporter
	SecondsPerQuestion int
	// AttemptOptions are applied to every attempt after the defaults.
	AttemptOptions []attempt.Option
	// Watcher may be nil. It must share its store handle with Service so the
	// session's own writes are not reported back.
	Watcher TestsWatcher
}

type app struct {
	cfg          Config
	out          io.Writer
	lines        <-chan string
	testsChanged atomic.Bool
}

// Run drives the application until the user exits, the input ends or ctx
// is cancelled. Input is read on its own goroutine so a running countdown
// can end a test while the user is still at the prompt.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	if cfg.Service == nil {
		return errors.New("cli: service is required")
	}

	stop := make(chan struct{})
	defer close(stop)

	a := &app{
		cfg:   cfg,
		out:   out,
		lines: readLines(in, stop),
	}

	if cfg.Watcher != nil {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.watchTests(watchCtx)
	}

	err := a.loop(ctx)
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
		fmt.Fprintln(out, "\nGoodbye!")
		return nil
	}
	return err
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

func (a *app) watchTests(ctx context.Context) {
	err := a.cfg.Watcher.Watch(ctx, func([]quiz.Test) {
		a.testsChanged.Store(true)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("stopped watching tests")
	}
}

// noticeChanges tells the user once that another session changed the tests.
func (a *app) noticeChanges() {
	if a.testsChanged.Swap(false) {
		fmt.Fprintf(a.out, "\n(Tests were updated in another session. %d available now.)\n", len(a.cfg.Watcher.Cached()))
	}
}

func (a *app) loop(ctx context.Context) error {
	for {
		fmt.Fprintln(a.out, "\n=== Quiz Desk ===")
		fmt.Fprintln(a.out, "1. I am a teacher")
		fmt.Fprintln(a.out, "2. I am a student")
		fmt.Fprintln(a.out, "x. Exit")

		choice, err := a.prompt(ctx, "Choose a role: ")
		if err != nil {
			return err
		}

		switch strings.ToLower(choice) {
		case "1", "t", "teacher":
			name, err := a.askName(ctx, "Teacher name: ")
			if err != nil {
				return err
			}
			if err := a.teacherMenu(ctx, name); err != nil {
				return err
			}
		case "2", "s", "student":
			name, err := a.askName(ctx, "Student name: ")
			if err != nil {
				return err
			}
			if err := a.studentMenu(ctx, name); err != nil {
				return err
			}
		case "x", "q", "exit":
			return errQuit
		default:
			fmt.Fprintln(a.out, "Please enter 1, 2 or x.")
		}
	}
}

// readLine blocks for the next input line.
func (a *app) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-a.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

func (a *app) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(a.out, label)
	return a.readLine(ctx)
}

func (a *app) askName(ctx context.Context, label string) (string, error) {
	for {
		raw, err := a.prompt(ctx, label)
		if err != nil {
			return "", err
		}
		name, err := quiz.NormalizeName(raw)
		if err == nil {
			return name, nil
		}
		fmt.Fprintln(a.out, "A name is required.")
	}
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func (a *app) confirm(ctx context.Context, question string) (bool, error) {
	answer, err := a.prompt(ctx, question+" (y/n): ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// chooseIndex reads a 1-based number in [1, count] and returns it 0-based.
// An empty line cancels.
func (a *app) chooseIndex(ctx context.Context, label string, count int) (int, bool, error) {
	for try := 1; try <= maxAttempts; try++ {
		raw, err := a.prompt(ctx, label)
		if err != nil {
			return -1, false, err
		}
		if raw == "" {
			return -1, false, nil
		}

		number, err := strconv.Atoi(raw)
		if err == nil && number >= 1 && number <= count {
			return number - 1, true, nil
		}
		if try < maxAttempts {
			fmt.Fprintf(a.out, "Please enter a number from 1 to %d.\n", count)
		}
	}
	return -1, false, nil
}

func (a *app) reportError(action string, err error) {
	var validation *quiz.ValidationError
	if errors.As(err, &validation) {
		fmt.Fprintln(a.out, "The test cannot be saved yet:")
		for _, problem := range validation.Problems {
			fmt.Fprintf(a.out, "  - %s\n", problem)
		}
		return
	}

	log.Error().Err(err).Str("action", action).Msg("cli action failed")
	fmt.Fprintf(a.out, "Could not %s: %v\n", action, err)
}

func printTests(out io.Writer, tests []quiz.Test) {
	for idx, test := range tests {
		fmt.Fprintf(out, "%d. %s (%d questions, by %s)\n", idx+1, test.Title, len(test.Questions), test.TeacherName)
	}
}

func optionLetter(index int) string {
	return string(rune('A' + index))
}
