package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"quiz-desk/internal/attempt"
	"quiz-desk/internal/quiz"
)

func (a *app) studentMenu(ctx context.Context, student string) error {
	for {
		a.noticeChanges()
		fmt.Fprintf(a.out, "\n=== Student: %s ===\n", student)
		fmt.Fprintln(a.out, "1. Take a test")
		fmt.Fprintln(a.out, "2. My results")
		fmt.Fprintln(a.out, "b. Log out")

		choice, err := a.prompt(ctx, "> ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = a.chooseAndTake(ctx, student)
		case "2":
			err = a.showOwnResults(ctx, student)
		case "b", "B":
			return nil
		default:
			fmt.Fprintln(a.out, "Unknown option.")
		}
		if err != nil {
			return err
		}
	}
}

func (a *app) chooseAndTake(ctx context.Context, student string) error {
	tests, err := a.cfg.Service.ListTests(ctx)
	if err != nil {
		a.reportError("load tests", err)
		return nil
	}
	if len(tests) == 0 {
		fmt.Fprintln(a.out, "There are no tests available yet.")
		return nil
	}
	printTests(a.out, tests)

	idx, ok, err := a.chooseIndex(ctx, "Test to take (enter to cancel): ", len(tests))
	if err != nil || !ok {
		return err
	}
	return a.takeTest(ctx, tests[idx], student)
}

func (a *app) showOwnResults(ctx context.Context, student string) error {
	submissions, err := a.cfg.Service.ListSubmissions(ctx, quiz.SubmissionFilter{})
	if err != nil {
		a.reportError("load results", err)
		return nil
	}

	own := submissions[:0]
	for _, submission := range submissions {
		if submission.StudentName == student {
			own = append(own, submission)
		}
	}
	if len(own) == 0 {
		fmt.Fprintln(a.out, "You have not submitted any tests yet.")
		return nil
	}
	printSubmissions(a.out, own)
	return nil
}

// takeTest runs one timed attempt. The prompt loop ends as soon as the
// attempt does, whether by submit, quit or the countdown.
func (a *app) takeTest(ctx context.Context, test quiz.Test, student string) error {
	opts := []attempt.Option{attempt.WithSecondsPerQuestion(a.cfg.SecondsPerQuestion)}
	opts = append(opts, a.cfg.AttemptOptions...)

	att, err := attempt.New(test, student, opts...)
	if err != nil {
		a.reportError("start the test", err)
		return nil
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := att.Start(attemptCtx); err != nil {
		a.reportError("start the test", err)
		return nil
	}

	fmt.Fprintf(a.out, "\nStarting %q: %d questions, %s on the clock.\n", test.Title, len(test.Questions), formatClock(att.TimeLeft()))
	fmt.Fprintln(a.out, "Type a letter to answer, n for next, p for previous, s to submit, q to quit.")

	for {
		snap := att.Snapshot()
		if snap.State != attempt.StateActive {
			return a.finishAttempt(ctx, att)
		}
		printQuestion(a.out, snap)

		select {
		case <-att.Done():
			return a.finishAttempt(ctx, att)
		case <-ctx.Done():
			att.Abandon()
			return ctx.Err()
		case line, ok := <-a.lines:
			if !ok {
				// The countdown may have won the race with the end of input.
				if !att.Abandon() {
					if err := a.finishAttempt(ctx, att); err != nil {
						return err
					}
				}
				return io.EOF
			}
			if quit := a.handleAttemptInput(att, snap, strings.TrimSpace(line)); quit {
				fmt.Fprintln(a.out, "Test abandoned. No result was recorded.")
				return nil
			}
		}
	}
}

// handleAttemptInput applies one command and reports whether the learner
// quit.
func (a *app) handleAttemptInput(att *attempt.Attempt, snap attempt.Snapshot, input string) bool {
	switch strings.ToLower(input) {
	case "n":
		if !att.Advance() {
			if snap.IsLast {
				fmt.Fprintln(a.out, "This is the last question. Type s to submit.")
			} else {
				fmt.Fprintln(a.out, "Answer this question before moving on.")
			}
		}
	case "p":
		if !att.Retreat() {
			fmt.Fprintln(a.out, "This is the first question.")
		}
	case "s":
		att.Submit()
	case "q":
		return att.Abandon()
	case "":
	default:
		idx, ok := letterIndex(input, len(snap.Question.Options))
		if !ok {
			fmt.Fprintln(a.out, "Unknown command.")
			return false
		}
		// The attempt may have ended between the snapshot and this call.
		if err := att.SelectCurrent(snap.Question.Options[idx].ID); err != nil {
			log.Debug().Err(err).Str("attempt_id", att.ID()).Msg("selection ignored")
		}
	}
	return false
}

func (a *app) finishAttempt(ctx context.Context, att *attempt.Attempt) error {
	submission, ok := att.Result()
	if !ok {
		return nil
	}

	if att.Snapshot().TimedOut {
		fmt.Fprintln(a.out, "\nTime is up! Your answers were submitted.")
	}
	if err := a.cfg.Service.RecordSubmission(ctx, submission); err != nil {
		a.reportError("save your result", err)
	}

	fmt.Fprintf(a.out, "\n=== Result: %s ===\n", submission.TestTitle)
	fmt.Fprintf(a.out, "Score: %d/%d (%d%%)\n", submission.Score, submission.TotalQuestions, quiz.Percentage(submission))
	return nil
}

func printQuestion(out io.Writer, snap attempt.Snapshot) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d: %s   [%s left]\n\n", snap.Index+1, snap.Total, snap.Question.Text, formatClock(snap.TimeLeft))
	for idx, option := range snap.Question.Options {
		marker := " "
		if option.ID == snap.Selected {
			marker = ">"
		}
		fmt.Fprintf(out, "%s %s. %s\n", marker, optionLetter(idx), option.Text)
	}
	fmt.Fprint(out, "\n> ")
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
