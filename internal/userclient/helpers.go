package userclient

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  tests")
	fmt.Fprintln(out, "  take <test_id>")
	fmt.Fprintln(out, "  results [limit]")
	fmt.Fprintln(out, "  exit")
}

func printAttemptHelp(out io.Writer) {
	fmt.Fprintln(out, "Type a letter to answer, n for next, p for previous, s to submit, q to quit.")
}

func parsePositiveLimit(args []string, index int, defaultValue int) (int, error) {
	if len(args) <= index {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

// letterIndex maps "a"/"A" style input to an option index below count.
func letterIndex(raw string, count int) (int, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if len(raw) != 1 {
		return -1, false
	}
	idx := int(raw[0]) - 'A'
	if idx < 0 || idx >= count {
		return -1, false
	}
	return idx, true
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func describeClientError(err error, serverURL string) error {
	if errors.Is(err, ErrServiceUnavailable) {
		return fmt.Errorf("quiz service unavailable at %s", serverURL)
	}
	return err
}

func printView(out io.Writer, view attemptView) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d: %s   [%s left]\n\n",
		view.QuestionIndex+1,
		view.TotalQuestions,
		view.Question.Text,
		formatClock(view.TimeLeftSeconds),
	)
	for idx, option := range view.Question.Options {
		marker := " "
		if option.ID == view.SelectedAnswerID {
			marker = ">"
		}
		fmt.Fprintf(out, "%s %c. %s\n", marker, 'A'+idx, option.Text)
	}
	fmt.Fprint(out, "\n> ")
}

func printResult(out io.Writer, submission submissionView) {
	fmt.Fprintf(out, "\n=== Result: %s ===\n", submission.TestTitle)
	fmt.Fprintf(out, "Score: %d/%d (%d%%)\n", submission.Score, submission.TotalQuestions, submission.Percentage)
}
