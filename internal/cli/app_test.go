package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"quiz-desk/internal/attempt"
	"quiz-desk/internal/kv"
	"quiz-desk/internal/opentdb"
	"quiz-desk/internal/quiz"
	"quiz-desk/internal/quiz/kvstore"
)

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) Chan() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()                  {}

// silentTickers never tick, so tests drive attempts through input only.
func silentTickers() attempt.Option {
	return attempt.WithTickerFactory(func(time.Duration) attempt.Ticker {
		return &fakeTicker{ch: make(chan time.Time)}
	})
}

type fakeTrivia struct {
	err error
}

func (f fakeTrivia) Import(_ context.Context, teacherName, title string, query opentdb.Query) (quiz.Test, error) {
	if f.err != nil {
		return quiz.Test{}, f.err
	}
	if title == "" {
		title = "Trivia"
	}
	test := quiz.Test{Title: title, TeacherName: teacherName}
	for i := 0; i < query.Amount; i++ {
		test.Questions = append(test.Questions, quiz.Question{
			ID:              quiz.NewID(),
			Text:            "Q",
			Options:         []quiz.AnswerOption{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
			CorrectAnswerID: "a",
		})
	}
	return test, nil
}

func newService(t *testing.T) *quiz.Service {
	t.Helper()

	store := kv.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return quiz.NewService(kvstore.NewTestRepository(store, ""), kvstore.NewSubmissionRepository(store, ""))
}

func seedTest(t *testing.T, service *quiz.Service, teacher, title string) quiz.Test {
	t.Helper()

	saved, err := service.SaveTest(context.Background(), teacher, quiz.Test{
		Title: title,
		Questions: []quiz.Question{{
			ID:              "q1",
			Text:            "Pick the verb",
			Options:         []quiz.AnswerOption{{ID: "a", Text: "run"}, {ID: "b", Text: "blue"}},
			CorrectAnswerID: "a",
		}},
	})
	if err != nil {
		t.Fatalf("seed test: %v", err)
	}
	return saved
}

func runScript(t *testing.T, cfg Config, lines ...string) string {
	t.Helper()

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	if err := Run(context.Background(), in, &out, cfg); err != nil {
		t.Fatalf("Run returned error: %v\noutput:\n%s", err, out.String())
	}
	return out.String()
}

func TestRunRequiresService(t *testing.T) {
	if err := Run(context.Background(), strings.NewReader(""), io.Discard, Config{}); err == nil {
		t.Fatalf("expected error without a service")
	}
}

func TestTeacherCreatesAndStudentTakesTest(t *testing.T) {
	service := newService(t)
	cfg := Config{Service: service, SecondsPerQuestion: 30, AttemptOptions: []attempt.Option{silentTickers()}}

	output := runScript(t, cfg,
		"1", "Ms. Lee",
		"2", "Grammar",
		"s", // nothing to save yet
		"a", "Pick the verb", "run", "blue", "", "A",
		"s",
		"b",
		"2", "Ana",
		"1", "1",
		"n", // refused while unanswered
		"a",
		"s",
		"2",
		"b",
		"x",
	)

	for _, want := range []string{
		"at least one question is required",
		`Saved "Grammar" with 1 questions.`,
		"Answer this question before moving on.",
		"[0:30 left]",
		"Score: 1/1 (100%)",
		"Goodbye!",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q:\n%s", want, output)
		}
	}

	submissions, err := service.ListSubmissions(context.Background(), quiz.SubmissionFilter{})
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(submissions) != 1 || submissions[0].StudentName != "Ana" || submissions[0].Score != 1 {
		t.Fatalf("unexpected submissions: %+v", submissions)
	}
}

func TestQuitAbandonsWithoutSubmission(t *testing.T) {
	service := newService(t)
	seedTest(t, service, "Ms. Lee", "Quiz A")
	cfg := Config{Service: service, AttemptOptions: []attempt.Option{silentTickers()}}

	output := runScript(t, cfg, "2", "Ana", "1", "1", "z", "q", "b", "x")

	if !strings.Contains(output, "Test abandoned. No result was recorded.") {
		t.Fatalf("output missing abandon message:\n%s", output)
	}
	if !strings.Contains(output, "Unknown command.") {
		t.Fatalf("an out of range letter must be rejected:\n%s", output)
	}
	submissions, _ := service.ListSubmissions(context.Background(), quiz.SubmissionFilter{})
	if len(submissions) != 0 {
		t.Fatalf("abandoned attempt recorded a submission: %+v", submissions)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	service := newService(t)
	seedTest(t, service, "Ms. Lee", "Quiz A")
	seedTest(t, service, "Mr. Ode", "Quiz B")

	output := runScript(t, Config{Service: service},
		"1", "Ms. Lee",
		"6", "1", "n",
		"6", "1", "y",
		"1",
		"b", "x",
	)

	if !strings.Contains(output, "Nothing was deleted.") || !strings.Contains(output, `Deleted "Quiz A"`) {
		t.Fatalf("unexpected delete flow output:\n%s", output)
	}
	if strings.Contains(output, "Quiz B") {
		t.Fatalf("teacher must only see their own tests:\n%s", output)
	}

	tests, _ := service.ListTests(context.Background())
	if len(tests) != 1 || tests[0].Title != "Quiz B" {
		t.Fatalf("unexpected remaining tests: %+v", tests)
	}
}

func TestImportYAMLAndTrivia(t *testing.T) {
	service := newService(t)
	path := filepath.Join(t.TempDir(), "test.yaml")
	doc := "title: Animals\nquestions:\n  - text: Which one barks?\n    options: [dog, cat]\n    correct: 0\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	output := runScript(t, Config{Service: service, Trivia: fakeTrivia{}},
		"1", "Ms. Lee",
		"4", path,
		"5", "Friday", "3",
		"5", "", "zero",
		"b", "x",
	)

	if !strings.Contains(output, `Imported "Animals" with 1 questions.`) {
		t.Fatalf("yaml import not reported:\n%s", output)
	}
	if !strings.Contains(output, `Imported "Friday" with 3 questions.`) {
		t.Fatalf("trivia import not reported:\n%s", output)
	}
	if !strings.Contains(output, "must be a positive integer") {
		t.Fatalf("invalid amount not rejected:\n%s", output)
	}

	tests, _ := service.ListTestsByTeacher(context.Background(), "Ms. Lee")
	if len(tests) != 2 {
		t.Fatalf("expected 2 imported tests, got %d", len(tests))
	}
}

func TestTriviaFailureIsReported(t *testing.T) {
	service := newService(t)

	output := runScript(t, Config{Service: service, Trivia: fakeTrivia{err: errors.New("upstream down")}},
		"1", "Ms. Lee", "5", "", "", "b", "x",
	)
	if !strings.Contains(output, "Could not import trivia: upstream down") {
		t.Fatalf("failure not reported:\n%s", output)
	}
}

func TestResultsSearch(t *testing.T) {
	service := newService(t)
	test := seedTest(t, service, "Ms. Lee", "Quiz A")
	ctx := context.Background()
	for _, name := range []string{"Ana", "Ben"} {
		submission := attempt.BuildSubmission(test, name, map[string]string{"q1": "a"}, "sub-"+name, time.Now())
		if err := service.RecordSubmission(ctx, submission); err != nil {
			t.Fatalf("record submission: %v", err)
		}
	}

	output := runScript(t, Config{Service: service}, "1", "Ms. Lee", "7", "an", "b", "x")

	if !strings.Contains(output, "Ana") || strings.Contains(output, "Ben ") {
		t.Fatalf("search must match student names only:\n%s", output)
	}
	if !strings.Contains(output, "1/1 (100%)") {
		t.Fatalf("score not shown:\n%s", output)
	}
}

func TestTimeoutSubmitsAndEndsInputLoop(t *testing.T) {
	service := newService(t)
	seedTest(t, service, "Ms. Lee", "Quiz A")

	tickers := make(chan *fakeTicker, 1)
	cfg := Config{
		Service:            service,
		SecondsPerQuestion: 1,
		AttemptOptions: []attempt.Option{attempt.WithTickerFactory(func(time.Duration) attempt.Ticker {
			ticker := &fakeTicker{ch: make(chan time.Time)}
			tickers <- ticker
			return ticker
		})},
	}

	in, script := io.Pipe()
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), in, &out, cfg)
	}()

	if _, err := io.WriteString(script, "2\nAna\n1\n1\na\n"); err != nil {
		t.Fatalf("write script: %v", err)
	}

	select {
	case ticker := <-tickers:
		ticker.ch <- time.Now()
	case <-time.After(2 * time.Second):
		t.Fatalf("attempt never started")
	}

	deadline := time.After(2 * time.Second)
	for {
		submissions, _ := service.ListSubmissions(context.Background(), quiz.SubmissionFilter{})
		if len(submissions) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout did not record a submission")
		case <-time.After(10 * time.Millisecond):
		}
	}
	_ = script.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after input closed")
	}

	if !strings.Contains(out.String(), "Time is up!") {
		t.Fatalf("output missing timeout message:\n%s", out.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNoticesTestsChangedByAnotherSession(t *testing.T) {
	store := kv.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	tests := kvstore.NewTestRepository(store, "")
	service := quiz.NewService(tests, kvstore.NewSubmissionRepository(store, ""))
	other := kvstore.NewTestRepository(store, "")

	in, script := io.Pipe()
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), in, &out, Config{Service: service, Watcher: tests})
	}()

	if _, err := io.WriteString(script, "2\nAna\n"); err != nil {
		t.Fatalf("write script: %v", err)
	}

	// The watcher may subscribe after the first write, so keep writing until
	// the menu reports one.
	deadline := time.After(2 * time.Second)
	for i := 0; !strings.Contains(out.String(), "Tests were updated in another session."); i++ {
		err := other.SaveTest(context.Background(), quiz.Test{ID: fmt.Sprintf("t%d", i), Title: "From elsewhere"})
		if err != nil {
			t.Fatalf("save from other session: %v", err)
		}
		if _, err := io.WriteString(script, "\n"); err != nil {
			t.Fatalf("write script: %v", err)
		}
		select {
		case <-deadline:
			t.Fatalf("change was never reported:\n%s", out.String())
		case <-time.After(20 * time.Millisecond):
		}
	}

	if _, err := io.WriteString(script, "b\nx\n"); err != nil {
		t.Fatalf("write script: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
}

func TestOwnSavesAreNotReportedAsOtherSessions(t *testing.T) {
	store := kv.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	tests := kvstore.NewTestRepository(store, "")
	service := quiz.NewService(tests, kvstore.NewSubmissionRepository(store, ""))

	output := runScript(t, Config{Service: service, Trivia: fakeTrivia{}, Watcher: tests},
		"1", "Ms. Lee",
		"5", "Monday", "2",
		"5", "Tuesday", "2",
		"1",
		"b", "x",
	)

	if !strings.Contains(output, `Imported "Tuesday" with 2 questions.`) {
		t.Fatalf("imports not reported:\n%s", output)
	}
	if strings.Contains(output, "another session") {
		t.Fatalf("own saves reported as another session:\n%s", output)
	}
}
