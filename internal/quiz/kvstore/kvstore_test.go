package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quiz-desk/internal/kv"
	"quiz-desk/internal/kv/sqlite"
	"quiz-desk/internal/quiz"
)

func sampleTest(id, title string) quiz.Test {
	return quiz.Test{
		ID:          id,
		Title:       title,
		TeacherName: "Ms. Lee",
		Questions: []quiz.Question{
			{
				ID:   "q1",
				Text: "Pick the verb",
				Options: []quiz.AnswerOption{
					{ID: "o1", Text: "run"},
					{ID: "o2", Text: "blue"},
				},
				CorrectAnswerID: "o1",
			},
		},
	}
}

func TestTestRepositoryUpsertKeepsOrder(t *testing.T) {
	repo := NewTestRepository(kv.NewMemoryStore(), "")
	ctx := context.Background()

	for _, test := range []quiz.Test{sampleTest("a", "A"), sampleTest("b", "B"), sampleTest("a", "A2")} {
		if err := repo.SaveTest(ctx, test); err != nil {
			t.Fatalf("SaveTest failed: %v", err)
		}
	}

	tests, err := repo.ListTests(ctx)
	if err != nil {
		t.Fatalf("ListTests failed: %v", err)
	}
	if len(tests) != 2 || tests[0].ID != "a" || tests[0].Title != "A2" || tests[1].ID != "b" {
		t.Fatalf("unexpected tests: %+v", tests)
	}
}

func TestTestRepositoryDelete(t *testing.T) {
	repo := NewTestRepository(kv.NewMemoryStore(), "")
	ctx := context.Background()
	_ = repo.SaveTest(ctx, sampleTest("a", "A"))

	removed, err := repo.DeleteTest(ctx, "missing")
	if err != nil || removed {
		t.Fatalf("DeleteTest(missing) = (%v, %v), want (false, nil)", removed, err)
	}
	removed, err = repo.DeleteTest(ctx, "a")
	if err != nil || !removed {
		t.Fatalf("DeleteTest(a) = (%v, %v), want (true, nil)", removed, err)
	}

	tests, _ := repo.ListTests(ctx)
	if tests == nil || len(tests) != 0 {
		t.Fatalf("ListTests after delete = %#v, want empty", tests)
	}
}

func TestRepositoriesUseBrowserCompatibleLayout(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()
	tests := NewTestRepository(store, "")
	submissions := NewSubmissionRepository(store, "")

	if err := tests.SaveTest(ctx, sampleTest("t1", "Verbs")); err != nil {
		t.Fatalf("SaveTest failed: %v", err)
	}
	if err := submissions.AppendSubmission(ctx, quiz.TestSubmission{
		ID:             "s1",
		StudentName:    "Ana",
		TestID:         "t1",
		TestTitle:      "Verbs",
		Answers:        []quiz.StudentAnswer{{QuestionID: "q1", SelectedAnswerID: "o1"}},
		Score:          1,
		TotalQuestions: 1,
		SubmittedAt:    "2024-05-01T10:00:00.000Z",
	}); err != nil {
		t.Fatalf("AppendSubmission failed: %v", err)
	}

	raw, present, err := store.Get(ctx, "english-tests")
	if err != nil || !present {
		t.Fatalf("tests key missing: %v", err)
	}
	var storedTests []map[string]any
	if err := json.Unmarshal(raw, &storedTests); err != nil {
		t.Fatalf("stored tests are not a JSON array: %v", err)
	}
	question := storedTests[0]["questions"].([]any)[0].(map[string]any)
	if storedTests[0]["teacherName"] != "Ms. Lee" || question["correctAnswerId"] != "o1" {
		t.Fatalf("unexpected stored test: %s", raw)
	}

	raw, present, err = store.Get(ctx, "english-test-submissions")
	if err != nil || !present {
		t.Fatalf("submissions key missing: %v", err)
	}
	var storedSubs []map[string]any
	if err := json.Unmarshal(raw, &storedSubs); err != nil {
		t.Fatalf("stored submissions are not a JSON array: %v", err)
	}
	answer := storedSubs[0]["answers"].([]any)[0].(map[string]any)
	if storedSubs[0]["studentName"] != "Ana" || storedSubs[0]["totalQuestions"] != float64(1) || answer["selectedAnswerId"] != "o1" {
		t.Fatalf("unexpected stored submission: %s", raw)
	}
}

func TestCorruptBlobReadsAsEmpty(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()
	_ = store.Set(ctx, DefaultSubmissionsKey, []byte("not json"))

	repo := NewSubmissionRepository(store, "")
	submissions, err := repo.ListSubmissions(ctx)
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(submissions) != 0 {
		t.Fatalf("expected empty list, got %+v", submissions)
	}

	// The next append rewrites the blob from the default.
	if err := repo.AppendSubmission(ctx, quiz.TestSubmission{ID: "s1"}); err != nil {
		t.Fatalf("AppendSubmission failed: %v", err)
	}
	submissions, _ = repo.ListSubmissions(ctx)
	if len(submissions) != 1 || submissions[0].ID != "s1" {
		t.Fatalf("unexpected submissions: %+v", submissions)
	}
}

func TestServiceDeleteKeepsSubmissions(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()
	service := quiz.NewService(NewTestRepository(store, ""), NewSubmissionRepository(store, ""))

	saved, err := service.SaveTest(ctx, "Ms. Lee", sampleTest("", "Verbs"))
	if err != nil {
		t.Fatalf("SaveTest failed: %v", err)
	}
	if err := service.RecordSubmission(ctx, quiz.TestSubmission{
		ID:          "s1",
		StudentName: "Ana",
		TestID:      saved.ID,
		TestTitle:   saved.Title,
		SubmittedAt: "2024-05-01T10:00:00.000Z",
	}); err != nil {
		t.Fatalf("RecordSubmission failed: %v", err)
	}

	if err := service.DeleteTest(ctx, saved.ID, true); err != nil {
		t.Fatalf("DeleteTest failed: %v", err)
	}
	if _, err := service.GetTest(ctx, saved.ID); !errors.Is(err, quiz.ErrTestNotFound) {
		t.Fatalf("GetTest after delete error = %v, want ErrTestNotFound", err)
	}

	submissions, err := service.ListSubmissions(ctx, quiz.SubmissionFilter{})
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(submissions) != 1 || submissions[0].TestTitle != "Verbs" {
		t.Fatalf("submission lost with its test: %+v", submissions)
	}
}

func TestWatchSeesOtherProcessOverSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.db")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	open := func() kv.Store {
		store, err := sqlite.NewStore(path, 10*time.Millisecond)
		if err != nil {
			t.Fatalf("NewStore failed: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	}
	watcherRepo := NewTestRepository(open(), "")
	writerRepo := NewTestRepository(open(), "")

	updates := make(chan []quiz.Test, 4)
	go func() {
		_ = watcherRepo.Watch(ctx, func(tests []quiz.Test) { updates <- tests })
	}()
	// Let the watcher subscribe before the write so the poller is running.
	time.Sleep(50 * time.Millisecond)

	if err := writerRepo.SaveTest(ctx, sampleTest("t1", "Verbs")); err != nil {
		t.Fatalf("SaveTest failed: %v", err)
	}

	select {
	case tests := <-updates:
		if len(tests) != 1 || tests[0].ID != "t1" {
			t.Fatalf("unexpected update: %+v", tests)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cross-handle update")
	}
	if cached := watcherRepo.Cached(); len(cached) != 1 || cached[0].ID != "t1" {
		t.Fatalf("Cached = %+v, want the reconciled list", cached)
	}
}
