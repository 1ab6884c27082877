package quiz

import (
	"errors"
	"testing"
)

func TestDraftNewQuestionHasTwoBlankOptions(t *testing.T) {
	draft, _ := NewDraft("Ms. Lee", nil)
	idx := draft.AddQuestion()

	question := draft.Questions[idx]
	if question.ID == "" || len(question.Options) != MinOptions {
		t.Fatalf("unexpected new question: %+v", question)
	}
	if question.Options[0].ID == question.Options[1].ID {
		t.Fatal("option ids must differ")
	}
}

func TestDraftOptionLimits(t *testing.T) {
	draft, _ := NewDraft("Ms. Lee", nil)
	q := draft.AddQuestion()

	if err := draft.RemoveOption(q, 0); !errors.Is(err, ErrOptionLimit) {
		t.Fatalf("RemoveOption below minimum error = %v, want ErrOptionLimit", err)
	}

	for i := MinOptions; i < MaxOptions; i++ {
		if _, err := draft.AddOption(q); err != nil {
			t.Fatalf("AddOption %d failed: %v", i, err)
		}
	}
	if _, err := draft.AddOption(q); !errors.Is(err, ErrOptionLimit) {
		t.Fatalf("AddOption above maximum error = %v, want ErrOptionLimit", err)
	}
	if len(draft.Questions[q].Options) != MaxOptions {
		t.Fatalf("options = %d, want %d", len(draft.Questions[q].Options), MaxOptions)
	}
}

func TestDraftRemovingCorrectOptionClearsMark(t *testing.T) {
	draft, _ := NewDraft("Ms. Lee", nil)
	q := draft.AddQuestion()
	_, _ = draft.AddOption(q)
	_, _ = draft.AddOption(q)

	if err := draft.MarkCorrect(q, 2); err != nil {
		t.Fatalf("MarkCorrect failed: %v", err)
	}
	if err := draft.RemoveOption(q, 0); err != nil {
		t.Fatalf("RemoveOption failed: %v", err)
	}
	if draft.Questions[q].CorrectAnswerID == "" {
		t.Fatal("removing another option must keep the mark")
	}

	if err := draft.RemoveOption(q, 1); err != nil {
		t.Fatalf("RemoveOption failed: %v", err)
	}
	if draft.Questions[q].CorrectAnswerID != "" {
		t.Fatal("removing the correct option must clear the mark")
	}
}

func TestDraftIndexErrors(t *testing.T) {
	draft, _ := NewDraft("Ms. Lee", nil)
	q := draft.AddQuestion()

	if err := draft.SetQuestionText(5, "x"); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("SetQuestionText error = %v, want ErrQuestionIndex", err)
	}
	if err := draft.SetOptionText(q, 9, "x"); !errors.Is(err, ErrOptionIndex) {
		t.Fatalf("SetOptionText error = %v, want ErrOptionIndex", err)
	}
	if err := draft.MarkCorrect(q, -1); !errors.Is(err, ErrOptionIndex) {
		t.Fatalf("MarkCorrect error = %v, want ErrOptionIndex", err)
	}
	if err := draft.RemoveQuestion(3); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("RemoveQuestion error = %v, want ErrQuestionIndex", err)
	}
}

func TestDraftBuild(t *testing.T) {
	draft, _ := NewDraft("Ms. Lee", nil)
	if _, err := draft.Build(); !errors.Is(err, ErrInvalidTest) {
		t.Fatalf("Build(empty) error = %v, want ErrInvalidTest", err)
	}

	draft.Title = "Verbs"
	q := draft.AddQuestion()
	_ = draft.SetQuestionText(q, "Pick the verb")
	_ = draft.SetOptionText(q, 0, "run")
	_ = draft.SetOptionText(q, 1, "blue")
	_ = draft.MarkCorrect(q, 0)

	test, err := draft.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if test.ID == "" || test.TeacherName != "Ms. Lee" || test.Questions[0].CorrectAnswerID != test.Questions[0].Options[0].ID {
		t.Fatalf("unexpected built test: %+v", test)
	}

	// The built test does not share memory with the draft.
	draft.Questions[0].Text = "changed"
	if test.Questions[0].Text != "Pick the verb" {
		t.Fatal("Build must return a deep copy")
	}
}

func TestDraftEditKeepsID(t *testing.T) {
	existing := validTest()
	existing.ID = "t1"

	draft, err := NewDraft("Ms. Lee", &existing)
	if err != nil {
		t.Fatalf("NewDraft failed: %v", err)
	}
	draft.Questions[0].Text = "edited"
	if existing.Questions[0].Text != "Pick the verb" {
		t.Fatal("editing a draft must not touch the source test")
	}

	test, err := draft.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if test.ID != "t1" || test.Questions[0].Text != "edited" {
		t.Fatalf("unexpected built test: %+v", test)
	}
}
