package quiz

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTestAcceptsValid(t *testing.T) {
	if err := ValidateTest(validTest()); err != nil {
		t.Fatalf("ValidateTest(valid) = %v", err)
	}
}

func TestValidateTestRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Test)
		want   string
	}{
		{"blank title", func(t *Test) { t.Title = "  " }, "title is required"},
		{"no questions", func(t *Test) { t.Questions = nil }, "at least one question"},
		{"blank question", func(t *Test) { t.Questions[0].Text = "" }, "text is required"},
		{"one option", func(t *Test) {
			t.Questions[0].Options = t.Questions[0].Options[:1]
		}, "at least 2 options"},
		{"six options", func(t *Test) {
			for i := 0; i < 4; i++ {
				t.Questions[0].Options = append(t.Questions[0].Options, AnswerOption{ID: NewID(), Text: "x"})
			}
		}, "at most 5 options"},
		{"blank option", func(t *Test) { t.Questions[0].Options[1].Text = " " }, "option 2 text is required"},
		{"unmarked", func(t *Test) { t.Questions[0].CorrectAnswerID = "" }, "not marked"},
		{"dangling correct id", func(t *Test) { t.Questions[0].CorrectAnswerID = "o9" }, "does not match"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			test := validTest()
			tc.mutate(&test)

			err := ValidateTest(test)
			if !errors.Is(err, ErrInvalidTest) {
				t.Fatalf("ValidateTest error = %v, want ErrInvalidTest", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("ValidateTest error = %q, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateTestListsEveryProblem(t *testing.T) {
	test := validTest()
	test.Title = ""
	test.Questions[0].Text = ""
	test.Questions[0].CorrectAnswerID = ""

	var validation *ValidationError
	if err := ValidateTest(test); !errors.As(err, &validation) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(validation.Problems) != 3 {
		t.Fatalf("problems = %v, want 3", validation.Problems)
	}
}

func TestNormalizeName(t *testing.T) {
	got, err := NormalizeName("  Ana Silva \n")
	if err != nil || got != "Ana Silva" {
		t.Fatalf("NormalizeName = (%q, %v)", got, err)
	}
	if _, err := NormalizeName(" \t "); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("NormalizeName(blank) error = %v, want ErrInvalidName", err)
	}
}
