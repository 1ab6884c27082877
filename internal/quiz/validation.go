package quiz

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found in an authored test.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid test: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTest
}

// ValidateTest applies the authoring rules a test must pass before it is
// stored: a title, at least one question, and for every question a prompt,
// 2-5 non-empty options and a correct answer that names one of them.
func ValidateTest(test Test) error {
	var problems []string

	if strings.TrimSpace(test.Title) == "" {
		problems = append(problems, "title is required")
	}
	if len(test.Questions) == 0 {
		problems = append(problems, "at least one question is required")
	}

	for idx, question := range test.Questions {
		label := fmt.Sprintf("question %d", idx+1)
		if strings.TrimSpace(question.Text) == "" {
			problems = append(problems, label+": text is required")
		}
		if len(question.Options) < MinOptions {
			problems = append(problems, fmt.Sprintf("%s: at least %d options are required", label, MinOptions))
		}
		if len(question.Options) > MaxOptions {
			problems = append(problems, fmt.Sprintf("%s: at most %d options are allowed", label, MaxOptions))
		}
		for optionIdx, option := range question.Options {
			if strings.TrimSpace(option.Text) == "" {
				problems = append(problems, fmt.Sprintf("%s: option %d text is required", label, optionIdx+1))
			}
		}
		switch {
		case question.CorrectAnswerID == "":
			problems = append(problems, label+": correct answer is not marked")
		case !question.HasOption(question.CorrectAnswerID):
			problems = append(problems, label+": correct answer does not match any option")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// NormalizeName trims a free-text display name. Names keep their case:
// they are shown back to people and teacher names own tests by exact match.
func NormalizeName(name string) (string, error) {
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		return "", ErrInvalidName
	}
	return normalized, nil
}
