package cli

import (
	"context"
	"fmt"
	"strings"

	"quiz-desk/internal/quiz"
)

// editTest runs the authoring screen for a new test, or for existing when it
// is non-nil. Nothing is stored until the draft passes validation.
func (a *app) editTest(ctx context.Context, teacher string, existing *quiz.Test) error {
	draft, err := quiz.NewDraft(teacher, existing)
	if err != nil {
		a.reportError("open the test", err)
		return nil
	}

	label := "Title: "
	if existing != nil {
		label = fmt.Sprintf("Title [%s] (enter to keep): ", draft.Title)
	}
	title, err := a.prompt(ctx, label)
	if err != nil {
		return err
	}
	if title != "" {
		draft.Title = title
	}

	for {
		a.printDraft(draft)
		fmt.Fprintln(a.out, "a. Add a question")
		fmt.Fprintln(a.out, "r. Remove a question")
		fmt.Fprintln(a.out, "s. Save")
		fmt.Fprintln(a.out, "c. Cancel")

		choice, err := a.prompt(ctx, "> ")
		if err != nil {
			return err
		}

		switch strings.ToLower(choice) {
		case "a":
			if err := a.addQuestion(ctx, draft); err != nil {
				return err
			}
		case "r":
			if len(draft.Questions) == 0 {
				fmt.Fprintln(a.out, "There are no questions to remove.")
				continue
			}
			idx, ok, err := a.chooseIndex(ctx, "Question to remove (enter to cancel): ", len(draft.Questions))
			if err != nil {
				return err
			}
			if ok {
				_ = draft.RemoveQuestion(idx)
			}
		case "s":
			test, err := draft.Build()
			if err != nil {
				a.reportError("save the test", err)
				continue
			}
			saved, err := a.cfg.Service.SaveTest(ctx, teacher, test)
			if err != nil {
				a.reportError("save the test", err)
				continue
			}
			fmt.Fprintf(a.out, "Saved %q with %d questions.\n", saved.Title, len(saved.Questions))
			return nil
		case "c":
			discard, err := a.confirm(ctx, "Discard your changes?")
			if err != nil {
				return err
			}
			if discard {
				return nil
			}
		default:
			fmt.Fprintln(a.out, "Unknown option.")
		}
	}
}

func (a *app) addQuestion(ctx context.Context, draft *quiz.Draft) error {
	qIndex := draft.AddQuestion()

	text, err := a.prompt(ctx, "Question text: ")
	if err != nil {
		return err
	}
	_ = draft.SetQuestionText(qIndex, text)

	for oIndex := 0; oIndex < quiz.MaxOptions; {
		optionText, err := a.prompt(ctx, fmt.Sprintf("Option %s (enter to finish): ", optionLetter(oIndex)))
		if err != nil {
			return err
		}
		if optionText == "" {
			if oIndex >= quiz.MinOptions {
				break
			}
			fmt.Fprintf(a.out, "A question needs at least %d options.\n", quiz.MinOptions)
			continue
		}

		if oIndex >= len(draft.Questions[qIndex].Options) {
			if _, err := draft.AddOption(qIndex); err != nil {
				break
			}
		}
		_ = draft.SetOptionText(qIndex, oIndex, optionText)
		oIndex++
	}

	options := draft.Questions[qIndex].Options
	last := optionLetter(len(options) - 1)
	for try := 1; try <= maxAttempts; try++ {
		raw, err := a.prompt(ctx, fmt.Sprintf("Correct option (A-%s): ", last))
		if err != nil {
			return err
		}
		if idx, ok := letterIndex(raw, len(options)); ok {
			_ = draft.MarkCorrect(qIndex, idx)
			return nil
		}
		fmt.Fprintf(a.out, "Please enter a letter A-%s.\n", last)
	}
	fmt.Fprintln(a.out, "No correct option marked; mark one before saving.")
	return nil
}

func (a *app) printDraft(draft *quiz.Draft) {
	fmt.Fprintf(a.out, "\n--- %s ---\n", displayTitle(draft.Title))
	if len(draft.Questions) == 0 {
		fmt.Fprintln(a.out, "No questions yet.")
	}
	for idx, question := range draft.Questions {
		fmt.Fprintf(a.out, "%d. %s\n", idx+1, question.Text)
		for oIndex, option := range question.Options {
			marker := " "
			if question.CorrectAnswerID != "" && option.ID == question.CorrectAnswerID {
				marker = "*"
			}
			fmt.Fprintf(a.out, "   %s%s. %s\n", marker, optionLetter(oIndex), option.Text)
		}
	}
	fmt.Fprintln(a.out)
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
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
