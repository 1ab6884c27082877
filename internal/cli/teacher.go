package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"quiz-desk/internal/importer"
	"quiz-desk/internal/opentdb"
	"quiz-desk/internal/quiz"
)

const defaultTriviaAmount = 10

func (a *app) teacherMenu(ctx context.Context, teacher string) error {
	for {
		a.noticeChanges()
		fmt.Fprintf(a.out, "\n=== Teacher: %s ===\n", teacher)
		fmt.Fprintln(a.out, "1. My tests")
		fmt.Fprintln(a.out, "2. Create a test")
		fmt.Fprintln(a.out, "3. Edit a test")
		fmt.Fprintln(a.out, "4. Import a test from YAML")
		if a.cfg.Trivia != nil {
			fmt.Fprintln(a.out, "5. Import trivia questions")
		}
		fmt.Fprintln(a.out, "6. Delete a test")
		fmt.Fprintln(a.out, "7. Student results")
		fmt.Fprintln(a.out, "b. Log out")

		choice, err := a.prompt(ctx, "> ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = a.showTeacherTests(ctx, teacher)
		case "2":
			err = a.editTest(ctx, teacher, nil)
		case "3":
			err = a.chooseAndEdit(ctx, teacher)
		case "4":
			err = a.importYAML(ctx, teacher)
		case "5":
			if a.cfg.Trivia == nil {
				fmt.Fprintln(a.out, "Unknown option.")
				continue
			}
			err = a.importTrivia(ctx, teacher)
		case "6":
			err = a.deleteTest(ctx, teacher)
		case "7":
			err = a.showResults(ctx)
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

// ownTests lists the teacher's tests. A storage error is reported and
// treated as an empty list so the menu stays usable.
func (a *app) ownTests(ctx context.Context, teacher string) []quiz.Test {
	tests, err := a.cfg.Service.ListTestsByTeacher(ctx, teacher)
	if err != nil {
		a.reportError("load tests", err)
		return nil
	}
	return tests
}

func (a *app) showTeacherTests(ctx context.Context, teacher string) error {
	tests := a.ownTests(ctx, teacher)
	if len(tests) == 0 {
		fmt.Fprintln(a.out, "You have not created any tests yet.")
		return nil
	}
	printTests(a.out, tests)
	return nil
}

func (a *app) pickOwnTest(ctx context.Context, teacher, label string) (quiz.Test, bool, error) {
	tests := a.ownTests(ctx, teacher)
	if len(tests) == 0 {
		fmt.Fprintln(a.out, "You have not created any tests yet.")
		return quiz.Test{}, false, nil
	}
	printTests(a.out, tests)

	idx, ok, err := a.chooseIndex(ctx, label, len(tests))
	if err != nil || !ok {
		return quiz.Test{}, false, err
	}
	return tests[idx], true, nil
}

func (a *app) chooseAndEdit(ctx context.Context, teacher string) error {
	test, ok, err := a.pickOwnTest(ctx, teacher, "Test to edit (enter to cancel): ")
	if err != nil || !ok {
		return err
	}
	return a.editTest(ctx, teacher, &test)
}

func (a *app) importYAML(ctx context.Context, teacher string) error {
	path, err := a.prompt(ctx, "Path to the YAML file: ")
	if err != nil || path == "" {
		return err
	}

	test, err := importer.FromYAMLFile(path, teacher)
	if err != nil {
		a.reportError("import "+path, err)
		return nil
	}
	return a.saveImported(ctx, teacher, test)
}

func (a *app) importTrivia(ctx context.Context, teacher string) error {
	title, err := a.prompt(ctx, "Title (enter for \"Trivia\"): ")
	if err != nil {
		return err
	}
	raw, err := a.prompt(ctx, fmt.Sprintf("Number of questions (enter for %d): ", defaultTriviaAmount))
	if err != nil {
		return err
	}

	amount := defaultTriviaAmount
	if raw != "" {
		parsed, convErr := strconv.Atoi(raw)
		if convErr != nil || parsed <= 0 {
			fmt.Fprintln(a.out, "The number of questions must be a positive integer.")
			return nil
		}
		amount = parsed
	}

	fmt.Fprintln(a.out, "Fetching questions...")
	test, err := a.cfg.Trivia.Import(ctx, teacher, title, opentdb.Query{Amount: amount})
	if err != nil {
		a.reportError("import trivia", err)
		return nil
	}
	return a.saveImported(ctx, teacher, test)
}

func (a *app) saveImported(ctx context.Context, teacher string, test quiz.Test) error {
	saved, err := a.cfg.Service.SaveTest(ctx, teacher, test)
	if err != nil {
		a.reportError("save the test", err)
		return nil
	}
	fmt.Fprintf(a.out, "Imported %q with %d questions.\n", saved.Title, len(saved.Questions))
	return nil
}

func (a *app) deleteTest(ctx context.Context, teacher string) error {
	test, ok, err := a.pickOwnTest(ctx, teacher, "Test to delete (enter to cancel): ")
	if err != nil || !ok {
		return err
	}

	confirmed, err := a.confirm(ctx, fmt.Sprintf("Delete %q? This cannot be undone.", test.Title))
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(a.out, "Nothing was deleted.")
		return nil
	}

	if err := a.cfg.Service.DeleteTest(ctx, test.ID, true); err != nil {
		a.reportError("delete the test", err)
		return nil
	}
	fmt.Fprintf(a.out, "Deleted %q. Existing results are kept.\n", test.Title)
	return nil
}

func (a *app) showResults(ctx context.Context) error {
	search, err := a.prompt(ctx, "Search by student name (enter for all): ")
	if err != nil {
		return err
	}

	submissions, err := a.cfg.Service.ListSubmissions(ctx, quiz.SubmissionFilter{StudentName: search})
	if err != nil {
		a.reportError("load results", err)
		return nil
	}
	if len(submissions) == 0 {
		fmt.Fprintln(a.out, "No results found.")
		return nil
	}

	printSubmissions(a.out, submissions)
	return nil
}

func printSubmissions(out io.Writer, submissions []quiz.TestSubmission) {
	for _, submission := range submissions {
		submitted := submission.SubmittedAt
		if at, ok := submission.SubmittedTime(); ok {
			submitted = at.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%-20s %-30s %d/%d (%d%%)  %s\n",
			submission.StudentName,
			submission.TestTitle,
			submission.Score,
			submission.TotalQuestions,
			quiz.Percentage(submission),
			submitted,
		)
	}
}
