package quiz

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// SubmissionFilter narrows ListSubmissions. Empty fields match everything.
type SubmissionFilter struct {
	// StudentName matches as a case-insensitive substring.
	StudentName string
	TestID      string
}

type Service struct {
	tests       TestRepository
	submissions SubmissionRepository
}

func NewService(tests TestRepository, submissions SubmissionRepository) *Service {
	return &Service{
		tests:       tests,
		submissions: submissions,
	}
}

// SaveTest validates and stores an authored test owned by teacherName.
// A test without an id is created; otherwise the stored test with that id
// is replaced.
func (s *Service) SaveTest(ctx context.Context, teacherName string, test Test) (Test, error) {
	teacher, err := NormalizeName(teacherName)
	if err != nil {
		return Test{}, err
	}
	if err := ValidateTest(test); err != nil {
		return Test{}, err
	}

	saved, err := test.Clone()
	if err != nil {
		return Test{}, err
	}
	saved.TeacherName = teacher
	if saved.ID == "" {
		saved.ID = NewID()
	}

	if err := s.tests.SaveTest(ctx, saved); err != nil {
		return Test{}, fmt.Errorf("save test %s: %w", saved.ID, err)
	}

	log.Info().Str("test_id", saved.ID).Str("teacher", teacher).Int("questions", len(saved.Questions)).Msg("test saved")
	return saved, nil
}

func (s *Service) GetTest(ctx context.Context, testID string) (Test, error) {
	testID = strings.TrimSpace(testID)
	if testID == "" {
		return Test{}, ErrTestNotFound
	}

	tests, err := s.tests.ListTests(ctx)
	if err != nil {
		return Test{}, err
	}
	for _, test := range tests {
		if test.ID == testID {
			return test, nil
		}
	}
	return Test{}, ErrTestNotFound
}

func (s *Service) ListTests(ctx context.Context) ([]Test, error) {
	return s.tests.ListTests(ctx)
}

// ListTestsByTeacher returns the tests owned by teacherName, matched exactly.
func (s *Service) ListTestsByTeacher(ctx context.Context, teacherName string) ([]Test, error) {
	tests, err := s.tests.ListTests(ctx)
	if err != nil {
		return nil, err
	}

	owned := make([]Test, 0, len(tests))
	for _, test := range tests {
		if test.TeacherName == teacherName {
			owned = append(owned, test)
		}
	}
	return owned, nil
}

// DeleteTest removes a test. It is destructive with no undo, so callers must
// pass confirmed=true. Submissions referencing the test are kept.
func (s *Service) DeleteTest(ctx context.Context, testID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	removed, err := s.tests.DeleteTest(ctx, testID)
	if err != nil {
		return fmt.Errorf("delete test %s: %w", testID, err)
	}
	if !removed {
		return ErrTestNotFound
	}

	log.Info().Str("test_id", testID).Msg("test deleted")
	return nil
}

// RecordSubmission appends a finished attempt's submission.
func (s *Service) RecordSubmission(ctx context.Context, submission TestSubmission) error {
	if err := s.submissions.AppendSubmission(ctx, submission); err != nil {
		return fmt.Errorf("record submission %s: %w", submission.ID, err)
	}

	log.Info().
		Str("submission_id", submission.ID).
		Str("test_id", submission.TestID).
		Str("student", submission.StudentName).
		Int("score", submission.Score).
		Int("total", submission.TotalQuestions).
		Msg("submission recorded")
	return nil
}

func (s *Service) GetSubmission(ctx context.Context, submissionID string) (TestSubmission, error) {
	submissions, err := s.submissions.ListSubmissions(ctx)
	if err != nil {
		return TestSubmission{}, err
	}
	for _, submission := range submissions {
		if submission.ID == submissionID {
			return submission, nil
		}
	}
	return TestSubmission{}, ErrSubmissionNotFound
}

// ListSubmissions returns matching submissions, newest first.
func (s *Service) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]TestSubmission, error) {
	submissions, err := s.submissions.ListSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.StudentName))
	matched := make([]TestSubmission, 0, len(submissions))
	for _, submission := range submissions {
		if search != "" && !strings.Contains(strings.ToLower(submission.StudentName), search) {
			continue
		}
		if filter.TestID != "" && submission.TestID != filter.TestID {
			continue
		}
		matched = append(matched, submission)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return submittedBefore(matched[j], matched[i])
	})
	return matched, nil
}

// submittedBefore orders by submission time. Unparseable timestamps sort
// as the oldest.
func submittedBefore(a, b TestSubmission) bool {
	at, aOK := a.SubmittedTime()
	bt, bOK := b.SubmittedTime()
	switch {
	case !aOK && !bOK:
		return false
	case !aOK:
		return true
	case !bOK:
		return false
	}
	return at.Before(bt)
}
