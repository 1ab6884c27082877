package quiz

import (
	"context"
	"errors"
)

var (
	ErrTestNotFound         = errors.New("test not found")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrInvalidTest          = errors.New("invalid test")
	ErrInvalidName          = errors.New("invalid name")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// TestRepository holds the ordered list of every authored test.
type TestRepository interface {
	ListTests(ctx context.Context) ([]Test, error)
	// SaveTest replaces the test with the same id in place, or appends it.
	SaveTest(ctx context.Context, test Test) error
	// DeleteTest reports whether a test was removed.
	DeleteTest(ctx context.Context, testID string) (bool, error)
}

// SubmissionRepository holds the append-only list of submissions.
type SubmissionRepository interface {
	ListSubmissions(ctx context.Context) ([]TestSubmission, error)
	AppendSubmission(ctx context.Context, submission TestSubmission) error
}
