// Package kvstore implements the quiz repositories as two JSON blobs in a
// kv.Store, one for tests and one for submissions.
package kvstore

import (
	"context"

	"quiz-desk/internal/kv"
	"quiz-desk/internal/quiz"
)

const (
	DefaultTestsKey       = "english-tests"
	DefaultSubmissionsKey = "english-test-submissions"
)

type TestRepository struct {
	value *kv.Value[[]quiz.Test]
}

func NewTestRepository(store kv.Store, key string) *TestRepository {
	if key == "" {
		key = DefaultTestsKey
	}
	return &TestRepository{value: kv.NewValue(store, key, []quiz.Test{})}
}

func (r *TestRepository) ListTests(ctx context.Context) ([]quiz.Test, error) {
	return r.value.Load(ctx)
}

func (r *TestRepository) SaveTest(ctx context.Context, test quiz.Test) error {
	_, err := r.value.Update(ctx, func(tests []quiz.Test) ([]quiz.Test, error) {
		for i := range tests {
			if tests[i].ID == test.ID {
				tests[i] = test
				return tests, nil
			}
		}
		return append(tests, test), nil
	})
	return err
}

func (r *TestRepository) DeleteTest(ctx context.Context, testID string) (bool, error) {
	removed := false
	_, err := r.value.Update(ctx, func(tests []quiz.Test) ([]quiz.Test, error) {
		kept := make([]quiz.Test, 0, len(tests))
		for _, test := range tests {
			if test.ID == testID {
				removed = true
				continue
			}
			kept = append(kept, test)
		}
		return kept, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// Cached returns the list as last read, written or reconciled by this
// repository, without touching the store.
func (r *TestRepository) Cached() []quiz.Test {
	return r.value.Current()
}

// Watch calls onChange with the full list whenever another handle rewrites
// it. It blocks until ctx is done or the store closes.
func (r *TestRepository) Watch(ctx context.Context, onChange func([]quiz.Test)) error {
	return r.value.Watch(ctx, onChange)
}

type SubmissionRepository struct {
	value *kv.Value[[]quiz.TestSubmission]
}

func NewSubmissionRepository(store kv.Store, key string) *SubmissionRepository {
	if key == "" {
		key = DefaultSubmissionsKey
	}
	return &SubmissionRepository{value: kv.NewValue(store, key, []quiz.TestSubmission{})}
}

func (r *SubmissionRepository) ListSubmissions(ctx context.Context) ([]quiz.TestSubmission, error) {
	return r.value.Load(ctx)
}

func (r *SubmissionRepository) AppendSubmission(ctx context.Context, submission quiz.TestSubmission) error {
	_, err := r.value.Update(ctx, func(submissions []quiz.TestSubmission) ([]quiz.TestSubmission, error) {
		return append(submissions, submission), nil
	})
	return err
}

func (r *SubmissionRepository) Watch(ctx context.Context, onChange func([]quiz.TestSubmission)) error {
	return r.value.Watch(ctx, onChange)
}
