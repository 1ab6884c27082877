package attempt

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"quiz-desk/internal/quiz"
)

const (
	DefaultRetention = 10 * time.Minute
	recordTimeout    = 5 * time.Second
)

// Recorder persists finished submissions.
type Recorder interface {
	RecordSubmission(ctx context.Context, submission quiz.TestSubmission) error
}

type ManagerConfig struct {
	SecondsPerQuestion int
	// Retention is how long a finished attempt stays readable, so a client
	// can still fetch the result of a submission the countdown triggered.
	Retention time.Duration
	// Options are applied to every attempt after the manager's own.
	Options []Option
}

// Manager owns the attempts of every learner session of a service.
type Manager struct {
	recorder  Recorder
	seconds   int
	retention time.Duration
	options   []Option
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	attempts map[string]*Attempt
	closed   bool
}

func NewManager(recorder Recorder, cfg ManagerConfig) *Manager {
	if cfg.SecondsPerQuestion <= 0 {
		cfg.SecondsPerQuestion = DefaultSecondsPerQuestion
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		recorder:  recorder,
		seconds:   cfg.SecondsPerQuestion,
		retention: cfg.Retention,
		options:   cfg.Options,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		attempts:  make(map[string]*Attempt),
	}
}

// Start creates an attempt, registers it and starts its countdown. The
// submission is recorded before Submit returns to the caller that ended
// the attempt.
func (m *Manager) Start(test quiz.Test, studentName string) (*Attempt, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrAttemptClosed
	}
	m.mu.Unlock()

	opts := []Option{
		WithSecondsPerQuestion(m.seconds),
		OnSubmit(m.record),
	}
	opts = append(opts, m.options...)

	a, err := New(test, studentName, opts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrAttemptClosed
	}
	m.pruneLocked()
	m.attempts[a.ID()] = a
	m.mu.Unlock()

	if err := a.Start(m.ctx); err != nil {
		return nil, err
	}

	log.Info().Str("attempt_id", a.ID()).Str("test_id", test.ID).Str("student", a.StudentName()).Msg("attempt started")
	return a, nil
}

func (m *Manager) record(submission quiz.TestSubmission) {
	if m.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := m.recorder.RecordSubmission(ctx, submission); err != nil {
		log.Error().Err(err).Str("submission_id", submission.ID).Msg("failed to record submission")
	}
}

func (m *Manager) Get(attemptID string) (*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()
	a, ok := m.attempts[attemptID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

func (m *Manager) Abandon(attemptID string) error {
	a, err := m.Get(attemptID)
	if err != nil {
		return err
	}
	if !a.Abandon() {
		return ErrAttemptClosed
	}
	return nil
}

// Active counts attempts still running.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, a := range m.attempts {
		if a.State() == StateActive {
			count++
		}
	}
	return count
}

// Prune drops finished attempts older than the retention window and
// reports how many were removed.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked()
}

func (m *Manager) pruneLocked() int {
	cutoff := m.now().Add(-m.retention)
	removed := 0
	for id, a := range m.attempts {
		finishedAt := a.FinishedAt()
		if !finishedAt.IsZero() && finishedAt.Before(cutoff) {
			delete(m.attempts, id)
			removed++
		}
	}
	return removed
}

// Close abandons every active attempt and refuses new ones.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	active := make([]*Attempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		active = append(active, a)
	}
	m.mu.Unlock()

	for _, a := range active {
		a.Abandon()
	}
	m.cancel()
}
