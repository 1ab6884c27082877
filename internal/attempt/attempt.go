// Package attempt runs one learner's pass through a test: navigation,
// answer selection, the per-question countdown and the single terminal
// transition that produces a scored submission.
package attempt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"quiz-desk/internal/quiz"
)

const DefaultSecondsPerQuestion = 60

var (
	ErrNoQuestions     = errors.New("test has no questions")
	ErrUnknownQuestion = errors.New("question does not belong to the test")
	ErrAttemptClosed   = errors.New("attempt is no longer active")
	ErrAttemptNotFound = errors.New("attempt not found")
)

type State string

const (
	StateActive    State = "active"
	StateSubmitted State = "submitted"
	StateAbandoned State = "abandoned"
)

type Option func(*Attempt)

func WithClock(now func() time.Time) Option {
	return func(a *Attempt) {
		if now != nil {
			a.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(a *Attempt) {
		if newID != nil {
			a.newID = newID
		}
	}
}

func WithSecondsPerQuestion(seconds int) Option {
	return func(a *Attempt) {
		if seconds > 0 {
			a.secondsPerQuestion = seconds
		}
	}
}

func WithTickerFactory(factory TickerFactory) Option {
	return func(a *Attempt) {
		if factory != nil {
			a.newTicker = factory
		}
	}
}

// OnSubmit registers a callback fired exactly once with the submission,
// whether the learner submitted or the countdown ran out.
func OnSubmit(fn func(quiz.TestSubmission)) Option {
	return func(a *Attempt) {
		a.onSubmit = append(a.onSubmit, fn)
	}
}

// OnAbandon registers a callback fired when the attempt ends without a
// submission.
func OnAbandon(fn func()) Option {
	return func(a *Attempt) {
		a.onAbandon = append(a.onAbandon, fn)
	}
}

type Attempt struct {
	id                 string
	test               quiz.Test
	studentName        string
	secondsPerQuestion int
	now                func() time.Time
	newID              func() string
	newTicker          TickerFactory
	onSubmit           []func(quiz.TestSubmission)
	onAbandon          []func()

	mu         sync.Mutex
	index      int
	answers    map[string]string
	timeLeft   int
	state      State
	timedOut   bool
	submission quiz.TestSubmission
	startedAt  time.Time
	finishedAt time.Time
	started    bool
	stopTimer  context.CancelFunc
	done       chan struct{}
}

// New prepares an attempt on a private copy of test. The countdown does not
// run until Start is called.
func New(test quiz.Test, studentName string, opts ...Option) (*Attempt, error) {
	name, err := quiz.NormalizeName(studentName)
	if err != nil {
		return nil, err
	}
	if len(test.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	copied, err := test.Clone()
	if err != nil {
		return nil, err
	}

	a := &Attempt{
		test:               copied,
		studentName:        name,
		secondsPerQuestion: DefaultSecondsPerQuestion,
		now:                time.Now,
		newID:              quiz.NewID,
		newTicker:          newRealTicker,
		answers:            make(map[string]string, len(copied.Questions)),
		state:              StateActive,
		done:               make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.id = a.newID()
	a.timeLeft = len(copied.Questions) * a.secondsPerQuestion
	a.startedAt = a.now()
	return a, nil
}

func (a *Attempt) ID() string {
	return a.id
}

func (a *Attempt) StudentName() string {
	return a.studentName
}

// Test returns a copy of the test being taken, correct answers included.
func (a *Attempt) Test() (quiz.Test, error) {
	return a.test.Clone()
}

// Start launches the countdown. The ticker is released on submit, timeout,
// abandon, or when ctx ends; ctx ending abandons the attempt.
func (a *Attempt) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateActive {
		a.mu.Unlock()
		return ErrAttemptClosed
	}
	if a.started {
		a.mu.Unlock()
		return nil
	}

	timerCtx, cancel := context.WithCancel(ctx)
	ticker := a.newTicker(TickInterval)
	a.started = true
	a.stopTimer = cancel
	a.mu.Unlock()

	go a.run(timerCtx, ticker)
	return nil
}

func (a *Attempt) run(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// No-op when the cancel came from a terminal transition.
			a.Abandon()
			return
		case <-ticker.Chan():
			if _, finished := a.Tick(); finished {
				return
			}
		}
	}
}

// Tick accounts for one elapsed second. When the countdown reaches zero the
// attempt is submitted with whatever answers exist. It reports the time left
// and whether this tick ended the attempt.
func (a *Attempt) Tick() (int, bool) {
	a.mu.Lock()
	if a.state != StateActive {
		remaining := a.timeLeft
		a.mu.Unlock()
		return remaining, false
	}
	if a.timeLeft > 0 {
		a.timeLeft--
	}
	remaining := a.timeLeft
	a.mu.Unlock()

	if remaining > 0 {
		return remaining, false
	}
	_, submitted := a.finish(true)
	return 0, submitted
}

// SelectAnswer records answerID for questionID, replacing any earlier
// choice. The answer id is stored as given.
func (a *Attempt) SelectAnswer(questionID, answerID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateActive {
		return ErrAttemptClosed
	}
	if _, ok := a.test.Question(questionID); !ok {
		return ErrUnknownQuestion
	}
	a.answers[questionID] = answerID
	return nil
}

// SelectCurrent records answerID for the question on screen.
func (a *Attempt) SelectCurrent(answerID string) error {
	a.mu.Lock()
	questionID := a.test.Questions[a.index].ID
	a.mu.Unlock()

	return a.SelectAnswer(questionID, answerID)
}

// CanAdvance reports whether Advance would move: the current question is
// answered and is not the last one.
func (a *Attempt) CanAdvance() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canAdvanceLocked()
}

func (a *Attempt) canAdvanceLocked() bool {
	if a.state != StateActive || a.index >= len(a.test.Questions)-1 {
		return false
	}
	_, answered := a.answers[a.test.Questions[a.index].ID]
	return answered
}

// Advance moves to the next question. It does nothing and returns false
// when CanAdvance is false.
func (a *Attempt) Advance() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canAdvanceLocked() {
		return false
	}
	a.index++
	return true
}

// Retreat moves to the previous question. No answer is required.
func (a *Attempt) Retreat() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateActive || a.index == 0 {
		return false
	}
	a.index--
	return true
}

// Submit ends the attempt with a scored submission. Only the first terminal
// transition wins; later calls, and calls after Abandon, return false.
func (a *Attempt) Submit() (quiz.TestSubmission, bool) {
	return a.finish(false)
}

func (a *Attempt) finish(timedOut bool) (quiz.TestSubmission, bool) {
	a.mu.Lock()
	if a.state != StateActive {
		a.mu.Unlock()
		return quiz.TestSubmission{}, false
	}

	finishedAt := a.now()
	submission := BuildSubmission(a.test, a.studentName, a.answers, a.newID(), finishedAt)
	a.state = StateSubmitted
	a.timedOut = timedOut
	a.submission = submission
	a.finishedAt = finishedAt
	stop := a.stopTimer
	a.stopTimer = nil
	close(a.done)
	callbacks := a.onSubmit
	a.mu.Unlock()

	if stop != nil {
		stop()
	}

	reason := "submitted"
	if timedOut {
		reason = "time expired"
	}
	log.Info().
		Str("attempt_id", a.id).
		Str("test_id", submission.TestID).
		Str("student", submission.StudentName).
		Int("score", submission.Score).
		Int("total", submission.TotalQuestions).
		Str("reason", reason).
		Msg("attempt finished")

	for _, fn := range callbacks {
		fn(submission)
	}
	return submission, true
}

// Abandon ends the attempt without a submission.
func (a *Attempt) Abandon() bool {
	a.mu.Lock()
	if a.state != StateActive {
		a.mu.Unlock()
		return false
	}

	a.state = StateAbandoned
	a.finishedAt = a.now()
	stop := a.stopTimer
	a.stopTimer = nil
	close(a.done)
	callbacks := a.onAbandon
	a.mu.Unlock()

	if stop != nil {
		stop()
	}

	log.Info().Str("attempt_id", a.id).Str("test_id", a.test.ID).Msg("attempt abandoned")
	for _, fn := range callbacks {
		fn()
	}
	return true
}

// Done is closed once the attempt is submitted or abandoned.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Attempt) TimeLeft() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeLeft
}

// Result returns the submission once the attempt has been submitted.
func (a *Attempt) Result() (quiz.TestSubmission, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateSubmitted {
		return quiz.TestSubmission{}, false
	}
	return a.submission, true
}

// FinishedAt is zero while the attempt is active.
func (a *Attempt) FinishedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finishedAt
}

// Snapshot is a point-in-time view of an attempt. It shares no memory with
// the attempt.
type Snapshot struct {
	ID          string
	TestID      string
	TestTitle   string
	StudentName string
	Index       int
	Total       int
	Question    quiz.Question
	Selected    string
	Answered    int
	TimeLeft    int
	CanAdvance  bool
	CanRetreat  bool
	IsLast      bool
	State       State
	TimedOut    bool
	StartedAt   time.Time
	Submission  *quiz.TestSubmission
}

func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.test.Questions[a.index]
	snap := Snapshot{
		ID:          a.id,
		TestID:      a.test.ID,
		TestTitle:   a.test.Title,
		StudentName: a.studentName,
		Index:       a.index,
		Total:       len(a.test.Questions),
		Selected:    a.answers[current.ID],
		Answered:    len(a.answers),
		TimeLeft:    a.timeLeft,
		CanAdvance:  a.canAdvanceLocked(),
		CanRetreat:  a.state == StateActive && a.index > 0,
		IsLast:      a.index == len(a.test.Questions)-1,
		State:       a.state,
		TimedOut:    a.timedOut,
		StartedAt:   a.startedAt,
	}
	if err := copier.CopyWithOption(&snap.Question, &current, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Str("attempt_id", a.id).Msg("failed to copy question for snapshot")
		snap.Question = quiz.Question{ID: current.ID, Text: current.Text}
	}
	if a.state == StateSubmitted {
		var submission quiz.TestSubmission
		if err := copier.CopyWithOption(&submission, &a.submission, copier.Option{DeepCopy: true}); err == nil {
			snap.Submission = &submission
		}
	}
	return snap
}
