package importer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"

	"quiz-desk/internal/opentdb"
	"quiz-desk/internal/quiz"
)

const defaultTriviaTitle = "Trivia"

var ErrNoUsableQuestions = errors.New("no usable trivia questions")

// QuestionFetcher is the part of the Open Trivia DB client the importer
// needs.
type QuestionFetcher interface {
	Fetch(ctx context.Context, query opentdb.Query) ([]opentdb.RawQuestion, error)
}

type Trivia struct {
	fetcher QuestionFetcher
	shuffle func(n int, swap func(i, j int))
}

func NewTrivia(fetcher QuestionFetcher) *Trivia {
	return &Trivia{fetcher: fetcher, shuffle: rand.Shuffle}
}

// Import fetches questions and turns them into a validated test owned by
// teacherName.
func (t *Trivia) Import(ctx context.Context, teacherName, title string, query opentdb.Query) (quiz.Test, error) {
	raw, err := t.fetcher.Fetch(ctx, query)
	if err != nil {
		return quiz.Test{}, fmt.Errorf("fetch trivia: %w", err)
	}
	return FromTrivia(raw, teacherName, title, t.shuffle)
}

// FromTrivia converts fetched questions. Entries that cannot form a valid
// question are skipped. A nil shuffle keeps the correct answer last.
func FromTrivia(raw []opentdb.RawQuestion, teacherName, title string, shuffle func(n int, swap func(i, j int))) (quiz.Test, error) {
	if strings.TrimSpace(title) == "" {
		title = defaultTriviaTitle
	}

	test := quiz.Test{
		ID:          quiz.NewID(),
		Title:       title,
		TeacherName: teacherName,
		Questions:   make([]quiz.Question, 0, len(raw)),
	}
	for _, item := range raw {
		question, ok := buildQuestion(item, shuffle)
		if !ok {
			log.Debug().Str("question", item.Question).Msg("skipping unusable trivia question")
			continue
		}
		test.Questions = append(test.Questions, question)
	}
	if len(test.Questions) == 0 {
		return quiz.Test{}, ErrNoUsableQuestions
	}

	if err := quiz.ValidateTest(test); err != nil {
		return quiz.Test{}, err
	}
	return test, nil
}

func buildQuestion(raw opentdb.RawQuestion, shuffle func(n int, swap func(i, j int))) (quiz.Question, bool) {
	text := strings.TrimSpace(html.UnescapeString(raw.Question))
	correct := strings.TrimSpace(html.UnescapeString(raw.CorrectAnswer))
	if text == "" || correct == "" {
		return quiz.Question{}, false
	}

	options := make([]quiz.AnswerOption, 0, len(raw.IncorrectAnswers)+1)
	for _, incorrect := range raw.IncorrectAnswers {
		optionText := strings.TrimSpace(html.UnescapeString(incorrect))
		if optionText == "" {
			continue
		}
		options = append(options, quiz.AnswerOption{ID: quiz.NewID(), Text: optionText})
	}

	correctOption := quiz.AnswerOption{ID: quiz.NewID(), Text: correct}
	options = append(options, correctOption)
	if len(options) < quiz.MinOptions || len(options) > quiz.MaxOptions {
		return quiz.Question{}, false
	}

	if shuffle != nil {
		shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
	}

	return quiz.Question{
		ID:              quiz.NewID(),
		Text:            text,
		Options:         options,
		CorrectAnswerID: correctOption.ID,
	}, true
}
