// Package importer builds quiz tests from external sources: YAML files
// written by instructors and questions fetched from Open Trivia DB.
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"quiz-desk/internal/quiz"
)

var ErrEmptyDocument = errors.New("test file is empty")

type yamlTest struct {
	Title     string         `yaml:"title"`
	Questions []yamlQuestion `yaml:"questions"`
}

type yamlQuestion struct {
	Text    string   `yaml:"text"`
	Options []string `yaml:"options"`
	Correct *int     `yaml:"correct"`
}

// FromYAML reads one test document. Fields the format does not define are
// rejected so typos do not silently drop data. The result is validated
// and owned by teacherName.
func FromYAML(r io.Reader, teacherName string) (quiz.Test, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc yamlTest
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return quiz.Test{}, ErrEmptyDocument
		}
		return quiz.Test{}, fmt.Errorf("parse test file: %w", err)
	}

	test := quiz.Test{
		ID:          quiz.NewID(),
		Title:       doc.Title,
		TeacherName: teacherName,
		Questions:   make([]quiz.Question, 0, len(doc.Questions)),
	}
	for _, item := range doc.Questions {
		question := quiz.Question{
			ID:      quiz.NewID(),
			Text:    item.Text,
			Options: make([]quiz.AnswerOption, 0, len(item.Options)),
		}
		for _, text := range item.Options {
			question.Options = append(question.Options, quiz.AnswerOption{ID: quiz.NewID(), Text: text})
		}
		// An out-of-range index leaves the answer unmarked; validation reports it.
		if item.Correct != nil && *item.Correct >= 0 && *item.Correct < len(question.Options) {
			question.CorrectAnswerID = question.Options[*item.Correct].ID
		}
		test.Questions = append(test.Questions, question)
	}

	if err := quiz.ValidateTest(test); err != nil {
		return quiz.Test{}, err
	}
	return test, nil
}

func FromYAMLFile(path, teacherName string) (quiz.Test, error) {
	file, err := os.Open(path)
	if err != nil {
		return quiz.Test{}, err
	}
	defer file.Close()

	return FromYAML(file, teacherName)
}
