package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var ErrServiceUnavailable = errors.New("quiz service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// isStatus reports whether err is an APIError with the given status.
func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

type optionItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type testItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TeacherName   string `json:"teacher_name"`
	QuestionCount int    `json:"question_count"`
}

type testsResponse struct {
	Tests []testItem `json:"tests"`
}

type attemptQuestion struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Options []optionItem `json:"options"`
}

type submissionView struct {
	ID             string `json:"id"`
	StudentName    string `json:"student_name"`
	TestID         string `json:"test_id"`
	TestTitle      string `json:"test_title"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	Percentage     int    `json:"percentage"`
	SubmittedAt    string `json:"submitted_at"`
}

type submissionsResponse struct {
	Submissions []submissionView `json:"submissions"`
}

type attemptView struct {
	AttemptID        string          `json:"attempt_id"`
	TestID           string          `json:"test_id"`
	TestTitle        string          `json:"test_title"`
	StudentName      string          `json:"student_name"`
	State            string          `json:"state"`
	QuestionIndex    int             `json:"question_index"`
	TotalQuestions   int             `json:"total_questions"`
	Question         attemptQuestion `json:"question"`
	SelectedAnswerID string          `json:"selected_answer_id"`
	TimeLeftSeconds  int             `json:"time_left_seconds"`
	CanAdvance       bool            `json:"can_advance"`
	CanRetreat       bool            `json:"can_retreat"`
	IsLast           bool            `json:"is_last"`
	TimedOut         bool            `json:"timed_out"`
	Submission       *submissionView `json:"submission,omitempty"`
}

const attemptStateActive = "active"

type startAttemptRequest struct {
	TestID      string `json:"test_id"`
	StudentName string `json:"student_name"`
}

type answerRequest struct {
	QuestionID string `json:"question_id,omitempty"`
	AnswerID   string `json:"answer_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultServer
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *HTTPClient) ListTests(ctx context.Context) ([]testItem, error) {
	var payload testsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/tests", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Tests, nil
}

func (c *HTTPClient) ListSubmissions(ctx context.Context, student string, limit int) ([]submissionView, error) {
	query := url.Values{}
	if trimmed := strings.TrimSpace(student); trimmed != "" {
		query.Set("student", trimmed)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/submissions"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var payload submissionsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Submissions, nil
}

func (c *HTTPClient) StartAttempt(ctx context.Context, testID, studentName string) (attemptView, error) {
	if strings.TrimSpace(testID) == "" {
		return attemptView{}, errors.New("test_id is required")
	}

	var view attemptView
	err := c.doJSON(ctx, http.MethodPost, "/attempts", startAttemptRequest{TestID: testID, StudentName: studentName}, &view)
	return view, err
}

func (c *HTTPClient) GetAttempt(ctx context.Context, attemptID string) (attemptView, error) {
	var view attemptView
	err := c.doJSON(ctx, http.MethodGet, attemptPath(attemptID, ""), nil, &view)
	return view, err
}

// SelectAnswer answers the question currently on screen.
func (c *HTTPClient) SelectAnswer(ctx context.Context, attemptID, answerID string) (attemptView, error) {
	var view attemptView
	err := c.doJSON(ctx, http.MethodPut, attemptPath(attemptID, "/answer"), answerRequest{AnswerID: answerID}, &view)
	return view, err
}

func (c *HTTPClient) Next(ctx context.Context, attemptID string) (attemptView, error) {
	var view attemptView
	err := c.doJSON(ctx, http.MethodPost, attemptPath(attemptID, "/next"), nil, &view)
	return view, err
}

func (c *HTTPClient) Prev(ctx context.Context, attemptID string) (attemptView, error) {
	var view attemptView
	err := c.doJSON(ctx, http.MethodPost, attemptPath(attemptID, "/prev"), nil, &view)
	return view, err
}

func (c *HTTPClient) Submit(ctx context.Context, attemptID string) (submissionView, error) {
	var submission submissionView
	err := c.doJSON(ctx, http.MethodPost, attemptPath(attemptID, "/submit"), nil, &submission)
	return submission, err
}

func (c *HTTPClient) Abandon(ctx context.Context, attemptID string) error {
	return c.doJSON(ctx, http.MethodDelete, attemptPath(attemptID, ""), nil, nil)
}

func attemptPath(attemptID, suffix string) string {
	return "/attempts/" + url.PathEscape(attemptID) + suffix
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil || response.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
