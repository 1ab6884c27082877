package opentdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultURL    = "https://opentdb.com/api.php"
	defaultAmount = 10
	maxAmount     = 50
)

// Response codes documented by the Open Trivia DB API.
const (
	codeSuccess   = 0
	codeNoResults = 1
	codeRateLimit = 5
)

var (
	ErrNoResults   = errors.New("opentdb has not enough questions for the query")
	ErrRateLimited = errors.New("opentdb rate limit reached")
)

// RawQuestion mirrors the OpenTriviaDB question payload.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// Query narrows a fetch. Zero values leave the filter off.
type Query struct {
	Amount     int
	Category   int
	Difficulty string
	Type       string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(httpClient *http.Client) *Client {
	return NewClientWithURL(httpClient, DefaultURL)
}

func NewClientWithURL(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

func (c *Client) FetchQuestions(ctx context.Context, amount int) ([]RawQuestion, error) {
	return c.Fetch(ctx, Query{Amount: amount})
}

func (c *Client) Fetch(ctx context.Context, query Query) ([]RawQuestion, error) {
	amount := query.Amount
	if amount <= 0 {
		amount = defaultAmount
	}
	if amount > maxAmount {
		amount = maxAmount
	}

	params := url.Values{}
	params.Set("amount", strconv.Itoa(amount))
	if query.Category > 0 {
		params.Set("category", strconv.Itoa(query.Category))
	}
	if query.Difficulty != "" {
		params.Set("difficulty", strings.ToLower(query.Difficulty))
	}
	if query.Type != "" {
		params.Set("type", strings.ToLower(query.Type))
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opentdb returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	switch payload.ResponseCode {
	case codeSuccess:
		return payload.Results, nil
	case codeNoResults:
		return nil, ErrNoResults
	case codeRateLimit:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("opentdb response_code=%d", payload.ResponseCode)
	}
}
