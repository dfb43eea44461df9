package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-3.5-turbo-0125"
	defaultHTTPTimeout = 2 * time.Minute
	defaultMaxTokens   = 4096
	snippetLimit       = 200
)

// Config captures the runtime settings required to talk to the completion API.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client wraps the chat completion endpoint.
type Client struct {
	cfg  Config
	http *resty.Client
}

// NewClient constructs a client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &Client{
		cfg: cfg,
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(cfg.Timeout),
	}
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.cfg.Model
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat completion: http %d: %s", e.StatusCode, e.Message)
}

type emptyContentError struct {
	FinishReason string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("chat completion: empty content (finish_reason=%q, response_snippet=%s)", e.FinishReason, e.Snippet)
}

type chatCompletionRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends prompt as the single system message and returns the reply text.
func (c *Client) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", errors.New("chat completion: api key required")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("chat completion: prompt required")
	}

	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "system", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        1.0,
	}

	var completion chatCompletionResponse
	var failure chatCompletionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetBody(payload).
		SetResult(&completion).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion: request (timeout=%s): %w", c.cfg.Timeout, err)
	}
	if resp.IsError() {
		msg := snippet(resp.String())
		if failure.Error != nil && failure.Error.Message != "" {
			msg = failure.Error.Message
		}
		return "", &StatusError{StatusCode: resp.StatusCode(), Message: msg}
	}

	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion: empty choices")
	}
	return "", &emptyContentError{
		FinishReason: completion.Choices[0].FinishReason,
		Snippet:      snippet(resp.String()),
	}
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > snippetLimit {
		return body[:snippetLimit] + "..."
	}
	return body
}
