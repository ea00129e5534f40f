package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/gokatarajesh/quizforge/internal/question"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 4096
	defaultTimeout   = 60 * time.Second
)

// Config holds connection details for an OpenAI-compatible chat endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Client implements question.Completer. It makes exactly one call per
// Complete and never retries.
type Client struct {
	client *openai.Client
	config Config
	logger zerolog.Logger
}

var _ question.Completer = (*Client)(nil)

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client: openai.NewClientWithConfig(oc),
		config: cfg,
		logger: logger.With().Str("component", "completion_client").Logger(),
	}
}

// Complete sends prompt as the user message and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return "", question.NewCompletionError(question.FailureAuth, 0, errors.New("api key not configured"))
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: question.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	latency := time.Since(start)
	if err != nil {
		mapped := classify(err)
		c.logger.Debug().Err(err).Dur("latency", latency).Str("model", c.config.Model).Msg("completion call failed")
		return "", mapped
	}

	c.logger.Debug().
		Str("model", resp.Model).
		Dur("latency", latency).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion call finished")

	if len(resp.Choices) == 0 {
		return "", question.NewCompletionError(question.FailureMalformed, 0, errors.New("no choices in response"))
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", question.NewCompletionError(question.FailureMalformed, 0, errors.New("empty completion content"))
	}
	return content, nil
}

func classify(err error) *question.CompletionError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return question.NewCompletionError(question.FailureNetwork, 0, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return question.NewCompletionError(kindForStatus(apiErr.HTTPStatusCode), apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return question.NewCompletionError(kindForStatus(reqErr.HTTPStatusCode), reqErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return question.NewCompletionError(question.FailureNetwork, 0, err)
	}
	return question.NewCompletionError(question.FailureMalformed, 0, fmt.Errorf("decode completion: %w", err))
}

func kindForStatus(status int) question.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return question.FailureAuth
	case status == http.StatusTooManyRequests:
		return question.FailureRateLimited
	case status == http.StatusRequestTimeout:
		return question.FailureNetwork
	case status >= 500:
		return question.FailureUnavailable
	default:
		return question.FailureMalformed
	}
}
