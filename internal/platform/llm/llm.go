package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Chat message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a model conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the contract for a model backend. Complete returns the full
// response text; Stream invokes emit once per delta as tokens arrive.
type Client interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	Stream(ctx context.Context, messages []ChatMessage, emit func(delta string) error) error
}

// Config configures a model backend client.
type Config struct {
	Provider      string
	Model         string
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	ForceGenerate bool

	// HTTPClient overrides the transport, primarily for tests.
	HTTPClient *http.Client
	// Sleep overrides the retry backoff wait, primarily for tests.
	Sleep  func(context.Context, time.Duration) error
	Logger *zap.Logger
}

// ErrUnavailable wraps failures where the backend could not be reached or
// kept failing after retries.
var ErrUnavailable = errors.New("llm: backend unavailable")

// NewClient constructs the client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	base := newBaseClient(cfg)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "ollama":
		return &ollamaClient{baseClient: base, forceGenerate: cfg.ForceGenerate}, nil
	case "openai", "groq":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("llm: api key is required for hosted providers")
		}
		return &openAIClient{baseClient: base, apiKey: cfg.APIKey}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

type baseClient struct {
	model      string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	sleep      func(context.Context, time.Duration) error
	logger     *zap.Logger
}

func newBaseClient(cfg Config) baseClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 400 * time.Millisecond
	}

	return baseClient{
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
		sleep:      sleep,
		logger:     logger,
	}
}

// doWithRetry runs the request attempt, retrying on rate limits, server
// errors, and timeouts with a linearly growing delay.
func (c *baseClient) doWithRetry(ctx context.Context, attempt func(context.Context) (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	for try := 0; try <= c.maxRetries; try++ {
		if try > 0 {
			if err := c.sleep(ctx, c.retryDelay*time.Duration(try)); err != nil {
				return nil, err
			}
		}

		resp, err := attempt(ctx)
		if err != nil {
			if !isRetryableError(err) {
				return nil, err
			}
			lastErr = err
			c.logger.Warn("llm request failed, retrying",
				zap.Int("attempt", try+1),
				zap.Error(err))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("llm: backend returned status %d", resp.StatusCode)
			c.logger.Warn("llm request rejected, retrying",
				zap.Int("attempt", try+1),
				zap.Int("status", resp.StatusCode))
			continue
		}

		return resp, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return false
}
