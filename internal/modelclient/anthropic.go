// Package modelclient adapts the Anthropic API to the single-method
// convergence.CallModel boundary: prompt in, completion text out.
// Retries, backoff, and provider selection live here so the
// convergence core stays free of transport concerns.
package modelclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fyrsmithlabs/convergence/internal/config"
)

// Client calls an LLM provider to produce plan and evaluation
// completions on behalf of the convergence orchestrator.
type Client struct {
	anthropic  anthropic.Client
	model      string
	maxRetries int
	timeout    time.Duration
}

// New builds a Client from a resolved ModelClientConfig.
func New(cfg config.ModelClientConfig) (*Client, error) {
	if cfg.Provider != "anthropic" {
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
	if !cfg.APIKey.IsSet() {
		return nil, errors.New("anthropic api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey.Value())}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		anthropic:  anthropic.NewClient(opts...),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.RequestTimeout,
	}, nil
}

// NewFromEnv loads configuration from the environment and builds a
// Client, for use in contexts (e.g. a Temporal activity) that cannot
// thread a *config.Config through.
func NewFromEnv() (*Client, error) {
	cfg := config.Load()
	return New(cfg.ModelClient)
}

// Call implements convergence.CallModel. Transient failures are
// retried with exponential backoff up to maxRetries; context
// cancellation aborts immediately.
func (c *Client) Call(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		text, err := c.callOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 && apiErr.StatusCode != 429 {
			// Client errors other than rate limiting are not retryable.
			return "", err
		}
	}

	return "", fmt.Errorf("model call failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) callOnce(ctx context.Context, prompt string) (string, error) {
	message, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", errors.New("model returned no text content")
	}
	return text, nil
}
