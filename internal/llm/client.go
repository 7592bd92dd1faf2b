// Package llm wraps a langchaingo chat model with rate limiting and retries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("dartrag.llm")

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultRateLimit   = 5
	defaultBurst       = 2
)

var (
	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("llm: empty prompt")
	// ErrEmptyResponse is returned when the model produced no choices.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrMissingAPIKey is returned by NewOpenAI without a key.
	ErrMissingAPIKey = errors.New("llm: api key is required")
)

// Options tune one completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Completer produces a completion for a single user prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Config controls retries.
type Config struct {
	MaxRetries  int
	BaseBackoff time.Duration
	RatePerSec  float64
}

// Client calls a langchaingo model. Deadline and cancellation errors are
// never retried.
type Client struct {
	model   llms.Model
	config  Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient wraps model.
func NewClient(model llms.Model, cfg Config, logger *zap.Logger) (*Client, error) {
	if model == nil {
		return nil, errors.New("llm: model is required")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRateLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		model:   model,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), defaultBurst),
		logger:  logger,
	}, nil
}

// NewOpenAI builds a chat model for the OpenAI API or a compatible base URL.
func NewOpenAI(apiKey, baseURL, model string) (llms.Model, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai model: %w", err)
	}
	return m, nil
}

// Complete sends prompt as a single human message.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	ctx, span := tracer.Start(ctx, "llm.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.Int("prompt_chars", len(prompt)),
		attribute.Int("max_tokens", opts.MaxTokens),
		attribute.Float64("temperature", opts.Temperature),
	)

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	messages := []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}

	backoff := retry.WithMaxRetries(uint64(c.config.MaxRetries), retry.NewExponential(c.config.BaseBackoff)) // #nosec G115 -- clamped in NewClient
	attempt := 0
	var text string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		resp, err := c.model.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			if !isRetryable(ctx, err) {
				return err
			}
			c.logger.Debug("completion failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return retry.RetryableError(ErrEmptyResponse)
		}
		text = resp.Choices[0].Content
		return nil
	})
	span.SetAttributes(attribute.Int("attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func isRetryable(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return ctx.Err() == nil
}
