// Package classifier asks a language model whether a token is a utility project or a meme.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
)

// Defaults match the compact batch prompt and the detailed single-token prompt.
const (
	DefaultModel              = "claude-3-5-haiku-20241022"
	DefaultMaxTokens          = 256
	DefaultDetailedModel      = "claude-sonnet-4-20250514"
	DefaultDetailedMaxTokens  = 1024
	DefaultMaxConcurrentCalls = 20
	DefaultMaxRetries         = 0
)

// Oracle call outcomes, as reported to metrics.
const (
	outcomeOK           = "ok"
	outcomeMalformed    = "malformed"
	outcomeUnauthorized = "unauthorized"
	outcomeRateLimited  = "rate_limited"
	outcomeError        = "error"
)

var (
	// ErrUnauthorized is returned when the oracle rejects the API key.
	ErrUnauthorized = errors.New("oracle rejected API key")

	// ErrRateLimited is matched by *RateLimitError.
	ErrRateLimited = errors.New("oracle rate limited")
)

// RateLimitError is returned when the oracle answers 429.
// RetryAfter is zero when the response carried no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("oracle rate limited, retry after %s", e.RetryAfter)
	}
	return "oracle rate limited"
}

// Is lets errors.Is match ErrRateLimited and domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited || target == domain.ErrRateLimited
}

// Oracle classifies a single token.
// Analyze returns ErrMalformedResponse, together with the unknown result,
// when the oracle answered with unusable text.
type Oracle interface {
	Analyze(ctx context.Context, t *domain.Token) (domain.ClassificationResult, error)
}

// DetailedOracle additionally produces red flags and a utility score.
type DetailedOracle interface {
	AnalyzeDetailed(ctx context.Context, t *domain.Token) (domain.ClassificationResult, error)
}

// Client calls the Anthropic Messages API.
type Client struct {
	client            *anthropic.Client
	model             string
	maxTokens         int
	detailedModel     string
	detailedMaxTokens int
	sem               *semaphore.Weighted
	log               logrus.FieldLogger
}

var (
	_ Oracle         = (*Client)(nil)
	_ DetailedOracle = (*Client)(nil)
)

// Options for creating Client.
type Options struct {
	APIKey             string
	BaseURL            string // optional API endpoint override
	Model              string
	MaxTokens          int
	DetailedModel      string
	DetailedMaxTokens  int
	MaxConcurrentCalls int // caps in-flight calls; <= 0 uses DefaultMaxConcurrentCalls
	MaxRetries         int // SDK-level retries
	Logger             logrus.FieldLogger
}

// New creates a new Client.
func New(opts Options) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(reqOpts...)
	c := &Client{
		client:            &client,
		model:             opts.Model,
		maxTokens:         opts.MaxTokens,
		detailedModel:     opts.DetailedModel,
		detailedMaxTokens: opts.DetailedMaxTokens,
		log:               observability.OrNop(opts.Logger),
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.detailedModel == "" {
		c.detailedModel = DefaultDetailedModel
	}
	if c.detailedMaxTokens <= 0 {
		c.detailedMaxTokens = DefaultDetailedMaxTokens
	}
	limit := opts.MaxConcurrentCalls
	if limit <= 0 {
		limit = DefaultMaxConcurrentCalls
	}
	c.sem = semaphore.NewWeighted(int64(limit))
	return c
}

// Analyze classifies t with the compact prompt.
func (c *Client) Analyze(ctx context.Context, t *domain.Token) (domain.ClassificationResult, error) {
	return c.analyze(ctx, t, quickPrompt, c.model, c.maxTokens)
}

// AnalyzeDetailed classifies t with the detailed prompt.
func (c *Client) AnalyzeDetailed(ctx context.Context, t *domain.Token) (domain.ClassificationResult, error) {
	return c.analyze(ctx, t, detailedPrompt, c.detailedModel, c.detailedMaxTokens)
}

// Classify is Analyze that never fails. See Degrade.
func (c *Client) Classify(ctx context.Context, t *domain.Token) domain.ClassificationResult {
	return Classify(ctx, c, t)
}

// Classify runs o and folds any failure into the result. See Degrade.
func Classify(ctx context.Context, o Oracle, t *domain.Token) domain.ClassificationResult {
	return Degrade(o.Analyze(ctx, t))
}

// Degrade converts an oracle failure into a result:
// a malformed answer becomes unknown, any other error becomes error, both with confidence 0.
func Degrade(result domain.ClassificationResult, err error) domain.ClassificationResult {
	switch {
	case err == nil:
		return result
	case errors.Is(err, ErrMalformedResponse):
		return unknownResult()
	default:
		return domain.ClassificationResult{
			Classification: domain.ClassificationError,
			Confidence:     0,
			Reasoning:      "Analysis failed: " + err.Error(),
		}
	}
}

func (c *Client) analyze(ctx context.Context, t *domain.Token, template, model string, maxTokens int) (domain.ClassificationResult, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("acquire oracle slot: %w", err)
	}
	defer c.sem.Release(1)

	prompt := fmt.Sprintf(template, BuildContext(t))

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		err = classifyAPIError(err)
		observability.RecordOracleCall(outcomeFor(err), elapsed)
		c.log.WithField("ca", t.CA).WithError(err).Warn("oracle call failed")
		return domain.ClassificationResult{}, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result, err := ParseResponse(text.String())
	if err != nil {
		observability.RecordOracleCall(outcomeMalformed, elapsed)
		c.log.WithField("ca", t.CA).Warn("oracle response not parseable")
		return result, err
	}
	observability.RecordOracleCall(outcomeOK, elapsed)
	return result, nil
}

// classifyAPIError maps SDK errors onto the package's error kinds.
func classifyAPIError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("oracle request: %w", err)
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case http.StatusTooManyRequests:
		var retryAfter time.Duration
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now())
		}
		return &RateLimitError{RetryAfter: retryAfter}
	default:
		return fmt.Errorf("oracle status %d: %w", apiErr.StatusCode, err)
	}
}

// parseRetryAfter reads delay-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := when.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return outcomeUnauthorized
	case errors.Is(err, ErrRateLimited):
		return outcomeRateLimited
	default:
		return outcomeError
	}
}
