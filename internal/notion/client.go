// Package notion is a small client for the Notion pages and blocks endpoints.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/favsync/internal/metrics"
)

const (
	opRetrievePage = "retrieve_page"
	opAppendBlocks = "append_blocks"
)

// Config controls the HTTP client.
type Config struct {
	BaseURL      string
	APIKey       string
	Version      string
	Timeout      time.Duration
	MaxRetries   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// Client wraps authenticated calls to the Notion API.
type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewClient builds a Client. rec may be nil.
func NewClient(cfg Config, logger *zap.Logger, rec *metrics.Recorder) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("notion: api key must be set")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("notion: base url must be set")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("notion: max retries must be >= 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		logger:  logger,
		metrics: rec,
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Notion-Version", cfg.Version).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetError(&APIError{}).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		SetRetryAfter(retryAfter).
		AddRetryCondition(shouldRetry).
		AddRetryHook(c.logRetry)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.OnAfterResponse(c.logResponse)
	c.http = client

	return c, nil
}

// RetrievePage fetches a page by ID.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	if strings.TrimSpace(pageID) == "" {
		return nil, fmt.Errorf("%s: %w", opRetrievePage, ErrEmptyID)
	}
	var page Page
	req := c.http.R().
		SetPathParam("page_id", pageID).
		SetResult(&page)
	if _, err := c.execute(ctx, opRetrievePage, req, http.MethodGet, "/v1/pages/{page_id}"); err != nil {
		return nil, err
	}
	return &page, nil
}

// AppendBlocks adds blocks, in order, as children of blockID. A page ID is a
// valid block ID. An empty list is still sent.
func (c *Client) AppendBlocks(ctx context.Context, blockID string, blocks []Block) (*AppendResult, error) {
	if strings.TrimSpace(blockID) == "" {
		return nil, fmt.Errorf("%s: %w", opAppendBlocks, ErrEmptyID)
	}
	if blocks == nil {
		blocks = []Block{}
	}
	var result AppendResult
	req := c.http.R().
		SetPathParam("block_id", blockID).
		SetBody(appendRequest{Children: blocks}).
		SetResult(&result)
	if _, err := c.execute(ctx, opAppendBlocks, req, http.MethodPatch, "/v1/blocks/{block_id}/children"); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) execute(
	ctx context.Context,
	op string,
	req *resty.Request,
	method, path string,
) (*resty.Response, error) {
	start := time.Now()
	resp, err := req.SetContext(ctx).Execute(method, path)
	code := 0
	if resp != nil {
		code = resp.StatusCode()
	}
	c.metrics.ObserveNotionRequest(op, code, time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: %w", op, toAPIError(resp))
	}
	return resp, nil
}

func toAPIError(resp *resty.Response) *APIError {
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	if apiErr.Status == 0 {
		apiErr.Status = resp.StatusCode()
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

func (c *Client) logResponse(_ *resty.Client, resp *resty.Response) error {
	c.logger.Debug("notion response",
		zap.String("method", resp.Request.Method),
		zap.String("url", resp.Request.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Int("attempt", resp.Request.Attempt),
		zap.Duration("duration", resp.Time()),
	)
	return nil
}

func (c *Client) logRetry(resp *resty.Response, err error) {
	fields := []zap.Field{zap.Error(err)}
	if resp != nil {
		fields = append(fields, zap.Int("status", resp.StatusCode()))
		if resp.Request != nil {
			fields = append(fields,
				zap.String("url", resp.Request.URL),
				zap.Int("attempt", resp.Request.Attempt),
			)
		}
	}
	c.logger.Warn("retrying notion request", fields...)
}

// shouldRetry retries transport failures, rate limiting, and server errors.
// A canceled caller context is never retried.
func shouldRetry(resp *resty.Response, err error) bool {
	if resp != nil && resp.Request != nil && resp.Request.Context().Err() != nil {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// retryAfter honours a Retry-After header in seconds. Zero defers to resty's
// jittered exponential backoff.
func retryAfter(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
	if resp == nil {
		return 0, nil
	}
	raw := resp.Header().Get("Retry-After")
	if raw == "" {
		return 0, nil
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || seconds <= 0 {
		return 0, nil
	}
	return time.Duration(seconds) * time.Second, nil
}
