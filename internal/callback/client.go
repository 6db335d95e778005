// Package callback delivers processing results to the web application.
package callback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/notionflow-ai/internal/metrics"
	"github.com/thebtf/notionflow-ai/pkg/models"
)

const (
	// DefaultTimeout bounds one callback request.
	DefaultTimeout = 30 * time.Second
	// maxAttempts is the first attempt plus one immediate retry.
	maxAttempts = 2
)

// ErrDeliveryFailed is returned when a payload could not be delivered.
var ErrDeliveryFailed = errors.New("callback delivery failed")

// Client posts JSON payloads to the web application.
type Client struct {
	http    *http.Client
	metrics *metrics.Recorder
}

// New creates a callback client. A nil recorder disables metrics.
func New(timeout time.Duration, rec *metrics.Recorder) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rec == nil {
		rec = metrics.Noop()
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		metrics: rec,
	}
}

// retryableError marks failures that are worth one more attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// PostJSON posts payload to target. Transport failures and 5xx responses are
// retried once without delay; after that the payload is logged and dropped.
func (c *Client) PostJSON(ctx context.Context, target string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = c.post(ctx, target, body)
		if lastErr == nil {
			c.metrics.Delivery(ctx, metrics.OutcomeDelivered)
			return nil
		}

		var retryable retryableError
		if attempt < maxAttempts && errors.As(lastErr, &retryable) {
			c.metrics.Delivery(ctx, metrics.OutcomeRetried)
			log.Warn().Err(lastErr).Str("url", target).Int("attempt", attempt).Msg("Callback failed, retrying")
			continue
		}
		break
	}

	c.metrics.Delivery(ctx, metrics.OutcomeDropped)
	log.Error().Err(lastErr).Str("url", target).Msg("Callback dropped")
	return fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, target, lastErr)
}

func (c *Client) post(ctx context.Context, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return retryableError{err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return retryableError{fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 300:
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// SendAIResult posts the result of processing one page.
func (c *Client) SendAIResult(ctx context.Context, target string, result *models.ProcessingResult) error {
	return c.PostJSON(ctx, target, result)
}

// SendClusterResults posts a cluster partition.
func (c *Client) SendClusterResults(ctx context.Context, target string, result models.ClusterResult) error {
	return c.PostJSON(ctx, target, result)
}

// SendReport posts a generated report.
func (c *Client) SendReport(ctx context.Context, target string, report *models.Report) error {
	return c.PostJSON(ctx, target, report)
}

// SendProjectAnalysis posts the progress analysis of a project.
func (c *Client) SendProjectAnalysis(ctx context.Context, target string, analysis *models.ProjectAnalysis) error {
	return c.PostJSON(ctx, target, analysis)
}

type changesResponse struct {
	Changes []models.ChangeItem `json:"changes"`
}

// FetchChanges asks the web application for the page changes in a period.
func (c *Client) FetchChanges(ctx context.Context, baseURL, periodStart, periodEnd string) ([]models.ChangeItem, error) {
	q := url.Values{}
	q.Set("period_start", periodStart)
	q.Set("period_end", periodEnd)
	target := strings.TrimRight(baseURL, "/") + "/ai/changes?" + q.Encode()

	var out changesResponse
	if err := c.fetch(ctx, http.MethodGet, target, &out); err != nil {
		return nil, fmt.Errorf("fetch changes: %w", err)
	}
	return out.Changes, nil
}

type embeddingsResponse struct {
	Embeddings []models.PageEmbedding `json:"embeddings"`
}

// TriggerRecluster asks the web application for every stored page embedding.
func (c *Client) TriggerRecluster(ctx context.Context, baseURL string) ([]models.PageEmbedding, error) {
	target := strings.TrimRight(baseURL, "/") + "/ai/trigger-recluster"

	var out embeddingsResponse
	if err := c.fetch(ctx, http.MethodPost, target, &out); err != nil {
		return nil, fmt.Errorf("trigger recluster: %w", err)
	}
	return out.Embeddings, nil
}

func (c *Client) fetch(ctx context.Context, method, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d", method, target, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// URL joins the web application base URL and path.
func URL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
