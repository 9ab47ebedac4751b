package fraudlens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a FraudLens server. The zero value is not usable; construct
// with NewClient. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends the key as a Bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the API at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Predict scores a single transaction.
func (c *Client) Predict(ctx context.Context, tx *Transaction) (*Assessment, error) {
	var a Assessment
	if err := c.do(ctx, http.MethodPost, "/v1/predict", tx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// BatchRequest is the payload for PredictBatch.
type BatchRequest struct {
	Transactions []*Transaction `json:"transactions"`
	Policy       string         `json:"policy,omitempty"`
	Workers      int            `json:"workers,omitempty"`
}

// PredictBatch scores transactions as one batch. Under PolicyFailFast a
// per-transaction failure surfaces as *BatchAborted.
func (c *Client) PredictBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	var batch BatchResult
	if err := c.do(ctx, http.MethodPost, "/v1/predict/batch", req, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// GetBatch fetches a stored batch result by ID.
func (c *Client) GetBatch(ctx context.Context, batchID string) (*BatchResult, error) {
	var batch BatchResult
	if err := c.do(ctx, http.MethodGet, "/v1/batches/"+url.PathEscape(batchID), nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// BatchPage is one page of ListBatches results.
type BatchPage struct {
	Batches    []*BatchResult `json:"batches"`
	NextCursor string         `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
}

// ListBatches pages through stored batches, newest first. Pass the previous
// page's NextCursor to continue; an empty cursor starts from the newest batch.
func (c *Client) ListBatches(ctx context.Context, limit int, cursor string) (*BatchPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := "/v1/batches"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page BatchPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAssessment fetches a stored assessment by transaction ID.
func (c *Client) GetAssessment(ctx context.Context, transactionID string) (*Assessment, error) {
	var a Assessment
	if err := c.do(ctx, http.MethodGet, "/v1/assessments/"+url.PathEscape(transactionID), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ModelMetrics fetches the current model quality record.
func (c *Client) ModelMetrics(ctx context.Context) (*ModelMetrics, error) {
	var m ModelMetrics
	if err := c.do(ctx, http.MethodGet, "/v1/model/metrics", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Retrain triggers a retraining cycle and returns the updated metrics.
func (c *Client) Retrain(ctx context.Context) (*RetrainResult, error) {
	var r RetrainResult
	if err := c.do(ctx, http.MethodPost, "/v1/model/retrain", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Summary fetches aggregate scoring analytics.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var s Summary
	if err := c.do(ctx, http.MethodGet, "/v1/analytics/summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Kind: "unknown"}

	var raw struct {
		Kind    string `json:"error"`
		Message string `json:"message"`
		Index   *int   `json:"index"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err == nil && raw.Kind != "" {
		apiErr.Kind = raw.Kind
		apiErr.Message = raw.Message
		if raw.Kind == "batch_aborted" && raw.Index != nil {
			return &BatchAborted{Index: *raw.Index, API: apiErr}
		}
	}
	return apiErr
}
