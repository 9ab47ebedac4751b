package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config holds the configuration for connecting to the FraudLens API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	APIKey string // Optional API key
}

// FraudLensClient is a pure HTTP client for the FraudLens API.
type FraudLensClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewFraudLensClient creates a new client for the FraudLens API.
func NewFraudLensClient(cfg Config) *FraudLensClient {
	return &FraudLensClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *FraudLensClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// ScoreTransaction submits a single transaction for fraud scoring.
func (c *FraudLensClient) ScoreTransaction(ctx context.Context, tx map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/predict", nil, tx)
}

// ScoreBatch submits a batch of transactions for scoring.
func (c *FraudLensClient) ScoreBatch(ctx context.Context, txs []map[string]any, failurePolicy string) (json.RawMessage, error) {
	body := map[string]any{"transactions": txs}
	if failurePolicy != "" {
		body["policy"] = failurePolicy
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/predict/batch", nil, body)
}

// GetBatch fetches a stored batch result by ID.
func (c *FraudLensClient) GetBatch(ctx context.Context, batchID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/batches/"+batchID, nil, nil)
}

// GetAssessment fetches a stored assessment by transaction ID.
func (c *FraudLensClient) GetAssessment(ctx context.Context, transactionID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/assessments/"+transactionID, nil, nil)
}

// GetModelMetrics returns the current model's evaluation metrics.
func (c *FraudLensClient) GetModelMetrics(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/model/metrics", nil, nil)
}

// RetrainModel triggers a model retraining run.
func (c *FraudLensClient) RetrainModel(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/model/retrain", nil, nil)
}

// GetSummary returns aggregate fraud analytics over recent batches.
func (c *FraudLensClient) GetSummary(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/analytics/summary", nil, nil)
}
