package fraudlens

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Predict(t *testing.T) {
	var gotPath, gotAuth string
	var gotTx Transaction
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotTx); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(&Assessment{
			TransactionID:    gotTx.TransactionID,
			FraudProbability: 0.82,
			RiskScore:        82,
			RiskLevel:        RiskHigh,
			Explanation:      Explanation{Reasoning: "Transaction flagged due to high amount"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAPIKey("sk_test"))
	a, err := client.Predict(context.Background(), &Transaction{
		TransactionID: "tx_1",
		Amount:        9500,
		Timestamp:     "2026-08-29T03:00:00Z",
		UserID:        "user_1",
	})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if gotPath != "POST /v1/predict" {
		t.Errorf("request = %s", gotPath)
	}
	if gotAuth != "Bearer sk_test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotTx.Amount != 9500 {
		t.Errorf("sent amount = %v", gotTx.Amount)
	}
	if a.RiskScore != 82 || a.RiskLevel != RiskHigh {
		t.Errorf("assessment = %+v", a)
	}
}

func TestClient_NoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(&ModelMetrics{Accuracy: 0.997})
	}))
	defer server.Close()

	if _, err := NewClient(server.URL).ModelMetrics(context.Background()); err != nil {
		t.Fatalf("ModelMetrics failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("auth header = %q, want empty", gotAuth)
	}
}

func TestClient_PredictBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Policy != PolicyContinue {
			t.Errorf("policy = %q", req.Policy)
		}
		entries := make([]BatchEntry, len(req.Transactions))
		for i, tx := range req.Transactions {
			entries[i] = BatchEntry{
				TransactionID: tx.TransactionID,
				Assessment:    &Assessment{TransactionID: tx.TransactionID, RiskLevel: RiskLow},
			}
		}
		_ = json.NewEncoder(w).Encode(&BatchResult{
			BatchID:          "batch_1",
			Entries:          entries,
			TransactionCount: len(entries),
		})
	}))
	defer server.Close()

	batch, err := NewClient(server.URL).PredictBatch(context.Background(), &BatchRequest{
		Transactions: []*Transaction{
			{TransactionID: "tx_1", Amount: 10, Timestamp: "2026-08-29T03:00:00Z", UserID: "u1"},
			{TransactionID: "tx_2", Amount: 20, Timestamp: "2026-08-29T04:00:00Z", UserID: "u2"},
		},
		Policy: PolicyContinue,
	})
	if err != nil {
		t.Fatalf("PredictBatch failed: %v", err)
	}
	if batch.BatchID != "batch_1" || batch.TransactionCount != 2 {
		t.Errorf("batch = %+v", batch)
	}
	if batch.Entries[1].TransactionID != "tx_2" {
		t.Errorf("entries out of order: %+v", batch.Entries)
	}
}

func TestClient_BatchAborted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "batch_aborted",
			"message": "batch aborted at index 3: prediction failed for tx_3: invalid transaction",
			"index":   3,
		})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).PredictBatch(context.Background(), &BatchRequest{
		Transactions: []*Transaction{{TransactionID: "tx_1"}},
		Policy:       PolicyFailFast,
	})

	var aborted *BatchAborted
	if !errors.As(err, &aborted) {
		t.Fatalf("error = %v, want *BatchAborted", err)
	}
	if aborted.Index != 3 {
		t.Errorf("index = %d, want 3", aborted.Index)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("wrapped API error = %v", apiErr)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "not_found",
			"message": "Batch not found",
		})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GetBatch(context.Background(), "batch_missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 404 || apiErr.Kind != "not_found" {
		t.Errorf("api error = %+v", apiErr)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Summary(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Kind != "unknown" {
		t.Errorf("api error = %+v", apiErr)
	}
}

func TestClient_ListBatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/batches" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("limit = %q", got)
		}
		if got := r.URL.Query().Get("cursor"); got != "abc123" {
			t.Errorf("cursor = %q", got)
		}
		_ = json.NewEncoder(w).Encode(&BatchPage{
			Batches:    []*BatchResult{{BatchID: "batch_2"}, {BatchID: "batch_1"}},
			NextCursor: "def456",
			HasMore:    true,
		})
	}))
	defer server.Close()

	page, err := NewClient(server.URL).ListBatches(context.Background(), 2, "abc123")
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(page.Batches) != 2 || !page.HasMore || page.NextCursor != "def456" {
		t.Errorf("page = %+v", page)
	}
}

func TestClient_Retrain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/model/retrain" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(&RetrainResult{
			Status:     "success",
			Message:    "Model retraining completed",
			NewMetrics: ModelMetrics{Accuracy: 0.998},
		})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).Retrain(context.Background())
	if err != nil {
		t.Fatalf("Retrain failed: %v", err)
	}
	if result.Status != "success" || result.NewMetrics.Accuracy != 0.998 {
		t.Errorf("result = %+v", result)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&Summary{})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewClient(server.URL).Summary(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
