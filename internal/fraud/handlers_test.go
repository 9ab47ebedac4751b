package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupHandlerTest(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestService(NewMemoryStore(), nil)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/v1"))
	return router, svc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestPredictSingle(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/v1/predict", map[string]any{
		"transaction_id": "tx_1",
		"amount":         120.50,
		"timestamp":      "2026-08-29T03:00:00Z",
		"user_id":        "user_1",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var a Assessment
	decodeJSON(t, w, &a)
	if a.TransactionID != "tx_1" {
		t.Errorf("transaction_id = %s", a.TransactionID)
	}
	if a.RiskScore < 0 || a.RiskScore > 100 {
		t.Errorf("risk_score = %f outside [0, 100]", a.RiskScore)
	}
	if LevelForScore(a.RiskScore) != a.RiskLevel {
		t.Errorf("risk_level %s inconsistent with score %f", a.RiskLevel, a.RiskScore)
	}
}

func TestPredictSingle_ValidationErrors(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/v1/predict", map[string]any{
		"amount":    -5.0,
		"timestamp": "nope",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp struct {
		Error  string           `json:"error"`
		Fields []map[string]any `json:"fields"`
	}
	decodeJSON(t, w, &resp)
	if resp.Error != "invalid_transaction" {
		t.Errorf("error = %s", resp.Error)
	}
	// Every bad field reported, not just the first.
	if len(resp.Fields) < 3 {
		t.Errorf("got %d field errors, want at least 3: %v", len(resp.Fields), resp.Fields)
	}
}

func TestPredictSingle_MalformedBody(t *testing.T) {
	router, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPredictBatch(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/v1/predict/batch", map[string]any{
		"transactions": []map[string]any{
			{"transaction_id": "tx_1", "amount": 10.0, "timestamp": "2026-08-29T03:00:00Z", "user_id": "u1"},
			{"transaction_id": "tx_2", "amount": 20.0, "timestamp": "2026-08-29T04:00:00Z", "user_id": "u2"},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var batch BatchResult
	decodeJSON(t, w, &batch)
	if batch.BatchID == "" {
		t.Error("batch_id missing")
	}
	if batch.TransactionCount != 2 {
		t.Errorf("transaction_count = %d", batch.TransactionCount)
	}
	if batch.Entries[0].TransactionID != "tx_1" || batch.Entries[1].TransactionID != "tx_2" {
		t.Error("entries out of input order")
	}
}

func TestPredictBatch_NullElement(t *testing.T) {
	router, _ := setupHandlerTest(t)

	// A JSON null in the transactions array binds to a nil pointer. It must
	// fail like any invalid transaction instead of crashing a worker.
	w := doJSON(t, router, http.MethodPost, "/v1/predict/batch", map[string]any{
		"transactions": []any{
			map[string]any{"transaction_id": "tx_1", "amount": 10.0, "timestamp": "2026-08-29T03:00:00Z", "user_id": "u1"},
			nil,
			map[string]any{"transaction_id": "tx_3", "amount": 30.0, "timestamp": "2026-08-29T05:00:00Z", "user_id": "u3"},
		},
		"policy": "continue",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var batch BatchResult
	decodeJSON(t, w, &batch)
	if batch.Entries[1].Error == "" {
		t.Error("null element entry has no error")
	}
	if batch.Entries[0].Assessment == nil || batch.Entries[2].Assessment == nil {
		t.Error("valid transactions were not assessed")
	}
}

func TestPredictBatch_NullElementFailFast(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/v1/predict/batch", map[string]any{
		"transactions": []any{
			map[string]any{"transaction_id": "tx_1", "amount": 10.0, "timestamp": "2026-08-29T03:00:00Z", "user_id": "u1"},
			nil,
		},
		"policy": "fail_fast",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", w.Code, w.Body.String())
	}
}

func TestPredictBatch_InvalidPolicy(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/v1/predict/batch", map[string]any{
		"transactions": []map[string]any{
			{"transaction_id": "tx_1", "amount": 10.0, "timestamp": "2026-08-29T03:00:00Z", "user_id": "u1"},
		},
		"policy": "best_effort",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPredictBatch_FailFastAborted(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/v1/predict/batch", map[string]any{
		"transactions": []map[string]any{
			{"transaction_id": "tx_1", "amount": 10.0, "timestamp": "2026-08-29T03:00:00Z", "user_id": "u1"},
			{"transaction_id": "tx_2", "amount": 20.0, "timestamp": "garbage", "user_id": "u2"},
		},
		"policy": "fail_fast",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
		Index int    `json:"index"`
	}
	decodeJSON(t, w, &resp)
	if resp.Error != "batch_aborted" {
		t.Errorf("error = %s", resp.Error)
	}
	if resp.Index != 1 {
		t.Errorf("index = %d, want 1", resp.Index)
	}
}

func TestPredictBatch_ContinuePolicy(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/v1/predict/batch", map[string]any{
		"transactions": []map[string]any{
			{"transaction_id": "tx_1", "amount": 10.0, "timestamp": "2026-08-29T03:00:00Z", "user_id": "u1"},
			{"transaction_id": "tx_2", "amount": 20.0, "timestamp": "garbage", "user_id": "u2"},
		},
		"policy": "continue",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var batch BatchResult
	decodeJSON(t, w, &batch)
	if len(batch.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(batch.Entries))
	}
	if batch.Entries[1].Error == "" {
		t.Error("failed entry missing error marker")
	}
}

func TestGetBatchEndpoint(t *testing.T) {
	router, svc := setupHandlerTest(t)

	batch, err := svc.RunBatch(context.Background(), makeTxs(2), BatchOptions{})
	if err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/v1/batches/"+batch.BatchID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/v1/batches/batch_missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing batch status = %d, want 404", w.Code)
	}
}

func TestListBatchesEndpoint(t *testing.T) {
	router, svc := setupHandlerTest(t)

	for i := 0; i < 5; i++ {
		if _, err := svc.RunBatch(context.Background(), makeTxs(1), BatchOptions{}); err != nil {
			t.Fatalf("seed batch %d: %v", i, err)
		}
	}

	type listResponse struct {
		Batches    []*BatchResult `json:"batches"`
		NextCursor string         `json:"next_cursor"`
		HasMore    bool           `json:"has_more"`
	}

	w := doJSON(t, router, http.MethodGet, "/v1/batches?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var page listResponse
	decodeJSON(t, w, &page)
	if len(page.Batches) != 2 || !page.HasMore || page.NextCursor == "" {
		t.Fatalf("first page = %d batches, has_more %v", len(page.Batches), page.HasMore)
	}

	// Walk the remaining pages; every batch appears exactly once.
	seen := map[string]bool{}
	for _, b := range page.Batches {
		seen[b.BatchID] = true
	}
	for page.HasMore {
		w = doJSON(t, router, http.MethodGet, "/v1/batches?limit=2&cursor="+page.NextCursor, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		page = listResponse{}
		decodeJSON(t, w, &page)
		for _, b := range page.Batches {
			if seen[b.BatchID] {
				t.Fatalf("batch %s returned twice", b.BatchID)
			}
			seen[b.BatchID] = true
		}
	}
	if len(seen) != 5 {
		t.Errorf("paged through %d batches, want 5", len(seen))
	}
}

func TestListBatchesEndpoint_Validation(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodGet, "/v1/batches?limit=0", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/v1/batches?limit=500", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("limit=500 status = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/v1/batches?cursor=%21%21not-a-cursor", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad cursor status = %d, want 400", w.Code)
	}

	// Empty store returns an empty page, not null.
	w = doJSON(t, router, http.MethodGet, "/v1/batches", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var page struct {
		Batches []*BatchResult `json:"batches"`
		HasMore bool           `json:"has_more"`
	}
	decodeJSON(t, w, &page)
	if page.Batches == nil || len(page.Batches) != 0 || page.HasMore {
		t.Errorf("empty page = %+v", page)
	}
}

func TestGetAssessmentEndpoint(t *testing.T) {
	router, _ := setupHandlerTest(t)

	doJSON(t, router, http.MethodPost, "/v1/predict", map[string]any{
		"transaction_id": "tx_1",
		"amount":         10.0,
		"timestamp":      "2026-08-29T03:00:00Z",
		"user_id":        "u1",
	})

	w := doJSON(t, router, http.MethodGet, "/v1/assessments/tx_1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/v1/assessments/tx_unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing assessment status = %d, want 404", w.Code)
	}
}

func TestModelEndpoints(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodGet, "/v1/model/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	var m ModelMetrics
	decodeJSON(t, w, &m)
	if m.Accuracy != DefaultMetrics().Accuracy {
		t.Errorf("fresh accuracy = %f", m.Accuracy)
	}

	w = doJSON(t, router, http.MethodPost, "/v1/model/retrain", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("retrain status = %d", w.Code)
	}
	var resp struct {
		Status     string       `json:"status"`
		NewMetrics ModelMetrics `json:"new_metrics"`
	}
	decodeJSON(t, w, &resp)
	if resp.Status != "success" {
		t.Errorf("status = %s", resp.Status)
	}
	if resp.NewMetrics.Accuracy > MaxMetricValue {
		t.Errorf("retrained accuracy %f exceeds ceiling", resp.NewMetrics.Accuracy)
	}
}

func TestAnalyticsSummaryEndpoint(t *testing.T) {
	router, _ := setupHandlerTest(t)

	doJSON(t, router, http.MethodPost, "/v1/predict/batch", map[string]any{
		"transactions": []map[string]any{
			{"transaction_id": "tx_1", "amount": 10.0, "timestamp": "2026-08-29T03:00:00Z", "user_id": "u1"},
		},
	})

	w := doJSON(t, router, http.MethodGet, "/v1/analytics/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var s Summary
	decodeJSON(t, w, &s)
	if s.TotalTransactions != 1 || s.BatchCount != 1 {
		t.Errorf("summary = %+v", s)
	}
}
