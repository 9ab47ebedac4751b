package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *FraudLensClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *FraudLensClient) *Handlers {
	return &Handlers{client: client}
}

// HandleScoreTransaction scores a single transaction.
func (h *Handlers) HandleScoreTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tx := map[string]any{
		"transaction_id": req.GetString("transaction_id", ""),
		"amount":         req.GetFloat("amount", 0),
		"timestamp":      req.GetString("timestamp", ""),
		"user_id":        req.GetString("user_id", ""),
	}
	for _, k := range []string{"merchant_id", "location", "device_id", "ip_address"} {
		if v := req.GetString(k, ""); v != "" {
			tx[k] = v
		}
	}
	if tx["transaction_id"] == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}

	raw, err := h.client.ScoreTransaction(ctx, tx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scoring failed: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessment: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleScoreBatch scores a list of transactions as one batch.
func (h *Handlers) HandleScoreBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawTxs := req.GetString("transactions_json", "")
	if rawTxs == "" {
		return mcp.NewToolResultError("transactions_json is required"), nil
	}

	var txs []map[string]any
	if err := json.Unmarshal([]byte(rawTxs), &txs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("transactions_json must be a JSON array of transaction objects: %v", err)), nil
	}
	if len(txs) == 0 {
		return mcp.NewToolResultError("transactions_json must contain at least one transaction"), nil
	}

	policy := req.GetString("policy", "")
	switch policy {
	case "", "fail_fast", "continue":
	default:
		return mcp.NewToolResultError("policy must be 'fail_fast' or 'continue'"), nil
	}

	raw, err := h.client.ScoreBatch(ctx, txs, policy)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Batch scoring failed: %v", err)), nil
	}

	text, err := formatBatch(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse batch: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetAssessment looks up a stored assessment.
func (h *Handlers) HandleGetAssessment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transactionID := req.GetString("transaction_id", "")
	if transactionID == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}

	raw, err := h.client.GetAssessment(ctx, transactionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get assessment: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessment: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetBatch fetches a stored batch result.
func (h *Handlers) HandleGetBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	batchID := req.GetString("batch_id", "")
	if batchID == "" {
		return mcp.NewToolResultError("batch_id is required"), nil
	}

	raw, err := h.client.GetBatch(ctx, batchID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get batch: %v", err)), nil
	}

	text, err := formatBatch(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse batch: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetModelMetrics returns the current model metrics.
func (h *Handlers) HandleGetModelMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetModelMetrics(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get model metrics: %v", err)), nil
	}

	text, err := formatMetrics(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse metrics: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleRetrainModel triggers a retraining run.
func (h *Handlers) HandleRetrainModel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.RetrainModel(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Retraining failed: %v", err)), nil
	}

	var resp struct {
		Message    string          `json:"message"`
		NewMetrics json.RawMessage `json:"new_metrics"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultText(formatJSON(raw)), nil
	}

	var sb strings.Builder
	sb.WriteString(resp.Message + "\n\n")
	if text, err := formatMetrics(resp.NewMetrics); err == nil {
		sb.WriteString(text)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleGetFraudSummary returns aggregate fraud analytics.
func (h *Handlers) HandleGetFraudSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetSummary(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get summary: %v", err)), nil
	}

	text, err := formatSummary(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse summary: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

type assessmentInfo struct {
	TransactionID    string  `json:"transaction_id"`
	UserID           string  `json:"user_id"`
	FraudProbability float64 `json:"fraud_probability"`
	RiskScore        float64 `json:"risk_score"`
	RiskLevel        string  `json:"risk_level"`
	Explanation      struct {
		TopFeatures []struct {
			Feature    string  `json:"feature"`
			Importance float64 `json:"importance"`
			Value      float64 `json:"value"`
		} `json:"top_features"`
		Reasoning string `json:"reasoning"`
	} `json:"explanation"`
}

func formatAssessment(raw json.RawMessage) (string, error) {
	var a assessmentInfo
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction: %s\n", a.TransactionID)
	if a.UserID != "" {
		fmt.Fprintf(&sb, "User: %s\n", a.UserID)
	}
	fmt.Fprintf(&sb, "Risk score: %.1f / 100 (%s)\n", a.RiskScore, a.RiskLevel)
	fmt.Fprintf(&sb, "Fraud probability: %.1f%%\n", a.FraudProbability*100)

	if len(a.Explanation.TopFeatures) > 0 {
		sb.WriteString("\nTop features (importance | value):\n")
		for _, f := range a.Explanation.TopFeatures {
			fmt.Fprintf(&sb, "  %s: %.4f | %.3f\n", f.Feature, f.Importance, f.Value)
		}
	}
	if a.Explanation.Reasoning != "" {
		fmt.Fprintf(&sb, "\nReasoning: %s\n", a.Explanation.Reasoning)
	}
	return sb.String(), nil
}

func formatBatch(raw json.RawMessage) (string, error) {
	var b struct {
		BatchID               string  `json:"batch_id"`
		ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
		TransactionCount      int     `json:"transaction_count"`
		Partial               bool    `json:"partial"`
		Entries               []struct {
			TransactionID string          `json:"transaction_id"`
			Assessment    json.RawMessage `json:"assessment"`
			Error         string          `json:"error"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch: %s\n", b.BatchID)
	fmt.Fprintf(&sb, "Transactions: %d | Processing time: %.2fs\n", b.TransactionCount, b.ProcessingTimeSeconds)
	if b.Partial {
		sb.WriteString("Status: PARTIAL (run was cancelled before completion)\n")
	}

	levels := map[string]int{}
	failed := 0
	for _, e := range b.Entries {
		if e.Error != "" {
			failed++
			continue
		}
		var a struct {
			RiskLevel string `json:"risk_level"`
		}
		if json.Unmarshal(e.Assessment, &a) == nil {
			levels[a.RiskLevel]++
		}
	}

	sb.WriteString("\nRisk levels:\n")
	keys := make([]string, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %d\n", k, levels[k])
	}
	if failed > 0 {
		fmt.Fprintf(&sb, "  failed: %d\n", failed)
	}
	return sb.String(), nil
}

func formatMetrics(raw json.RawMessage) (string, error) {
	var m struct {
		Accuracy        float64 `json:"accuracy"`
		Precision       float64 `json:"precision"`
		Recall          float64 `json:"recall"`
		F1Score         float64 `json:"f1_score"`
		AUCROC          float64 `json:"auc_roc"`
		ConfusionMatrix struct {
			TrueNegatives  int64 `json:"true_negatives"`
			FalsePositives int64 `json:"false_positives"`
			FalseNegatives int64 `json:"false_negatives"`
			TruePositives  int64 `json:"true_positives"`
		} `json:"confusion_matrix"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Model metrics:\n")
	fmt.Fprintf(&sb, "  Accuracy:  %.4f\n", m.Accuracy)
	fmt.Fprintf(&sb, "  Precision: %.4f\n", m.Precision)
	fmt.Fprintf(&sb, "  Recall:    %.4f\n", m.Recall)
	fmt.Fprintf(&sb, "  F1 score:  %.4f\n", m.F1Score)
	fmt.Fprintf(&sb, "  AUC-ROC:   %.4f\n", m.AUCROC)
	sb.WriteString("\nConfusion matrix:\n")
	fmt.Fprintf(&sb, "  TN: %d | FP: %d\n", m.ConfusionMatrix.TrueNegatives, m.ConfusionMatrix.FalsePositives)
	fmt.Fprintf(&sb, "  FN: %d | TP: %d\n", m.ConfusionMatrix.FalseNegatives, m.ConfusionMatrix.TruePositives)
	return sb.String(), nil
}

func formatSummary(raw json.RawMessage) (string, error) {
	var s struct {
		TotalTransactions int            `json:"total_transactions"`
		FlaggedHighRisk   int            `json:"flagged_high_risk"`
		FraudRate         float64        `json:"fraud_rate"`
		AverageRiskScore  float64        `json:"average_risk_score"`
		RiskLevels        map[string]int `json:"risk_levels"`
		BatchCount        int            `json:"batch_count"`
		FailedEntries     int            `json:"failed_entries"`
		ModelAccuracy     float64        `json:"model_accuracy"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Fraud summary:\n")
	fmt.Fprintf(&sb, "  Transactions scored: %d (across %d batches)\n", s.TotalTransactions, s.BatchCount)
	fmt.Fprintf(&sb, "  Flagged high risk:   %d\n", s.FlaggedHighRisk)
	fmt.Fprintf(&sb, "  Fraud rate:          %.2f%%\n", s.FraudRate*100)
	fmt.Fprintf(&sb, "  Average risk score:  %.1f\n", s.AverageRiskScore)
	fmt.Fprintf(&sb, "  Model accuracy:      %.4f\n", s.ModelAccuracy)
	if s.FailedEntries > 0 {
		fmt.Fprintf(&sb, "  Failed entries:      %d\n", s.FailedEntries)
	}
	if len(s.RiskLevels) > 0 {
		sb.WriteString("\nRisk levels:\n")
		keys := make([]string, 0, len(s.RiskLevels))
		for k := range s.RiskLevels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %d\n", k, s.RiskLevels[k])
		}
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}
