// Package fraudlens is the Go client SDK for the FraudLens scoring API.
// It mirrors the wire types served under /v1 so integrators do not need to
// depend on server internals.
package fraudlens

import (
	"fmt"
	"time"
)

// RiskLevel is the discrete tier a risk score falls into.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Batch failure policies accepted by PredictBatch.
const (
	PolicyFailFast = "fail_fast"
	PolicyContinue = "continue"
)

// Transaction is a single transaction submitted for scoring.
type Transaction struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Timestamp     string  `json:"timestamp"` // RFC 3339
	UserID        string  `json:"user_id"`
	MerchantID    string  `json:"merchant_id,omitempty"`
	Location      string  `json:"location,omitempty"`
	DeviceID      string  `json:"device_id,omitempty"`
	IPAddress     string  `json:"ip_address,omitempty"`
}

// FeatureAttribution is one ranked entry of an assessment explanation.
type FeatureAttribution struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Value      float64 `json:"value"`
}

// Explanation is the feature-attribution breakdown for an assessment,
// ordered descending by importance.
type Explanation struct {
	TopFeatures []FeatureAttribution `json:"top_features"`
	Reasoning   string               `json:"reasoning"`
}

// Assessment is the scoring result for one transaction.
type Assessment struct {
	TransactionID    string             `json:"transaction_id"`
	UserID           string             `json:"user_id,omitempty"`
	FraudProbability float64            `json:"fraud_probability"`
	RiskScore        float64            `json:"risk_score"`
	RiskLevel        RiskLevel          `json:"risk_level"`
	Features         map[string]float64 `json:"features"`
	Explanation      Explanation        `json:"explanation"`
}

// BatchEntry is one slot of a batch result. Error is set instead of
// Assessment when the entry failed under the continue policy.
type BatchEntry struct {
	TransactionID string      `json:"transaction_id"`
	Assessment    *Assessment `json:"assessment,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// BatchResult is the outcome of a batch run, entries in input order.
type BatchResult struct {
	BatchID               string       `json:"batch_id"`
	Entries               []BatchEntry `json:"entries"`
	ProcessingTimeSeconds float64      `json:"processing_time_seconds"`
	CreatedAt             time.Time    `json:"created_at"`
	TransactionCount      int          `json:"transaction_count"`
	Partial               bool         `json:"partial,omitempty"`
}

// ConfusionMatrix holds binary classification outcome counts.
type ConfusionMatrix struct {
	TrueNegatives  int64 `json:"true_negatives"`
	FalsePositives int64 `json:"false_positives"`
	FalseNegatives int64 `json:"false_negatives"`
	TruePositives  int64 `json:"true_positives"`
}

// ModelMetrics is the current model quality record.
type ModelMetrics struct {
	Accuracy        float64         `json:"accuracy"`
	Precision       float64         `json:"precision"`
	Recall          float64         `json:"recall"`
	F1Score         float64         `json:"f1_score"`
	AUCROC          float64         `json:"auc_roc"`
	ConfusionMatrix ConfusionMatrix `json:"confusion_matrix"`
}

// RetrainResult is returned by Retrain.
type RetrainResult struct {
	Status     string       `json:"status"`
	Message    string       `json:"message"`
	NewMetrics ModelMetrics `json:"new_metrics"`
}

// Summary aggregates scoring activity across stored batches.
type Summary struct {
	TotalTransactions int               `json:"total_transactions"`
	FlaggedHighRisk   int               `json:"flagged_high_risk"`
	FraudRate         float64           `json:"fraud_rate"`
	AverageRiskScore  float64           `json:"average_risk_score"`
	RiskLevels        map[RiskLevel]int `json:"risk_levels"`
	BatchCount        int               `json:"batch_count"`
	FailedEntries     int               `json:"failed_entries"`
	ModelAccuracy     float64           `json:"model_accuracy"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Kind       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Kind, e.StatusCode)
}

// BatchAborted reports a fail-fast batch rejected at the given entry index.
// It wraps the APIError returned by the server.
type BatchAborted struct {
	Index int
	API   *APIError
}

func (e *BatchAborted) Error() string {
	return fmt.Sprintf("batch aborted at index %d: %s", e.Index, e.API.Message)
}

func (e *BatchAborted) Unwrap() error { return e.API }
