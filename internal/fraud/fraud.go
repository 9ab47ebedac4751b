// Package fraud implements transaction risk scoring and batch orchestration.
//
// Every transaction is scored through a fixed pipeline: feature extraction,
// fraud-probability scoring, risk bucketing, and explanation. Probabilities
// range from 0.0 (safe) to 1.0 (fraudulent) and map to a 0-100 display score.
// Batch runs preserve input order and are retained in a Store under generated
// batch IDs for later retrieval.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RiskLevel buckets a risk score into a discrete tier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Risk score thresholds on the 0-100 scale. Scores below MediumThreshold are
// low, scores at or above HighThreshold are high, everything between is medium.
const (
	MediumThreshold = 30.0
	HighThreshold   = 70.0
)

// HighAmountThreshold is the amount above which the explanation reasoning
// selects the "high amount" branch.
const HighAmountThreshold = 5000.0

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrDuplicateBatch     = errors.New("batch already stored")
)

// PredictionError reports a failed pipeline step for a single transaction.
// The engine never retries or suppresses these; callers decide policy.
type PredictionError struct {
	TransactionID string
	Err           error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed for %s: %v", e.TransactionID, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// BatchAbortedError reports a fail-fast batch run stopped by the first
// per-transaction failure, identified by its input index.
type BatchAbortedError struct {
	Index int
	Err   error
}

func (e *BatchAbortedError) Error() string {
	return fmt.Sprintf("batch aborted at index %d: %v", e.Index, e.Err)
}

func (e *BatchAbortedError) Unwrap() error { return e.Err }

// Transaction is a validated transaction record handed in by callers.
// Never mutated by the engine.
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

// FeatureVector maps feature names to normalized values in [0, 1].
type FeatureVector map[string]float64

// FeatureAttribution is one entry of a ranked explanation.
type FeatureAttribution struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Value      float64 `json:"value"`
}

// Explanation is the ranked feature-attribution breakdown for an assessment.
// TopFeatures is ordered descending by importance; importances sum to ~1.0.
type Explanation struct {
	TopFeatures []FeatureAttribution `json:"top_features"`
	Reasoning   string               `json:"reasoning"`
}

// Assessment is the result of scoring a single transaction.
// RiskScore is always exactly FraudProbability * 100.
type Assessment struct {
	TransactionID    string        `json:"transaction_id"`
	UserID           string        `json:"user_id,omitempty"`
	FraudProbability float64       `json:"fraud_probability"`
	RiskScore        float64       `json:"risk_score"`
	RiskLevel        RiskLevel     `json:"risk_level"`
	Features         FeatureVector `json:"features"`
	Explanation      Explanation   `json:"explanation"`
}

// BatchEntry holds one slot of a batch result. Exactly one of Assessment or
// Error is set: Error carries the per-transaction failure marker when the
// batch ran under the continue-on-error policy.
type BatchEntry struct {
	TransactionID string      `json:"transaction_id"`
	Assessment    *Assessment `json:"assessment,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// BatchResult is the materialized outcome of one batch run. Entries are in
// input order regardless of execution order. TransactionCount always equals
// len(Entries).
type BatchResult struct {
	BatchID               string       `json:"batch_id"`
	Entries               []BatchEntry `json:"entries"`
	ProcessingTimeSeconds float64      `json:"processing_time_seconds"`
	CreatedAt             time.Time    `json:"created_at"`
	TransactionCount      int          `json:"transaction_count"`
	Partial               bool         `json:"partial,omitempty"` // run was cancelled before completion
}

// ConfusionMatrix holds binary classification outcome counts.
type ConfusionMatrix struct {
	TrueNegatives  int64 `json:"true_negatives"`
	FalsePositives int64 `json:"false_positives"`
	FalseNegatives int64 `json:"false_negatives"`
	TruePositives  int64 `json:"true_positives"`
}

// ModelMetrics is the process-wide model quality record. It is mutated only
// by retraining; reads always observe a complete snapshot.
type ModelMetrics struct {
	Accuracy        float64         `json:"accuracy"`
	Precision       float64         `json:"precision"`
	Recall          float64         `json:"recall"`
	F1Score         float64         `json:"f1_score"`
	AUCROC          float64         `json:"auc_roc"`
	ConfusionMatrix ConfusionMatrix `json:"confusion_matrix"`
}

// DefaultMetrics is the metrics record a fresh store starts with.
func DefaultMetrics() ModelMetrics {
	return ModelMetrics{
		Accuracy:  0.997,
		Precision: 0.985,
		Recall:    0.992,
		F1Score:   0.988,
		AUCROC:    0.995,
		ConfusionMatrix: ConfusionMatrix{
			TrueNegatives:  2845000,
			FalsePositives: 89,
			FalseNegatives: 12,
			TruePositives:  1235,
		},
	}
}

// LevelForScore maps a 0-100 risk score to its risk level. Total over the
// whole range; boundary scores land in the upper bucket (30 is medium,
// 70 is high).
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < MediumThreshold:
		return RiskLow
	case score < HighThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Store persists batch and per-transaction results plus the model metrics
// record. Implementations must support concurrent use from multiple in-flight
// batches.
type Store interface {
	SaveBatch(ctx context.Context, batch *BatchResult) error
	GetBatch(ctx context.Context, batchID string) (*BatchResult, error)
	ListBatches(ctx context.Context, limit int) ([]*BatchResult, error)

	// ListBatchesBefore returns up to limit batches strictly older than the
	// (before, beforeID) position, newest first with batch ID as tiebreak.
	// A zero before time starts from the newest batch.
	ListBatchesBefore(ctx context.Context, before time.Time, beforeID string, limit int) ([]*BatchResult, error)

	SaveAssessment(ctx context.Context, a *Assessment) error
	GetAssessment(ctx context.Context, transactionID string) (*Assessment, error)

	Metrics(ctx context.Context) (ModelMetrics, error)
	UpdateMetrics(ctx context.Context, m ModelMetrics) error
}
