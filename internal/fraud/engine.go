package fraud

import (
	"fmt"
)

// Engine runs the scoring pipeline for one transaction: extract features,
// score, bucket, explain. Each invocation is self-contained, never observes
// another transaction's state, and is safe to run from any worker.
type Engine struct {
	scorer    Scorer
	explainer Explainer
}

// NewEngine creates a prediction engine. A nil scorer defaults to the
// clock-seeded placeholder; a nil explainer defaults to the static explainer.
func NewEngine(scorer Scorer, explainer Explainer) *Engine {
	if scorer == nil {
		scorer = NewPlaceholderScorer(timeSeed())
	}
	if explainer == nil {
		explainer = NewStaticExplainer(nil)
	}
	return &Engine{scorer: scorer, explainer: explainer}
}

// Predict scores a single transaction. Failures in any step come back as a
// *PredictionError carrying the transaction ID and cause; the engine never
// retries or suppresses them.
func (e *Engine) Predict(tx *Transaction) (*Assessment, error) {
	// A nil transaction can arrive from a JSON null in a batch array or an
	// uploaded file. It must fail like any other invalid transaction, not
	// panic a worker goroutine.
	if tx == nil {
		return nil, &PredictionError{Err: fmt.Errorf("%w: transaction is nil", ErrInvalidTransaction)}
	}

	features, err := ExtractFeatures(tx)
	if err != nil {
		return nil, &PredictionError{TransactionID: tx.TransactionID, Err: err}
	}

	prob := e.scorer.Score(features)
	if prob < 0 || prob > 1 {
		return nil, &PredictionError{
			TransactionID: tx.TransactionID,
			Err:           fmt.Errorf("scorer returned probability %f outside [0, 1]", prob),
		}
	}

	explanation, err := e.explainer.Explain(tx, features)
	if err != nil {
		return nil, &PredictionError{TransactionID: tx.TransactionID, Err: err}
	}

	score := prob * 100

	return &Assessment{
		TransactionID:    tx.TransactionID,
		UserID:           tx.UserID,
		FraudProbability: prob,
		RiskScore:        score,
		RiskLevel:        LevelForScore(score),
		Features:         features,
		Explanation:      explanation,
	}, nil
}
