package fraud

import (
	"fmt"
	"math"
	"sort"
)

// Explainer produces the ranked feature-attribution breakdown for a scored
// transaction. The reference implementation uses a static weighting scheme;
// a real model can plug in attribution values computed from its internals
// without interface changes.
type Explainer interface {
	Explain(tx *Transaction, features FeatureVector) (Explanation, error)
}

// StaticWeights returns the fixed attribution weights of the reference
// explainer. They sum to 1.0.
func StaticWeights() map[string]float64 {
	return map[string]float64{
		FeatureAmount:       0.35,
		FeatureLocationRisk: 0.25,
		FeatureTimeOfDay:    0.20,
		FeatureDeviceTrust:  0.15,
		FeatureUserBehavior: 0.05,
	}
}

// StaticExplainer ranks features by a fixed policy weight per feature name.
type StaticExplainer struct {
	weights map[string]float64
}

// NewStaticExplainer creates the reference explainer. Nil weights use
// StaticWeights.
func NewStaticExplainer(weights map[string]float64) *StaticExplainer {
	if weights == nil {
		weights = StaticWeights()
	}
	return &StaticExplainer{weights: weights}
}

// Explain builds attributions for every feature in the vector, normalizes
// importances to sum to 1.0, and ranks them descending. Equal importances
// are ordered by feature name for determinism. The amount attribution
// reports the raw transaction amount as its value; all others report the
// normalized feature value.
func (e *StaticExplainer) Explain(tx *Transaction, features FeatureVector) (Explanation, error) {
	if len(features) == 0 {
		return Explanation{}, fmt.Errorf("explain %s: empty feature vector", tx.TransactionID)
	}

	var total float64
	for name := range features {
		total += e.weights[name]
	}

	attrs := make([]FeatureAttribution, 0, len(features))
	for name, value := range features {
		importance := e.weights[name]
		if total > 0 {
			importance = math.Round(importance/total*10000) / 10000
		}
		if name == FeatureAmount {
			value = tx.Amount
		}
		attrs = append(attrs, FeatureAttribution{
			Feature:    name,
			Importance: importance,
			Value:      value,
		})
	}

	sort.Slice(attrs, func(i, j int) bool {
		if attrs[i].Importance != attrs[j].Importance {
			return attrs[i].Importance > attrs[j].Importance
		}
		return attrs[i].Feature < attrs[j].Feature
	})

	return Explanation{
		TopFeatures: attrs,
		Reasoning:   reasoning(tx),
	}, nil
}

// reasoning selects the templated sentence: transactions above the fixed
// high-amount threshold get the amount branch, everything else the generic
// pattern branch.
func reasoning(tx *Transaction) string {
	if tx.Amount > HighAmountThreshold {
		return "Transaction flagged due to high amount"
	}
	return "Transaction flagged due to unusual pattern"
}
