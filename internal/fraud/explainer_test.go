package fraud

import (
	"math"
	"testing"
)

func TestStaticExplainer_RankedDescending(t *testing.T) {
	tx := validTx()
	fv, err := ExtractFeatures(tx)
	if err != nil {
		t.Fatalf("ExtractFeatures failed: %v", err)
	}

	exp, err := NewStaticExplainer(nil).Explain(tx, fv)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}

	if len(exp.TopFeatures) != len(fv) {
		t.Fatalf("expected %d attributions, got %d", len(fv), len(exp.TopFeatures))
	}
	for i := 1; i < len(exp.TopFeatures); i++ {
		if exp.TopFeatures[i].Importance > exp.TopFeatures[i-1].Importance {
			t.Errorf("attribution %d (%s) out of order", i, exp.TopFeatures[i].Feature)
		}
	}
	if exp.TopFeatures[0].Feature != FeatureAmount {
		t.Errorf("highest weighted feature = %s, want %s", exp.TopFeatures[0].Feature, FeatureAmount)
	}
}

func TestStaticExplainer_ImportancesNormalized(t *testing.T) {
	tx := validTx()
	fv, _ := ExtractFeatures(tx)

	exp, err := NewStaticExplainer(nil).Explain(tx, fv)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}

	var sum float64
	for _, a := range exp.TopFeatures {
		sum += a.Importance
	}
	if math.Abs(sum-1.0) > 0.01 {
		t.Errorf("importances sum to %f, want ~1.0", sum)
	}
}

func TestStaticExplainer_AmountReportsRawValue(t *testing.T) {
	tx := validTx()
	tx.Amount = 7500.0
	fv, _ := ExtractFeatures(tx)

	exp, err := NewStaticExplainer(nil).Explain(tx, fv)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}

	for _, a := range exp.TopFeatures {
		if a.Feature == FeatureAmount {
			if a.Value != 7500.0 {
				t.Errorf("amount attribution value = %f, want raw 7500", a.Value)
			}
			return
		}
	}
	t.Fatal("amount attribution missing")
}

func TestStaticExplainer_TieBreakByName(t *testing.T) {
	tx := validTx()
	fv, _ := ExtractFeatures(tx)

	// Equal weights force the name ordering to decide.
	weights := map[string]float64{}
	for _, name := range FeatureNames {
		weights[name] = 0.2
	}
	exp, err := NewStaticExplainer(weights).Explain(tx, fv)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}

	for i := 1; i < len(exp.TopFeatures); i++ {
		if exp.TopFeatures[i-1].Feature >= exp.TopFeatures[i].Feature {
			t.Errorf("tie not broken by name: %s before %s",
				exp.TopFeatures[i-1].Feature, exp.TopFeatures[i].Feature)
		}
	}
}

func TestStaticExplainer_ReasoningBranches(t *testing.T) {
	tx := validTx()
	fv, _ := ExtractFeatures(tx)
	explainer := NewStaticExplainer(nil)

	tx.Amount = HighAmountThreshold + 1
	exp, _ := explainer.Explain(tx, fv)
	if exp.Reasoning != "Transaction flagged due to high amount" {
		t.Errorf("high amount reasoning = %q", exp.Reasoning)
	}

	tx.Amount = HighAmountThreshold
	exp, _ = explainer.Explain(tx, fv)
	if exp.Reasoning != "Transaction flagged due to unusual pattern" {
		t.Errorf("threshold amount reasoning = %q", exp.Reasoning)
	}
}

func TestStaticExplainer_EmptyFeatures(t *testing.T) {
	_, err := NewStaticExplainer(nil).Explain(validTx(), FeatureVector{})
	if err == nil {
		t.Fatal("expected error for empty feature vector")
	}
}
