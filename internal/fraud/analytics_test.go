package fraud

import (
	"context"
	"testing"
	"time"
)

func assessmentWithLevel(id string, score float64) *Assessment {
	return &Assessment{
		TransactionID:    id,
		FraudProbability: score / 100,
		RiskScore:        score,
		RiskLevel:        LevelForScore(score),
		Features:         FeatureVector{},
	}
}

func TestSummarize_EmptyStore(t *testing.T) {
	svc := newTestService(NewMemoryStore(), nil)

	s, err := svc.Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if s.TotalTransactions != 0 || s.BatchCount != 0 || s.FraudRate != 0 {
		t.Errorf("empty store summary = %+v, want zeros", s)
	}
	if s.ModelAccuracy != DefaultMetrics().Accuracy {
		t.Errorf("ModelAccuracy = %f, want default", s.ModelAccuracy)
	}
	// All three levels present even when empty.
	for _, level := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
		if _, ok := s.RiskLevels[level]; !ok {
			t.Errorf("level %s missing from empty summary", level)
		}
	}
}

func TestSummarize_AggregatesStoredBatches(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	b1 := &BatchResult{
		BatchID:   "batch_1",
		CreatedAt: time.Now(),
		Entries: []BatchEntry{
			{TransactionID: "tx_1", Assessment: assessmentWithLevel("tx_1", 10)},
			{TransactionID: "tx_2", Assessment: assessmentWithLevel("tx_2", 50)},
			{TransactionID: "tx_3", Assessment: assessmentWithLevel("tx_3", 90)},
		},
		TransactionCount: 3,
	}
	b2 := &BatchResult{
		BatchID:   "batch_2",
		CreatedAt: time.Now(),
		Entries: []BatchEntry{
			{TransactionID: "tx_4", Assessment: assessmentWithLevel("tx_4", 90)},
			{TransactionID: "tx_5", Error: "invalid timestamp"},
		},
		TransactionCount: 2,
	}
	for _, b := range []*BatchResult{b1, b2} {
		if err := store.SaveBatch(ctx, b); err != nil {
			t.Fatalf("SaveBatch failed: %v", err)
		}
	}

	s, err := svc.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if s.BatchCount != 2 {
		t.Errorf("BatchCount = %d, want 2", s.BatchCount)
	}
	if s.TotalTransactions != 4 {
		t.Errorf("TotalTransactions = %d, want 4 (failed entries excluded)", s.TotalTransactions)
	}
	if s.FailedEntries != 1 {
		t.Errorf("FailedEntries = %d, want 1", s.FailedEntries)
	}
	if s.FlaggedHighRisk != 2 {
		t.Errorf("FlaggedHighRisk = %d, want 2", s.FlaggedHighRisk)
	}
	if s.FraudRate != 0.5 {
		t.Errorf("FraudRate = %f, want 0.5", s.FraudRate)
	}
	if s.AverageRiskScore != 60.0 {
		t.Errorf("AverageRiskScore = %f, want 60", s.AverageRiskScore)
	}
	if s.RiskLevels[RiskLow] != 1 || s.RiskLevels[RiskMedium] != 1 || s.RiskLevels[RiskHigh] != 2 {
		t.Errorf("RiskLevels = %v", s.RiskLevels)
	}
}
