package fraud

import (
	"context"
	"math"
	"time"
)

// Summary aggregates stored results into the analytics view. Unlike the
// metrics record, it is computed on demand from what the store actually
// holds, so an empty store reports zeros rather than canned numbers.
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

// summaryBatchLimit caps how many recent batches feed the summary.
const summaryBatchLimit = 1000

// Summarize computes the analytics summary over recent stored batches.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	batches, err := s.store.ListBatches(ctx, summaryBatchLimit)
	if err != nil {
		return nil, err
	}
	modelMetrics, err := s.store.Metrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RiskLevels:    map[RiskLevel]int{RiskLow: 0, RiskMedium: 0, RiskHigh: 0},
		BatchCount:    len(batches),
		ModelAccuracy: modelMetrics.Accuracy,
		GeneratedAt:   time.Now().UTC(),
	}

	var scoreSum float64
	for _, batch := range batches {
		for _, entry := range batch.Entries {
			if entry.Assessment == nil {
				if entry.Error != "" {
					summary.FailedEntries++
				}
				continue
			}
			summary.TotalTransactions++
			summary.RiskLevels[entry.Assessment.RiskLevel]++
			scoreSum += entry.Assessment.RiskScore
			if entry.Assessment.RiskLevel == RiskHigh {
				summary.FlaggedHighRisk++
			}
		}
	}

	if summary.TotalTransactions > 0 {
		summary.AverageRiskScore = math.Round(scoreSum/float64(summary.TotalTransactions)*100) / 100
		summary.FraudRate = math.Round(float64(summary.FlaggedHighRisk)/float64(summary.TotalTransactions)*10000) / 10000
	}

	return summary, nil
}
