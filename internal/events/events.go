// Package events fans domain events out to the realtime hub and webhook
// dispatcher.
package events

import (
	"time"

	"github.com/fraudlens/fraudlens/internal/fraud"
	"github.com/fraudlens/fraudlens/internal/realtime"
	"github.com/fraudlens/fraudlens/internal/webhooks"
)

// Publisher bridges scoring results to subscribers. Either sink may be nil.
type Publisher struct {
	hub     *realtime.Hub
	emitter *webhooks.Emitter
}

// NewPublisher creates a publisher over the given sinks.
func NewPublisher(hub *realtime.Hub, emitter *webhooks.Emitter) *Publisher {
	return &Publisher{hub: hub, emitter: emitter}
}

// AssessmentCompleted publishes a scored transaction.
func (p *Publisher) AssessmentCompleted(a *fraud.Assessment) {
	if a == nil {
		return
	}
	if p.hub != nil {
		p.hub.BroadcastAssessment(map[string]interface{}{
			"transactionId": a.TransactionID,
			"userId":        a.UserID,
			"riskScore":     a.RiskScore,
			"riskLevel":     string(a.RiskLevel),
			"reasoning":     a.Explanation.Reasoning,
		})
	}
	if p.emitter != nil {
		p.emitter.EmitAssessmentCompleted(a.TransactionID, a.UserID, a.RiskScore, string(a.RiskLevel))
	}
}

// BatchCompleted publishes a finished batch run.
func (p *Publisher) BatchCompleted(b *fraud.BatchResult) {
	if b == nil {
		return
	}
	if p.hub != nil {
		p.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventBatchCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"batchId":               b.BatchID,
				"transactionCount":      b.TransactionCount,
				"partial":               b.Partial,
				"processingTimeSeconds": b.ProcessingTimeSeconds,
			},
		})
	}
	if p.emitter != nil {
		p.emitter.EmitBatchCompleted(b.BatchID, b.TransactionCount, b.Partial, b.ProcessingTimeSeconds)
	}
}

// ModelRetrained publishes updated model metrics.
func (p *Publisher) ModelRetrained(m fraud.ModelMetrics) {
	if p.hub != nil {
		p.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventModelRetrained,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"accuracy":  m.Accuracy,
				"precision": m.Precision,
				"recall":    m.Recall,
				"f1Score":   m.F1Score,
			},
		})
	}
	if p.emitter != nil {
		p.emitter.EmitModelRetrained(m.Accuracy, m.Precision, m.Recall, m.F1Score)
	}
}
