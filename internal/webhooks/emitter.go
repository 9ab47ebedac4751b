package webhooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fraudlens/fraudlens/internal/idgen"
)

var (
	webhookEmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fraudlens",
		Subsystem: "webhook",
		Name:      "emit_total",
		Help:      "Total webhook emit attempts by event type.",
	}, []string{"event_type"})

	webhookEmitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fraudlens",
		Subsystem: "webhook",
		Name:      "emit_errors_total",
		Help:      "Total webhook emit failures by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(webhookEmitTotal, webhookEmitErrors)
}

// Emitter wraps a Dispatcher to emit lifecycle events across subsystems.
// All methods are fire-and-forget: errors are logged but never returned.
type Emitter struct {
	d      *Dispatcher
	logger *slog.Logger
}

// NewEmitter creates a new webhook emitter.
func NewEmitter(d *Dispatcher, logger *slog.Logger) *Emitter {
	return &Emitter{d: d, logger: logger}
}

func (e *Emitter) emit(eventType EventType, data map[string]interface{}) {
	if e == nil || e.d == nil {
		return
	}
	webhookEmitTotal.WithLabelValues(string(eventType)).Inc()
	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.d.Dispatch(ctx, event); err != nil {
		webhookEmitErrors.WithLabelValues(string(eventType)).Inc()
		e.logger.Warn("webhook emit failed", "event", eventType, "error", err)
	}
}

// EmitAssessmentCompleted emits an assessment.completed event, plus an
// assessment.high_risk event for transactions classified high.
func (e *Emitter) EmitAssessmentCompleted(transactionID, userID string, riskScore float64, riskLevel string) {
	data := map[string]interface{}{
		"transactionId": transactionID,
		"userId":        userID,
		"riskScore":     riskScore,
		"riskLevel":     riskLevel,
	}
	e.emit(EventAssessmentCompleted, data)
	if riskLevel == "high" {
		e.emit(EventHighRiskDetected, data)
	}
}

// EmitBatchCompleted emits a batch.completed event.
func (e *Emitter) EmitBatchCompleted(batchID string, transactionCount int, partial bool, processingTimeSeconds float64) {
	e.emit(EventBatchCompleted, map[string]interface{}{
		"batchId":               batchID,
		"transactionCount":      transactionCount,
		"partial":               partial,
		"processingTimeSeconds": processingTimeSeconds,
	})
}

// EmitModelRetrained emits a model.retrained event.
func (e *Emitter) EmitModelRetrained(accuracy, precision, recall, f1Score float64) {
	e.emit(EventModelRetrained, map[string]interface{}{
		"accuracy":  accuracy,
		"precision": precision,
		"recall":    recall,
		"f1Score":   f1Score,
	})
}

// EmitFileProcessed emits a file.processed event.
func (e *Emitter) EmitFileProcessed(fileID, batchID string, transactionCount int) {
	e.emit(EventFileProcessed, map[string]interface{}{
		"fileId":           fileID,
		"batchId":          batchID,
		"transactionCount": transactionCount,
	})
}
