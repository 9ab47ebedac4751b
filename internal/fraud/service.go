package fraud

import (
	"context"
	"log/slog"
	"time"

	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/traces"
)

// EventPublisher receives notifications about completed work. Implementations
// fan out to the realtime hub and webhook dispatcher; a nil publisher is a
// no-op.
type EventPublisher interface {
	AssessmentCompleted(a *Assessment)
	BatchCompleted(b *BatchResult)
	ModelRetrained(m ModelMetrics)
}

// Service is the engine's public face: it composes the prediction engine,
// batch orchestrator, result store, and trainer, and owns persistence and
// event publication for single predictions.
type Service struct {
	engine       *Engine
	orchestrator *Orchestrator
	store        Store
	trainer      Trainer
	publisher    EventPublisher
	logger       *slog.Logger
}

// NewService wires the scoring service together. publisher may be nil.
func NewService(engine *Engine, orchestrator *Orchestrator, store Store, trainer Trainer, publisher EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:       engine,
		orchestrator: orchestrator,
		store:        store,
		trainer:      trainer,
		publisher:    publisher,
		logger:       logger,
	}
}

// Predict scores one transaction, persists the assessment, and publishes it.
func (s *Service) Predict(ctx context.Context, tx *Transaction) (*Assessment, error) {
	ctx, span := traces.StartSpan(ctx, "fraud.predict", traces.TransactionID(tx.TransactionID))
	defer span.End()

	assessment, err := s.engine.Predict(tx)
	if err != nil {
		metrics.PredictionFailuresTotal.Inc()
		return nil, err
	}

	if err := s.store.SaveAssessment(ctx, assessment); err != nil {
		return nil, &PredictionError{TransactionID: tx.TransactionID, Err: err}
	}

	metrics.PredictionsTotal.WithLabelValues(string(assessment.RiskLevel)).Inc()
	if s.publisher != nil {
		s.publisher.AssessmentCompleted(assessment)
	}

	s.logger.Info("prediction generated",
		"transaction_id", assessment.TransactionID,
		"risk_level", assessment.RiskLevel,
		"risk_score", assessment.RiskScore,
	)
	return assessment, nil
}

// RunBatch scores an ordered batch and publishes the stored result.
func (s *Service) RunBatch(ctx context.Context, txs []*Transaction, opts BatchOptions) (*BatchResult, error) {
	ctx, span := traces.StartSpan(ctx, "fraud.batch")
	defer span.End()

	batch, err := s.orchestrator.RunBatch(ctx, txs, opts)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("aborted").Inc()
		return nil, err
	}

	status := "completed"
	if batch.Partial {
		status = "partial"
	}
	metrics.BatchesTotal.WithLabelValues(status).Inc()
	metrics.BatchDuration.Observe(batch.ProcessingTimeSeconds)
	for _, entry := range batch.Entries {
		if entry.Assessment != nil {
			metrics.PredictionsTotal.WithLabelValues(string(entry.Assessment.RiskLevel)).Inc()
		}
	}

	if s.publisher != nil {
		s.publisher.BatchCompleted(batch)
	}
	return batch, nil
}

// GetBatch is an idempotent read: repeated calls with the same ID return the
// stored result without re-computation.
func (s *Service) GetBatch(ctx context.Context, batchID string) (*BatchResult, error) {
	return s.store.GetBatch(ctx, batchID)
}

// ListBatches pages through stored batches, newest first. A zero before time
// starts from the most recent batch.
func (s *Service) ListBatches(ctx context.Context, before time.Time, beforeID string, limit int) ([]*BatchResult, error) {
	return s.store.ListBatchesBefore(ctx, before, beforeID, limit)
}

// GetAssessment looks up a stored per-transaction result.
func (s *Service) GetAssessment(ctx context.Context, transactionID string) (*Assessment, error) {
	return s.store.GetAssessment(ctx, transactionID)
}

// Metrics returns the current model quality snapshot.
func (s *Service) Metrics(ctx context.Context) (ModelMetrics, error) {
	return s.store.Metrics(ctx)
}

// Retrain runs the trainer and publishes the updated metrics. Prediction and
// batch traffic keeps flowing while a retrain is in flight.
func (s *Service) Retrain(ctx context.Context) (ModelMetrics, error) {
	ctx, span := traces.StartSpan(ctx, "fraud.retrain")
	defer span.End()

	updated, err := s.trainer.Retrain(ctx)
	if err != nil {
		return ModelMetrics{}, err
	}

	metrics.RetrainsTotal.Inc()
	if s.publisher != nil {
		s.publisher.ModelRetrained(updated)
	}
	s.logger.Info("model retraining completed", "accuracy", updated.Accuracy)
	return updated, nil
}
