package fraud

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// MaxMetricValue is the ceiling no metric may exceed, however many retrains
// run in sequence.
const MaxMetricValue = 0.999

// Trainer updates the model metrics record. The reference implementation is
// a stand-in for a real training pipeline; swapping in a genuine one leaves
// the store's read contract untouched.
type Trainer interface {
	Retrain(ctx context.Context) (ModelMetrics, error)
}

// PerturbationTrainer simulates a training run: it applies a small bounded
// gaussian perturbation to each metric, clamped to [0, MaxMetricValue], and
// writes the result atomically. Only the final store write takes the metrics
// lock, so in-flight predictions and batches never stall behind a retrain.
type PerturbationTrainer struct {
	store    Store
	duration time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPerturbationTrainer creates the reference trainer. duration simulates
// the training job's wall-clock cost and is cancellable via ctx. A zero seed
// seeds from the clock.
func NewPerturbationTrainer(store Store, seed int64, duration time.Duration) *PerturbationTrainer {
	return &PerturbationTrainer{
		store:    store,
		duration: duration,
		rng:      rand.New(rand.NewSource(seedOrClock(seed))),
	}
}

// Retrain perturbs each metric and returns the updated snapshot.
func (t *PerturbationTrainer) Retrain(ctx context.Context) (ModelMetrics, error) {
	if t.duration > 0 {
		timer := time.NewTimer(t.duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ModelMetrics{}, ctx.Err()
		case <-timer.C:
		}
	}

	current, err := t.store.Metrics(ctx)
	if err != nil {
		return ModelMetrics{}, err
	}

	updated := current
	updated.Accuracy = t.perturb(current.Accuracy)
	updated.Precision = t.perturb(current.Precision)
	updated.Recall = t.perturb(current.Recall)
	updated.F1Score = t.perturb(current.F1Score)
	updated.AUCROC = t.perturb(current.AUCROC)

	if err := t.store.UpdateMetrics(ctx, updated); err != nil {
		return ModelMetrics{}, err
	}
	return updated, nil
}

func (t *PerturbationTrainer) perturb(v float64) float64 {
	t.mu.Lock()
	delta := t.rng.NormFloat64() * 0.001
	t.mu.Unlock()

	v += delta
	if v > MaxMetricValue {
		v = MaxMetricValue
	}
	if v < 0 {
		v = 0
	}
	return v
}
