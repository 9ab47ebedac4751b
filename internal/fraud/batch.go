package fraud

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fraudlens/fraudlens/internal/idgen"
)

// FailurePolicy controls what a batch run does when one transaction fails.
type FailurePolicy string

const (
	// FailFast aborts the whole batch on the first failure and stores
	// nothing. This is the default.
	FailFast FailurePolicy = "fail_fast"
	// ContinueOnError substitutes an error marker for the failed entry and
	// keeps going; the stored batch is full length.
	ContinueOnError FailurePolicy = "continue"
)

// DefaultBatchWorkers bounds per-batch concurrency when options don't.
const DefaultBatchWorkers = 8

// BatchOptions tune a single batch run. Zero values fall back to the
// orchestrator's defaults.
type BatchOptions struct {
	Workers int
	Policy  FailurePolicy
}

// Orchestrator runs the prediction engine over ordered transaction batches
// and materializes results into the store.
type Orchestrator struct {
	engine  *Engine
	store   Store
	logger  *slog.Logger
	workers int
	policy  FailurePolicy
}

// NewOrchestrator creates a batch orchestrator with fail-fast defaults.
func NewOrchestrator(engine *Engine, store Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engine:  engine,
		store:   store,
		logger:  logger,
		workers: DefaultBatchWorkers,
		policy:  FailFast,
	}
}

// WithWorkers overrides the default worker pool size.
func (o *Orchestrator) WithWorkers(n int) *Orchestrator {
	if n > 0 {
		o.workers = n
	}
	return o
}

// WithPolicy overrides the default failure policy.
func (o *Orchestrator) WithPolicy(p FailurePolicy) *Orchestrator {
	if p == FailFast || p == ContinueOnError {
		o.policy = p
	}
	return o
}

// RunBatch scores every transaction and returns the stored BatchResult.
// Entries are written to indexed slots, so output order always equals input
// order no matter how the pool schedules the work.
//
// Under FailFast the first failure aborts the run with a *BatchAbortedError
// and nothing is stored. Under ContinueOnError failed entries carry an error
// marker and the full-length batch is stored. Cancelling ctx stops spawning
// new work; ContinueOnError then stores and returns the completed subset
// flagged partial, while FailFast surfaces the cancellation.
func (o *Orchestrator) RunBatch(ctx context.Context, txs []*Transaction, opts BatchOptions) (*BatchResult, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = o.workers
	}
	policy := opts.Policy
	if policy == "" {
		policy = o.policy
	}

	start := time.Now()
	entries := make([]BatchEntry, len(txs))

	var (
		mu       sync.Mutex
		firstErr *BatchAbortedError
	)

	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	cancelled := false
	for i, tx := range txs {
		select {
		case <-runCtx.Done():
			cancelled = true
		default:
		}
		// tx may be nil (JSON null in the input array). Its entry still
		// lines up with the input index.
		txID := ""
		if tx != nil {
			txID = tx.TransactionID
		}

		if cancelled {
			if policy == ContinueOnError {
				entries[i] = BatchEntry{TransactionID: txID, Error: context.Cause(runCtx).Error()}
				continue
			}
			break
		}

		i, tx := i, tx
		g.Go(func() error {
			assessment, err := o.engine.Predict(tx)
			if err != nil {
				if policy == FailFast {
					// Concurrent workers can fail at the same time; keep the
					// lowest input index so the abort report is deterministic.
					mu.Lock()
					if firstErr == nil || i < firstErr.Index {
						firstErr = &BatchAbortedError{Index: i, Err: err}
					}
					mu.Unlock()
					return err // cancels runCtx, stops new work
				}
				entries[i] = BatchEntry{TransactionID: txID, Error: err.Error()}
				return nil
			}
			entries[i] = BatchEntry{TransactionID: txID, Assessment: assessment}
			return nil
		})
	}

	err := g.Wait()
	if policy == FailFast {
		if firstErr != nil {
			o.logger.Warn("batch aborted",
				"index", firstErr.Index,
				"error", firstErr.Err,
			)
			return nil, firstErr
		}
		if err != nil {
			return nil, err
		}
		if cancelled || ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	elapsed := time.Since(start).Seconds()
	batch := &BatchResult{
		BatchID:               idgen.WithPrefix("batch_"),
		Entries:               entries,
		ProcessingTimeSeconds: math.Round(elapsed*1000000) / 1000000,
		CreatedAt:             time.Now().UTC(),
		TransactionCount:      len(entries),
		Partial:               cancelled,
	}

	if err := o.persist(ctx, batch); err != nil {
		return nil, err
	}

	o.logger.Info("batch completed",
		"batch_id", batch.BatchID,
		"transactions", batch.TransactionCount,
		"partial", batch.Partial,
		"elapsed_seconds", batch.ProcessingTimeSeconds,
	)

	return batch, nil
}

// persist stores the batch and indexes each successful assessment by its
// transaction ID. The batch itself is written first so a stored batch is
// never observable half-empty.
func (o *Orchestrator) persist(ctx context.Context, batch *BatchResult) error {
	// Storing a partial batch after cancellation still has to finish, so
	// detach from the (possibly cancelled) request context.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}

	if err := o.store.SaveBatch(ctx, batch); err != nil {
		return err
	}
	for _, entry := range batch.Entries {
		if entry.Assessment == nil {
			continue
		}
		if err := o.store.SaveAssessment(ctx, entry.Assessment); err != nil {
			return err
		}
	}
	return nil
}
