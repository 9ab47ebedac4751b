package fraud

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the in-memory reference Store. State lives for the process
// lifetime only. Writes to distinct batch IDs never block each other beyond
// the map lock; the metrics record gets its own mutex so retrains can't
// stall batch writes.
type MemoryStore struct {
	mu          sync.RWMutex
	batches     map[string]*BatchResult
	assessments map[string]*Assessment

	metricsMu sync.RWMutex
	metrics   ModelMetrics
}

// NewMemoryStore creates an empty in-memory store seeded with the default
// model metrics.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:     make(map[string]*BatchResult),
		assessments: make(map[string]*Assessment),
		metrics:     DefaultMetrics(),
	}
}

func (s *MemoryStore) SaveBatch(ctx context.Context, batch *BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.batches[batch.BatchID]; exists {
		return ErrDuplicateBatch
	}
	s.batches[batch.BatchID] = copyBatch(batch)
	return nil
}

func (s *MemoryStore) GetBatch(ctx context.Context, batchID string) (*BatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[batchID]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return copyBatch(batch), nil
}

func (s *MemoryStore) ListBatches(ctx context.Context, limit int) ([]*BatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*BatchResult, 0, len(s.batches))
	for _, b := range s.batches {
		all = append(all, copyBatch(b))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) ListBatchesBefore(ctx context.Context, before time.Time, beforeID string, limit int) ([]*BatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*BatchResult, 0, len(s.batches))
	for _, b := range s.batches {
		if !before.IsZero() {
			if b.CreatedAt.After(before) {
				continue
			}
			if b.CreatedAt.Equal(before) && b.BatchID >= beforeID {
				continue
			}
		}
		all = append(all, copyBatch(b))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].BatchID > all[j].BatchID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) SaveAssessment(ctx context.Context, a *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assessments[a.TransactionID] = copyAssessment(a)
	return nil
}

func (s *MemoryStore) GetAssessment(ctx context.Context, transactionID string) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assessments[transactionID]
	if !ok {
		return nil, ErrAssessmentNotFound
	}
	return copyAssessment(a), nil
}

func (s *MemoryStore) Metrics(ctx context.Context) (ModelMetrics, error) {
	s.metricsMu.RLock()
	defer s.metricsMu.RUnlock()
	return s.metrics, nil
}

func (s *MemoryStore) UpdateMetrics(ctx context.Context, m ModelMetrics) error {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics = m
	return nil
}

// copyBatch deep-copies a batch so callers can't mutate stored state.
func copyBatch(b *BatchResult) *BatchResult {
	out := *b
	out.Entries = make([]BatchEntry, len(b.Entries))
	for i, e := range b.Entries {
		out.Entries[i] = e
		if e.Assessment != nil {
			out.Entries[i].Assessment = copyAssessment(e.Assessment)
		}
	}
	return &out
}

func copyAssessment(a *Assessment) *Assessment {
	out := *a
	out.Features = make(FeatureVector, len(a.Features))
	for k, v := range a.Features {
		out.Features[k] = v
	}
	out.Explanation.TopFeatures = append([]FeatureAttribution(nil), a.Explanation.TopFeatures...)
	return &out
}
