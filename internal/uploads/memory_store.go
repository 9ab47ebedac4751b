package uploads

import (
	"context"
	"sync"

	"github.com/fraudlens/fraudlens/internal/fraud"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu           sync.RWMutex
	files        map[string]*File
	transactions map[string][]*fraud.Transaction
}

// NewMemoryStore creates an in-memory upload store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:        make(map[string]*File),
		transactions: make(map[string][]*fraud.Transaction),
	}
}

func (s *MemoryStore) Create(ctx context.Context, file *File, txs []*fraud.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := *file
	s.files[file.FileID] = &f
	s.transactions[file.FileID] = append([]*fraud.Transaction(nil), txs...)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, fileID string) (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[fileID]
	if !ok {
		return nil, ErrFileNotFound
	}
	f := *file
	return &f, nil
}

func (s *MemoryStore) Transactions(ctx context.Context, fileID string) ([]*fraud.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs, ok := s.transactions[fileID]
	if !ok {
		return nil, ErrFileNotFound
	}
	return append([]*fraud.Transaction(nil), txs...), nil
}

func (s *MemoryStore) SetBatchID(ctx context.Context, fileID, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[fileID]
	if !ok {
		return ErrFileNotFound
	}
	file.BatchID = batchID
	file.Status = "scored"
	return nil
}
