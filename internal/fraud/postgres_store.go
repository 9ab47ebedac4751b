package fraud

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists results in PostgreSQL. It honors the same contracts
// as MemoryStore: duplicate batch IDs error, unknown IDs report not-found,
// and the metrics row is updated in a single statement so readers never see
// a torn record.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed result store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) SaveBatch(ctx context.Context, batch *BatchResult) error {
	entries, err := json.Marshal(batch.Entries)
	if err != nil {
		return fmt.Errorf("marshal batch entries: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO batches (
			id, entries, processing_time_seconds, transaction_count, partial, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		batch.BatchID, entries, batch.ProcessingTimeSeconds,
		batch.TransactionCount, batch.Partial, batch.CreatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicateBatch
	}
	return err
}

func (p *PostgresStore) GetBatch(ctx context.Context, batchID string) (*BatchResult, error) {
	batch, err := scanBatch(p.db.QueryRowContext(ctx, `
		SELECT id, entries, processing_time_seconds, transaction_count, partial, created_at
		FROM batches WHERE id = $1`, batchID))
	if err == sql.ErrNoRows {
		return nil, ErrBatchNotFound
	}
	return batch, err
}

func (p *PostgresStore) ListBatches(ctx context.Context, limit int) ([]*BatchResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, entries, processing_time_seconds, transaction_count, partial, created_at
		FROM batches
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var batches []*BatchResult
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

func (p *PostgresStore) ListBatchesBefore(ctx context.Context, before time.Time, beforeID string, limit int) ([]*BatchResult, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if before.IsZero() {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, entries, processing_time_seconds, transaction_count, partial, created_at
			FROM batches
			ORDER BY created_at DESC, id DESC
			LIMIT $1`, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, entries, processing_time_seconds, transaction_count, partial, created_at
			FROM batches
			WHERE (created_at, id) < ($1, $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, before, beforeID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var batches []*BatchResult
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

func (p *PostgresStore) SaveAssessment(ctx context.Context, a *Assessment) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO assessments (transaction_id, body, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (transaction_id) DO UPDATE SET body = $2, created_at = NOW()`,
		a.TransactionID, body,
	)
	return err
}

func (p *PostgresStore) GetAssessment(ctx context.Context, transactionID string) (*Assessment, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT body FROM assessments WHERE transaction_id = $1`, transactionID,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}

	var a Assessment
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assessment %s: %w", transactionID, err)
	}
	return &a, nil
}

func (p *PostgresStore) Metrics(ctx context.Context) (ModelMetrics, error) {
	var m ModelMetrics
	err := p.db.QueryRowContext(ctx, `
		SELECT accuracy, precision_score, recall, f1_score, auc_roc,
		       true_negatives, false_positives, false_negatives, true_positives
		FROM model_metrics WHERE id = 1`,
	).Scan(
		&m.Accuracy, &m.Precision, &m.Recall, &m.F1Score, &m.AUCROC,
		&m.ConfusionMatrix.TrueNegatives, &m.ConfusionMatrix.FalsePositives,
		&m.ConfusionMatrix.FalseNegatives, &m.ConfusionMatrix.TruePositives,
	)
	if err == sql.ErrNoRows {
		return DefaultMetrics(), nil
	}
	return m, err
}

func (p *PostgresStore) UpdateMetrics(ctx context.Context, m ModelMetrics) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO model_metrics (
			id, accuracy, precision_score, recall, f1_score, auc_roc,
			true_negatives, false_positives, false_negatives, true_positives, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			accuracy = $1, precision_score = $2, recall = $3, f1_score = $4,
			auc_roc = $5, true_negatives = $6, false_positives = $7,
			false_negatives = $8, true_positives = $9, updated_at = NOW()`,
		m.Accuracy, m.Precision, m.Recall, m.F1Score, m.AUCROC,
		m.ConfusionMatrix.TrueNegatives, m.ConfusionMatrix.FalsePositives,
		m.ConfusionMatrix.FalseNegatives, m.ConfusionMatrix.TruePositives,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*BatchResult, error) {
	var (
		batch   BatchResult
		entries []byte
	)
	err := row.Scan(
		&batch.BatchID, &entries, &batch.ProcessingTimeSeconds,
		&batch.TransactionCount, &batch.Partial, &batch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(entries, &batch.Entries); err != nil {
		return nil, fmt.Errorf("unmarshal batch %s entries: %w", batch.BatchID, err)
	}
	return &batch, nil
}
