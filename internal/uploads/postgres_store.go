package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fraudlens/fraudlens/internal/fraud"
)

// PostgresStore persists upload metadata and parsed transactions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed upload store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, file *File, txs []*fraud.Transaction) error {
	body, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO files (
			id, filename, format, size, transaction_count, status, transactions, upload_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		file.FileID, file.Filename, file.Format, file.Size,
		file.TransactionCount, file.Status, body, file.UploadTime,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, fileID string) (*File, error) {
	var (
		file    File
		batchID sql.NullString
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, filename, format, size, transaction_count, status, batch_id, upload_time
		FROM files WHERE id = $1`, fileID,
	).Scan(
		&file.FileID, &file.Filename, &file.Format, &file.Size,
		&file.TransactionCount, &file.Status, &batchID, &file.UploadTime,
	)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	file.BatchID = batchID.String
	return &file, nil
}

func (p *PostgresStore) Transactions(ctx context.Context, fileID string) ([]*fraud.Transaction, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT transactions FROM files WHERE id = $1`, fileID,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	var txs []*fraud.Transaction
	if err := json.Unmarshal(body, &txs); err != nil {
		return nil, fmt.Errorf("unmarshal transactions for %s: %w", fileID, err)
	}
	return txs, nil
}

func (p *PostgresStore) SetBatchID(ctx context.Context, fileID, batchID string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE files SET batch_id = $1, status = 'scored' WHERE id = $2`,
		batchID, fileID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrFileNotFound
	}
	return nil
}
