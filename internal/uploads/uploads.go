// Package uploads handles transaction data files: format decoding, fileId
// issuance, and upload metadata. The scoring engine itself only ever sees
// the validated transactions parsed here.
package uploads

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fraudlens/fraudlens/internal/fraud"
	"github.com/fraudlens/fraudlens/internal/idgen"
)

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// File is the metadata kept for one uploaded transaction file.
type File struct {
	FileID           string    `json:"file_id"`
	Filename         string    `json:"filename"`
	Format           string    `json:"format"` // "csv" or "json"
	Size             int64     `json:"size"`
	TransactionCount int       `json:"transaction_count"`
	Status           string    `json:"status"`
	UploadTime       time.Time `json:"upload_time"`
	BatchID          string    `json:"batch_id,omitempty"` // set once the file has been scored
}

// Store persists upload metadata and the parsed transactions so a file can
// be scored later by its fileId.
type Store interface {
	Create(ctx context.Context, file *File, txs []*fraud.Transaction) error
	Get(ctx context.Context, fileID string) (*File, error)
	Transactions(ctx context.Context, fileID string) ([]*fraud.Transaction, error)
	SetBatchID(ctx context.Context, fileID, batchID string) error
}

// Parse decodes a transaction file into validated transactions. The format
// comes from the filename extension: .csv or .json. Rows that fail
// validation reject the whole upload; partial-failure handling belongs to
// the scoring layer, not ingestion.
func Parse(filename string, r io.Reader) (string, []*fraud.Transaction, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		txs, err := parseCSV(r)
		return "csv", txs, err
	case ".json":
		txs, err := parseJSON(r)
		return "json", txs, err
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// NewFile builds the metadata record for a parsed upload.
func NewFile(filename, format string, size int64, txCount int) *File {
	return &File{
		FileID:           idgen.WithPrefix("file_"),
		Filename:         filename,
		Format:           format,
		Size:             size,
		TransactionCount: txCount,
		Status:           "uploaded",
		UploadTime:       time.Now().UTC(),
	}
}

// parseCSV reads a header row then one transaction per line. Column order is
// free; unknown columns are ignored.
func parseCSV(r io.Reader) ([]*fraud.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"transaction_id", "amount", "timestamp", "user_id"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var txs []*fraud.Transaction
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		amount, err := strconv.ParseFloat(field("amount"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q", line, field("amount"))
		}

		tx := &fraud.Transaction{
			TransactionID: field("transaction_id"),
			Amount:        amount,
			Timestamp:     field("timestamp"),
			UserID:        field("user_id"),
			MerchantID:    field("merchant_id"),
			Location:      field("location"),
			DeviceID:      field("device_id"),
			IPAddress:     field("ip_address"),
		}
		if err := fraud.ValidateTransaction(tx); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

// parseJSON reads either a bare array of transactions or an object with a
// "transactions" array.
func parseJSON(r io.Reader) ([]*fraud.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var txs []*fraud.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		var wrapper struct {
			Transactions []*fraud.Transaction `json:"transactions"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		txs = wrapper.Transactions
	}

	for i, tx := range txs {
		if err := fraud.ValidateTransaction(tx); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return txs, nil
}
