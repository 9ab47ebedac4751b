package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fraudlens/fraudlens/internal/testutil"
)

func TestPostgresStore_BatchRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	created := time.Now().UTC().Truncate(time.Microsecond)
	batch := sampleBatch("batch_pg_1", created)
	batch.ProcessingTimeSeconds = 0.125

	if err := store.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	got, err := store.GetBatch(ctx, "batch_pg_1")
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if got.BatchID != batch.BatchID || got.TransactionCount != 1 || got.Partial {
		t.Errorf("batch = %+v", got)
	}
	if got.ProcessingTimeSeconds != 0.125 {
		t.Errorf("processing time = %v", got.ProcessingTimeSeconds)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}
	if len(got.Entries) != 1 || got.Entries[0].TransactionID != "tx_1" {
		t.Fatalf("entries = %+v", got.Entries)
	}
	if got.Entries[0].Assessment == nil || got.Entries[0].Assessment.RiskLevel != RiskLow {
		t.Errorf("entry assessment = %+v", got.Entries[0].Assessment)
	}
}

func TestPostgresStore_DuplicateBatch(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	batch := sampleBatch("batch_pg_dup", time.Now().UTC())
	if err := store.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("first SaveBatch failed: %v", err)
	}
	if err := store.SaveBatch(ctx, batch); !errors.Is(err, ErrDuplicateBatch) {
		t.Errorf("second SaveBatch error = %v, want ErrDuplicateBatch", err)
	}
}

func TestPostgresStore_BatchNotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)

	if _, err := store.GetBatch(context.Background(), "batch_missing"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("error = %v, want ErrBatchNotFound", err)
	}
}

func TestPostgresStore_ListBatches(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, id := range []string{"batch_a", "batch_b", "batch_c"} {
		b := sampleBatch(id, base.Add(time.Duration(i)*time.Second))
		if err := store.SaveBatch(ctx, b); err != nil {
			t.Fatalf("SaveBatch %s failed: %v", id, err)
		}
	}

	batches, err := store.ListBatches(ctx, 2)
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("len = %d, want 2", len(batches))
	}
	if batches[0].BatchID != "batch_c" || batches[1].BatchID != "batch_b" {
		t.Errorf("order = [%s, %s], want newest first", batches[0].BatchID, batches[1].BatchID)
	}
}

func TestPostgresStore_ListBatchesBefore(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, id := range []string{"batch_a", "batch_b", "batch_c", "batch_d"} {
		b := sampleBatch(id, base.Add(time.Duration(i)*time.Second))
		if err := store.SaveBatch(ctx, b); err != nil {
			t.Fatalf("SaveBatch %s failed: %v", id, err)
		}
	}

	page, err := store.ListBatchesBefore(ctx, time.Time{}, "", 2)
	if err != nil {
		t.Fatalf("ListBatchesBefore failed: %v", err)
	}
	if len(page) != 2 || page[0].BatchID != "batch_d" || page[1].BatchID != "batch_c" {
		t.Fatalf("first page = %+v", page)
	}

	last := page[1]
	page, err = store.ListBatchesBefore(ctx, last.CreatedAt, last.BatchID, 2)
	if err != nil {
		t.Fatalf("ListBatchesBefore page 2 failed: %v", err)
	}
	if len(page) != 2 || page[0].BatchID != "batch_b" || page[1].BatchID != "batch_a" {
		t.Fatalf("second page = %+v", page)
	}

	last = page[1]
	page, err = store.ListBatchesBefore(ctx, last.CreatedAt, last.BatchID, 2)
	if err != nil {
		t.Fatalf("ListBatchesBefore page 3 failed: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("third page has %d batches, want 0", len(page))
	}
}

func TestPostgresStore_AssessmentRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	a := &Assessment{
		TransactionID:    "tx_pg_1",
		UserID:           "user_1",
		FraudProbability: 0.82,
		RiskScore:        82,
		RiskLevel:        RiskHigh,
		Features:         FeatureVector{FeatureAmount: 0.9, FeatureLocationRisk: 0.5},
	}
	if err := store.SaveAssessment(ctx, a); err != nil {
		t.Fatalf("SaveAssessment failed: %v", err)
	}

	got, err := store.GetAssessment(ctx, "tx_pg_1")
	if err != nil {
		t.Fatalf("GetAssessment failed: %v", err)
	}
	if got.RiskScore != 82 || got.RiskLevel != RiskHigh || got.UserID != "user_1" {
		t.Errorf("assessment = %+v", got)
	}
	if got.Features[FeatureAmount] != 0.9 {
		t.Errorf("features = %+v", got.Features)
	}

	// Re-scoring the same transaction overwrites the stored record.
	a.RiskScore = 12
	a.RiskLevel = RiskLow
	if err := store.SaveAssessment(ctx, a); err != nil {
		t.Fatalf("overwrite SaveAssessment failed: %v", err)
	}
	got, err = store.GetAssessment(ctx, "tx_pg_1")
	if err != nil {
		t.Fatalf("GetAssessment after overwrite failed: %v", err)
	}
	if got.RiskScore != 12 || got.RiskLevel != RiskLow {
		t.Errorf("assessment after overwrite = %+v", got)
	}
}

func TestPostgresStore_AssessmentNotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)

	if _, err := store.GetAssessment(context.Background(), "tx_missing"); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("error = %v, want ErrAssessmentNotFound", err)
	}
}

func TestPostgresStore_Metrics(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	// No row yet: defaults.
	m, err := store.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}
	if m != DefaultMetrics() {
		t.Errorf("empty metrics = %+v, want defaults", m)
	}

	updated := m
	updated.Accuracy = 0.991
	updated.F1Score = 0.987
	updated.ConfusionMatrix.TruePositives = 14000
	if err := store.UpdateMetrics(ctx, updated); err != nil {
		t.Fatalf("UpdateMetrics failed: %v", err)
	}

	got, err := store.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics after update failed: %v", err)
	}
	if got != updated {
		t.Errorf("metrics = %+v, want %+v", got, updated)
	}

	// Upsert: a second update replaces the single row.
	updated.Accuracy = 0.993
	if err := store.UpdateMetrics(ctx, updated); err != nil {
		t.Fatalf("second UpdateMetrics failed: %v", err)
	}
	got, err = store.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics after second update failed: %v", err)
	}
	if got.Accuracy != 0.993 {
		t.Errorf("accuracy = %v, want 0.993", got.Accuracy)
	}
}
