package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fraudlens/fraudlens/internal/testutil"
)

func pgSubscription(id, url string, events ...EventType) *Subscription {
	return &Subscription{
		ID:        id,
		URL:       url,
		Secret:    "whsec_test",
		Events:    events,
		Active:    true,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPostgresStore_CreateAndGet(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	sub := pgSubscription("wh_pg_1", "https://example.com/hook", EventAssessmentCompleted, EventModelRetrained)
	if err := store.Create(ctx, sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "wh_pg_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.URL != sub.URL || got.Secret != "whsec_test" || !got.Active {
		t.Errorf("subscription = %+v", got)
	}
	if len(got.Events) != 2 || got.Events[0] != EventAssessmentCompleted {
		t.Errorf("events = %v", got.Events)
	}
	if got.LastSuccess != nil || got.LastError != "" || got.ConsecutiveFailures != 0 {
		t.Errorf("fresh subscription delivery state = %+v", got)
	}
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)

	if _, err := store.Get(context.Background(), "wh_missing"); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("error = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestPostgresStore_GetByEvent(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	matching := pgSubscription("wh_match", "https://example.com/a", EventHighRiskDetected, EventBatchCompleted)
	other := pgSubscription("wh_other", "https://example.com/b", EventModelRetrained)
	inactive := pgSubscription("wh_inactive", "https://example.com/c", EventHighRiskDetected)
	inactive.Active = false

	for _, sub := range []*Subscription{matching, other, inactive} {
		if err := store.Create(ctx, sub); err != nil {
			t.Fatalf("Create %s failed: %v", sub.ID, err)
		}
	}

	subs, err := store.GetByEvent(ctx, EventHighRiskDetected)
	if err != nil {
		t.Fatalf("GetByEvent failed: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != "wh_match" {
		t.Errorf("subscriptions = %+v, want only wh_match", subs)
	}
}

func TestPostgresStore_UpdateDeliveryState(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	sub := pgSubscription("wh_pg_upd", "https://example.com/hook", EventBatchCompleted)
	if err := store.Create(ctx, sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	delivered := time.Now().UTC().Truncate(time.Microsecond)
	sub.LastSuccess = &delivered
	sub.LastError = "connection refused"
	sub.ConsecutiveFailures = 3
	sub.Active = false
	if err := store.Update(ctx, sub); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Get(ctx, "wh_pg_upd")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Active || got.ConsecutiveFailures != 3 || got.LastError != "connection refused" {
		t.Errorf("subscription = %+v", got)
	}
	if got.LastSuccess == nil || !got.LastSuccess.Equal(delivered) {
		t.Errorf("last_success = %v, want %v", got.LastSuccess, delivered)
	}
}

func TestPostgresStore_ListAndDelete(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	a := pgSubscription("wh_list_a", "https://example.com/a", EventAssessmentCompleted)
	b := pgSubscription("wh_list_b", "https://example.com/b", EventAssessmentCompleted)
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	for _, sub := range []*Subscription{a, b} {
		if err := store.Create(ctx, sub); err != nil {
			t.Fatalf("Create %s failed: %v", sub.ID, err)
		}
	}

	subs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != "wh_list_b" {
		t.Errorf("list = %+v, want newest first", subs)
	}

	if err := store.Delete(ctx, "wh_list_a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "wh_list_a"); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("Get after delete = %v, want ErrSubscriptionNotFound", err)
	}
	subs, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List after delete failed: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("list after delete has %d entries", len(subs))
	}
}
