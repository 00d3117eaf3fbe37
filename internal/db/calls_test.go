package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"tgcalld/internal/models"
)

func newTestRecord(target string) *models.CallRecord {
	return &models.CallRecord{
		ID:        uuid.NewString(),
		Target:    target,
		Topic:     "alarm",
		Language:  "it",
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCallLogCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rec := newTestRecord("+393331112233")
	if err := db.CallLog.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := db.CallLog.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Target != "+393331112233" {
		t.Errorf("expected target +393331112233, got %q", got.Target)
	}
	if got.Topic != "alarm" {
		t.Errorf("expected topic alarm, got %q", got.Topic)
	}
	if got.Disposition != "" {
		t.Errorf("expected empty disposition for in-flight call, got %q", got.Disposition)
	}
}

func TestCallLogGetMissing(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.CallLog.GetByID(context.Background(), "no-such-id")
	if !errors.Is(err, ErrCallNotFound) {
		t.Errorf("expected ErrCallNotFound, got %v", err)
	}
}

func TestCallLogFinish(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rec := newTestRecord("@homebot")
	if err := db.CallLog.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ended := rec.StartedAt.Add(42 * time.Second)
	if err := db.CallLog.Finish(ctx, rec.ID, "4242", models.DispositionCompleted, "", ended, 42); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := db.CallLog.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Disposition != models.DispositionCompleted {
		t.Errorf("expected disposition completed, got %q", got.Disposition)
	}
	if got.Peer != "4242" {
		t.Errorf("expected peer 4242, got %q", got.Peer)
	}
	if got.Duration != 42 {
		t.Errorf("expected duration 42, got %d", got.Duration)
	}
	if got.EndedAt == nil {
		t.Error("expected EndedAt to be set")
	}
}

func TestCallLogFinishMissing(t *testing.T) {
	db := setupTestDB(t)

	err := db.CallLog.Finish(context.Background(), "no-such-id", "", models.DispositionFailed, "boom", time.Now(), 0)
	if !errors.Is(err, ErrCallNotFound) {
		t.Errorf("expected ErrCallNotFound, got %v", err)
	}
}

func TestCallLogListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		rec := newTestRecord("@homebot")
		rec.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := db.CallLog.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	records, err := db.CallLog.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].StartedAt.After(records[i-1].StartedAt) {
			t.Errorf("records not in newest-first order at index %d", i)
		}
	}
}

func TestCallLogListPagination(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := newTestRecord("@homebot")
		rec.StartedAt = rec.StartedAt.Add(time.Duration(i) * time.Second)
		if err := db.CallLog.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	page, err := db.CallLog.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("expected 2 records, got %d", len(page))
	}

	count, err := db.CallLog.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 5 {
		t.Errorf("expected count 5, got %d", count)
	}
}

func TestCallLogStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	dispositions := []string{
		models.DispositionCompleted,
		models.DispositionCompleted,
		models.DispositionFailed,
		models.DispositionHungUp,
	}
	for _, d := range dispositions {
		rec := newTestRecord("@homebot")
		if err := db.CallLog.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := db.CallLog.Finish(ctx, rec.ID, "", d, "", time.Now(), 1); err != nil {
			t.Fatalf("Finish: %v", err)
		}
	}

	stats, err := db.CallLog.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 4 || stats.Completed != 2 || stats.Failed != 1 || stats.HungUp != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
