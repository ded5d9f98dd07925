package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

func taskRecord(id string) domain.Record {
	return domain.Record{
		TenantID: "tenant-a",
		Entity:   "task",
		ID:       id,
		Data:     json.RawMessage(`{"title":"x","status":"todo"}`),
	}
}

func TestRecordStoreCreateAndGet(t *testing.T) {
	store := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, taskRecord("t1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("create must stamp timestamps")
	}

	got, err := store.Get(ctx, "tenant-a", "task", "t1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != "t1" || got.Entity != "task" || got.TenantID != "tenant-a" {
		t.Fatalf("unexpected record %+v", got)
	}

	var data map[string]any
	if err := json.Unmarshal(got.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["status"] != "todo" {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestRecordStoreCreateRejectsDuplicate(t *testing.T) {
	store := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.Create(ctx, taskRecord("t1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := store.Create(ctx, taskRecord("t1")); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRecordStoreGetMissing(t *testing.T) {
	store := NewRecordStore(openTestDB(t))

	if _, err := store.Get(context.Background(), "tenant-a", "task", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordStoreUpdateOptimisticLock(t *testing.T) {
	store := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, taskRecord("t1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rec := created
	rec.Data = json.RawMessage(`{"title":"x","status":"in_progress"}`)
	updated, err := store.Update(ctx, rec, created.UpdatedAt)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatal("update must advance updated_at")
	}

	// Second writer still holding the original version must lose.
	stale := created
	stale.Data = json.RawMessage(`{"title":"x","status":"done"}`)
	if _, err := store.Update(ctx, stale, created.UpdatedAt); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for stale version, got %v", err)
	}
}

func TestRecordStoreUpdateMissing(t *testing.T) {
	store := NewRecordStore(openTestDB(t))

	rec := taskRecord("ghost")
	if _, err := store.Update(context.Background(), rec, rec.UpdatedAt); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordStoreDelete(t *testing.T) {
	store := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.Create(ctx, taskRecord("t1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	deleted, err := store.Delete(ctx, "tenant-a", "task", "t1")
	if err != nil || !deleted {
		t.Fatalf("expected delete to report true, got %v %v", deleted, err)
	}

	deleted, err = store.Delete(ctx, "tenant-a", "task", "t1")
	if err != nil || deleted {
		t.Fatalf("second delete must report false, got %v %v", deleted, err)
	}
}

func TestRecordStoreListPaginates(t *testing.T) {
	store := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := store.Create(ctx, taskRecord(id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	// Another tenant's rows must never leak into the listing.
	other := taskRecord("a")
	other.TenantID = "tenant-b"
	if _, err := store.Create(ctx, other); err != nil {
		t.Fatalf("create other tenant: %v", err)
	}

	page, err := store.List(ctx, "tenant-a", "task", domain.RecordListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "a" || page[1].ID != "b" {
		t.Fatalf("unexpected first page %+v", page)
	}

	page, err = store.List(ctx, "tenant-a", "task", domain.RecordListFilter{After: "b", Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "d" {
		t.Fatalf("unexpected second page %+v", page)
	}
}
