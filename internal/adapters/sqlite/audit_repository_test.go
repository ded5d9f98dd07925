package sqlite

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

func auditRow(eventID, eventType, recordID string) domain.AuditEvent {
	return domain.AuditEvent{
		EventID:     eventID,
		EventType:   eventType,
		TenantID:    "tenant-a",
		RecordID:    recordID,
		PayloadJSON: json.RawMessage(`{"id":"` + recordID + `"}`),
	}
}

func TestAuditLogAndList(t *testing.T) {
	repo := NewAuditTrailRepository(openTestDB(t))
	ctx := context.Background()

	for _, row := range []domain.AuditEvent{
		auditRow("ev-1", "task.created", "t1"),
		auditRow("ev-2", "task.updated", "t1"),
		auditRow("ev-3", "task.created", "t2"),
	} {
		if err := repo.Log(ctx, row); err != nil {
			t.Fatalf("log failed: %v", err)
		}
	}

	events, err := repo.List(ctx, domain.AuditFilter{TenantID: "tenant-a", Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].ID >= events[1].ID || events[1].ID >= events[2].ID {
		t.Fatalf("events must come back in id order, got %+v", events)
	}
	if events[0].OccurredAt.IsZero() {
		t.Fatal("log must stamp occurred_at when absent")
	}
}

func TestAuditListFilters(t *testing.T) {
	repo := NewAuditTrailRepository(openTestDB(t))
	ctx := context.Background()

	for _, row := range []domain.AuditEvent{
		auditRow("ev-1", "task.created", "t1"),
		auditRow("ev-2", "task.updated", "t1"),
		auditRow("ev-3", "task.created", "t2"),
	} {
		if err := repo.Log(ctx, row); err != nil {
			t.Fatalf("log failed: %v", err)
		}
	}

	byType, err := repo.List(ctx, domain.AuditFilter{TenantID: "tenant-a", EventType: "task.created", Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byType) != 2 {
		t.Fatalf("expected 2 task.created events, got %d", len(byType))
	}

	byRecord, err := repo.List(ctx, domain.AuditFilter{TenantID: "tenant-a", RecordID: "t2", Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byRecord) != 1 || byRecord[0].EventID != "ev-3" {
		t.Fatalf("unexpected record filter result %+v", byRecord)
	}

	afterFirst, err := repo.List(ctx, domain.AuditFilter{TenantID: "tenant-a", AfterID: byType[0].ID, Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(afterFirst) != 2 {
		t.Fatalf("after_id must skip earlier rows, got %+v", afterFirst)
	}

	foreign, err := repo.List(ctx, domain.AuditFilter{TenantID: "tenant-b", Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(foreign) != 0 {
		t.Fatalf("tenant filter must exclude other tenants, got %+v", foreign)
	}
}
