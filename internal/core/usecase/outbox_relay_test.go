package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

type stubOutboxRepo struct {
	mu         sync.Mutex
	pending    []domain.OutboxEvent
	dispatched []int64
	failed     []int64
	dead       []int64
	lastError  string
}

func (s *stubOutboxRepo) Enqueue(context.Context, domain.OutboxEvent) error { return nil }

func (s *stubOutboxRepo) FetchPending(_ context.Context, limit int) ([]domain.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	rows := s.pending
	s.pending = nil
	return rows, nil
}

func (s *stubOutboxRepo) MarkDispatched(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched = append(s.dispatched, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailed(_ context.Context, id int64, _ int, _ string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	s.lastError = errMsg
	return nil
}

func (s *stubOutboxRepo) MarkDead(_ context.Context, id int64, _ int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, id)
	s.lastError = errMsg
	return nil
}

type stubPublisher struct {
	mu        sync.Mutex
	err       error
	published []domain.Event
	topics    []string
}

func (p *stubPublisher) Publish(_ context.Context, topic string, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	p.topics = append(p.topics, topic)
	return nil
}

func outboxRow(id int64) domain.OutboxEvent {
	return domain.OutboxEvent{
		ID:          id,
		EventID:     "ev-1",
		TenantID:    "tenant-a",
		Topic:       "events.tenant-a.task.created",
		PayloadJSON: json.RawMessage(`{"type":"task.created","payload":{"id":"t1"},"timestamp":"2026-08-28T10:00:00Z"}`),
		Status:      domain.OutboxPending,
	}
}

func TestRelayBatchDispatchesPendingRows(t *testing.T) {
	repo := &stubOutboxRepo{pending: []domain.OutboxEvent{outboxRow(1)}}
	pub := &stubPublisher{}
	relay := NewOutboxRelay(repo, pub, zerolog.Nop(), time.Minute, 10)

	if err := relay.relayBatch(context.Background()); err != nil {
		t.Fatalf("relay batch failed: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.published))
	}
	ev := pub.published[0]
	if ev.Type != "task.created" || ev.ID != "ev-1" || ev.TenantID != "tenant-a" {
		t.Fatalf("relay must restore event identity from the row, got %+v", ev)
	}
	if pub.topics[0] != "events.tenant-a.task.created" {
		t.Fatalf("unexpected topic %q", pub.topics[0])
	}
	if len(repo.dispatched) != 1 || repo.dispatched[0] != 1 {
		t.Fatalf("row must be marked dispatched, got %v", repo.dispatched)
	}
	if m := relay.Metrics(); m.RelaySuccessTotal != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestRelayBatchMarksFailureWithBackoff(t *testing.T) {
	repo := &stubOutboxRepo{pending: []domain.OutboxEvent{outboxRow(7)}}
	pub := &stubPublisher{err: errors.New("receiver down")}
	relay := NewOutboxRelay(repo, pub, zerolog.Nop(), time.Minute, 10)

	if err := relay.relayBatch(context.Background()); err != nil {
		t.Fatalf("relay batch failed: %v", err)
	}

	if len(repo.failed) != 1 || repo.failed[0] != 7 {
		t.Fatalf("row must be marked failed, got %v", repo.failed)
	}
	if repo.lastError != "receiver down" {
		t.Fatalf("failure must record the publish error, got %q", repo.lastError)
	}
	if m := relay.Metrics(); m.RelayFailureTotal != 1 || m.RelayDeadTotal != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestRelayBatchDeadLettersAfterMaxRetries(t *testing.T) {
	row := outboxRow(9)
	row.Attempts = 4
	repo := &stubOutboxRepo{pending: []domain.OutboxEvent{row}}
	pub := &stubPublisher{err: errors.New("receiver down")}
	relay := NewOutboxRelay(repo, pub, zerolog.Nop(), time.Minute, 10)

	if err := relay.relayBatch(context.Background()); err != nil {
		t.Fatalf("relay batch failed: %v", err)
	}

	if len(repo.dead) != 1 || repo.dead[0] != 9 {
		t.Fatalf("row must be dead-lettered, got %v", repo.dead)
	}
	if len(repo.failed) != 0 {
		t.Fatal("a dead row must not also be marked failed")
	}
	if m := relay.Metrics(); m.RelayDeadTotal != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestRelayBatchSkipsUndecodableRow(t *testing.T) {
	row := outboxRow(3)
	row.PayloadJSON = json.RawMessage(`not json`)
	repo := &stubOutboxRepo{pending: []domain.OutboxEvent{row, outboxRow(4)}}
	pub := &stubPublisher{}
	relay := NewOutboxRelay(repo, pub, zerolog.Nop(), time.Minute, 10)

	if err := relay.relayBatch(context.Background()); err != nil {
		t.Fatalf("relay batch failed: %v", err)
	}

	if len(repo.failed) != 1 || repo.failed[0] != 3 {
		t.Fatalf("broken row must be marked failed, got %v", repo.failed)
	}
	if len(repo.dispatched) != 1 || repo.dispatched[0] != 4 {
		t.Fatalf("healthy rows must still relay, got %v", repo.dispatched)
	}
}

func TestRelayStartAndClose(t *testing.T) {
	repo := &stubOutboxRepo{pending: []domain.OutboxEvent{outboxRow(1)}}
	pub := &stubPublisher{}
	relay := NewOutboxRelay(repo, pub, zerolog.Nop(), 10*time.Millisecond, 10)

	relay.Start(context.Background())
	relay.Start(context.Background()) // second start is a no-op

	deadline := time.After(2 * time.Second)
	for {
		repo.mu.Lock()
		done := len(repo.dispatched) == 1
		repo.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("relay loop never drained the pending row")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := relay.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestBackoffDuration(t *testing.T) {
	if got := backoffDuration(1); got != time.Second {
		t.Fatalf("attempt 1: got %v", got)
	}
	if got := backoffDuration(3); got != 9*time.Second {
		t.Fatalf("attempt 3: got %v", got)
	}
	if got := backoffDuration(100); got != 5*time.Minute {
		t.Fatalf("backoff must cap at 5m, got %v", got)
	}
}
