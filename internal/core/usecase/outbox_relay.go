package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/atviroplatforma/appcore/internal/core/domain"
	"github.com/atviroplatforma/appcore/internal/core/ports"
)

// OutboxRelay drains the outbox table and pushes queued events to an
// external publisher. Rows that keep failing move to the dead state after
// maxRetry attempts with quadratic backoff in between.
type OutboxRelay struct {
	repo      ports.OutboxRepository
	publisher ports.EventPublisher
	logger    zerolog.Logger
	interval  time.Duration
	batchSize int
	maxRetry  int

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	relaySuccessTotal atomic.Int64
	relayFailureTotal atomic.Int64
	relayDeadTotal    atomic.Int64
}

type OutboxRelayMetrics struct {
	RelaySuccessTotal int64
	RelayFailureTotal int64
	RelayDeadTotal    int64
}

func NewOutboxRelay(repo ports.OutboxRepository, publisher ports.EventPublisher, logger zerolog.Logger, interval time.Duration, batchSize int) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &OutboxRelay{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		maxRetry:  5,
	}
}

func (r *OutboxRelay) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.wg.Add(1)
	go r.loop(ctx)
}

func (r *OutboxRelay) Close() error {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	return nil
}

func (r *OutboxRelay) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.relayBatch(ctx); err != nil {
			r.logger.Error().Err(err).Msg("outbox relay batch failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *OutboxRelay) relayBatch(ctx context.Context) error {
	rows, err := r.repo.FetchPending(ctx, r.batchSize)
	if err != nil {
		return err
	}

	for _, row := range rows {
		var event domain.Event
		if err := json.Unmarshal(row.PayloadJSON, &event); err != nil {
			if markErr := r.markFailure(ctx, row, fmt.Sprintf("decode payload: %v", err)); markErr != nil {
				return markErr
			}
			r.relayFailureTotal.Add(1)
			continue
		}
		event.ID = row.EventID
		event.TenantID = row.TenantID

		if err := r.publisher.Publish(ctx, row.Topic, event); err != nil {
			if markErr := r.markFailure(ctx, row, err.Error()); markErr != nil {
				return markErr
			}
			r.relayFailureTotal.Add(1)
			continue
		}

		if err := r.repo.MarkDispatched(ctx, row.ID); err != nil {
			return err
		}
		r.relaySuccessTotal.Add(1)
	}
	return nil
}

func (r *OutboxRelay) markFailure(ctx context.Context, row domain.OutboxEvent, errMsg string) error {
	attempts := row.Attempts + 1
	if attempts >= r.maxRetry {
		if err := r.repo.MarkDead(ctx, row.ID, attempts, errMsg); err != nil {
			return err
		}
		r.relayDeadTotal.Add(1)
		r.logger.Warn().
			Int64("outbox_id", row.ID).
			Str("event_id", row.EventID).
			Str("error", errMsg).
			Msg("outbox event dead-lettered")
		return nil
	}
	next := time.Now().UTC().Add(backoffDuration(attempts)).Format(time.RFC3339Nano)
	return r.repo.MarkFailed(ctx, row.ID, attempts, next, errMsg)
}

func (r *OutboxRelay) Metrics() OutboxRelayMetrics {
	return OutboxRelayMetrics{
		RelaySuccessTotal: r.relaySuccessTotal.Load(),
		RelayFailureTotal: r.relayFailureTotal.Load(),
		RelayDeadTotal:    r.relayDeadTotal.Load(),
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	d := time.Duration(attempt*attempt) * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}
