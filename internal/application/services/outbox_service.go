package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devstudio/backoffice/internal/domain/events"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/internal/logging"
)

const (
	MaxRetryAttempts = 5
	outboxBatchSize  = 100
)

// OutboxService stores domain events in the business transaction and
// publishes them on the EventBus from a background worker.
type OutboxService struct {
	repo      *persistence.OutboxRepository
	eventBus  *EventBus
	txManager Transactor
	log       *logrus.Entry

	// Worker control
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewOutboxService creates a new OutboxService
func NewOutboxService(repo *persistence.OutboxRepository, eventBus *EventBus, txManager Transactor) *OutboxService {
	return &OutboxService{
		repo:      repo,
		eventBus:  eventBus,
		txManager: txManager,
		log:       logging.WithComponent("outbox"),
		stopCh:    make(chan struct{}),
	}
}

// Enqueue stores an event in the outbox table. When ctx carries a
// transaction the event is persisted atomically with the business operation.
func (os *OutboxService) Enqueue(ctx context.Context, eventType events.EventType, payload events.Payload) error {
	id, err := os.repo.Enqueue(ctx, string(eventType), payload)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Debugf("✅ [Outbox] Enqueued event %s (ID: %s)", eventType, id)
	return nil
}

// StartWorker starts the background worker that processes pending outbox
// events every interval.
func (os *OutboxService) StartWorker(interval time.Duration) {
	os.wg.Add(1)
	go func() {
		defer os.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		os.log.Infof("📤 Outbox worker started with %v interval", interval)

		for {
			select {
			case <-os.stopCh:
				os.log.Info("📤 Outbox worker stopping...")
				return
			case <-ticker.C:
				if err := os.ProcessOutbox(context.Background()); err != nil {
					os.log.Warnf("⚠️ Outbox worker error: %v", err)
				}
			}
		}
	}()
}

// StopWorker stops the background worker gracefully
func (os *OutboxService) StopWorker() {
	os.stopOnce.Do(func() {
		close(os.stopCh)
	})
	os.wg.Wait()
	os.log.Info("📤 Outbox worker stopped")
}

// ProcessOutbox publishes all pending events. Each event is claimed and
// settled in its own transaction.
func (os *OutboxService) ProcessOutbox(ctx context.Context) error {
	pending, err := os.repo.GetPendingEvents(ctx, outboxBatchSize)
	if err != nil {
		return err
	}

	if len(pending) > 0 {
		os.log.Debugf("🔄 [Outbox] Processing %d pending events", len(pending))
	}

	for _, e := range pending {
		if err := os.processEventAtomic(ctx, e); err != nil {
			os.log.Warnf("⚠️ Failed to process outbox event %s: %v", e.ID, err)
		}
	}
	return nil
}

// processEventAtomic claims an event, publishes it, and updates its status
// in one transaction. Events held by another worker are skipped.
func (os *OutboxService) processEventAtomic(ctx context.Context, e persistence.OutboxEvent) error {
	return os.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		claimed, err := os.repo.ClaimEvent(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("failed to claim event: %w", err)
		}
		if !claimed {
			return nil
		}

		var payload events.Payload
		if err := json.Unmarshal([]byte(e.Payload), &payload); err != nil {
			os.log.Errorf("❌ [Outbox] Event %s failed payload unmarshal: %v", e.ID, err)
			return os.repo.UpdateStatus(ctx, e.ID, persistence.OutboxFailed, fmt.Sprintf("invalid payload: %v", err))
		}

		if err := os.eventBus.Publish(ctx, events.EventType(e.EventType), payload); err != nil {
			newRetryCount := e.RetryCount + 1
			if newRetryCount >= MaxRetryAttempts {
				os.log.Errorf("❌ [Outbox] Event %s gave up after %d attempts: %v", e.ID, newRetryCount, err)
				return os.repo.UpdateStatus(ctx, e.ID, persistence.OutboxFailed, fmt.Sprintf("max retries exceeded: %v", err))
			}
			os.log.Warnf("⚠️ [Outbox] Event %s failed (Attempt %d/%d). Error: %v", e.ID, newRetryCount, MaxRetryAttempts, err)
			return os.repo.IncrementRetry(ctx, e.ID, newRetryCount, err.Error())
		}

		if err := os.repo.UpdateStatus(ctx, e.ID, persistence.OutboxProcessed, ""); err != nil {
			return fmt.Errorf("failed to mark as processed: %w", err)
		}
		os.log.Debugf("✅ [Outbox] Successfully processed event %s (Type: %s)", e.ID, e.EventType)
		return nil
	})
}

// Requeue gives a failed event a fresh retry budget.
func (os *OutboxService) Requeue(ctx context.Context, id string) error {
	return os.repo.Requeue(ctx, id)
}

// CleanupProcessed removes processed events older than olderThan.
func (os *OutboxService) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return os.repo.CleanupProcessed(ctx, cutoff)
}
