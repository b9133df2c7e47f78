package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairwork/escrow-settlement-service/internal/contracts"
	"github.com/fairwork/escrow-settlement-service/internal/domain"
	"github.com/fairwork/escrow-settlement-service/internal/ports"
)

// FlushOutbox publishes pending outbox records to their class-specific
// publishers. Domain-class publish failures are mirrored to the DLQ and
// abort the batch so the record stays pending for retry.
func (s *Service) FlushOutbox(ctx context.Context) (int, error) {
	if s.outbox == nil {
		return 0, nil
	}
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range pending {
		now := s.nowFn()
		switch rec.EventClass {
		case domain.CanonicalEventClassDomain:
			if s.domainEvents != nil {
				if err := s.domainEvents.PublishDomain(ctx, rec.Envelope); err != nil {
					if s.dlq != nil {
						n := s.nowFn()
						_ = s.dlq.PublishDLQ(ctx, contracts.DLQRecord{
							OriginalEvent: rec.Envelope,
							ErrorSummary:  err.Error(),
							RetryCount:    1,
							FirstSeenAt:   n,
							LastErrorAt:   n,
							SourceTopic:   rec.Envelope.EventType,
							DLQTopic:      "escrow-settlement-service.dlq",
							TraceID:       rec.Envelope.TraceID,
						})
					}
					return sent, err
				}
			}
			// The analytics stream mirrors domain events best effort;
			// durable delivery is the domain topic's job.
			if s.analytics != nil {
				_ = s.analytics.PublishAnalytics(ctx, rec.Envelope)
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics != nil {
				_ = s.analytics.PublishAnalytics(ctx, rec.Envelope)
			}
		default:
			return sent, fmt.Errorf("%w: %s", domain.ErrUnsupportedEventClass, rec.EventClass)
		}
		if err := s.outbox.MarkSent(ctx, rec.RecordID, now); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, traceID string, data any, escrowID int64, now time.Time) error {
	if s.outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrUnsupportedEventType
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     strconv.FormatInt(escrowID, 10),
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: env.EventClass,
		Envelope:   env,
		CreatedAt:  now,
	})
}

func (s *Service) enqueueEscrowCreated(ctx context.Context, row domain.Escrow, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventEscrowCreated, traceID, contracts.EscrowCreatedPayload{
		EscrowID:       row.EscrowID,
		ContractRef:    row.ContractRef,
		Depositor:      row.Depositor,
		Beneficiary:    row.Beneficiary,
		Asset:          row.Asset,
		TotalAmount:    row.TotalAmount,
		DeadlineHeight: row.DeadlineHeight,
		CreatedAt:      now.UTC().Format(time.RFC3339),
	}, row.EscrowID, now)
}

func (s *Service) enqueueEscrowFunded(ctx context.Context, row domain.Escrow, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventEscrowFunded, traceID, contracts.EscrowFundedPayload{
		EscrowID:  row.EscrowID,
		Depositor: row.Depositor,
		Amount:    row.TotalAmount,
		FundedAt:  now.UTC().Format(time.RFC3339),
	}, row.EscrowID, now)
}

func (s *Service) enqueueMilestoneCreated(ctx context.Context, ms domain.Milestone, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventMilestoneCreated, traceID, contracts.MilestoneCreatedPayload{
		EscrowID:  ms.EscrowID,
		Index:     ms.Index,
		Amount:    ms.Amount,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}, ms.EscrowID, now)
}

func (s *Service) enqueueMilestoneCompleted(ctx context.Context, ms domain.Milestone, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventMilestoneCompleted, traceID, contracts.MilestoneCompletedPayload{
		EscrowID:    ms.EscrowID,
		Index:       ms.Index,
		CompletedAt: now.UTC().Format(time.RFC3339),
	}, ms.EscrowID, now)
}

func (s *Service) enqueueFundsReleased(ctx context.Context, row domain.Escrow, amount, fee, net int64, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventFundsReleased, traceID, contracts.FundsReleasedPayload{
		EscrowID:         row.EscrowID,
		Beneficiary:      row.Beneficiary,
		Amount:           amount,
		Fee:              fee,
		NetAmount:        net,
		RemainingBalance: row.Remaining(),
		Status:           row.Status,
		ReleasedAt:       now.UTC().Format(time.RFC3339),
	}, row.EscrowID, now)
}

func (s *Service) enqueueFundsRefunded(ctx context.Context, row domain.Escrow, amount int64, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventFundsRefunded, traceID, contracts.FundsRefundedPayload{
		EscrowID:   row.EscrowID,
		Depositor:  row.Depositor,
		Amount:     amount,
		RefundedAt: now.UTC().Format(time.RFC3339),
	}, row.EscrowID, now)
}

func (s *Service) enqueueDisputeRaised(ctx context.Context, row domain.Escrow, raisedBy, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDisputeRaised, traceID, contracts.DisputeRaisedPayload{
		EscrowID: row.EscrowID,
		RaisedBy: raisedBy,
		Reason:   row.DisputeReason,
		RaisedAt: now.UTC().Format(time.RFC3339),
	}, row.EscrowID, now)
}

func (s *Service) enqueueDisputeResolved(ctx context.Context, row domain.Escrow, outcome domain.DisputeOutcome, released, refunded, fee int64, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDisputeResolved, traceID, contracts.DisputeResolvedPayload{
		EscrowID:       row.EscrowID,
		Outcome:        outcome.String(),
		ReleasedAmount: released,
		RefundedAmount: refunded,
		Fee:            fee,
		ResolvedAt:     now.UTC().Format(time.RFC3339),
	}, row.EscrowID, now)
}
