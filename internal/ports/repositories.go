package ports

import (
	"context"
	"time"

	"github.com/fairwork/escrow-settlement-service/internal/contracts"
	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

// EscrowRepository owns escrow rows and the monotonic identifier sequence.
type EscrowRepository interface {
	// Create persists the row and returns the next sequential escrow id.
	Create(ctx context.Context, row domain.Escrow) (int64, error)
	GetByID(ctx context.Context, escrowID int64) (domain.Escrow, error)
	Update(ctx context.Context, row domain.Escrow) error
	// ListIDsByParty returns ids associated with the party (as depositor or
	// beneficiary) in creation order, clamped to the available count.
	ListIDsByParty(ctx context.Context, party string, offset, limit int) ([]int64, error)
}

type MilestoneRepository interface {
	// Append persists the milestone under the next sequential index for its
	// escrow; the caller assigns Index.
	Append(ctx context.Context, row domain.Milestone) error
	GetByIndex(ctx context.Context, escrowID, index int64) (domain.Milestone, error)
	Update(ctx context.Context, row domain.Milestone) error
	ListByEscrowID(ctx context.Context, escrowID int64) ([]domain.Milestone, error)
	SumAmounts(ctx context.Context, escrowID int64) (int64, error)
}

// FeeRepository tracks accrued, unwithdrawn platform fees per asset.
type FeeRepository interface {
	// Accrue adjusts the asset balance by delta. Negative deltas are only
	// used to reverse an accrual after a failed transfer.
	Accrue(ctx context.Context, asset string, delta int64) error
	Balance(ctx context.Context, asset string) (int64, error)
	// Withdraw zeroes the asset balance and returns the withdrawn amount.
	Withdraw(ctx context.Context, asset string) (int64, error)
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
