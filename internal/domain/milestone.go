package domain

import "time"

// Milestone is a sub-amount of an escrow tied to a deliverable. The index is
// its position in the escrow's sequence, assigned at creation and immutable.
type Milestone struct {
	EscrowID    int64
	Index       int64
	Description string
	Amount      int64
	Completed   bool
	Paid        bool
	CreatedAt   time.Time
	CompletedAt *time.Time
	PaidAt      *time.Time
}
