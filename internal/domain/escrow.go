package domain

import (
	"strings"
	"time"
)

const (
	StatusCreated    = "created"
	StatusFunded     = "funded"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusRefunded   = "refunded"
)

const (
	RoleDepositor     = "depositor"
	RoleBeneficiary   = "beneficiary"
	RoleAdministrator = "administrator"
	RoleNone          = ""
)

// FeeDenominatorBps is the basis-point divisor for platform fee computation.
const FeeDenominatorBps = 10000

// Escrow is the settlement record for one depositor/beneficiary pair.
// Terminal rows (completed, refunded) are never deleted; they remain as
// permanent history.
type Escrow struct {
	EscrowID       int64
	ContractRef    string
	Depositor      string
	Beneficiary    string
	Asset          string
	TotalAmount    int64
	ReleasedAmount int64
	RefundedAmount int64
	Status         string
	Disputed       bool
	DisputeReason  string
	DeadlineHeight int64
	CreatedAt      time.Time
	FundedAt       *time.Time
	UpdatedAt      time.Time
}

// Remaining is the undistributed portion of the committed total.
func (e Escrow) Remaining() int64 {
	return e.TotalAmount - e.ReleasedAmount - e.RefundedAmount
}

// Releasable is the portion still eligible for release to the beneficiary.
func (e Escrow) Releasable() int64 {
	return e.TotalAmount - e.ReleasedAmount
}

func (e Escrow) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusRefunded
}

// Active reports whether funds are held and lifecycle operations apply.
func (e Escrow) Active() bool {
	return e.Status == StatusFunded || e.Status == StatusInProgress
}

// ValidateStatusTransition enforces the lifecycle edges:
// created -> funded -> in_progress -> completed, with funded/in_progress
// also allowed to terminate in refunded.
func ValidateStatusTransition(from, to string) error {
	if from == to {
		return nil
	}
	allowed := map[string]map[string]bool{
		StatusCreated:    {StatusFunded: true},
		StatusFunded:     {StatusInProgress: true, StatusCompleted: true, StatusRefunded: true},
		StatusInProgress: {StatusCompleted: true, StatusRefunded: true},
	}
	if next, ok := allowed[from]; ok && next[to] {
		return nil
	}
	return ErrInvalidStateTransition
}

// FeeFor computes the platform fee for a distribution, rounded down.
func FeeFor(amount, feeRateBps int64) int64 {
	if amount <= 0 || feeRateBps <= 0 {
		return 0
	}
	return amount * feeRateBps / FeeDenominatorBps
}

// DisputeOutcome is the closed set of administrator resolutions. Adding a
// fourth outcome requires touching every switch over this type.
type DisputeOutcome int

const (
	OutcomeUnspecified DisputeOutcome = iota
	OutcomeReleaseToBeneficiary
	OutcomeRefundToDepositor
	OutcomeSplitEven
)

func (o DisputeOutcome) String() string {
	switch o {
	case OutcomeReleaseToBeneficiary:
		return "release_to_beneficiary"
	case OutcomeRefundToDepositor:
		return "refund_to_depositor"
	case OutcomeSplitEven:
		return "split_even"
	default:
		return ""
	}
}

func ParseDisputeOutcome(raw string) (DisputeOutcome, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "release_to_beneficiary":
		return OutcomeReleaseToBeneficiary, nil
	case "refund_to_depositor":
		return OutcomeRefundToDepositor, nil
	case "split_even", "split_50_50":
		return OutcomeSplitEven, nil
	default:
		return OutcomeUnspecified, ErrInvalidOutcome
	}
}
