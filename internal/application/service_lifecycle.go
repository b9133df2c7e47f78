package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

// Fund moves the committed total from the depositor into custody and marks
// the escrow FUNDED. The deadline must not have passed.
func (s *Service) Fund(ctx context.Context, actor Actor, escrowID int64) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Escrow{}, err
	}
	requestHash := hashJSON(struct {
		Op       string
		EscrowID int64
	}{"fund", escrowID})
	var cached domain.Escrow
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return domain.Escrow{}, err
	} else if ok {
		return cached, nil
	}
	unlock := s.locks.acquire(escrowID)
	defer unlock()

	row, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	role, err := s.resolveRole(ctx, actor.SubjectID, row)
	if err != nil {
		return domain.Escrow{}, err
	}
	if role != domain.RoleDepositor {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if row.Status != domain.StatusCreated {
		return domain.Escrow{}, domain.ErrAlreadyFunded
	}
	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return domain.Escrow{}, err
	}
	if height > row.DeadlineHeight {
		return domain.Escrow{}, domain.ErrDeadlinePassed
	}
	// Reserved only once every guard has passed, so a rejected call does
	// not burn its key and a corrected retry may reuse it.
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Escrow{}, err
	}

	prev := row
	now := s.nowFn()
	row.Status = domain.StatusFunded
	row.FundedAt = &now
	row.UpdatedAt = now
	if err := s.escrows.Update(ctx, row); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.transfers.TransferIn(ctx, row.Asset, row.Depositor, row.TotalAmount); err != nil {
		_ = s.escrows.Update(ctx, prev)
		return domain.Escrow{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	if err := s.enqueueEscrowFunded(ctx, row, actor.RequestID, now); err != nil {
		return domain.Escrow{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, row)
	return row, nil
}

// Release pays part of the escrow to the beneficiary, net of the platform
// fee. State is committed before the transfer call so a reentrant caller
// observes the updated amounts and is rejected by the guards.
func (s *Service) Release(ctx context.Context, actor Actor, input ReleaseInput) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Escrow{}, err
	}
	requestHash := hashJSON(struct {
		Op string
		In ReleaseInput
	}{"release", input})
	var cached domain.Escrow
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return domain.Escrow{}, err
	} else if ok {
		return cached, nil
	}
	unlock := s.locks.acquire(input.EscrowID)
	defer unlock()

	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	role, err := s.resolveRole(ctx, actor.SubjectID, row)
	if err != nil {
		return domain.Escrow{}, err
	}
	if role != domain.RoleDepositor {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if !row.Active() {
		return domain.Escrow{}, domain.ErrInvalidStatus
	}
	if row.Disputed {
		return domain.Escrow{}, domain.ErrDisputed
	}
	if input.Amount <= 0 {
		return domain.Escrow{}, domain.ErrZeroAmount
	}
	if input.Amount > row.Releasable() {
		return domain.Escrow{}, domain.ErrExceedsRemaining
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Escrow{}, err
	}

	now := s.nowFn()
	fee, net, err := s.applyRelease(ctx, &row, input.Amount, now)
	if err != nil {
		return domain.Escrow{}, err
	}
	if err := s.enqueueFundsReleased(ctx, row, input.Amount, fee, net, actor.RequestID, now); err != nil {
		return domain.Escrow{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, row)
	return row, nil
}

// applyRelease commits the release accounting, accrues the fee, and issues
// the single outbound transfer. On transfer failure every write is reversed
// under the caller-held escrow lock, so the operation is atomic to other
// callers. The status moves to COMPLETED only when released equals total.
func (s *Service) applyRelease(ctx context.Context, row *domain.Escrow, amount int64, now time.Time) (fee, net int64, err error) {
	fee = domain.FeeFor(amount, s.cfg.FeeRateBps)
	net = amount - fee

	prev := *row
	row.ReleasedAmount += amount
	if row.ReleasedAmount == row.TotalAmount {
		row.Status = domain.StatusCompleted
	} else {
		row.Status = domain.StatusInProgress
	}
	row.UpdatedAt = now
	if err = s.escrows.Update(ctx, *row); err != nil {
		*row = prev
		return 0, 0, err
	}
	if fee > 0 {
		if err = s.fees.Accrue(ctx, row.Asset, fee); err != nil {
			_ = s.escrows.Update(ctx, prev)
			*row = prev
			return 0, 0, err
		}
	}
	if err = s.transfers.Transfer(ctx, row.Asset, s.cfg.CustodyAccount, row.Beneficiary, net); err != nil {
		if fee > 0 {
			_ = s.fees.Accrue(ctx, row.Asset, -fee)
		}
		_ = s.escrows.Update(ctx, prev)
		*row = prev
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	return fee, net, nil
}

// Refund returns the undistributed remainder to the depositor once the
// deadline plus grace period has elapsed. Depositor or administrator only.
func (s *Service) Refund(ctx context.Context, actor Actor, escrowID int64) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Escrow{}, err
	}
	requestHash := hashJSON(struct {
		Op       string
		EscrowID int64
	}{"refund", escrowID})
	var cached domain.Escrow
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return domain.Escrow{}, err
	} else if ok {
		return cached, nil
	}
	unlock := s.locks.acquire(escrowID)
	defer unlock()

	row, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	role, err := s.resolveRole(ctx, actor.SubjectID, row)
	if err != nil {
		return domain.Escrow{}, err
	}
	if role != domain.RoleDepositor && role != domain.RoleAdministrator {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if !row.Active() {
		return domain.Escrow{}, domain.ErrInvalidStatus
	}
	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return domain.Escrow{}, err
	}
	if height <= row.DeadlineHeight+s.cfg.GracePeriod {
		return domain.Escrow{}, domain.ErrDeadlineNotReached
	}
	remaining := row.TotalAmount - row.ReleasedAmount
	if remaining <= 0 {
		return domain.Escrow{}, domain.ErrNothingToRefund
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Escrow{}, err
	}

	prev := row
	now := s.nowFn()
	row.RefundedAmount = remaining
	row.Status = domain.StatusRefunded
	row.Disputed = false
	row.DisputeReason = ""
	row.UpdatedAt = now
	if err := s.escrows.Update(ctx, row); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.transfers.Transfer(ctx, row.Asset, s.cfg.CustodyAccount, row.Depositor, remaining); err != nil {
		_ = s.escrows.Update(ctx, prev)
		return domain.Escrow{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	if err := s.enqueueFundsRefunded(ctx, row, remaining, actor.RequestID, now); err != nil {
		return domain.Escrow{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, row)
	return row, nil
}

// RaiseDispute flags the escrow, blocking releases until resolution.
func (s *Service) RaiseDispute(ctx context.Context, actor Actor, escrowID int64, reason string) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Escrow{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Escrow{}, domain.ErrInvalidInput
	}

	unlock := s.locks.acquire(escrowID)
	defer unlock()

	row, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	role, err := s.resolveRole(ctx, actor.SubjectID, row)
	if err != nil {
		return domain.Escrow{}, err
	}
	if role != domain.RoleDepositor && role != domain.RoleBeneficiary {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if !row.Active() {
		return domain.Escrow{}, domain.ErrInvalidStatus
	}
	if row.Disputed {
		return domain.Escrow{}, domain.ErrAlreadyDisputed
	}

	now := s.nowFn()
	row.Disputed = true
	row.DisputeReason = reason
	row.UpdatedAt = now
	if err := s.escrows.Update(ctx, row); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.enqueueDisputeRaised(ctx, row, actor.SubjectID, actor.RequestID, now); err != nil {
		return domain.Escrow{}, err
	}
	return row, nil
}

// ResolveDispute applies exactly one administrator outcome to the remaining
// balance. All three branches accrue fees identically to Release.
func (s *Service) ResolveDispute(ctx context.Context, actor Actor, input ResolveDisputeInput) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Escrow{}, err
	}
	outcome, err := domain.ParseDisputeOutcome(input.Outcome)
	if err != nil {
		return domain.Escrow{}, err
	}
	requestHash := hashJSON(struct {
		Op string
		In ResolveDisputeInput
	}{"resolve_dispute", input})
	var cached domain.Escrow
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return domain.Escrow{}, err
	} else if ok {
		return cached, nil
	}
	unlock := s.locks.acquire(input.EscrowID)
	defer unlock()

	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	admin, err := s.policy.IsAdministrator(ctx, actor.SubjectID)
	if err != nil {
		return domain.Escrow{}, err
	}
	if !admin {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if !row.Disputed {
		return domain.Escrow{}, domain.ErrNoDispute
	}
	if !row.Active() {
		return domain.Escrow{}, domain.ErrInvalidStatus
	}
	remaining := row.Remaining()
	if remaining <= 0 {
		return domain.Escrow{}, domain.ErrNothingToDistribute
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Escrow{}, err
	}

	prev := row
	now := s.nowFn()
	row.Disputed = false
	row.DisputeReason = ""
	row.UpdatedAt = now

	var fee, releasedDelta, refundedDelta int64
	switch outcome {
	case domain.OutcomeReleaseToBeneficiary:
		fee = domain.FeeFor(remaining, s.cfg.FeeRateBps)
		releasedDelta = remaining
		row.ReleasedAmount = row.TotalAmount
		row.Status = domain.StatusCompleted
	case domain.OutcomeRefundToDepositor:
		refundedDelta = remaining
		row.RefundedAmount += remaining
		row.Status = domain.StatusRefunded
	case domain.OutcomeSplitEven:
		half := remaining / 2
		fee = domain.FeeFor(half, s.cfg.FeeRateBps)
		releasedDelta = half
		refundedDelta = remaining - half
		row.ReleasedAmount += half
		row.RefundedAmount += remaining - half
		row.Status = domain.StatusCompleted
	default:
		return domain.Escrow{}, domain.ErrInvalidOutcome
	}

	if err := s.escrows.Update(ctx, row); err != nil {
		return domain.Escrow{}, err
	}
	if fee > 0 {
		if err := s.fees.Accrue(ctx, row.Asset, fee); err != nil {
			_ = s.escrows.Update(ctx, prev)
			return domain.Escrow{}, err
		}
	}
	// The depositor leg settles first, so it can still revert cleanly. If
	// the beneficiary leg then fails, the settled refund is kept on the
	// record and the dispute stays open over the remainder; a retry only
	// ever distributes funds still in custody, never a settled leg again.
	if refundedDelta > 0 {
		if err := s.transfers.Transfer(ctx, row.Asset, s.cfg.CustodyAccount, row.Depositor, refundedDelta); err != nil {
			if fee > 0 {
				_ = s.fees.Accrue(ctx, row.Asset, -fee)
			}
			_ = s.escrows.Update(ctx, prev)
			return domain.Escrow{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}
	}
	if releasedDelta > 0 {
		if err := s.transfers.Transfer(ctx, row.Asset, s.cfg.CustodyAccount, row.Beneficiary, releasedDelta-fee); err != nil {
			if fee > 0 {
				_ = s.fees.Accrue(ctx, row.Asset, -fee)
			}
			reverted := prev
			if refundedDelta > 0 {
				reverted.RefundedAmount += refundedDelta
				reverted.Status = domain.StatusInProgress
				reverted.UpdatedAt = now
			}
			_ = s.escrows.Update(ctx, reverted)
			return domain.Escrow{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}
	}
	if err := s.enqueueDisputeResolved(ctx, row, outcome, releasedDelta, refundedDelta, fee, actor.RequestID, now); err != nil {
		return domain.Escrow{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, row)
	return row, nil
}
