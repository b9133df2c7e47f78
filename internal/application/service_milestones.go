package application

import (
	"context"
	"strings"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

// AddMilestone appends a milestone under the next sequential index. The sum
// of all milestone amounts may never exceed the escrow total; the cap is
// checked incrementally here, not deferred to payment time.
func (s *Service) AddMilestone(ctx context.Context, actor Actor, input AddMilestoneInput) (domain.Milestone, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Milestone{}, domain.ErrUnauthorized
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Milestone{}, err
	}
	input.Description = strings.TrimSpace(input.Description)
	if input.Amount <= 0 {
		return domain.Milestone{}, domain.ErrZeroAmount
	}
	if input.Description == "" {
		return domain.Milestone{}, domain.ErrEmptyDescription
	}

	unlock := s.locks.acquire(input.EscrowID)
	defer unlock()

	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return domain.Milestone{}, err
	}
	role, err := s.resolveRole(ctx, actor.SubjectID, row)
	if err != nil {
		return domain.Milestone{}, err
	}
	if role != domain.RoleDepositor {
		return domain.Milestone{}, domain.ErrUnauthorized
	}
	if row.Status != domain.StatusCreated && row.Status != domain.StatusFunded {
		return domain.Milestone{}, domain.ErrInvalidStatus
	}
	sum, err := s.milestones.SumAmounts(ctx, input.EscrowID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if sum+input.Amount > row.TotalAmount {
		return domain.Milestone{}, domain.ErrExceedsEscrowTotal
	}
	existing, err := s.milestones.ListByEscrowID(ctx, input.EscrowID)
	if err != nil {
		return domain.Milestone{}, err
	}

	now := s.nowFn()
	ms := domain.Milestone{
		EscrowID:    input.EscrowID,
		Index:       int64(len(existing)) + 1,
		Description: input.Description,
		Amount:      input.Amount,
		CreatedAt:   now,
	}
	if err := s.milestones.Append(ctx, ms); err != nil {
		return domain.Milestone{}, err
	}
	if err := s.enqueueMilestoneCreated(ctx, ms, actor.RequestID, now); err != nil {
		return domain.Milestone{}, err
	}
	return ms, nil
}

// CompleteMilestone is the beneficiary's claim that the deliverable is done.
func (s *Service) CompleteMilestone(ctx context.Context, actor Actor, escrowID, index int64) (domain.Milestone, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Milestone{}, domain.ErrUnauthorized
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Milestone{}, err
	}

	unlock := s.locks.acquire(escrowID)
	defer unlock()

	row, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.Milestone{}, err
	}
	role, err := s.resolveRole(ctx, actor.SubjectID, row)
	if err != nil {
		return domain.Milestone{}, err
	}
	if role != domain.RoleBeneficiary {
		return domain.Milestone{}, domain.ErrUnauthorized
	}
	ms, err := s.milestones.GetByIndex(ctx, escrowID, index)
	if err != nil {
		return domain.Milestone{}, err
	}
	if ms.Paid {
		return domain.Milestone{}, domain.ErrAlreadyPaid
	}
	if ms.Completed {
		return domain.Milestone{}, domain.ErrAlreadyCompleted
	}

	now := s.nowFn()
	ms.Completed = true
	ms.CompletedAt = &now
	if err := s.milestones.Update(ctx, ms); err != nil {
		return domain.Milestone{}, err
	}
	if err := s.enqueueMilestoneCompleted(ctx, ms, actor.RequestID, now); err != nil {
		return domain.Milestone{}, err
	}
	return ms, nil
}

// PayMilestone marks a completed milestone paid and releases its amount
// through the same accounting path as Release, so fees and the status
// transition behave identically.
func (s *Service) PayMilestone(ctx context.Context, actor Actor, escrowID, index int64) (domain.Milestone, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Milestone{}, domain.ErrUnauthorized
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return domain.Milestone{}, err
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Milestone{}, err
	}
	requestHash := hashJSON(struct {
		Op       string
		EscrowID int64
		Index    int64
	}{"pay_milestone", escrowID, index})
	var cached domain.Milestone
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return domain.Milestone{}, err
	} else if ok {
		return cached, nil
	}
	unlock := s.locks.acquire(escrowID)
	defer unlock()

	row, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.Milestone{}, err
	}
	role, err := s.resolveRole(ctx, actor.SubjectID, row)
	if err != nil {
		return domain.Milestone{}, err
	}
	if role != domain.RoleDepositor {
		return domain.Milestone{}, domain.ErrUnauthorized
	}
	if !row.Active() {
		return domain.Milestone{}, domain.ErrInvalidStatus
	}
	if row.Disputed {
		return domain.Milestone{}, domain.ErrDisputed
	}
	ms, err := s.milestones.GetByIndex(ctx, escrowID, index)
	if err != nil {
		return domain.Milestone{}, err
	}
	if ms.Paid {
		return domain.Milestone{}, domain.ErrAlreadyPaid
	}
	if !ms.Completed {
		return domain.Milestone{}, domain.ErrNotCompleted
	}
	if ms.Amount <= 0 {
		return domain.Milestone{}, domain.ErrZeroAmount
	}
	if ms.Amount > row.Releasable() {
		return domain.Milestone{}, domain.ErrExceedsRemaining
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Milestone{}, err
	}

	now := s.nowFn()
	prevMs := ms
	ms.Paid = true
	ms.PaidAt = &now
	if err := s.milestones.Update(ctx, ms); err != nil {
		return domain.Milestone{}, err
	}
	fee, net, err := s.applyRelease(ctx, &row, ms.Amount, now)
	if err != nil {
		_ = s.milestones.Update(ctx, prevMs)
		return domain.Milestone{}, err
	}
	if err := s.enqueueFundsReleased(ctx, row, ms.Amount, fee, net, actor.RequestID, now); err != nil {
		return domain.Milestone{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, ms)
	return ms, nil
}

func (s *Service) ListMilestones(ctx context.Context, actor Actor, escrowID int64) ([]domain.Milestone, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if escrowID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.escrows.GetByID(ctx, escrowID); err != nil {
		return nil, err
	}
	return s.milestones.ListByEscrowID(ctx, escrowID)
}
