package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

// FeeBalance reports the accrued, unwithdrawn platform fee for an asset.
// Administrator only.
func (s *Service) FeeBalance(ctx context.Context, actor Actor, asset string) (int64, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return 0, domain.ErrUnauthorized
	}
	admin, err := s.policy.IsAdministrator(ctx, actor.SubjectID)
	if err != nil {
		return 0, err
	}
	if !admin {
		return 0, domain.ErrUnauthorized
	}
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return 0, domain.ErrInvalidInput
	}
	return s.fees.Balance(ctx, asset)
}

// WithdrawFees zeroes the asset's accrued balance and transfers it to the
// fee treasury. The operation is exempt from the pause gate but not from
// authorization.
func (s *Service) WithdrawFees(ctx context.Context, actor Actor, asset string) (FeeWithdrawal, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return FeeWithdrawal{}, domain.ErrUnauthorized
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return FeeWithdrawal{}, err
	}
	admin, err := s.policy.IsAdministrator(ctx, actor.SubjectID)
	if err != nil {
		return FeeWithdrawal{}, err
	}
	if !admin {
		return FeeWithdrawal{}, domain.ErrUnauthorized
	}
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return FeeWithdrawal{}, domain.ErrInvalidInput
	}
	requestHash := hashJSON(struct {
		Op    string
		Asset string
	}{"withdraw_fees", asset})
	var cached FeeWithdrawal
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return FeeWithdrawal{}, err
	} else if ok {
		return cached, nil
	}
	balance, err := s.fees.Balance(ctx, asset)
	if err != nil {
		return FeeWithdrawal{}, err
	}
	if balance <= 0 {
		return FeeWithdrawal{}, domain.ErrNothingToWithdraw
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return FeeWithdrawal{}, err
	}

	amount, err := s.fees.Withdraw(ctx, asset)
	if err != nil {
		return FeeWithdrawal{}, err
	}
	if amount <= 0 {
		return FeeWithdrawal{}, domain.ErrNothingToWithdraw
	}
	if err := s.transfers.Transfer(ctx, asset, s.cfg.CustodyAccount, s.cfg.FeeTreasuryAccount, amount); err != nil {
		_ = s.fees.Accrue(ctx, asset, amount)
		return FeeWithdrawal{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	out := FeeWithdrawal{Asset: asset, Amount: amount}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
	return out, nil
}
