package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

// CreateEscrow validates and registers a new escrow in CREATED status. The
// authenticated subject is the depositor.
func (s *Service) CreateEscrow(ctx context.Context, actor Actor, input CreateEscrowInput) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if err := s.guardPaused(ctx); err != nil {
		return domain.Escrow{}, err
	}
	input.Beneficiary = strings.TrimSpace(input.Beneficiary)
	input.Asset = strings.TrimSpace(input.Asset)
	if input.Beneficiary == "" {
		return domain.Escrow{}, domain.ErrInvalidInput
	}
	if input.Beneficiary == actor.SubjectID {
		return domain.Escrow{}, domain.ErrInvalidParty
	}
	if input.TotalAmount < s.cfg.MinEscrowAmount {
		return domain.Escrow{}, domain.ErrAmountTooSmall
	}
	if !s.allowedAssets[input.Asset] {
		return domain.Escrow{}, domain.ErrAssetNotAllowed
	}
	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return domain.Escrow{}, err
	}
	if input.DeadlineHeight <= height || input.DeadlineHeight > height+s.cfg.MaxDeadlineHorizon {
		return domain.Escrow{}, domain.ErrInvalidDeadline
	}

	now := s.nowFn()
	row := domain.Escrow{
		ContractRef:    strings.TrimSpace(input.ContractRef),
		Depositor:      actor.SubjectID,
		Beneficiary:    input.Beneficiary,
		Asset:          input.Asset,
		TotalAmount:    input.TotalAmount,
		Status:         domain.StatusCreated,
		DeadlineHeight: input.DeadlineHeight,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	id, err := s.escrows.Create(ctx, row)
	if err != nil {
		return domain.Escrow{}, err
	}
	row.EscrowID = id
	if err := s.enqueueEscrowCreated(ctx, row, actor.RequestID, now); err != nil {
		return domain.Escrow{}, err
	}
	return row, nil
}

func (s *Service) GetEscrow(ctx context.Context, actor Actor, escrowID int64) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	if escrowID <= 0 {
		return domain.Escrow{}, domain.ErrInvalidInput
	}
	return s.escrows.GetByID(ctx, escrowID)
}

// ListEscrowsByParty pages the party's escrow ids in creation order. Pages
// past the end come back empty; limits are clamped server-side.
func (s *Service) ListEscrowsByParty(ctx context.Context, actor Actor, party string, offset, limit int) ([]int64, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	party = strings.TrimSpace(party)
	if party == "" {
		return nil, domain.ErrInvalidInput
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.escrows.ListIDsByParty(ctx, party, offset, limit)
}

func (s *Service) RemainingBalance(ctx context.Context, actor Actor, escrowID int64) (int64, error) {
	row, err := s.GetEscrow(ctx, actor, escrowID)
	if err != nil {
		return 0, err
	}
	return row.Remaining(), nil
}

// RefundEligibility mirrors the refund precondition without mutating state.
func (s *Service) RefundEligibility(ctx context.Context, actor Actor, escrowID int64) (RefundEligibility, error) {
	row, err := s.GetEscrow(ctx, actor, escrowID)
	if err != nil {
		return RefundEligibility{}, err
	}
	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return RefundEligibility{}, err
	}
	out := RefundEligibility{
		EscrowID:       row.EscrowID,
		CurrentHeight:  height,
		DeadlineHeight: row.DeadlineHeight,
		GracePeriod:    s.cfg.GracePeriod,
		Remaining:      row.Remaining(),
	}
	out.Eligible = row.Active() &&
		row.TotalAmount-row.ReleasedAmount > 0 &&
		height > row.DeadlineHeight+s.cfg.GracePeriod
	return out, nil
}

func (s *Service) guardPaused(ctx context.Context) error {
	if s.policy == nil {
		return nil
	}
	paused, err := s.policy.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return domain.ErrPaused
	}
	return nil
}

func (s *Service) resolveRole(ctx context.Context, subject string, row domain.Escrow) (string, error) {
	if s.policy == nil {
		return domain.RoleNone, nil
	}
	return s.policy.ResolveRole(ctx, subject, row)
}

func (s *Service) requireIdempotencyKey(actor Actor) error {
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.ErrIdempotencyRequired
	}
	return nil
}

func (s *Service) getIdempotentJSON(ctx context.Context, key, requestHash string, out any) (bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return false, err
	}
	if rec.RequestHash != requestHash {
		return false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rec.ResponseBody, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil {
		return nil
	}
	err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL))
	if err == domain.ErrConflict {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	b, _ := json.Marshal(payload)
	return s.idempotency.Complete(ctx, key, code, b, s.nowFn())
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
