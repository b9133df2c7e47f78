package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fairwork/escrow-settlement-service/internal/adapters/security"
	"github.com/fairwork/escrow-settlement-service/internal/application"
	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

func TestAddMilestoneRules(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 100)

	if _, err := env.svc.AddMilestone(ctx, beneficiary(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "design", Amount: 40}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("beneficiary add: got %v, want %v", err, domain.ErrUnauthorized)
	}
	if _, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: " ", Amount: 40}); !errors.Is(err, domain.ErrEmptyDescription) {
		t.Fatalf("blank description: got %v, want %v", err, domain.ErrEmptyDescription)
	}
	if _, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "design", Amount: 0}); !errors.Is(err, domain.ErrZeroAmount) {
		t.Fatalf("zero amount: got %v, want %v", err, domain.ErrZeroAmount)
	}

	first, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "design", Amount: 60})
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	if first.Index != 1 {
		t.Fatalf("first index = %d, want 1", first.Index)
	}

	// 60 + 50 would exceed the 100 total.
	if _, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "build", Amount: 50}); !errors.Is(err, domain.ErrExceedsEscrowTotal) {
		t.Fatalf("overcommit: got %v, want %v", err, domain.ErrExceedsEscrowTotal)
	}

	second, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "build", Amount: 40})
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if second.Index != 2 {
		t.Fatalf("second index = %d, want 2", second.Index)
	}
}

func TestAddMilestoneOnlyBeforeWorkStarts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 1000)
	fundEscrow(t, env, row.EscrowID)

	// Funded is still fine.
	if _, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "phase 1", Amount: 400}); err != nil {
		t.Fatalf("add while funded: %v", err)
	}

	if _, err := env.svc.Release(ctx, depositor("rel-ms"), application.ReleaseInput{EscrowID: row.EscrowID, Amount: 100}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "phase 2", Amount: 100}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("add in progress: got %v, want %v", err, domain.ErrInvalidStatus)
	}
}

func TestMilestoneCompleteAndPayFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 1000)
	ms, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "deliverable", Amount: 400})
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	fundEscrow(t, env, row.EscrowID)

	// Paying before completion is rejected.
	if _, err := env.svc.PayMilestone(ctx, depositor("pay-early"), row.EscrowID, ms.Index); !errors.Is(err, domain.ErrNotCompleted) {
		t.Fatalf("pay before complete: got %v, want %v", err, domain.ErrNotCompleted)
	}

	// Only the beneficiary marks work done.
	if _, err := env.svc.CompleteMilestone(ctx, depositor(""), row.EscrowID, ms.Index); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("depositor complete: got %v, want %v", err, domain.ErrUnauthorized)
	}
	done, err := env.svc.CompleteMilestone(ctx, beneficiary(""), row.EscrowID, ms.Index)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Fatalf("milestone not marked complete: %+v", done)
	}
	if _, err := env.svc.CompleteMilestone(ctx, beneficiary(""), row.EscrowID, ms.Index); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("double complete: got %v, want %v", err, domain.ErrAlreadyCompleted)
	}

	// Only the depositor pays.
	if _, err := env.svc.PayMilestone(ctx, beneficiary("pay-wrong"), row.EscrowID, ms.Index); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("beneficiary pay: got %v, want %v", err, domain.ErrUnauthorized)
	}
	paid, err := env.svc.PayMilestone(ctx, depositor("pay-1"), row.EscrowID, ms.Index)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !paid.Paid || paid.PaidAt == nil {
		t.Fatalf("milestone not marked paid: %+v", paid)
	}

	// Payment goes through the same fee accounting as a direct release:
	// 400 at 250 bps nets 390 to the beneficiary.
	last := env.transfers.Movements()[len(env.transfers.Movements())-1]
	if last.To != "freelancer-1" || last.Amount != 390 {
		t.Fatalf("unexpected payout movement: %+v", last)
	}
	reloaded, err := env.svc.GetEscrow(ctx, depositor(""), row.EscrowID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ReleasedAmount != 400 || reloaded.Status != domain.StatusInProgress {
		t.Fatalf("escrow after pay: released=%d status=%q", reloaded.ReleasedAmount, reloaded.Status)
	}

	// A new idempotency key for an already paid milestone is a conflict,
	// not a second payment.
	if _, err := env.svc.PayMilestone(ctx, depositor("pay-2"), row.EscrowID, ms.Index); !errors.Is(err, domain.ErrAlreadyPaid) {
		t.Fatalf("double pay: got %v, want %v", err, domain.ErrAlreadyPaid)
	}
	// Completing a paid milestone is also final.
	if _, err := env.svc.CompleteMilestone(ctx, beneficiary(""), row.EscrowID, ms.Index); !errors.Is(err, domain.ErrAlreadyPaid) {
		t.Fatalf("complete after pay: got %v, want %v", err, domain.ErrAlreadyPaid)
	}
}

func TestPayMilestoneTransferFailureRollsBack(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 1000)
	ms, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "deliverable", Amount: 400})
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	fundEscrow(t, env, row.EscrowID)
	if _, err := env.svc.CompleteMilestone(ctx, beneficiary(""), row.EscrowID, ms.Index); err != nil {
		t.Fatalf("complete: %v", err)
	}

	env.transfers.FailNext()
	if _, err := env.svc.PayMilestone(ctx, depositor("pay-fail"), row.EscrowID, ms.Index); !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("got %v, want %v", err, domain.ErrTransferFailed)
	}

	reloaded, err := env.svc.GetEscrow(ctx, depositor(""), row.EscrowID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ReleasedAmount != 0 {
		t.Fatalf("release not reverted: %d", reloaded.ReleasedAmount)
	}
	after, err := env.repos.Milestones.GetByIndex(ctx, row.EscrowID, ms.Index)
	if err != nil {
		t.Fatalf("get milestone: %v", err)
	}
	if after.Paid {
		t.Fatalf("milestone left marked paid after failed transfer")
	}
}

func TestPayMilestoneBlockedWhileDisputed(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 1000)
	ms, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: "deliverable", Amount: 400})
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	fundEscrow(t, env, row.EscrowID)
	if _, err := env.svc.CompleteMilestone(ctx, beneficiary(""), row.EscrowID, ms.Index); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.svc.RaiseDispute(ctx, depositor(""), row.EscrowID, "quality concerns"); err != nil {
		t.Fatalf("raise dispute: %v", err)
	}
	if _, err := env.svc.PayMilestone(ctx, depositor("pay-disputed"), row.EscrowID, ms.Index); !errors.Is(err, domain.ErrDisputed) {
		t.Fatalf("got %v, want %v", err, domain.ErrDisputed)
	}
}

func TestListMilestonesOrdered(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 1000)
	for i, desc := range []string{"design", "build", "ship"} {
		if _, err := env.svc.AddMilestone(ctx, depositor(""), application.AddMilestoneInput{EscrowID: row.EscrowID, Description: desc, Amount: 100}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	list, err := env.svc.ListMilestones(ctx, beneficiary(""), row.EscrowID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, ms := range list {
		if ms.Index != int64(i)+1 {
			t.Fatalf("index at %d = %d", i, ms.Index)
		}
	}
}
