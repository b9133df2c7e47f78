package domain

import (
	"errors"
	"testing"
)

func TestFeeForFloorsTowardZero(t *testing.T) {
	t.Parallel()
	cases := []struct {
		amount, bps, want int64
	}{
		{1000, 250, 25},
		{500, 250, 12},
		{400, 250, 10},
		{1, 250, 0},
		{39, 250, 0},
		{40, 250, 1},
		{1000, 0, 0},
		{0, 250, 0},
		{-50, 250, 0},
		{10000, 10000, 10000},
	}
	for _, tc := range cases {
		if got := FeeFor(tc.amount, tc.bps); got != tc.want {
			t.Fatalf("FeeFor(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	allowed := [][2]string{
		{StatusCreated, StatusFunded},
		{StatusFunded, StatusInProgress},
		{StatusFunded, StatusCompleted},
		{StatusFunded, StatusRefunded},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusRefunded},
		{StatusFunded, StatusFunded},
	}
	for _, edge := range allowed {
		if err := ValidateStatusTransition(edge[0], edge[1]); err != nil {
			t.Fatalf("%s -> %s rejected: %v", edge[0], edge[1], err)
		}
	}
	forbidden := [][2]string{
		{StatusCreated, StatusInProgress},
		{StatusCreated, StatusCompleted},
		{StatusCreated, StatusRefunded},
		{StatusCompleted, StatusFunded},
		{StatusCompleted, StatusRefunded},
		{StatusRefunded, StatusFunded},
		{StatusRefunded, StatusCompleted},
		{StatusInProgress, StatusFunded},
	}
	for _, edge := range forbidden {
		if err := ValidateStatusTransition(edge[0], edge[1]); !errors.Is(err, ErrInvalidStateTransition) {
			t.Fatalf("%s -> %s: got %v, want %v", edge[0], edge[1], err, ErrInvalidStateTransition)
		}
	}
}

func TestRemainingAndReleasable(t *testing.T) {
	t.Parallel()
	row := Escrow{TotalAmount: 1000, ReleasedAmount: 300, RefundedAmount: 200}
	if got := row.Remaining(); got != 500 {
		t.Fatalf("Remaining = %d, want 500", got)
	}
	if got := row.Releasable(); got != 700 {
		t.Fatalf("Releasable = %d, want 700", got)
	}
}

func TestActiveAndTerminal(t *testing.T) {
	t.Parallel()
	for _, status := range []string{StatusFunded, StatusInProgress} {
		if !(Escrow{Status: status}).Active() {
			t.Fatalf("%s should be active", status)
		}
	}
	for _, status := range []string{StatusCreated, StatusCompleted, StatusRefunded} {
		if (Escrow{Status: status}).Active() {
			t.Fatalf("%s should not be active", status)
		}
	}
	for _, status := range []string{StatusCompleted, StatusRefunded} {
		if !(Escrow{Status: status}).IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
}

func TestParseDisputeOutcome(t *testing.T) {
	t.Parallel()
	cases := map[string]DisputeOutcome{
		"release_to_beneficiary": OutcomeReleaseToBeneficiary,
		"refund_to_depositor":    OutcomeRefundToDepositor,
		"split_even":             OutcomeSplitEven,
		"split_50_50":            OutcomeSplitEven,
		" SPLIT_EVEN ":           OutcomeSplitEven,
	}
	for raw, want := range cases {
		got, err := ParseDisputeOutcome(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q = %v, want %v", raw, got, want)
		}
	}
	if _, err := ParseDisputeOutcome("burn_it_all"); !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("got %v, want %v", err, ErrInvalidOutcome)
	}
	if (OutcomeSplitEven).String() != "split_even" {
		t.Fatalf("String round trip broken")
	}
}

func TestCanonicalEventClasses(t *testing.T) {
	t.Parallel()
	contract := []string{
		EventEscrowCreated, EventEscrowFunded, EventMilestoneCreated, EventMilestoneCompleted,
		EventFundsReleased, EventFundsRefunded, EventDisputeRaised, EventDisputeResolved,
	}
	for _, ev := range contract {
		if got := CanonicalEventClass(ev); got != CanonicalEventClassDomain {
			t.Fatalf("%s class = %q, want %q", ev, got, CanonicalEventClassDomain)
		}
	}
	if got := CanonicalEventClass("escrow.solar_flare"); got != "" {
		t.Fatalf("unknown event class = %q, want empty", got)
	}
	for _, ev := range contract {
		if !IsCanonicalEmittedEvent(ev) {
			t.Fatalf("%s not recognized as emitted event", ev)
		}
	}
	if IsCanonicalEmittedEvent("escrow.solar_flare") {
		t.Fatalf("unknown event accepted")
	}
}
