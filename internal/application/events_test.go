package application_test

import (
	"context"
	"testing"

	"github.com/fairwork/escrow-settlement-service/internal/adapters/security"
	"github.com/fairwork/escrow-settlement-service/internal/application"
	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

func TestLifecycleEventsFlushToClassPublishers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 1000)
	fundEscrow(t, env, row.EscrowID)
	if _, err := env.svc.Release(ctx, depositor("rel-ev"), application.ReleaseInput{EscrowID: row.EscrowID, Amount: 1000}); err != nil {
		t.Fatalf("release: %v", err)
	}

	sent, err := env.svc.FlushOutbox(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if sent != 3 {
		t.Fatalf("sent = %d, want 3", sent)
	}

	// Every contract event rides the durable domain stream, in the order
	// the transitions happened, and mirrors to analytics.
	want := []string{domain.EventEscrowCreated, domain.EventEscrowFunded, domain.EventFundsReleased}
	domainEvents := env.domainEvents.Events()
	if len(domainEvents) != len(want) {
		t.Fatalf("domain events: %+v", domainEvents)
	}
	for i, ev := range domainEvents {
		if ev.EventType != want[i] {
			t.Fatalf("domain event %d = %q, want %q", i, ev.EventType, want[i])
		}
		if ev.PartitionKey == "" || ev.SchemaVersion != "v1" {
			t.Fatalf("envelope incomplete: %+v", ev)
		}
	}
	analytics := env.analytics.Events()
	if len(analytics) != len(want) {
		t.Fatalf("analytics mirror = %d events, want %d", len(analytics), len(want))
	}

	// A second flush is a no-op: every record was marked sent.
	sent, err = env.svc.FlushOutbox(ctx)
	if err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if sent != 0 {
		t.Fatalf("second flush sent = %d, want 0", sent)
	}
	if len(env.domainEvents.Events()) != len(want) {
		t.Fatalf("domain events delivered twice")
	}
}

func TestFlushDeadLettersFailedDomainEvent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 1000)
	fundEscrow(t, env, row.EscrowID)
	if _, err := env.svc.Release(ctx, depositor("rel-dlq"), application.ReleaseInput{EscrowID: row.EscrowID, Amount: 1000}); err != nil {
		t.Fatalf("release: %v", err)
	}

	env.domainEvents.FailNext()
	if _, err := env.svc.FlushOutbox(ctx); err == nil {
		t.Fatalf("expected flush error on domain publish failure")
	}

	records := env.dlq.Records()
	if len(records) != 1 || records[0].OriginalEvent.EventType != domain.EventEscrowCreated {
		t.Fatalf("dlq records: %+v", records)
	}
	if len(env.domainEvents.Events()) != 0 {
		t.Fatalf("events delivered despite publish failure")
	}

	// Every record stays pending and delivers on retry.
	sent, err := env.svc.FlushOutbox(ctx)
	if err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if sent != 3 {
		t.Fatalf("retry sent = %d, want 3", sent)
	}
	if len(env.domainEvents.Events()) != 3 {
		t.Fatalf("domain events after retry = %d, want 3", len(env.domainEvents.Events()))
	}
}

func TestDisputeEventsCarryOutcome(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, security.StaticPauseGate(false))
	ctx := context.Background()

	row := createEscrow(t, env, 1000)
	fundEscrow(t, env, row.EscrowID)
	if _, err := env.svc.RaiseDispute(ctx, beneficiary(""), row.EscrowID, "late delivery"); err != nil {
		t.Fatalf("raise dispute: %v", err)
	}
	if _, err := env.svc.ResolveDispute(ctx, admin("res-ev"), application.ResolveDisputeInput{EscrowID: row.EscrowID, Outcome: "split_even"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := env.svc.FlushOutbox(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	seen := map[string]int{}
	for _, ev := range env.domainEvents.Events() {
		seen[ev.EventType]++
	}
	if seen[domain.EventDisputeRaised] != 1 || seen[domain.EventDisputeResolved] != 1 {
		t.Fatalf("dispute events on durable stream: %v", seen)
	}
}
