package security

import (
	"context"
	"testing"
	"time"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

func TestResolveRolePrecedence(t *testing.T) {
	t.Parallel()
	policy := NewAccessPolicy([]string{"admin-1", "client-1"}, StaticPauseGate(false))
	row := domain.Escrow{Depositor: "client-1", Beneficiary: "freelancer-1"}

	// Party membership wins over admin listing for the same subject.
	role, err := policy.ResolveRole(context.Background(), "client-1", row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if role != domain.RoleDepositor {
		t.Fatalf("role = %q, want %q", role, domain.RoleDepositor)
	}

	role, _ = policy.ResolveRole(context.Background(), "freelancer-1", row)
	if role != domain.RoleBeneficiary {
		t.Fatalf("role = %q, want %q", role, domain.RoleBeneficiary)
	}
	role, _ = policy.ResolveRole(context.Background(), "admin-1", row)
	if role != domain.RoleAdministrator {
		t.Fatalf("role = %q, want %q", role, domain.RoleAdministrator)
	}
	role, _ = policy.ResolveRole(context.Background(), "stranger", row)
	if role != domain.RoleNone {
		t.Fatalf("role = %q, want none", role)
	}
}

func TestTokenVerifierRoundTrip(t *testing.T) {
	t.Parallel()
	verifier, err := NewTokenVerifier("unit-test-secret")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := verifier.IssueToken("client-1", "user", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.SubjectID != "client-1" || claims.Role != "user" {
		t.Fatalf("claims: %+v", claims)
	}

	other, err := NewTokenVerifier("different-secret")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Fatalf("token verified with wrong secret")
	}
	if _, err := verifier.Verify("not-a-token"); err == nil {
		t.Fatalf("garbage token verified")
	}
}
