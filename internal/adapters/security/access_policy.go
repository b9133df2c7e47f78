package security

import (
	"context"
	"strings"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

// PauseGate reports the operational circuit-breaker state. The production
// gate lives in Redis so operators can flip it without a deploy.
type PauseGate interface {
	IsPaused(ctx context.Context) (bool, error)
}

// AccessPolicy resolves subjects against escrow parties and the configured
// administrator set. Role resolution is centralized here rather than
// re-derived with field comparisons inside every operation.
type AccessPolicy struct {
	admins map[string]bool
	pause  PauseGate
}

func NewAccessPolicy(admins []string, pause PauseGate) *AccessPolicy {
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		a = strings.TrimSpace(a)
		if a != "" {
			set[a] = true
		}
	}
	return &AccessPolicy{admins: set, pause: pause}
}

func (p *AccessPolicy) ResolveRole(_ context.Context, subject string, escrow domain.Escrow) (string, error) {
	subject = strings.TrimSpace(subject)
	switch {
	case subject == "":
		return domain.RoleNone, nil
	case subject == escrow.Depositor:
		return domain.RoleDepositor, nil
	case subject == escrow.Beneficiary:
		return domain.RoleBeneficiary, nil
	case p.admins[subject]:
		return domain.RoleAdministrator, nil
	default:
		return domain.RoleNone, nil
	}
}

func (p *AccessPolicy) IsAdministrator(_ context.Context, subject string) (bool, error) {
	return p.admins[strings.TrimSpace(subject)], nil
}

func (p *AccessPolicy) IsPaused(ctx context.Context) (bool, error) {
	if p.pause == nil {
		return false, nil
	}
	return p.pause.IsPaused(ctx)
}

// StaticPauseGate is a fixed gate for tests and minimal runtimes.
type StaticPauseGate bool

func (g StaticPauseGate) IsPaused(context.Context) (bool, error) {
	return bool(g), nil
}
