package ports

import (
	"context"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

// TransferClient is the external value-transfer primitive. Every call is
// atomic and synchronous: it either fully succeeds or reports failure with
// no partial movement. The lifecycle never issues the same logical movement
// twice.
type TransferClient interface {
	// TransferIn pulls pre-authorized funds from the depositor into custody.
	TransferIn(ctx context.Context, asset, from string, amount int64) error
	// Transfer moves funds between accounts, typically out of custody.
	Transfer(ctx context.Context, asset, from, to string, amount int64) error
}

// AccessPolicy resolves caller identity against escrow roles and the
// operational pause state.
type AccessPolicy interface {
	ResolveRole(ctx context.Context, subject string, escrow domain.Escrow) (string, error)
	IsAdministrator(ctx context.Context, subject string) (bool, error)
	IsPaused(ctx context.Context) (bool, error)
}

// LedgerClock exposes the monotonic height used for deadline arithmetic.
type LedgerClock interface {
	CurrentHeight(ctx context.Context) (int64, error)
}
