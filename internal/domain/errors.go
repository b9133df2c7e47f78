package domain

import "errors"

var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrConflict               = errors.New("conflict")
	ErrPaused                 = errors.New("service paused")
	ErrInvalidParty           = errors.New("beneficiary must differ from depositor")
	ErrAmountTooSmall         = errors.New("amount below configured minimum")
	ErrInvalidDeadline        = errors.New("deadline outside allowed horizon")
	ErrAssetNotAllowed        = errors.New("asset not allowed")
	ErrInvalidStatus          = errors.New("operation illegal for current status")
	ErrInvalidStateTransition = errors.New("invalid status transition")
	ErrAlreadyFunded          = errors.New("escrow already funded")
	ErrDeadlinePassed         = errors.New("deadline passed")
	ErrDeadlineNotReached     = errors.New("deadline plus grace period not reached")
	ErrTransferFailed         = errors.New("value transfer failed")
	ErrDisputed               = errors.New("blocked by open dispute")
	ErrAlreadyDisputed        = errors.New("dispute already open")
	ErrNoDispute              = errors.New("no open dispute")
	ErrInvalidOutcome         = errors.New("unknown dispute outcome")
	ErrZeroAmount             = errors.New("amount must be positive")
	ErrExceedsRemaining       = errors.New("amount exceeds remaining balance")
	ErrExceedsEscrowTotal     = errors.New("milestone amounts exceed escrow total")
	ErrEmptyDescription       = errors.New("description required")
	ErrAlreadyCompleted       = errors.New("milestone already completed")
	ErrAlreadyPaid            = errors.New("milestone already paid")
	ErrNotCompleted           = errors.New("milestone not completed")
	ErrNothingToRefund        = errors.New("nothing to refund")
	ErrNothingToDistribute    = errors.New("nothing to distribute")
	ErrNothingToWithdraw      = errors.New("nothing to withdraw")
	ErrIdempotencyRequired    = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")
	ErrInvalidEnvelope        = errors.New("invalid envelope")
	ErrUnsupportedEventType   = errors.New("unsupported event type")
	ErrUnsupportedEventClass  = errors.New("unsupported event class")
)
