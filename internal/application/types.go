package application

import (
	"time"

	"github.com/fairwork/escrow-settlement-service/internal/ports"
)

type Config struct {
	ServiceName          string
	FeeRateBps           int64
	MinEscrowAmount      int64
	MaxDeadlineHorizon   int64
	GracePeriod          int64
	CustodyAccount       string
	FeeTreasuryAccount   string
	AllowedAssets        []string
	IdempotencyTTL       time.Duration
	OutboxFlushBatchSize int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type CreateEscrowInput struct {
	ContractRef    string
	Beneficiary    string
	Asset          string
	TotalAmount    int64
	DeadlineHeight int64
}

type ReleaseInput struct {
	EscrowID int64
	Amount   int64
}

type ResolveDisputeInput struct {
	EscrowID int64
	Outcome  string
}

type AddMilestoneInput struct {
	EscrowID    int64
	Description string
	Amount      int64
}

type RefundEligibility struct {
	EscrowID       int64
	Eligible       bool
	CurrentHeight  int64
	DeadlineHeight int64
	GracePeriod    int64
	Remaining      int64
}

type FeeWithdrawal struct {
	Asset  string
	Amount int64
}

type Service struct {
	cfg Config

	escrows     ports.EscrowRepository
	milestones  ports.MilestoneRepository
	fees        ports.FeeRepository
	idempotency ports.IdempotencyRepository
	outbox      ports.OutboxRepository

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	dlq          ports.DLQPublisher

	transfers ports.TransferClient
	policy    ports.AccessPolicy
	heights   ports.LedgerClock

	allowedAssets map[string]bool
	locks         *escrowLocks
	nowFn         func() time.Time
}

type Dependencies struct {
	Config Config

	Escrows     ports.EscrowRepository
	Milestones  ports.MilestoneRepository
	Fees        ports.FeeRepository
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository

	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	DLQ          ports.DLQPublisher

	Transfers ports.TransferClient
	Policy    ports.AccessPolicy
	Heights   ports.LedgerClock
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "Escrow-Settlement-Service"
	}
	if cfg.FeeRateBps < 0 {
		cfg.FeeRateBps = 0
	}
	if cfg.MinEscrowAmount <= 0 {
		cfg.MinEscrowAmount = 1
	}
	if cfg.MaxDeadlineHorizon <= 0 {
		cfg.MaxDeadlineHorizon = 1_000_000
	}
	if cfg.GracePeriod < 0 {
		cfg.GracePeriod = 0
	}
	if cfg.CustodyAccount == "" {
		cfg.CustodyAccount = "escrow_custody"
	}
	if cfg.FeeTreasuryAccount == "" {
		cfg.FeeTreasuryAccount = "fee_treasury"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	allowed := make(map[string]bool, len(cfg.AllowedAssets))
	for _, a := range cfg.AllowedAssets {
		if a != "" {
			allowed[a] = true
		}
	}
	return &Service{
		cfg:           cfg,
		escrows:       deps.Escrows,
		milestones:    deps.Milestones,
		fees:          deps.Fees,
		idempotency:   deps.Idempotency,
		outbox:        deps.Outbox,
		domainEvents:  deps.DomainEvents,
		analytics:     deps.Analytics,
		dlq:           deps.DLQ,
		transfers:     deps.Transfers,
		policy:        deps.Policy,
		heights:       deps.Heights,
		allowedAssets: allowed,
		locks:         newEscrowLocks(),
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
