package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type EscrowCreatedPayload struct {
	EscrowID       int64  `json:"escrow_id"`
	ContractRef    string `json:"contract_ref"`
	Depositor      string `json:"depositor"`
	Beneficiary    string `json:"beneficiary"`
	Asset          string `json:"asset"`
	TotalAmount    int64  `json:"total_amount"`
	DeadlineHeight int64  `json:"deadline_height"`
	CreatedAt      string `json:"created_at"`
}

type EscrowFundedPayload struct {
	EscrowID  int64  `json:"escrow_id"`
	Depositor string `json:"depositor"`
	Amount    int64  `json:"amount"`
	FundedAt  string `json:"funded_at"`
}

type MilestoneCreatedPayload struct {
	EscrowID  int64  `json:"escrow_id"`
	Index     int64  `json:"index"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
}

type MilestoneCompletedPayload struct {
	EscrowID    int64  `json:"escrow_id"`
	Index       int64  `json:"index"`
	CompletedAt string `json:"completed_at"`
}

type FundsReleasedPayload struct {
	EscrowID         int64  `json:"escrow_id"`
	Beneficiary      string `json:"beneficiary"`
	Amount           int64  `json:"amount"`
	Fee              int64  `json:"fee"`
	NetAmount        int64  `json:"net_amount"`
	RemainingBalance int64  `json:"remaining_balance"`
	Status           string `json:"status"`
	ReleasedAt       string `json:"released_at"`
}

type FundsRefundedPayload struct {
	EscrowID   int64  `json:"escrow_id"`
	Depositor  string `json:"depositor"`
	Amount     int64  `json:"amount"`
	RefundedAt string `json:"refunded_at"`
}

type DisputeRaisedPayload struct {
	EscrowID int64  `json:"escrow_id"`
	RaisedBy string `json:"raised_by"`
	Reason   string `json:"reason"`
	RaisedAt string `json:"raised_at"`
}

type DisputeResolvedPayload struct {
	EscrowID       int64  `json:"escrow_id"`
	Outcome        string `json:"outcome"`
	ReleasedAmount int64  `json:"released_amount"`
	RefundedAmount int64  `json:"refunded_amount"`
	Fee            int64  `json:"fee"`
	ResolvedAt     string `json:"resolved_at"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	DLQTopic      string        `json:"dlq_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}
