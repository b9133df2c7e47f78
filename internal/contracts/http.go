package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type CreateEscrowRequest struct {
	ContractRef    string `json:"contract_ref"`
	Beneficiary    string `json:"beneficiary"`
	Asset          string `json:"asset"`
	TotalAmount    int64  `json:"total_amount"`
	DeadlineHeight int64  `json:"deadline_height"`
}

type EscrowResponse struct {
	EscrowID        int64  `json:"escrow_id"`
	ContractRef     string `json:"contract_ref"`
	Depositor       string `json:"depositor"`
	Beneficiary     string `json:"beneficiary"`
	Asset           string `json:"asset"`
	TotalAmount     int64  `json:"total_amount"`
	ReleasedAmount  int64  `json:"released_amount"`
	RefundedAmount  int64  `json:"refunded_amount"`
	RemainingAmount int64  `json:"remaining_amount"`
	Status          string `json:"status"`
	Disputed        bool   `json:"disputed"`
	DisputeReason   string `json:"dispute_reason,omitempty"`
	DeadlineHeight  int64  `json:"deadline_height"`
	CreatedAt       string `json:"created_at"`
	FundedAt        string `json:"funded_at,omitempty"`
}

type ReleaseRequest struct {
	Amount int64 `json:"amount"`
}

type RaiseDisputeRequest struct {
	Reason string `json:"reason"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome"`
}

type AddMilestoneRequest struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

type MilestoneResponse struct {
	EscrowID    int64  `json:"escrow_id"`
	Index       int64  `json:"index"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Completed   bool   `json:"completed"`
	Paid        bool   `json:"paid"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	PaidAt      string `json:"paid_at,omitempty"`
}

type EscrowListResponse struct {
	Party     string  `json:"party"`
	EscrowIDs []int64 `json:"escrow_ids"`
	Offset    int     `json:"offset"`
	Limit     int     `json:"limit"`
}

type RemainingBalanceResponse struct {
	EscrowID  int64 `json:"escrow_id"`
	Remaining int64 `json:"remaining"`
}

type RefundEligibilityResponse struct {
	EscrowID       int64 `json:"escrow_id"`
	Eligible       bool  `json:"eligible"`
	CurrentHeight  int64 `json:"current_height"`
	DeadlineHeight int64 `json:"deadline_height"`
	GracePeriod    int64 `json:"grace_period"`
	Remaining      int64 `json:"remaining"`
}

type FeeBalanceResponse struct {
	Asset   string `json:"asset"`
	Balance int64  `json:"balance"`
}

type WithdrawFeesRequest struct {
	Asset string `json:"asset"`
}

type WithdrawFeesResponse struct {
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}
