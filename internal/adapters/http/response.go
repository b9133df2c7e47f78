package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairwork/escrow-settlement-service/internal/contracts"
	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, contracts.SuccessResponse{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{Status: "error", Error: contracts.ErrorPayload{Code: code, Message: message, RequestID: requestID}})
}

func mapDomainError(err error) (status int, code string) {
	if err == nil {
		return http.StatusOK, ""
	}
	// Application errors arrive wrapped, so match by errors.Is rather
	// than identity.
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrInvalidParty):
		return http.StatusForbidden, "invalid_party"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrAmountTooSmall):
		return http.StatusBadRequest, "amount_too_small"
	case errors.Is(err, domain.ErrZeroAmount):
		return http.StatusBadRequest, "zero_amount"
	case errors.Is(err, domain.ErrInvalidDeadline):
		return http.StatusBadRequest, "invalid_deadline"
	case errors.Is(err, domain.ErrAssetNotAllowed):
		return http.StatusBadRequest, "asset_not_allowed"
	case errors.Is(err, domain.ErrEmptyDescription):
		return http.StatusBadRequest, "empty_description"
	case errors.Is(err, domain.ErrInvalidOutcome):
		return http.StatusBadRequest, "invalid_outcome"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required"
	case errors.Is(err, domain.ErrIdempotencyConflict) || errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInvalidStatus) || errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrAlreadyFunded):
		return http.StatusConflict, "already_funded"
	case errors.Is(err, domain.ErrAlreadyDisputed):
		return http.StatusConflict, "already_disputed"
	case errors.Is(err, domain.ErrNoDispute):
		return http.StatusConflict, "no_dispute"
	case errors.Is(err, domain.ErrDisputed):
		return http.StatusConflict, "escrow_disputed"
	case errors.Is(err, domain.ErrDeadlinePassed):
		return http.StatusConflict, "deadline_passed"
	case errors.Is(err, domain.ErrDeadlineNotReached):
		return http.StatusConflict, "deadline_not_reached"
	case errors.Is(err, domain.ErrExceedsRemaining):
		return http.StatusConflict, "exceeds_remaining"
	case errors.Is(err, domain.ErrExceedsEscrowTotal):
		return http.StatusConflict, "exceeds_escrow_total"
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return http.StatusConflict, "milestone_already_completed"
	case errors.Is(err, domain.ErrAlreadyPaid):
		return http.StatusConflict, "milestone_already_paid"
	case errors.Is(err, domain.ErrNotCompleted):
		return http.StatusConflict, "milestone_not_completed"
	case errors.Is(err, domain.ErrNothingToRefund):
		return http.StatusConflict, "nothing_to_refund"
	case errors.Is(err, domain.ErrNothingToDistribute):
		return http.StatusConflict, "nothing_to_distribute"
	case errors.Is(err, domain.ErrNothingToWithdraw):
		return http.StatusConflict, "nothing_to_withdraw"
	case errors.Is(err, domain.ErrPaused):
		return http.StatusServiceUnavailable, "operations_paused"
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway, "transfer_failed"
	case errors.Is(err, domain.ErrUnsupportedEventType):
		return http.StatusBadRequest, "unsupported_event"
	case errors.Is(err, domain.ErrUnsupportedEventClass) || errors.Is(err, domain.ErrInvalidEnvelope):
		return http.StatusBadRequest, "invalid_event_envelope"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
