package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairwork/escrow-settlement-service/internal/application"
	"github.com/fairwork/escrow-settlement-service/internal/contracts"
	"github.com/fairwork/escrow-settlement-service/internal/domain"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

func (h *Handler) createEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CreateEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	row, err := h.service.CreateEscrow(r.Context(), actor, application.CreateEscrowInput{
		ContractRef:    strings.TrimSpace(req.ContractRef),
		Beneficiary:    strings.TrimSpace(req.Beneficiary),
		Asset:          strings.TrimSpace(req.Asset),
		TotalAmount:    req.TotalAmount,
		DeadlineHeight: req.DeadlineHeight,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", toEscrowResponse(row))
}

func (h *Handler) getEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	row, err := h.service.GetEscrow(r.Context(), actor, escrowID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", toEscrowResponse(row))
}

func (h *Handler) listEscrows(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	party := strings.TrimSpace(r.URL.Query().Get("party"))
	if party == "" {
		party = actor.SubjectID
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ids, err := h.service.ListEscrowsByParty(r.Context(), actor, party, offset, limit)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.EscrowListResponse{Party: party, EscrowIDs: ids, Offset: offset, Limit: limit})
}

func (h *Handler) fundEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	row, err := h.service.Fund(r.Context(), actor, escrowID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "escrow funded", toEscrowResponse(row))
}

func (h *Handler) releaseFunds(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	var req contracts.ReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	row, err := h.service.Release(r.Context(), actor, application.ReleaseInput{EscrowID: escrowID, Amount: req.Amount})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "funds released", toEscrowResponse(row))
}

func (h *Handler) refundEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	row, err := h.service.Refund(r.Context(), actor, escrowID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "escrow refunded", toEscrowResponse(row))
}

func (h *Handler) raiseDispute(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	var req contracts.RaiseDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	row, err := h.service.RaiseDispute(r.Context(), actor, escrowID, strings.TrimSpace(req.Reason))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "dispute raised", toEscrowResponse(row))
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	var req contracts.ResolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	row, err := h.service.ResolveDispute(r.Context(), actor, application.ResolveDisputeInput{EscrowID: escrowID, Outcome: strings.TrimSpace(req.Outcome)})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "dispute resolved", toEscrowResponse(row))
}

func (h *Handler) remainingBalance(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	remaining, err := h.service.RemainingBalance(r.Context(), actor, escrowID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.RemainingBalanceResponse{EscrowID: escrowID, Remaining: remaining})
}

func (h *Handler) refundEligibility(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	res, err := h.service.RefundEligibility(r.Context(), actor, escrowID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.RefundEligibilityResponse{
		EscrowID:       res.EscrowID,
		Eligible:       res.Eligible,
		CurrentHeight:  res.CurrentHeight,
		DeadlineHeight: res.DeadlineHeight,
		GracePeriod:    res.GracePeriod,
		Remaining:      res.Remaining,
	})
}

func (h *Handler) addMilestone(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	var req contracts.AddMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	ms, err := h.service.AddMilestone(r.Context(), actor, application.AddMilestoneInput{
		EscrowID:    escrowID,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", toMilestoneResponse(ms))
}

func (h *Handler) listMilestones(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	rows, err := h.service.ListMilestones(r.Context(), actor, escrowID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out := make([]contracts.MilestoneResponse, 0, len(rows))
	for _, ms := range rows {
		out = append(out, toMilestoneResponse(ms))
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) completeMilestone(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	ms, err := h.service.CompleteMilestone(r.Context(), actor, escrowID, index)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "milestone completed", toMilestoneResponse(ms))
}

func (h *Handler) payMilestone(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrowID, ok := escrowIDParam(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	ms, err := h.service.PayMilestone(r.Context(), actor, escrowID, index)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "milestone paid", toMilestoneResponse(ms))
}

func (h *Handler) feeBalance(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	asset := strings.TrimSpace(chi.URLParam(r, "asset"))
	balance, err := h.service.FeeBalance(r.Context(), actor, asset)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.FeeBalanceResponse{Asset: asset, Balance: balance})
}

func (h *Handler) withdrawFees(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.WithdrawFeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	res, err := h.service.WithdrawFees(r.Context(), actor, strings.TrimSpace(req.Asset))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "fees withdrawn", contracts.WithdrawFeesResponse{Asset: res.Asset, Amount: res.Amount})
}

func escrowIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "escrow_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "escrow_id must be a positive integer", requestIDFromContext(r.Context()))
		return 0, false
	}
	return id, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "index")
	idx, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || idx <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "milestone index must be a positive integer", requestIDFromContext(r.Context()))
		return 0, false
	}
	return idx, true
}

func toEscrowResponse(row domain.Escrow) contracts.EscrowResponse {
	resp := contracts.EscrowResponse{
		EscrowID:        row.EscrowID,
		ContractRef:     row.ContractRef,
		Depositor:       row.Depositor,
		Beneficiary:     row.Beneficiary,
		Asset:           row.Asset,
		TotalAmount:     row.TotalAmount,
		ReleasedAmount:  row.ReleasedAmount,
		RefundedAmount:  row.RefundedAmount,
		RemainingAmount: row.Remaining(),
		Status:          row.Status,
		Disputed:        row.Disputed,
		DisputeReason:   row.DisputeReason,
		DeadlineHeight:  row.DeadlineHeight,
		CreatedAt:       row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if row.FundedAt != nil {
		resp.FundedAt = row.FundedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toMilestoneResponse(ms domain.Milestone) contracts.MilestoneResponse {
	resp := contracts.MilestoneResponse{
		EscrowID:    ms.EscrowID,
		Index:       ms.Index,
		Description: ms.Description,
		Amount:      ms.Amount,
		Completed:   ms.Completed,
		Paid:        ms.Paid,
		CreatedAt:   ms.CreatedAt.UTC().Format(time.RFC3339),
	}
	if ms.CompletedAt != nil {
		resp.CompletedAt = ms.CompletedAt.UTC().Format(time.RFC3339)
	}
	if ms.PaidAt != nil {
		resp.PaidAt = ms.PaidAt.UTC().Format(time.RFC3339)
	}
	return resp
}
