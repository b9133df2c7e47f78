package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairwork/escrow-settlement-service/internal/adapters/security"
)

func NewRouter(handler *Handler, verifier *security.TokenVerifier) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })
	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware(verifier))
		r.Post("/escrows", handler.createEscrow)
		r.Get("/escrows", handler.listEscrows)
		r.Route("/escrows/{escrow_id}", func(r chi.Router) {
			r.Get("/", handler.getEscrow)
			r.Post("/fund", handler.fundEscrow)
			r.Post("/release", handler.releaseFunds)
			r.Post("/refund", handler.refundEscrow)
			r.Get("/balance", handler.remainingBalance)
			r.Get("/refund-eligibility", handler.refundEligibility)
			r.Post("/disputes", handler.raiseDispute)
			r.Post("/disputes/resolve", handler.resolveDispute)
			r.Post("/milestones", handler.addMilestone)
			r.Get("/milestones", handler.listMilestones)
			r.Post("/milestones/{index}/complete", handler.completeMilestone)
			r.Post("/milestones/{index}/pay", handler.payMilestone)
		})
		r.Get("/fees/{asset}", handler.feeBalance)
		r.Post("/fees/withdraw", handler.withdrawFees)
	})
	return r
}
