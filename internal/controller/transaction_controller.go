package controller

import (
	"net/http"

	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/resource"
	"github.com/go-chi/chi/v5"
)

// TransactionController handles charges and follow-up operations on the
// resulting transactions.
type TransactionController struct {
	registry     *gateway.Registry
	transactions *resource.Transactions
}

// NewTransactionController creates a new TransactionController.
func NewTransactionController(registry *gateway.Registry, transactions *resource.Transactions) *TransactionController {
	return &TransactionController{
		registry:     registry,
		transactions: transactions,
	}
}

// Create handles POST /v1/transactions
func (h *TransactionController) Create(w http.ResponseWriter, r *http.Request) {
	var req ChargeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	gw, err := pickGateway(r, h.registry, req.Gateway)
	if err != nil {
		writeError(w, err)
		return
	}

	txn, err := h.transactions.Create(r.Context(), gw, *req.Price, options(req.Options))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn.ToDict())
}

// Get handles GET /v1/transactions/{id}
func (h *TransactionController) Get(w http.ResponseWriter, r *http.Request) {
	gw, err := pickGateway(r, h.registry, "")
	if err != nil {
		writeError(w, err)
		return
	}

	txn, err := h.transactions.Retrieve(r.Context(), gw, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, txn.ToDict())
}

// Refund handles POST /v1/transactions/{id}/refund. An unsettled
// transaction refunded in full is voided instead.
func (h *TransactionController) Refund(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	txn, ok := h.load(w, r, &req, func() string { return req.Gateway })
	if !ok {
		return
	}

	if err := h.transactions.Refund(r.Context(), txn, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Void handles POST /v1/transactions/{id}/void
func (h *TransactionController) Void(w http.ResponseWriter, r *http.Request) {
	var req GatewayRequest
	txn, ok := h.load(w, r, &req, func() string { return req.Gateway })
	if !ok {
		return
	}

	if err := h.transactions.Void(r.Context(), txn); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Settle handles POST /v1/transactions/{id}/settle
func (h *TransactionController) Settle(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	txn, ok := h.load(w, r, &req, func() string { return req.Gateway })
	if !ok {
		return
	}

	settled, err := h.transactions.Settle(r.Context(), txn, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settled.ToDict())
}

// load decodes req and fetches the transaction named in the path from the
// selected gateway, so follow-up operations see the processor's price.
func (h *TransactionController) load(w http.ResponseWriter, r *http.Request, req any, requested func() string) (*gateway.Transaction, bool) {
	if err := decodeAndValidate(r, req); err != nil {
		writeError(w, err)
		return nil, false
	}
	gw, err := pickGateway(r, h.registry, requested())
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	txn, err := h.transactions.Retrieve(r.Context(), gw, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return txn, true
}
