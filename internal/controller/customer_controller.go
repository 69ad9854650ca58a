package controller

import (
	"net/http"

	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/resource"
	"github.com/go-chi/chi/v5"
)

// CustomerController handles stored customers and their cards.
type CustomerController struct {
	registry  *gateway.Registry
	customers *resource.Customers
	cards     *resource.CreditCards
}

func NewCustomerController(registry *gateway.Registry, customers *resource.Customers, cards *resource.CreditCards) *CustomerController {
	return &CustomerController{
		registry:  registry,
		customers: customers,
		cards:     cards,
	}
}

// Create handles POST /v1/customers
func (h *CustomerController) Create(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	gw, err := pickGateway(r, h.registry, req.Gateway)
	if err != nil {
		writeError(w, err)
		return
	}

	customer, err := h.customers.Create(r.Context(), gw, options(req.Options))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromCustomer(customer))
}

// Get handles GET /v1/customers/{id}
func (h *CustomerController) Get(w http.ResponseWriter, r *http.Request) {
	gw, err := pickGateway(r, h.registry, "")
	if err != nil {
		writeError(w, err)
		return
	}

	customer, err := h.customers.Retrieve(r.Context(), gw, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromCustomer(customer))
}

// Update handles PUT /v1/customers/{id}
func (h *CustomerController) Update(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	gw, err := pickGateway(r, h.registry, req.Gateway)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.customers.Update(r.Context(), gw, chi.URLParam(r, "id"), options(req.Options)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /v1/customers/{id}
func (h *CustomerController) Delete(w http.ResponseWriter, r *http.Request) {
	gw, err := pickGateway(r, h.registry, "")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.customers.Delete(r.Context(), gw, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Charge handles POST /v1/customers/{id}/charge. The primary card is used
// unless options name a card_id.
func (h *CustomerController) Charge(w http.ResponseWriter, r *http.Request) {
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

	opts := options(req.Options)
	customer := &gateway.Customer{
		CustomerID: chi.URLParam(r, "id"),
		CardID:     opts.Get(gateway.OptCardID),
	}
	txn, err := h.customers.Charge(r.Context(), gw, customer, *req.Price, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn.ToDict())
}

// AddCard handles POST /v1/customers/{id}/cards
func (h *CustomerController) AddCard(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	gw, err := pickGateway(r, h.registry, req.Gateway)
	if err != nil {
		writeError(w, err)
		return
	}

	customer := &gateway.Customer{CustomerID: chi.URLParam(r, "id")}
	card, err := h.customers.AddCard(r.Context(), gw, customer, options(req.Options))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, card.ToDict())
}

// UpdateCard handles PUT /v1/customers/{id}/cards/{card_id}
func (h *CustomerController) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	gw, err := pickGateway(r, h.registry, req.Gateway)
	if err != nil {
		writeError(w, err)
		return
	}

	card := cardFromOptions(chi.URLParam(r, "id"), chi.URLParam(r, "card_id"), options(req.Options))
	if err := h.cards.Save(r.Context(), gw, card); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReplaceCard handles POST /v1/customers/{id}/cards/{card_id}/replace
func (h *CustomerController) ReplaceCard(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	gw, err := pickGateway(r, h.registry, req.Gateway)
	if err != nil {
		writeError(w, err)
		return
	}

	old := &gateway.Card{CustomerID: chi.URLParam(r, "id"), CardID: chi.URLParam(r, "card_id")}
	card, err := h.cards.Replace(r.Context(), gw, old, options(req.Options))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, card.ToDict())
}

// DeleteCard handles DELETE /v1/customers/{id}/cards/{card_id}
func (h *CustomerController) DeleteCard(w http.ResponseWriter, r *http.Request) {
	gw, err := pickGateway(r, h.registry, "")
	if err != nil {
		writeError(w, err)
		return
	}

	card := &gateway.Card{CustomerID: chi.URLParam(r, "id"), CardID: chi.URLParam(r, "card_id")}
	if err := h.cards.Delete(r.Context(), gw, card); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChargeCard handles POST /v1/customers/{id}/cards/{card_id}/charge
func (h *CustomerController) ChargeCard(w http.ResponseWriter, r *http.Request) {
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

	card := &gateway.Card{CustomerID: chi.URLParam(r, "id"), CardID: chi.URLParam(r, "card_id")}
	txn, err := h.cards.Charge(r.Context(), gw, card, *req.Price, options(req.Options))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn.ToDict())
}
