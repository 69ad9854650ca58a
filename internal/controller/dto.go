package controller

import (
	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/shopspring/decimal"
)

// --- Request DTOs ---
// Money travels as decimal (a JSON number or string). Options are the flat
// option bag passed through to the gateway; unknown keys are rejected.

// ChargeRequest charges a raw card, a stored customer or a stored card.
type ChargeRequest struct {
	Gateway string            `json:"gateway,omitempty"`
	Price   *decimal.Decimal  `json:"price" validate:"required"`
	Options map[string]string `json:"options" validate:"dive,keys,option_key,endkeys"`
}

// AmountRequest carries the optional amount for refund and settle. A missing
// amount means the full transaction price.
type AmountRequest struct {
	Gateway string           `json:"gateway,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

// GatewayRequest only selects the gateway.
type GatewayRequest struct {
	Gateway string `json:"gateway,omitempty"`
}

// OptionsRequest creates or updates a customer or card.
type OptionsRequest struct {
	Gateway string            `json:"gateway,omitempty"`
	Options map[string]string `json:"options" validate:"required,dive,keys,option_key,endkeys"`
}

// --- Response DTOs ---

// GatewaysResponse lists the configured gateways.
type GatewaysResponse struct {
	Default  string   `json:"default"`
	Gateways []string `json:"gateways"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error      string                          `json:"error"`
	Code       string                          `json:"code"`
	Field      string                          `json:"field,omitempty"`
	CustomerID string                          `json:"customer_id,omitempty"`
	Reasons    []*domainErrors.PaymentError    `json:"reasons,omitempty"`
	Messages   []domainErrors.ProcessorMessage `json:"messages,omitempty"`
}

// --- Conversion helpers ---

func options(m map[string]string) gateway.Options {
	opts := make(gateway.Options, len(m))
	for k, v := range m {
		opts[k] = v
	}
	return opts
}

// FromCustomer renders a customer with its stored cards.
func FromCustomer(c *gateway.Customer) map[string]any {
	out := c.ToDict()
	cards := make([]map[string]any, 0, len(c.Cards))
	for _, card := range c.Cards {
		cards = append(cards, card.ToDict())
	}
	out["cards"] = cards
	return out
}

// cardFromOptions builds the card to save from the caller's fields. Fields
// left out keep their stored values.
func cardFromOptions(customerID, cardID string, opts gateway.Options) *gateway.Card {
	card := &gateway.Card{
		CustomerID: customerID,
		CardID:     cardID,
		Billing:    gateway.BillingFromOptions(opts),
		Number:     opts.Get(gateway.OptNumber),
		Year:       opts.Get(gateway.OptYear),
		Month:      opts.Get(gateway.OptMonth),
		CVV:        opts.Get(gateway.OptCVV),
	}
	if token, ok := opts.Lookup(gateway.OptToken); ok {
		card.Extra = map[string]any{gateway.OptToken: token}
	}
	return card
}
