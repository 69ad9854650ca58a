// Package resource exposes the caller-facing facades over the configured
// gateways: transactions, stored customers and stored cards.
package resource

import (
	"context"
	"errors"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const partialRefundReason = "You cannot refund a transaction that hasn't been settled unless you refund it for the full amount."

// Transactions charges cards and manages the resulting transactions. Follow-up
// operations are routed to the gateway recorded on the transaction.
type Transactions struct {
	registry *gateway.Registry
	logger   zerolog.Logger
}

// NewTransactions creates a new Transactions facade.
func NewTransactions(registry *gateway.Registry, logger zerolog.Logger) *Transactions {
	return &Transactions{
		registry: registry,
		logger:   logger.With().Str("resource", "transaction").Logger(),
	}
}

// Create charges a raw card on the named gateway. An empty name selects the
// default gateway.
func (s *Transactions) Create(ctx context.Context, gatewayName string, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	txn, err := g.Charge(ctx, price, opts)
	if err != nil {
		return nil, err
	}
	return stamp(txn, g), nil
}

// Retrieve looks a transaction up by id.
func (s *Transactions) Retrieve(ctx context.Context, gatewayName, transactionID string) (*gateway.Transaction, error) {
	if transactionID == "" {
		return nil, domainErrors.NewValidationError("transaction_id", "is required")
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	txn, err := g.Retrieve(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return stamp(txn, g), nil
}

// Refund returns amount to the card, or the full price when amount is nil.
// A rejected full refund usually means the transaction has not settled yet,
// so it is voided instead. A rejected partial refund is reported as a
// PaymentRejectedError wrapping ErrPartialRefundUnsettled.
func (s *Transactions) Refund(ctx context.Context, txn *gateway.Transaction, amount *decimal.Decimal) error {
	g, err := s.registry.Get(txn.Gateway)
	if err != nil {
		return err
	}

	full := amount == nil || amount.IsZero() || amount.Equal(txn.Price)
	refundAmount := txn.Price
	if amount != nil && !amount.IsZero() {
		refundAmount = *amount
	}

	err = g.Refund(ctx, txn, refundAmount)
	if err == nil {
		return nil
	}

	var rejected *domainErrors.PaymentRejectedError
	if !errors.As(err, &rejected) {
		return err
	}
	if !full {
		return &domainErrors.PaymentRejectedError{
			Errors: rejected.Errors,
			Reason: partialRefundReason,
			Err:    domainErrors.ErrPartialRefundUnsettled,
		}
	}

	s.logger.Info().
		Str("transaction_id", txn.TransactionID).
		Strs("kinds", kindStrings(rejected.Kinds())).
		Msg("refund rejected, voiding instead")
	return g.Void(ctx, txn)
}

// Void cancels an unsettled transaction.
func (s *Transactions) Void(ctx context.Context, txn *gateway.Transaction) error {
	g, err := s.registry.Get(txn.Gateway)
	if err != nil {
		return err
	}
	return g.Void(ctx, txn)
}

// Settle captures an authorized transaction for amount, or its full price
// when amount is nil.
func (s *Transactions) Settle(ctx context.Context, txn *gateway.Transaction, amount *decimal.Decimal) (*gateway.Transaction, error) {
	g, err := s.registry.Get(txn.Gateway)
	if err != nil {
		return nil, err
	}
	settleAmount := txn.Price
	if amount != nil {
		if err := validatePrice(*amount); err != nil {
			return nil, err
		}
		settleAmount = *amount
	}
	settled, err := g.Settle(ctx, txn, settleAmount)
	if err != nil {
		return nil, err
	}
	return stamp(settled, g), nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return domainErrors.NewValidationError("price", "must be positive")
	}
	return nil
}

func stamp(txn *gateway.Transaction, g gateway.Gateway) *gateway.Transaction {
	if txn.Gateway == "" {
		txn.Gateway = g.Name()
	}
	return txn
}

func kindStrings(kinds []domainErrors.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
