// Package gateway defines the processor-agnostic payment contract, the
// normalized records it returns and the registry of configured gateways.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway is implemented by every payment processor adapter. Errors come from
// the internal/domain/errors taxonomy. No method retries.
type Gateway interface {
	// Name returns the configured gateway name.
	Name() string

	// Charge authorizes a raw card and, unless opts disables settle,
	// captures it.
	Charge(ctx context.Context, price decimal.Decimal, opts Options) (*Transaction, error)
	// ChargeCustomer charges the primary stored card of a customer.
	ChargeCustomer(ctx context.Context, customer *Customer, price decimal.Decimal, opts Options) (*Transaction, error)
	// ChargeCard charges a specific stored card.
	ChargeCard(ctx context.Context, card *Card, price decimal.Decimal, opts Options) (*Transaction, error)
	Retrieve(ctx context.Context, transactionID string) (*Transaction, error)
	Void(ctx context.Context, txn *Transaction) error
	Refund(ctx context.Context, txn *Transaction, amount decimal.Decimal) error
	// Settle captures a previously authorized transaction.
	Settle(ctx context.Context, txn *Transaction, amount decimal.Decimal) (*Transaction, error)

	CreateCustomer(ctx context.Context, opts Options) (*Customer, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, []*Card, error)
	// UpdateCustomer updates the profile and, when billing or card fields are
	// supplied, the customer's stored card.
	UpdateCustomer(ctx context.Context, customerID string, opts Options) error
	DeleteCustomer(ctx context.Context, customerID string) error

	AddCardToCustomer(ctx context.Context, customer *Customer, opts Options) (*Card, error)
	UpdateCard(ctx context.Context, card *Card) error
	DeleteCard(ctx context.Context, card *Card) error
}

// Resolver is implemented by gateways that discover their endpoint on first
// use and can do so eagerly.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}
