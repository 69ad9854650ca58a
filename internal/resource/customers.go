package resource

import (
	"context"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/shopspring/decimal"
)

// Customers manages stored customer profiles.
type Customers struct {
	registry *gateway.Registry
}

func NewCustomers(registry *gateway.Registry) *Customers {
	return &Customers{registry: registry}
}

// Create stores a new customer. Card and billing fields in opts become the
// customer's first stored card.
func (s *Customers) Create(ctx context.Context, gatewayName string, opts gateway.Options) (*gateway.Customer, error) {
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	return g.CreateCustomer(ctx, opts)
}

// Retrieve returns the customer with its stored cards attached.
func (s *Customers) Retrieve(ctx context.Context, gatewayName, customerID string) (*gateway.Customer, error) {
	if customerID == "" {
		return nil, domainErrors.NewValidationError("customer_id", "is required")
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	customer, cards, err := g.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	customer.Cards = cards
	return customer, nil
}

func (s *Customers) Update(ctx context.Context, gatewayName, customerID string, opts gateway.Options) error {
	if customerID == "" {
		return domainErrors.NewValidationError("customer_id", "is required")
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return err
	}
	return g.UpdateCustomer(ctx, customerID, opts)
}

func (s *Customers) Delete(ctx context.Context, gatewayName, customerID string) error {
	if customerID == "" {
		return domainErrors.NewValidationError("customer_id", "is required")
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return err
	}
	return g.DeleteCustomer(ctx, customerID)
}

// AddCard stores another card for the customer.
func (s *Customers) AddCard(ctx context.Context, gatewayName string, customer *gateway.Customer, opts gateway.Options) (*gateway.Card, error) {
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	card, err := g.AddCardToCustomer(ctx, customer, opts)
	if err != nil {
		return nil, err
	}
	customer.Cards = append(customer.Cards, card)
	return card, nil
}

// Charge bills the customer's primary stored card.
func (s *Customers) Charge(ctx context.Context, gatewayName string, customer *gateway.Customer, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	txn, err := g.ChargeCustomer(ctx, customer, price, opts)
	if err != nil {
		return nil, err
	}
	return stamp(txn, g), nil
}
