package resource

import (
	"context"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/pkg/saga"
	"github.com/shopspring/decimal"
)

// CreditCards manages cards stored under a customer.
type CreditCards struct {
	registry *gateway.Registry
}

func NewCreditCards(registry *gateway.Registry) *CreditCards {
	return &CreditCards{registry: registry}
}

// Save pushes the card's current fields to the gateway. Fields left empty
// keep their stored values.
func (s *CreditCards) Save(ctx context.Context, gatewayName string, card *gateway.Card) error {
	if err := validateCard(card); err != nil {
		return err
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return err
	}
	return g.UpdateCard(ctx, card)
}

func (s *CreditCards) Delete(ctx context.Context, gatewayName string, card *gateway.Card) error {
	if err := validateCard(card); err != nil {
		return err
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return err
	}
	return g.DeleteCard(ctx, card)
}

// Replace stores a new card built from opts and then removes old. If the
// removal fails the new card is deleted again, leaving the customer as it
// was.
func (s *CreditCards) Replace(ctx context.Context, gatewayName string, old *gateway.Card, opts gateway.Options) (*gateway.Card, error) {
	if err := validateCard(old); err != nil {
		return nil, err
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}

	var card *gateway.Card
	err = saga.New("replace card").
		Then(saga.Step{
			Name: "add card",
			Do: func(ctx context.Context) error {
				added, err := g.AddCardToCustomer(ctx, &gateway.Customer{CustomerID: old.CustomerID}, opts)
				card = added
				return err
			},
			Undo: func(ctx context.Context) error {
				return g.DeleteCard(ctx, card)
			},
		}).
		Then(saga.Step{
			Name: "delete card",
			Do: func(ctx context.Context) error {
				return g.DeleteCard(ctx, old)
			},
		}).
		Run(ctx)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Charge bills a specific stored card.
func (s *CreditCards) Charge(ctx context.Context, gatewayName string, card *gateway.Card, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	if err := validateCard(card); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	txn, err := g.ChargeCard(ctx, card, price, opts)
	if err != nil {
		return nil, err
	}
	return stamp(txn, g), nil
}

func validateCard(card *gateway.Card) error {
	if card.CustomerID == "" {
		return domainErrors.NewValidationError("customer_id", "is required")
	}
	if card.CardID == "" {
		return domainErrors.NewValidationError("card_id", "is required")
	}
	return nil
}
