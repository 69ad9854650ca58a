package mercadopago

import (
	"context"
	"fmt"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/customer"
	"github.com/mercadopago/sdk-go/pkg/customercard"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/refund"
)

// PaymentAPI is the subset of payment.Client the gateway uses.
type PaymentAPI interface {
	Create(ctx context.Context, request payment.Request) (*payment.Response, error)
	Get(ctx context.Context, id int) (*payment.Response, error)
	Cancel(ctx context.Context, id int) (*payment.Response, error)
	CaptureAmount(ctx context.Context, id int, amount float64) (*payment.Response, error)
}

// RefundAPI is the subset of refund.Client the gateway uses.
type RefundAPI interface {
	Create(ctx context.Context, paymentID int) (*refund.Response, error)
	CreatePartialRefund(ctx context.Context, paymentID int, amount float64) (*refund.Response, error)
}

// CustomerAPI is the subset of customer.Client the gateway uses.
type CustomerAPI interface {
	Create(ctx context.Context, request customer.Request) (*customer.Response, error)
	Get(ctx context.Context, id string) (*customer.Response, error)
	Update(ctx context.Context, id string, request customer.Request) (*customer.Response, error)
}

// CardAPI is the subset of customercard.Client the gateway uses.
type CardAPI interface {
	Create(ctx context.Context, customerID string, request customercard.Request) (*customercard.Response, error)
	Update(ctx context.Context, customerID, cardID string, request customercard.Request) (*customercard.Response, error)
	Delete(ctx context.Context, customerID, cardID string) (*customercard.Response, error)
}

// Clients groups the SDK clients behind the gateway.
type Clients struct {
	Payments  PaymentAPI
	Refunds   RefundAPI
	Customers CustomerAPI
	Cards     CardAPI
}

// NewClients builds SDK clients authenticated with accessToken.
func NewClients(accessToken string) (Clients, error) {
	if accessToken == "" {
		return Clients{}, domainErrors.NewGatewayError(fmt.Errorf("%w: missing access token", domainErrors.ErrConfiguration))
	}
	cfg, err := config.New(accessToken)
	if err != nil {
		return Clients{}, domainErrors.NewGatewayError(fmt.Errorf("%w: sdk config: %w", domainErrors.ErrConfiguration, err))
	}
	return Clients{
		Payments:  payment.NewClient(cfg),
		Refunds:   refund.NewClient(cfg),
		Customers: customer.NewClient(cfg),
		Cards:     customercard.NewClient(cfg),
	}, nil
}
