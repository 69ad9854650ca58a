// Package mercadopago implements gateway.Gateway over the Mercado Pago REST
// API through its Go SDK. Card data never reaches this package: charges and
// stored cards use tokens produced client-side.
package mercadopago

import (
	"context"
	"fmt"
	"strconv"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/mercadopago/sdk-go/pkg/customer"
	"github.com/mercadopago/sdk-go/pkg/customercard"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultName         = "mercadopago"
	defaultInstallments = 1
	payerTypeCustomer   = "customer"
)

type Gateway struct {
	name    string
	clients Clients
	logger  zerolog.Logger
}

type Option func(*Gateway)

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func New(name string, clients Clients, opts ...Option) *Gateway {
	if name == "" {
		name = defaultName
	}
	g := &Gateway{name: name, clients: clients, logger: zerolog.Nop()}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) Name() string { return g.name }

func (g *Gateway) Charge(ctx context.Context, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	req, err := paymentRequest(price, opts)
	if err != nil {
		return nil, err
	}
	return g.createPayment(ctx, price, req)
}

// ChargeCustomer charges a customer's stored card. opts must carry a token
// issued for that card.
func (g *Gateway) ChargeCustomer(ctx context.Context, c *gateway.Customer, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	req, err := paymentRequest(price, opts)
	if err != nil {
		return nil, err
	}
	req.Payer = customerPayer(c.CustomerID, c.Email)
	return g.createPayment(ctx, price, req)
}

func (g *Gateway) ChargeCard(ctx context.Context, card *gateway.Card, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	req, err := paymentRequest(price, opts)
	if err != nil {
		return nil, err
	}
	req.Payer = customerPayer(card.CustomerID, opts.Get(gateway.OptEmail))
	return g.createPayment(ctx, price, req)
}

func (g *Gateway) createPayment(ctx context.Context, price decimal.Decimal, req payment.Request) (*gateway.Transaction, error) {
	resp, err := g.clients.Payments.Create(ctx, req)
	if err != nil {
		return nil, domainErrors.NewGatewayError(err)
	}
	if resp.Status == statusRejected {
		return nil, rejection(resp.Status, resp.StatusDetail)
	}
	g.logger.Debug().Int("payment_id", resp.ID).Str("status", resp.Status).Msg("payment created")
	return g.transaction(resp, price), nil
}

func (g *Gateway) Retrieve(ctx context.Context, transactionID string) (*gateway.Transaction, error) {
	id, err := paymentID(transactionID)
	if err != nil {
		return nil, err
	}
	resp, err := g.clients.Payments.Get(ctx, id)
	if err != nil {
		return nil, paymentError(transactionID, err)
	}
	return g.transaction(resp, decimal.NewFromFloat(resp.TransactionAmount)), nil
}

func (g *Gateway) Void(ctx context.Context, txn *gateway.Transaction) error {
	id, err := paymentID(txn.TransactionID)
	if err != nil {
		return err
	}
	resp, err := g.clients.Payments.Cancel(ctx, id)
	if err != nil {
		return paymentError(txn.TransactionID, err)
	}
	if resp.Status != statusCancelled {
		return invalidTransaction(txn.TransactionID, "payment is "+resp.Status)
	}
	return nil
}

// Refund returns amount to the payer. Payments that were only authorized
// are rejected with KindRefund so callers can void them instead.
func (g *Gateway) Refund(ctx context.Context, txn *gateway.Transaction, amount decimal.Decimal) error {
	id, err := paymentID(txn.TransactionID)
	if err != nil {
		return err
	}
	current, err := g.clients.Payments.Get(ctx, id)
	if err != nil {
		return paymentError(txn.TransactionID, err)
	}
	switch current.Status {
	case statusAuthorized, statusPending, statusInProcess:
		return domainErrors.NewPaymentRejected(&domainErrors.PaymentError{
			Kind:    domainErrors.KindRefund,
			Code:    current.Status,
			Message: "payment has not been captured",
		})
	}

	if amount.Equal(decimal.NewFromFloat(current.TransactionAmount)) {
		_, err = g.clients.Refunds.Create(ctx, id)
	} else {
		_, err = g.clients.Refunds.CreatePartialRefund(ctx, id, amount.InexactFloat64())
	}
	if err != nil {
		return paymentError(txn.TransactionID, err)
	}
	return nil
}

func (g *Gateway) Settle(ctx context.Context, txn *gateway.Transaction, amount decimal.Decimal) (*gateway.Transaction, error) {
	id, err := paymentID(txn.TransactionID)
	if err != nil {
		return nil, err
	}
	resp, err := g.clients.Payments.CaptureAmount(ctx, id, amount.InexactFloat64())
	if err != nil {
		return nil, paymentError(txn.TransactionID, err)
	}
	if resp.Status == statusRejected {
		return nil, rejection(resp.Status, resp.StatusDetail)
	}
	return g.transaction(resp, amount), nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, opts gateway.Options) (*gateway.Customer, error) {
	if !opts.Has(gateway.OptEmail) {
		return nil, domainErrors.NewCustomerError(domainErrors.CustomerInvalid, "", "email is required")
	}
	resp, err := g.clients.Customers.Create(ctx, customerRequest(opts))
	if err != nil {
		return nil, customerError(err)
	}
	c := customerFromResponse(resp)

	if opts.Has(gateway.OptToken) {
		card, err := g.AddCardToCustomer(ctx, c, opts)
		if err != nil {
			return nil, err
		}
		setPrimary(c, card)
	}
	return c, nil
}

func (g *Gateway) RetrieveCustomer(ctx context.Context, customerID string) (*gateway.Customer, []*gateway.Card, error) {
	resp, err := g.clients.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, nil, customerError(err)
	}
	c := customerFromResponse(resp)
	cards := make([]*gateway.Card, 0, len(resp.Cards))
	for _, cr := range resp.Cards {
		cards = append(cards, cardRecord(resp.ID, cr.ID, cr.LastFourDigits, cr.ExpirationMonth, cr.ExpirationYear))
	}
	c.Cards = cards
	c.CardID = resp.DefaultCard
	if primary := c.PrimaryCard(); primary != nil {
		setPrimary(c, primary)
	}
	return c, cards, nil
}

// UpdateCustomer updates the profile fields present in opts. A token adds
// a new card.
func (g *Gateway) UpdateCustomer(ctx context.Context, customerID string, opts gateway.Options) error {
	if opts.HasAny(gateway.OptEmail, gateway.OptFirstName, gateway.OptLastName, gateway.OptDescription) {
		if _, err := g.clients.Customers.Update(ctx, customerID, customerRequest(opts)); err != nil {
			return customerError(err)
		}
	}
	if opts.Has(gateway.OptToken) {
		_, err := g.AddCardToCustomer(ctx, &gateway.Customer{CustomerID: customerID}, opts)
		return err
	}
	return nil
}

func (g *Gateway) DeleteCustomer(_ context.Context, customerID string) error {
	return domainErrors.NewGatewayError(fmt.Errorf("delete customer %s: %w", customerID, domainErrors.ErrNotSupported))
}

func (g *Gateway) AddCardToCustomer(ctx context.Context, c *gateway.Customer, opts gateway.Options) (*gateway.Card, error) {
	token := opts.Get(gateway.OptToken)
	if token == "" {
		return nil, domainErrors.NewCustomerError(domainErrors.CustomerInvalid, "", "a card token is required")
	}
	resp, err := g.clients.Cards.Create(ctx, c.CustomerID, customercard.Request{Token: token})
	if err != nil {
		return nil, customerError(err)
	}
	card := cardRecord(c.CustomerID, resp.ID, resp.LastFourDigits, resp.ExpirationMonth, resp.ExpirationYear)
	card.Billing = gateway.BillingFromOptions(opts)
	return card, nil
}

// UpdateCard replaces the stored card with the one behind the token held
// in card.Extra.
func (g *Gateway) UpdateCard(ctx context.Context, card *gateway.Card) error {
	token, _ := card.Extra[gateway.OptToken].(string)
	if token == "" {
		return domainErrors.NewCustomerError(domainErrors.CustomerInvalid, "", "a card token is required")
	}
	if _, err := g.clients.Cards.Update(ctx, card.CustomerID, card.CardID, customercard.Request{Token: token}); err != nil {
		return customerError(err)
	}
	return nil
}

func (g *Gateway) DeleteCard(ctx context.Context, card *gateway.Card) error {
	if _, err := g.clients.Cards.Delete(ctx, card.CustomerID, card.CardID); err != nil {
		return customerError(err)
	}
	return nil
}

func (g *Gateway) transaction(resp *payment.Response, price decimal.Decimal) *gateway.Transaction {
	approved := resp.Status == statusApproved || resp.Status == statusAuthorized
	txn := &gateway.Transaction{
		Price:         price,
		TransactionID: strconv.Itoa(resp.ID),
		AuthCode:      resp.AuthorizationCode,
		CardType:      resp.PaymentMethodID,
		Last4:         resp.Card.LastFourDigits,
		CVVSuccessful: approved,
		CustomerID:    resp.Payer.ID,
		Email:         resp.Payer.Email,
		Status:        resp.Status,
		ResponseCode:  resp.StatusDetail,
		Gateway:       g.name,
	}
	if txn.Last4 != "" {
		txn.AccountNumber = "XXXX" + txn.Last4
	}
	return txn
}

func paymentRequest(price decimal.Decimal, opts gateway.Options) (payment.Request, error) {
	token := opts.Get(gateway.OptToken)
	if token == "" {
		return payment.Request{}, domainErrors.NewPaymentRejected(&domainErrors.PaymentError{
			Kind: domainErrors.KindInvalidCard, Message: "a card token is required",
		})
	}
	installments := defaultInstallments
	if v := opts.Get(gateway.OptInstallments); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return payment.Request{}, domainErrors.NewValidationError(gateway.OptInstallments, "must be a positive integer")
		}
		installments = n
	}

	req := payment.Request{
		TransactionAmount: price.InexactFloat64(),
		Token:             token,
		Installments:      installments,
		PaymentMethodID:   opts.Get(gateway.OptPaymentMethodID),
		Description:       opts.Get(gateway.OptDescription),
		ExternalReference: opts.Get(gateway.OptInvoiceNumber),
		Capture:           opts.Settle(),
	}
	if opts.Has(gateway.OptEmail) {
		req.Payer = &payment.PayerRequest{
			Email:     opts.Get(gateway.OptEmail),
			FirstName: opts.Get(gateway.OptFirstName),
			LastName:  opts.Get(gateway.OptLastName),
		}
	}
	return req, nil
}

func customerPayer(customerID, email string) *payment.PayerRequest {
	return &payment.PayerRequest{Type: payerTypeCustomer, ID: customerID, Email: email}
}

func customerRequest(opts gateway.Options) customer.Request {
	return customer.Request{
		Email:       opts.Get(gateway.OptEmail),
		FirstName:   opts.Get(gateway.OptFirstName),
		LastName:    opts.Get(gateway.OptLastName),
		Description: opts.Get(gateway.OptDescription),
	}
}

func customerFromResponse(resp *customer.Response) *gateway.Customer {
	c := &gateway.Customer{
		CustomerID: resp.ID,
		Email:      resp.Email,
		Billing: gateway.Billing{
			FirstName: resp.FirstName,
			LastName:  resp.LastName,
		},
	}
	if resp.Description != "" {
		c.Extra = map[string]any{gateway.OptDescription: resp.Description}
	}
	return c
}

func cardRecord(customerID, cardID, last4 string, month, year int) *gateway.Card {
	card := &gateway.Card{
		CustomerID: customerID,
		CardID:     cardID,
		Last4:      last4,
		Year:       "XXXX",
		Month:      "XX",
	}
	if last4 != "" {
		card.Number = "XXXX" + last4
	}
	if year > 0 && month > 0 {
		card.Year = strconv.Itoa(year)
		card.Month = fmt.Sprintf("%02d", month)
	}
	card.ExpirationDate = card.Year + "-" + card.Month
	if card.Year == "XXXX" {
		card.ExpirationDate = "XXXX"
	}
	return card
}

func setPrimary(c *gateway.Customer, card *gateway.Card) {
	c.CardID = card.CardID
	c.Last4 = card.Last4
	c.Number = card.Number
	c.ExpirationDate = card.ExpirationDate
	c.Year = card.Year
	c.Month = card.Month
	if !containsCard(c.Cards, card.CardID) {
		c.Cards = append(c.Cards, card)
	}
}

func containsCard(cards []*gateway.Card, id string) bool {
	for _, c := range cards {
		if c.CardID == id {
			return true
		}
	}
	return false
}

func paymentID(transactionID string) (int, error) {
	id, err := strconv.Atoi(transactionID)
	if err != nil {
		return 0, invalidTransaction(transactionID, "not a payment id")
	}
	return id, nil
}

var _ gateway.Gateway = (*Gateway)(nil)
