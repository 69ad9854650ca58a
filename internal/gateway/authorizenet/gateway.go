// Package authorizenet implements gateway.Gateway over the Authorize.Net XML
// API.
package authorizenet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/infrastructure/observability"
	"github.com/fusionbox/dinero/internal/transport"
	"github.com/fusionbox/dinero/pkg/xmltree"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	Namespace  = "AnetApi/xml/v1/schema/AnetApiSchema.xsd"
	LiveURL    = "https://api.authorize.net/xml/v1/request.api"
	SandboxURL = "https://apitest.authorize.net/xml/v1/request.api"

	contentType = "application/xml"

	// probeTransactionID never exists, so voiding it is rejected as an
	// invalid transaction once the credentials are accepted.
	probeTransactionID = "0"
)

// Endpoint selectors for Config.Endpoint. Any other non-empty value is used
// as the URL itself.
const (
	EndpointAuto    = "auto"
	EndpointSandbox = "sandbox"
	EndpointLive    = "live"
)

const defaultValidationMode = "liveMode"

type Config struct {
	Name           string
	LoginID        string
	TransactionKey string
	// Endpoint is "", "auto", "sandbox", "live" or a URL. Empty and "auto"
	// discover the endpoint on first use.
	Endpoint   string
	SandboxURL string
	LiveURL    string
	// ValidationMode is sent when cards are added or updated. "none" omits
	// it. Defaults to liveMode.
	ValidationMode string
}

type Gateway struct {
	cfg     Config
	poster  transport.Poster
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu  sync.Mutex
	url string
}

type Option func(*Gateway)

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithClock replaces time.Now, which decides the century of two digit years.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(cfg Config, poster transport.Poster, opts ...Option) *Gateway {
	if cfg.Name == "" {
		cfg.Name = "authorizenet"
	}
	if cfg.SandboxURL == "" {
		cfg.SandboxURL = SandboxURL
	}
	if cfg.LiveURL == "" {
		cfg.LiveURL = LiveURL
	}
	switch cfg.ValidationMode {
	case "":
		cfg.ValidationMode = defaultValidationMode
	case "none":
		cfg.ValidationMode = ""
	}

	g := &Gateway{
		cfg:    cfg,
		poster: poster,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(g)
	}

	switch cfg.Endpoint {
	case "", EndpointAuto:
	case EndpointSandbox:
		g.url = cfg.SandboxURL
	case EndpointLive:
		g.url = cfg.LiveURL
	default:
		g.url = cfg.Endpoint
	}
	return g
}

func (g *Gateway) Name() string { return g.cfg.Name }

// Resolve returns the endpoint URL, discovering it if needed.
func (g *Gateway) Resolve(ctx context.Context) (string, error) {
	return g.endpoint(ctx)
}

func (g *Gateway) endpoint(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.url != "" {
		return g.url, nil
	}
	url, err := g.discover(ctx)
	if err != nil {
		return "", err
	}
	g.url = url
	return url, nil
}

// discover voids a transaction that cannot exist. The sandbox rejecting it
// as invalid proves the credentials belong there; an authentication failure
// means they are live credentials.
func (g *Gateway) discover(ctx context.Context) (string, error) {
	err := g.probe(ctx, g.cfg.SandboxURL)
	if isInvalidTransaction(err) {
		g.resolved(EndpointSandbox, g.cfg.SandboxURL)
		return g.cfg.SandboxURL, nil
	}

	if errors.Is(err, domainErrors.ErrAuthentication) {
		g.logger.Debug().Str("gateway", g.cfg.Name).Msg("sandbox rejected credentials, probing live endpoint")
		err = g.probe(ctx, g.cfg.LiveURL)
		if isInvalidTransaction(err) {
			g.resolved(EndpointLive, g.cfg.LiveURL)
			return g.cfg.LiveURL, nil
		}
	}

	if err == nil {
		err = errors.New("probe void unexpectedly succeeded")
	}
	return "", domainErrors.NewGatewayError(fmt.Errorf("%w: endpoint discovery: %w", domainErrors.ErrConfiguration, err))
}

func (g *Gateway) probe(ctx context.Context, url string) error {
	_, err := g.post(ctx, url, voidRequest(probeTransactionID))
	return err
}

func (g *Gateway) resolved(environment, url string) {
	g.logger.Info().Str("gateway", g.cfg.Name).Str("environment", environment).Str("url", url).Msg("endpoint resolved")
	if g.metrics != nil {
		g.metrics.EndpointResolutions.WithLabelValues(g.cfg.Name, environment).Inc()
	}
}

func isInvalidTransaction(err error) bool {
	var rejected *domainErrors.PaymentRejectedError
	return errors.As(err, &rejected) && rejected.Has(domainErrors.KindInvalidTransaction)
}

// do sends req to the resolved endpoint and returns the classified response.
func (g *Gateway) do(ctx context.Context, req request) (*xmltree.Tree, error) {
	url, err := g.endpoint(ctx)
	if err != nil {
		return nil, err
	}
	return g.post(ctx, url, req)
}

func (g *Gateway) post(ctx context.Context, url string, req request) (*xmltree.Tree, error) {
	req.body.Prepend("merchantAuthentication", xmltree.New().
		Set("name", g.cfg.LoginID).
		Set("transactionKey", g.cfg.TransactionKey))

	body, err := xmltree.Marshal(req.name, req.body, Namespace)
	if err != nil {
		return nil, domainErrors.NewGatewayError(err)
	}

	_, raw, err := g.poster.Post(ctx, url, body, contentType)
	if err != nil {
		return nil, err
	}

	_, resp, err := xmltree.Unmarshal(raw)
	if err != nil {
		return nil, domainErrors.NewGatewayError(fmt.Errorf("%s: %w", req.name, err))
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *Gateway) Charge(ctx context.Context, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	resp, err := g.do(ctx, chargeRequest(price, opts, g.now()))
	if err != nil {
		return nil, err
	}
	txn := transactionFromResponse(resp.Child("transactionResponse"), price)
	txn.Gateway = g.cfg.Name
	return txn, nil
}

// ChargeCustomer charges the customer's primary card, looking the customer
// up when no card is known.
func (g *Gateway) ChargeCustomer(ctx context.Context, customer *gateway.Customer, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	cardID := customer.CardID
	if cardID == "" {
		stored, _, err := g.RetrieveCustomer(ctx, customer.CustomerID)
		if err != nil {
			return nil, err
		}
		cardID = stored.CardID
	}
	if cardID == "" {
		return nil, &domainErrors.CustomerError{
			Kind:       domainErrors.CustomerInvalid,
			CustomerID: customer.CustomerID,
			Message:    "customer has no stored card",
		}
	}
	return g.chargeProfile(ctx, customer.CustomerID, cardID, price, opts)
}

func (g *Gateway) ChargeCard(ctx context.Context, card *gateway.Card, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	if card.CVV != "" && !opts.Has(gateway.OptCVV) {
		opts = opts.Merge(gateway.Options{gateway.OptCVV: card.CVV})
	}
	return g.chargeProfile(ctx, card.CustomerID, card.CardID, price, opts)
}

func (g *Gateway) chargeProfile(ctx context.Context, customerID, cardID string, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	resp, err := g.do(ctx, chargeProfileRequest(customerID, cardID, price, opts))
	if err != nil {
		return nil, err
	}
	txn, err := transactionFromDirectResponse(directResponseOf(resp), price)
	if err != nil {
		return nil, err
	}
	txn.CustomerID = customerID
	txn.Messages = messagesOf(resp)
	txn.Gateway = g.cfg.Name
	return txn, nil
}

func (g *Gateway) Retrieve(ctx context.Context, transactionID string) (*gateway.Transaction, error) {
	resp, err := g.do(ctx, transactionDetailsRequest(transactionID))
	if err != nil {
		return nil, err
	}
	details := resp.Child("transaction")

	price := decimal.Zero
	if amount := xmltree.LookupString(details, "authAmount"); amount != "" {
		if price, err = decimal.NewFromString(amount); err != nil {
			return nil, domainErrors.NewGatewayError(fmt.Errorf("parse authAmount %q: %w", amount, err))
		}
	}

	txn := transactionFromResponse(details, price)
	txn.Messages = messagesOf(resp)
	txn.Gateway = g.cfg.Name
	return txn, nil
}

func (g *Gateway) Void(ctx context.Context, txn *gateway.Transaction) error {
	_, err := g.do(ctx, voidRequest(txn.TransactionID))
	return err
}

func (g *Gateway) Refund(ctx context.Context, txn *gateway.Transaction, amount decimal.Decimal) error {
	_, err := g.do(ctx, refundRequest(txn, amount, g.now()))
	return err
}

// Settle captures an authorize-only transaction and returns a copy carrying
// the capture's auth code.
func (g *Gateway) Settle(ctx context.Context, txn *gateway.Transaction, amount decimal.Decimal) (*gateway.Transaction, error) {
	resp, err := g.do(ctx, settleRequest(txn.TransactionID, amount))
	if err != nil {
		return nil, err
	}
	settled := *txn
	settled.AuthCode = xmltree.LookupString(resp, "transactionResponse.authCode")
	settled.Messages = messagesOf(resp.Child("transactionResponse"))
	return &settled, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, opts gateway.Options) (*gateway.Customer, error) {
	if !opts.Has(gateway.OptEmail) {
		return nil, domainErrors.NewCustomerError(domainErrors.CustomerInvalid, "", `"email" is required to create a customer`)
	}

	resp, err := g.do(ctx, createCustomerRequest(opts, g.now()))
	if err != nil {
		return nil, err
	}

	customer := &gateway.Customer{
		CustomerID: xmltree.LookupString(resp, "customerProfileId"),
		Email:      opts.Get(gateway.OptEmail),
		Billing:    gateway.BillingFromOptions(opts),
		CardID:     xmltree.LookupFirst(resp, "customerPaymentProfileIdList.numericString"),
		Messages:   messagesOf(resp),
	}
	if number, ok := opts.Lookup(gateway.OptNumber); ok {
		customer.Last4 = last4(NormalizeCardNumber(number))
		customer.Number = "XXXX" + customer.Last4
		customer.Year = opts.Get(gateway.OptYear)
		customer.Month = opts.Get(gateway.OptMonth)
	}
	return customer, nil
}

func (g *Gateway) RetrieveCustomer(ctx context.Context, customerID string) (*gateway.Customer, []*gateway.Card, error) {
	resp, err := g.do(ctx, getCustomerRequest(customerID))
	if err != nil {
		return nil, nil, err
	}
	customer, cards := customerFromResponse(resp)
	return customer, cards, nil
}

// UpdateCustomer updates the profile email and description, then the
// stored card when billing or card fields are present.
func (g *Gateway) UpdateCustomer(ctx context.Context, customerID string, opts gateway.Options) error {
	if opts.HasAny(gateway.OptEmail, gateway.OptDescription) {
		if _, err := g.do(ctx, updateCustomerRequest(customerID, opts)); err != nil {
			return err
		}
	}
	return g.updateCustomerPayment(ctx, customerID, opts)
}

func (g *Gateway) DeleteCustomer(ctx context.Context, customerID string) error {
	_, err := g.do(ctx, deleteCustomerRequest(customerID))
	return err
}

func (g *Gateway) AddCardToCustomer(ctx context.Context, customer *gateway.Customer, opts gateway.Options) (*gateway.Card, error) {
	profile := paymentProfileBlock(opts, g.now())
	resp, err := g.do(ctx, createPaymentProfileRequest(customer.CustomerID, profile, g.cfg.ValidationMode))
	if err != nil {
		return nil, err
	}

	card := cardFromOptions(paymentProfileOptions(profile))
	card.CustomerID = customer.CustomerID
	card.CardID = xmltree.LookupString(resp, "customerPaymentProfileId")
	if card.Number != "" {
		card.Number = "XXXX" + card.Last4
	}
	card.Messages = messagesOf(resp)
	return card, nil
}

func (g *Gateway) UpdateCard(ctx context.Context, card *gateway.Card) error {
	return g.savePaymentProfile(ctx, card.CustomerID, card.CardID, card.Options(), g.cfg.ValidationMode)
}

func (g *Gateway) DeleteCard(ctx context.Context, card *gateway.Card) error {
	_, err := g.do(ctx, deletePaymentProfileRequest(card.CustomerID, card.CardID))
	return err
}

var _ gateway.Gateway = (*Gateway)(nil)
var _ gateway.Resolver = (*Gateway)(nil)
