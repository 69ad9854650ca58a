package testutil

import (
	"context"
	"fmt"
	"sync"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Gateway Mock ---

// MockGateway is an in-memory gateway.Gateway. Any Func field that is set
// replaces the default behavior for that operation.
type MockGateway struct {
	mu           sync.Mutex
	name         string
	transactions map[string]*gateway.Transaction
	customers    map[string]*gateway.Customer
	cards        map[string][]*gateway.Card
	calls        []string

	ChargeFunc           func(ctx context.Context, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error)
	ChargeCustomerFunc   func(ctx context.Context, c *gateway.Customer, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error)
	ChargeCardFunc       func(ctx context.Context, card *gateway.Card, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error)
	RetrieveFunc         func(ctx context.Context, id string) (*gateway.Transaction, error)
	VoidFunc             func(ctx context.Context, txn *gateway.Transaction) error
	RefundFunc           func(ctx context.Context, txn *gateway.Transaction, amount decimal.Decimal) error
	SettleFunc           func(ctx context.Context, txn *gateway.Transaction, amount decimal.Decimal) (*gateway.Transaction, error)
	CreateCustomerFunc   func(ctx context.Context, opts gateway.Options) (*gateway.Customer, error)
	RetrieveCustomerFunc func(ctx context.Context, id string) (*gateway.Customer, []*gateway.Card, error)
	UpdateCustomerFunc   func(ctx context.Context, id string, opts gateway.Options) error
	DeleteCustomerFunc   func(ctx context.Context, id string) error
	AddCardFunc          func(ctx context.Context, c *gateway.Customer, opts gateway.Options) (*gateway.Card, error)
	UpdateCardFunc       func(ctx context.Context, card *gateway.Card) error
	DeleteCardFunc       func(ctx context.Context, card *gateway.Card) error
}

func NewMockGateway(name string) *MockGateway {
	return &MockGateway{
		name:         name,
		transactions: make(map[string]*gateway.Transaction),
		customers:    make(map[string]*gateway.Customer),
		cards:        make(map[string][]*gateway.Card),
	}
}

func (m *MockGateway) Name() string { return m.name }

// Calls returns the operations invoked so far, in order.
func (m *MockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockGateway) record(op string) {
	m.mu.Lock()
	m.calls = append(m.calls, op)
	m.mu.Unlock()
}

func (m *MockGateway) Charge(ctx context.Context, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	m.record("charge")
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, price, opts)
	}
	return m.store(price, opts), nil
}

func (m *MockGateway) store(price decimal.Decimal, opts gateway.Options) *gateway.Transaction {
	txn := NewTestTransaction(price)
	txn.Gateway = m.name
	if n := opts.Get(gateway.OptNumber); len(n) >= 4 {
		txn.Last4 = n[len(n)-4:]
	}
	m.mu.Lock()
	m.transactions[txn.TransactionID] = txn
	m.mu.Unlock()
	return txn
}

func (m *MockGateway) ChargeCustomer(ctx context.Context, c *gateway.Customer, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	m.record("charge_customer")
	if m.ChargeCustomerFunc != nil {
		return m.ChargeCustomerFunc(ctx, c, price, opts)
	}
	txn := m.store(price, opts)
	txn.CustomerID = c.CustomerID
	return txn, nil
}

func (m *MockGateway) ChargeCard(ctx context.Context, card *gateway.Card, price decimal.Decimal, opts gateway.Options) (*gateway.Transaction, error) {
	m.record("charge_card")
	if m.ChargeCardFunc != nil {
		return m.ChargeCardFunc(ctx, card, price, opts)
	}
	txn := m.store(price, opts)
	txn.CustomerID = card.CustomerID
	txn.Last4 = card.Last4
	return txn, nil
}

func (m *MockGateway) Retrieve(ctx context.Context, id string) (*gateway.Transaction, error) {
	m.record("retrieve")
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return nil, domainErrors.NewPaymentRejected(&domainErrors.PaymentError{
			Kind: domainErrors.KindInvalidTransaction, Code: "16", Message: "The transaction cannot be found.",
		})
	}
	return txn, nil
}

func (m *MockGateway) Void(ctx context.Context, txn *gateway.Transaction) error {
	m.record("void")
	if m.VoidFunc != nil {
		return m.VoidFunc(ctx, txn)
	}
	return nil
}

func (m *MockGateway) Refund(ctx context.Context, txn *gateway.Transaction, amount decimal.Decimal) error {
	m.record("refund")
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, txn, amount)
	}
	return nil
}

func (m *MockGateway) Settle(ctx context.Context, txn *gateway.Transaction, amount decimal.Decimal) (*gateway.Transaction, error) {
	m.record("settle")
	if m.SettleFunc != nil {
		return m.SettleFunc(ctx, txn, amount)
	}
	settled := *txn
	settled.AuthCode = "SETTLED"
	return &settled, nil
}

func (m *MockGateway) CreateCustomer(ctx context.Context, opts gateway.Options) (*gateway.Customer, error) {
	m.record("create_customer")
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, opts)
	}
	if !opts.Has(gateway.OptEmail) {
		return nil, domainErrors.NewCustomerError(domainErrors.CustomerInvalid, "", "email is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &gateway.Customer{
		CustomerID: fmt.Sprintf("%d", len(m.customers)+1000),
		Email:      opts.Get(gateway.OptEmail),
		Billing:    gateway.BillingFromOptions(opts),
	}
	m.customers[c.CustomerID] = c
	return c, nil
}

func (m *MockGateway) RetrieveCustomer(ctx context.Context, id string) (*gateway.Customer, []*gateway.Card, error) {
	m.record("retrieve_customer")
	if m.RetrieveCustomerFunc != nil {
		return m.RetrieveCustomerFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, nil, domainErrors.NewCustomerError(domainErrors.CustomerNotFound, "E00040", "The record cannot be found.")
	}
	return c, m.cards[id], nil
}

func (m *MockGateway) UpdateCustomer(ctx context.Context, id string, opts gateway.Options) error {
	m.record("update_customer")
	if m.UpdateCustomerFunc != nil {
		return m.UpdateCustomerFunc(ctx, id, opts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return domainErrors.NewCustomerError(domainErrors.CustomerNotFound, "E00040", "The record cannot be found.")
	}
	if opts.Has(gateway.OptEmail) {
		c.Email = opts.Get(gateway.OptEmail)
	}
	return nil
}

func (m *MockGateway) DeleteCustomer(ctx context.Context, id string) error {
	m.record("delete_customer")
	if m.DeleteCustomerFunc != nil {
		return m.DeleteCustomerFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.customers, id)
	delete(m.cards, id)
	return nil
}

func (m *MockGateway) AddCardToCustomer(ctx context.Context, c *gateway.Customer, opts gateway.Options) (*gateway.Card, error) {
	m.record("add_card")
	if m.AddCardFunc != nil {
		return m.AddCardFunc(ctx, c, opts)
	}
	card := &gateway.Card{
		CustomerID: c.CustomerID,
		CardID:     uuid.NewString(),
		Billing:    gateway.BillingFromOptions(opts),
		Year:       opts.Get(gateway.OptYear),
		Month:      opts.Get(gateway.OptMonth),
	}
	if n := opts.Get(gateway.OptNumber); len(n) >= 4 {
		card.Last4 = n[len(n)-4:]
	}
	m.mu.Lock()
	m.cards[c.CustomerID] = append(m.cards[c.CustomerID], card)
	m.mu.Unlock()
	return card, nil
}

func (m *MockGateway) UpdateCard(ctx context.Context, card *gateway.Card) error {
	m.record("update_card")
	if m.UpdateCardFunc != nil {
		return m.UpdateCardFunc(ctx, card)
	}
	return nil
}

func (m *MockGateway) DeleteCard(ctx context.Context, card *gateway.Card) error {
	m.record("delete_card")
	if m.DeleteCardFunc != nil {
		return m.DeleteCardFunc(ctx, card)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cards := m.cards[card.CustomerID]
	for i, c := range cards {
		if c.CardID == card.CardID {
			m.cards[card.CustomerID] = append(cards[:i], cards[i+1:]...)
			break
		}
	}
	return nil
}

// --- Poster Mock ---

// PostedRequest is one captured outbound request.
type PostedRequest struct {
	URL         string
	Body        []byte
	ContentType string
}

// MockPoster replays canned responses in order and records every request.
// Once Responses is exhausted the last one is repeated.
type MockPoster struct {
	mu        sync.Mutex
	Requests  []PostedRequest
	Responses []string
	PostFunc  func(ctx context.Context, url string, body []byte, contentType string) (int, []byte, error)
}

func NewMockPoster(responses ...string) *MockPoster {
	return &MockPoster{Responses: responses}
}

func (m *MockPoster) Post(ctx context.Context, url string, body []byte, contentType string) (int, []byte, error) {
	m.mu.Lock()
	idx := len(m.Requests)
	m.Requests = append(m.Requests, PostedRequest{URL: url, Body: body, ContentType: contentType})
	m.mu.Unlock()

	if m.PostFunc != nil {
		return m.PostFunc(ctx, url, body, contentType)
	}
	if len(m.Responses) == 0 {
		return 200, nil, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return 200, []byte(m.Responses[idx]), nil
}

// Last returns the most recent request.
func (m *MockPoster) Last() PostedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return PostedRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}
