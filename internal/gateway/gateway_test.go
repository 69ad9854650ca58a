package gateway

import (
	"context"
	"testing"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Presence(t *testing.T) {
	opts := Options{OptZip: "", OptNumber: "4111"}

	assert.True(t, opts.Has(OptZip))
	assert.False(t, opts.Has(OptCity))
	assert.True(t, opts.HasAny(BillingKeys...))
	assert.False(t, opts.HasAll(CardKeys...))

	v, ok := opts.Lookup(OptNumber)
	assert.True(t, ok)
	assert.Equal(t, "4111", v)
}

func TestOptions_MergeCallerWins(t *testing.T) {
	stored := Options{OptFirstName: "Old", OptZip: "12345"}
	caller := Options{OptFirstName: "New"}

	merged := stored.Merge(caller)

	assert.Equal(t, "New", merged.Get(OptFirstName))
	assert.Equal(t, "12345", merged.Get(OptZip))
	assert.Equal(t, "Old", stored.Get(OptFirstName))
}

func TestOptions_Settle(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want bool
	}{
		{"default", Options{}, true},
		{"nil bag", nil, true},
		{"explicit true", Options{OptSettle: "true"}, true},
		{"false", Options{OptSettle: "false"}, false},
		{"zero", Options{OptSettle: "0"}, false},
		{"upper", Options{OptSettle: "FALSE"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Settle())
		})
	}
}

func TestBilling_Options(t *testing.T) {
	b := Billing{FirstName: "Joey", Zip: "90210"}
	assert.Equal(t, Options{OptFirstName: "Joey", OptZip: "90210"}, b.Options())

	assert.Equal(t, b, BillingFromOptions(Options{OptFirstName: "Joey", OptZip: "90210", OptNumber: "1"}))
}

func TestTransaction_DictRoundTrip(t *testing.T) {
	txn := &Transaction{
		Price:         decimal.RequireFromString("10.50"),
		TransactionID: "2156009012",
		AuthCode:      "ABC123",
		Last4:         "1111",
		AVSSuccessful: true,
		CVVSuccessful: true,
		Messages:      []Message{{Code: "1", Description: "This transaction has been approved."}},
		Extra:         map[string]any{"invoice": "abc"},
	}

	d := txn.ToDict()
	assert.Equal(t, "10.5", d["price"])
	assert.Equal(t, "abc", d["invoice"])
	_, hasEmail := d["email"]
	assert.False(t, hasEmail)

	back, err := TransactionFromDict(d)
	require.NoError(t, err)
	assert.True(t, txn.Price.Equal(back.Price))
	assert.Equal(t, txn.TransactionID, back.TransactionID)
	assert.Equal(t, txn.Messages, back.Messages)
	assert.True(t, back.AVSSuccessful)
	assert.False(t, back.AVSZipSuccessful)
	assert.Equal(t, "abc", back.Extra["invoice"])
}

func TestTransactionFromDict_NumericPrice(t *testing.T) {
	txn, err := TransactionFromDict(map[string]any{"price": 12.25, "transaction_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "12.25", txn.Price.String())
}

func TestCard_OptionsAndDict(t *testing.T) {
	card := &Card{
		CustomerID: "10",
		CardID:     "20",
		Billing:    Billing{FirstName: "Joey", Zip: "90210"},
		Number:     "XXXX1111",
		Year:       "XXXX",
		Month:      "XX",
		Last4:      "1111",
	}

	opts := card.Options()
	assert.Equal(t, "XXXX1111", opts.Get(OptNumber))
	assert.Equal(t, "20", opts.Get(OptCardID))
	assert.False(t, opts.Has(OptCVV))

	back, err := CardFromDict(card.ToDict())
	require.NoError(t, err)
	assert.Equal(t, card.Billing, back.Billing)
	assert.Equal(t, card.CardID, back.CardID)
	assert.Empty(t, back.Extra)
}

func TestCustomer_PrimaryCard(t *testing.T) {
	first := &Card{CardID: "1"}
	second := &Card{CardID: "2"}

	c := &Customer{CardID: "2", Cards: []*Card{first, second}}
	assert.Same(t, second, c.PrimaryCard())

	c.CardID = ""
	assert.Same(t, first, c.PrimaryCard())

	assert.Nil(t, (&Customer{}).PrimaryCard())
}

func TestCustomer_DictRoundTrip(t *testing.T) {
	c := &Customer{
		CustomerID: "10",
		Email:      "a@example.com",
		Billing:    Billing{LastName: "Shabadoo"},
		CardID:     "20",
	}

	back, err := CustomerFromDict(c.ToDict())
	require.NoError(t, err)
	assert.Equal(t, c.CustomerID, back.CustomerID)
	assert.Equal(t, "Shabadoo", back.LastName)
	assert.Equal(t, "20", back.CardID)
}

type namedGateway struct {
	Gateway
	name string
}

func (n namedGateway) Name() string { return n.name }

func TestRegistry(t *testing.T) {
	a := namedGateway{name: "authorizenet"}
	b := namedGateway{name: "mercadopago"}

	r, err := NewRegistry("authorizenet", a, b)
	require.NoError(t, err)

	g, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "authorizenet", g.Name())

	g, err = r.Get("mercadopago")
	require.NoError(t, err)
	assert.Equal(t, "mercadopago", g.Name())

	_, err = r.Get("stripe")
	assert.ErrorIs(t, err, domainErrors.ErrGatewayNotFound)

	assert.Equal(t, []string{"authorizenet", "mercadopago"}, r.Names())
	assert.Equal(t, "authorizenet", r.Default().Name())
	assert.Equal(t, "authorizenet", r.DefaultName())
}

func TestRegistry_Invalid(t *testing.T) {
	_, err := NewRegistry("missing", namedGateway{name: "a"})
	assert.ErrorIs(t, err, domainErrors.ErrGatewayNotFound)

	_, err = NewRegistry("a", namedGateway{name: "a"}, namedGateway{name: "a"})
	assert.ErrorIs(t, err, domainErrors.ErrConfiguration)
}

func TestMaskCardNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4111111111111111", "4XXXXXXXXX1111"},
		{"card 4111-1111-1111-1111 ok", "card 4XXXXXXXXX1111 ok"},
		{"amount 10.00", "amount 10.00"},
		{"XXXX1111", "XXXX1111"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskCardNumbers(tt.in))
		})
	}
}

func TestClassifyOutcome(t *testing.T) {
	assert.Equal(t, "success", classifyOutcome(nil))
	assert.Equal(t, "rejected", classifyOutcome(domainErrors.NewPaymentRejected()))
	assert.Equal(t, "customer_error", classifyOutcome(domainErrors.NewCustomerError(domainErrors.CustomerNotFound, "", "")))
	assert.Equal(t, "gateway_error", classifyOutcome(domainErrors.NewGatewayError(domainErrors.ErrAuthentication)))
	assert.Equal(t, "canceled", classifyOutcome(context.Canceled))
}
