package resource

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

func setupRegistry(t *testing.T) (*gateway.Registry, *testutil.MockGateway, *testutil.MockGateway) {
	t.Helper()
	primary := testutil.NewMockGateway("auth.net")
	secondary := testutil.NewMockGateway("mercadopago")
	registry, err := gateway.NewRegistry("auth.net", primary, secondary)
	require.NoError(t, err)
	return registry, primary, secondary
}

func declined(kind domainErrors.Kind, code string) *domainErrors.PaymentRejectedError {
	return domainErrors.NewPaymentRejected(&domainErrors.PaymentError{Kind: kind, Code: code, Message: "rejected"})
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- Transactions ---

func TestTransactions_CreateUsesDefaultGateway(t *testing.T) {
	registry, primary, secondary := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())

	txn, err := svc.Create(context.Background(), "", price("10.00"), testutil.TestCardOptions())
	require.NoError(t, err)

	assert.Equal(t, "auth.net", txn.Gateway)
	assert.Equal(t, []string{"charge"}, primary.Calls())
	assert.Empty(t, secondary.Calls())
}

func TestTransactions_CreateNamedGateway(t *testing.T) {
	registry, primary, secondary := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())

	txn, err := svc.Create(context.Background(), "mercadopago", price("10.00"), testutil.TestCardOptions())
	require.NoError(t, err)

	assert.Equal(t, "mercadopago", txn.Gateway)
	assert.Empty(t, primary.Calls())
	assert.Equal(t, []string{"charge"}, secondary.Calls())
}

func TestTransactions_CreateUnknownGateway(t *testing.T) {
	registry, _, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())

	_, err := svc.Create(context.Background(), "braintree", price("10.00"), nil)
	assert.ErrorIs(t, err, domainErrors.ErrGatewayNotFound)
}

func TestTransactions_CreateRejectsNonPositivePrice(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())

	_, err := svc.Create(context.Background(), "", decimal.Zero, nil)
	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
	assert.Empty(t, primary.Calls())
}

func TestTransactions_Retrieve(t *testing.T) {
	registry, _, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.Create(ctx, "", price("3.50"), nil)
	require.NoError(t, err)

	got, err := svc.Retrieve(ctx, "", created.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, created.TransactionID, got.TransactionID)
	assert.True(t, price("3.50").Equal(got.Price))

	_, err = svc.Retrieve(ctx, "", "")
	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
}

func TestTransactions_RefundFullAmount(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())

	var refunded decimal.Decimal
	primary.RefundFunc = func(_ context.Context, _ *gateway.Transaction, amount decimal.Decimal) error {
		refunded = amount
		return nil
	}

	txn := &gateway.Transaction{Gateway: "auth.net", TransactionID: "1", Price: price("10.00")}
	require.NoError(t, svc.Refund(context.Background(), txn, nil))

	assert.True(t, price("10").Equal(refunded))
	assert.Equal(t, []string{"refund"}, primary.Calls())
}

func TestTransactions_RefundUnsettledFallsBackToVoid(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())
	primary.RefundFunc = func(context.Context, *gateway.Transaction, decimal.Decimal) error {
		return declined(domainErrors.KindRefund, "54")
	}

	txn := &gateway.Transaction{Gateway: "auth.net", TransactionID: "1", Price: price("10.00")}

	require.NoError(t, svc.Refund(context.Background(), txn, nil))
	full := price("10")
	require.NoError(t, svc.Refund(context.Background(), txn, &full))

	assert.Equal(t, []string{"refund", "void", "refund", "void"}, primary.Calls())
}

func TestTransactions_PartialRefundUnsettled(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())
	primary.RefundFunc = func(context.Context, *gateway.Transaction, decimal.Decimal) error {
		return declined(domainErrors.KindRefund, "54")
	}

	txn := &gateway.Transaction{Gateway: "auth.net", TransactionID: "1", Price: price("10.00")}
	partial := price("4.00")

	err := svc.Refund(context.Background(), txn, &partial)

	assert.ErrorIs(t, err, domainErrors.ErrPartialRefundUnsettled)
	assert.ErrorIs(t, err, domainErrors.ErrPaymentRejected)
	var rejected *domainErrors.PaymentRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.True(t, rejected.Has(domainErrors.KindRefund))
	assert.Equal(t, "54", rejected.Errors[0].Code)
	assert.Contains(t, err.Error(), "unless you refund it for the full amount")
	assert.Equal(t, []string{"refund"}, primary.Calls())
}

func TestTransactions_RefundGatewayFaultNotVoided(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())
	fault := domainErrors.NewGatewayError(errors.New("connection reset"))
	primary.RefundFunc = func(context.Context, *gateway.Transaction, decimal.Decimal) error {
		return fault
	}

	txn := &gateway.Transaction{Gateway: "auth.net", TransactionID: "1", Price: price("10.00")}
	err := svc.Refund(context.Background(), txn, nil)

	assert.ErrorIs(t, err, domainErrors.ErrGateway)
	assert.Equal(t, []string{"refund"}, primary.Calls())
}

func TestTransactions_RefundRoutesByRecordedGateway(t *testing.T) {
	registry, primary, secondary := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())

	txn := &gateway.Transaction{Gateway: "mercadopago", TransactionID: "1", Price: price("1")}
	require.NoError(t, svc.Refund(context.Background(), txn, nil))

	assert.Empty(t, primary.Calls())
	assert.Equal(t, []string{"refund"}, secondary.Calls())
}

func TestTransactions_SettleDefaultsToPrice(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())

	var settled decimal.Decimal
	primary.SettleFunc = func(_ context.Context, txn *gateway.Transaction, amount decimal.Decimal) (*gateway.Transaction, error) {
		settled = amount
		out := *txn
		return &out, nil
	}

	txn := &gateway.Transaction{Gateway: "auth.net", TransactionID: "1", Price: price("7.25")}
	_, err := svc.Settle(context.Background(), txn, nil)
	require.NoError(t, err)
	assert.True(t, price("7.25").Equal(settled))

	lower := price("5")
	_, err = svc.Settle(context.Background(), txn, &lower)
	require.NoError(t, err)
	assert.True(t, lower.Equal(settled))
}

func TestTransactions_Void(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewTransactions(registry, zerolog.Nop())

	require.NoError(t, svc.Void(context.Background(), &gateway.Transaction{TransactionID: "1"}))
	assert.Equal(t, []string{"void"}, primary.Calls())
}

// --- Customers ---

func TestCustomers_Lifecycle(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCustomers(registry)
	ctx := context.Background()

	customer, err := svc.Create(ctx, "", gateway.Options{gateway.OptEmail: "joey@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, customer.CustomerID)

	card, err := svc.AddCard(ctx, "", customer, testutil.TestCardOptions())
	require.NoError(t, err)
	assert.Equal(t, "1111", card.Last4)
	assert.Len(t, customer.Cards, 1)

	require.NoError(t, svc.Update(ctx, "", customer.CustomerID, gateway.Options{gateway.OptEmail: "new@example.com"}))

	got, err := svc.Retrieve(ctx, "", customer.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	require.Len(t, got.Cards, 1)
	assert.Equal(t, card.CardID, got.Cards[0].CardID)

	require.NoError(t, svc.Delete(ctx, "", customer.CustomerID))
	_, err = svc.Retrieve(ctx, "", customer.CustomerID)
	assert.ErrorIs(t, err, domainErrors.ErrCustomerNotFound)

	assert.Equal(t, []string{
		"create_customer", "add_card", "update_customer", "retrieve_customer", "delete_customer", "retrieve_customer",
	}, primary.Calls())
}

func TestCustomers_CreateRequiresEmail(t *testing.T) {
	registry, _, _ := setupRegistry(t)
	svc := NewCustomers(registry)

	_, err := svc.Create(context.Background(), "", gateway.Options{})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCustomer)
}

func TestCustomers_RequireID(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCustomers(registry)
	ctx := context.Background()

	_, err := svc.Retrieve(ctx, "", "")
	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
	assert.ErrorIs(t, svc.Update(ctx, "", "", nil), domainErrors.ErrValidationFailed)
	assert.ErrorIs(t, svc.Delete(ctx, "", ""), domainErrors.ErrValidationFailed)
	assert.Empty(t, primary.Calls())
}

func TestCustomers_Charge(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCustomers(registry)

	txn, err := svc.Charge(context.Background(), "", testutil.NewTestCustomer("10"), price("12.00"), nil)
	require.NoError(t, err)
	assert.Equal(t, "10", txn.CustomerID)
	assert.Equal(t, "auth.net", txn.Gateway)
	assert.Equal(t, []string{"charge_customer"}, primary.Calls())
}

// --- CreditCards ---

func TestCreditCards_Save(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCreditCards(registry)

	var saved *gateway.Card
	primary.UpdateCardFunc = func(_ context.Context, card *gateway.Card) error {
		saved = card
		return nil
	}

	card := testutil.NewTestCard("10", "20")
	card.Zip = "80202"
	require.NoError(t, svc.Save(context.Background(), "", card))
	assert.Same(t, card, saved)
}

func TestCreditCards_RequireIDs(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCreditCards(registry)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Save(ctx, "", &gateway.Card{CardID: "20"}), domainErrors.ErrValidationFailed)
	assert.ErrorIs(t, svc.Delete(ctx, "", &gateway.Card{CustomerID: "10"}), domainErrors.ErrValidationFailed)
	_, err := svc.Charge(ctx, "", &gateway.Card{}, price("1"), nil)
	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
	assert.Empty(t, primary.Calls())
}

func TestCreditCards_ChargeAndDelete(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCreditCards(registry)
	ctx := context.Background()

	card := testutil.NewTestCard("10", "20")
	txn, err := svc.Charge(ctx, "", card, price("9.99"), gateway.Options{gateway.OptCVV: "900"})
	require.NoError(t, err)
	assert.Equal(t, "1111", txn.Last4)

	require.NoError(t, svc.Delete(ctx, "", card))
	assert.Equal(t, []string{"charge_card", "delete_card"}, primary.Calls())
}

func TestCreditCards_ChargeDeclined(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCreditCards(registry)
	primary.ChargeCardFunc = func(context.Context, *gateway.Card, decimal.Decimal, gateway.Options) (*gateway.Transaction, error) {
		return nil, declined(domainErrors.KindCardDeclined, "2")
	}

	_, err := svc.Charge(context.Background(), "", testutil.NewTestCard("10", "20"), price("1"), nil)

	var rejected *domainErrors.PaymentRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.True(t, rejected.Has(domainErrors.KindCardDeclined))
}

func TestCreditCards_Replace(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCreditCards(registry)

	old := testutil.NewTestCard("10", "20")
	card, err := svc.Replace(context.Background(), "", old, testutil.TestCardOptions())
	require.NoError(t, err)

	assert.Equal(t, "10", card.CustomerID)
	assert.NotEqual(t, "20", card.CardID)
	assert.Equal(t, []string{"add_card", "delete_card"}, primary.Calls())
}

func TestCreditCards_ReplaceUndoesAddWhenDeleteFails(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCreditCards(registry)

	var deleted []string
	primary.DeleteCardFunc = func(_ context.Context, card *gateway.Card) error {
		deleted = append(deleted, card.CardID)
		if card.CardID == "20" {
			return domainErrors.NewCustomerError(domainErrors.CustomerNotFound, "10", "card not found")
		}
		return nil
	}

	_, err := svc.Replace(context.Background(), "", testutil.NewTestCard("10", "20"), testutil.TestCardOptions())

	require.ErrorIs(t, err, domainErrors.ErrCustomerNotFound)
	assert.Equal(t, []string{"add_card", "delete_card", "delete_card"}, primary.Calls())
	require.Len(t, deleted, 2)
	assert.Equal(t, "20", deleted[0])
	assert.NotEqual(t, "20", deleted[1], "the new card is removed again")
}

func TestCreditCards_ReplaceAddFails(t *testing.T) {
	registry, primary, _ := setupRegistry(t)
	svc := NewCreditCards(registry)
	primary.AddCardFunc = func(context.Context, *gateway.Customer, gateway.Options) (*gateway.Card, error) {
		return nil, domainErrors.NewCustomerError(domainErrors.CustomerDuplicateCard, "10", "duplicate")
	}

	_, err := svc.Replace(context.Background(), "", testutil.NewTestCard("10", "20"), testutil.TestCardOptions())

	require.ErrorIs(t, err, domainErrors.ErrDuplicateCard)
	assert.Equal(t, []string{"add_card"}, primary.Calls())
}
