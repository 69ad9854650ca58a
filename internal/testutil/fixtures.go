package testutil

import (
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func NewTestTransaction(price decimal.Decimal) *gateway.Transaction {
	return &gateway.Transaction{
		Price:                price,
		TransactionID:        uuid.NewString()[:10],
		AuthCode:             "ABC123",
		AccountNumber:        "XXXX1111",
		CardType:             "Visa",
		Last4:                "1111",
		AVSSuccessful:        true,
		AVSZipSuccessful:     true,
		AVSAddressSuccessful: true,
		CVVSuccessful:        true,
	}
}

func NewTestCustomer(customerID string) *gateway.Customer {
	return &gateway.Customer{
		CustomerID: customerID,
		Email:      "joeyjoejoejr@example.com",
		Billing: gateway.Billing{
			FirstName: "Joey",
			LastName:  "Shabadoo",
			Zip:       "90210",
		},
	}
}

func NewTestCard(customerID, cardID string) *gateway.Card {
	return &gateway.Card{
		CustomerID:     customerID,
		CardID:         cardID,
		Billing:        gateway.Billing{FirstName: "Joey", LastName: "Shabadoo"},
		Last4:          "1111",
		Number:         "XXXX1111",
		ExpirationDate: "XXXX",
		Year:           "XXXX",
		Month:          "XX",
	}
}

// TestCardOptions returns the sandbox visa test card.
func TestCardOptions() gateway.Options {
	return gateway.Options{
		gateway.OptNumber: "4111111111111111",
		gateway.OptMonth:  "12",
		gateway.OptYear:   "2030",
		gateway.OptCVV:    "900",
	}
}
