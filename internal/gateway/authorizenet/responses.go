package authorizenet

import (
	"fmt"
	"strings"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/pkg/xmltree"
	"github.com/shopspring/decimal"
)

type codeSet map[string]struct{}

func newCodeSet(codes ...string) codeSet {
	s := make(codeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s codeSet) has(code string) bool {
	_, ok := s[code]
	return ok
}

var (
	avsSuccessful        = newCodeSet("X", "Y")
	avsZipSuccessful     = newCodeSet("W", "X", "Y", "Z")
	avsAddressSuccessful = newCodeSet("A", "X", "Y")
	cvvSuccessful        = newCodeSet("M")
)

// Positions in the delimited direct response.
const (
	directResponseCode  = 0
	directReasonCode    = 2
	directReasonText    = 3
	directAuthCode      = 4
	directAVSCode       = 5
	directTransactionID = 6
	directCardCode      = 38
	directAccountNumber = 50
	directAccountType   = 51
)

// Keys of a normalized payment profile that are not request options.
const (
	keyLast4          = "last_4"
	keyExpirationDate = "expiration_date"
)

func last4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}

func messagesOf(t *xmltree.Tree) []gateway.Message {
	v, ok := xmltree.Lookup(t, "messages.message")
	if !ok {
		return nil
	}
	var out []gateway.Message
	for _, item := range xmltree.AsList(v) {
		node, ok := item.(*xmltree.Tree)
		if !ok {
			continue
		}
		out = append(out, gateway.Message{
			Code:        xmltree.LookupString(node, "code"),
			Description: xmltree.FirstString(node, "description", "text"),
		})
	}
	return out
}

// transactionFromResponse normalizes a transactionResponse or a transaction
// details block. The AVS and card code tags differ between the two shapes.
func transactionFromResponse(resp *xmltree.Tree, price decimal.Decimal) *gateway.Transaction {
	avs := xmltree.FirstString(resp, "avsResultCode", "AVSResponse")
	cvv := xmltree.FirstString(resp, "cvvResultCode", "cardCodeResponse")

	txn := &gateway.Transaction{
		Price:                price,
		TransactionID:        xmltree.LookupString(resp, "transId"),
		AuthCode:             xmltree.LookupString(resp, "authCode"),
		Status:               xmltree.LookupString(resp, "transactionStatus"),
		ResponseCode:         xmltree.FirstString(resp, "responseCode", "responseReasonCode"),
		AVSSuccessful:        avsSuccessful.has(avs),
		AVSZipSuccessful:     avsZipSuccessful.has(avs),
		AVSAddressSuccessful: avsAddressSuccessful.has(avs),
		CVVSuccessful:        cvvSuccessful.has(cvv),
		Messages:             messagesOf(resp),
	}

	if _, ok := resp.Get("accountNumber"); ok {
		txn.AccountNumber = xmltree.LookupString(resp, "accountNumber")
		txn.CardType = xmltree.LookupString(resp, "accountType")
	} else {
		txn.AccountNumber = xmltree.LookupFirst(resp, "payment.creditCard.cardNumber")
		txn.CardType = xmltree.LookupFirst(resp, "payment.creditCard.cardType")
	}
	txn.Last4 = last4(txn.AccountNumber)

	if customer := resp.Child("customer"); customer != nil {
		txn.CustomerID = xmltree.LookupString(customer, "id")
		txn.Email = xmltree.LookupString(customer, "email")
	}
	return txn
}

func directResponseOf(resp *xmltree.Tree) string {
	return xmltree.FirstString(resp, "directResponse", "validationDirectResponse")
}

func splitDirectResponse(direct string) ([]string, error) {
	sep := ","
	if strings.Contains(direct, "|") {
		sep = "|"
	}
	fields := strings.Split(direct, sep)
	if len(fields) <= directAccountType {
		return nil, domainErrors.NewGatewayError(
			fmt.Errorf("direct response has %d fields, want at least %d", len(fields), directAccountType+1))
	}
	return fields, nil
}

// transactionFromDirectResponse parses the positional response returned by
// stored-profile charges.
func transactionFromDirectResponse(direct string, price decimal.Decimal) (*gateway.Transaction, error) {
	fields, err := splitDirectResponse(direct)
	if err != nil {
		return nil, err
	}
	avs := fields[directAVSCode]
	cvv := fields[directCardCode]
	return &gateway.Transaction{
		Price:                price,
		ResponseCode:         fields[directResponseCode],
		AuthCode:             fields[directAuthCode],
		TransactionID:        fields[directTransactionID],
		AccountNumber:        fields[directAccountNumber],
		CardType:             fields[directAccountType],
		Last4:                last4(fields[directAccountNumber]),
		AVSSuccessful:        avsSuccessful.has(avs),
		AVSZipSuccessful:     avsZipSuccessful.has(avs),
		AVSAddressSuccessful: avsAddressSuccessful.has(avs),
		CVVSuccessful:        cvvSuccessful.has(cvv),
	}, nil
}

var profileFields = []struct{ key, path string }{
	{gateway.OptCardID, "customerPaymentProfileId"},
	{gateway.OptFirstName, "billTo.firstName"},
	{gateway.OptLastName, "billTo.lastName"},
	{gateway.OptCompany, "billTo.company"},
	{gateway.OptAddress, "billTo.address"},
	{gateway.OptCity, "billTo.city"},
	{gateway.OptState, "billTo.state"},
	{gateway.OptZip, "billTo.zip"},
	{gateway.OptCountry, "billTo.country"},
	{gateway.OptPhone, "billTo.phoneNumber"},
	{gateway.OptFax, "billTo.faxNumber"},
	{gateway.OptNumber, "payment.creditCard.cardNumber"},
	{keyExpirationDate, "payment.creditCard.expirationDate"},
}

// paymentProfileOptions flattens a payment profile into an option bag. The
// stored number and expiry are masked by the processor but are valid input
// for an update request. Empty fields are left out.
func paymentProfileOptions(profile *xmltree.Tree) gateway.Options {
	opts := gateway.Options{}
	for _, f := range profileFields {
		if v := xmltree.LookupFirst(profile, f.path); v != "" {
			opts[f.key] = v
		}
	}

	if number, ok := opts.Lookup(gateway.OptNumber); ok {
		opts[keyLast4] = last4(number)
	}
	if expiry, ok := opts.Lookup(keyExpirationDate); ok {
		if year, month, found := strings.Cut(expiry, "-"); found {
			opts[gateway.OptYear], opts[gateway.OptMonth] = year, month
		} else {
			opts[gateway.OptYear], opts[gateway.OptMonth] = unknownExpiration, "XX"
		}
	}
	return opts
}

func cardFromOptions(opts gateway.Options) *gateway.Card {
	return &gateway.Card{
		CustomerID:     opts.Get(gateway.OptCustomerID),
		CardID:         opts.Get(gateway.OptCardID),
		Billing:        gateway.BillingFromOptions(opts),
		Last4:          opts.Get(keyLast4),
		Number:         opts.Get(gateway.OptNumber),
		ExpirationDate: opts.Get(keyExpirationDate),
		Year:           opts.Get(gateway.OptYear),
		Month:          opts.Get(gateway.OptMonth),
	}
}

// cardFromProfile normalizes one stored payment profile.
func cardFromProfile(customerID string, profile *xmltree.Tree) *gateway.Card {
	card := cardFromOptions(paymentProfileOptions(profile))
	card.CustomerID = customerID
	card.Messages = messagesOf(profile)
	return card
}

// customerFromResponse normalizes a getCustomerProfileResponse. The first
// payment profile supplies the customer's primary card fields.
func customerFromResponse(resp *xmltree.Tree) (*gateway.Customer, []*gateway.Card) {
	profile := resp.Child("profile")

	customer := &gateway.Customer{
		CustomerID: xmltree.LookupString(profile, "customerProfileId"),
		Email:      xmltree.LookupString(profile, "email"),
		Messages:   messagesOf(resp),
	}
	for _, key := range []string{"merchantCustomerId", "description"} {
		if v := xmltree.LookupString(profile, key); v != "" {
			if customer.Extra == nil {
				customer.Extra = map[string]any{}
			}
			customer.Extra[key] = v
		}
	}

	profiles, _ := profile.Get("paymentProfiles")
	var cards []*gateway.Card
	for _, item := range xmltree.AsList(profiles) {
		node, ok := item.(*xmltree.Tree)
		if !ok {
			continue
		}
		cards = append(cards, cardFromProfile(customer.CustomerID, node))
	}

	if len(cards) > 0 {
		primary := cards[0]
		customer.Billing = primary.Billing
		customer.CardID = primary.CardID
		customer.Last4 = primary.Last4
		customer.Number = primary.Number
		customer.ExpirationDate = primary.ExpirationDate
		customer.Year = primary.Year
		customer.Month = primary.Month
	}
	customer.Cards = cards
	return customer, cards
}
