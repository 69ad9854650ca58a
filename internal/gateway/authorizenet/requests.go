package authorizenet

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/pkg/xmltree"
	"github.com/shopspring/decimal"
)

const unknownExpiration = "XXXX"

// request is a serializable API call: the root element name and its body.
// The authentication block is added when the request is sent.
type request struct {
	name string
	body *xmltree.Tree
}

var cardNumberRe = regexp.MustCompile(`[^0-9Xx]`)

// NormalizeCardNumber strips everything but digits and the X placeholders
// used in masked numbers.
func NormalizeCardNumber(number string) string {
	return cardNumberRe.ReplaceAllString(number, "")
}

// FormatExpiration renders an expiry as YYYY-MM. Years shorter than three
// digits get the current century. A fully masked year and month render as
// "XXXX".
func FormatExpiration(year, month string, now time.Time) string {
	if year == "" {
		year = "0"
	}
	if month == "" {
		month = "0"
	}
	if year != unknownExpiration && len(year) < 3 {
		year = strconv.Itoa(now.Year()/100) + zeroPad(year, 2)
	}
	expiry := year + "-" + zeroPad(month, 2)
	if expiry == "XXXX-XX" {
		return unknownExpiration
	}
	return expiry
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// optional returns the option value, or nil so the element is omitted.
func optional(opts gateway.Options, key string) any {
	if v, ok := opts.Lookup(key); ok {
		return v
	}
	return nil
}

var billToTags = []struct{ tag, key string }{
	{"firstName", gateway.OptFirstName},
	{"lastName", gateway.OptLastName},
	{"company", gateway.OptCompany},
	{"address", gateway.OptAddress},
	{"city", gateway.OptCity},
	{"state", gateway.OptState},
	{"zip", gateway.OptZip},
	{"country", gateway.OptCountry},
	{"phoneNumber", gateway.OptPhone},
	{"faxNumber", gateway.OptFax},
}

func billToBlock(opts gateway.Options) *xmltree.Tree {
	if !opts.HasAny(gateway.BillingKeys...) {
		return nil
	}
	t := xmltree.New()
	for _, f := range billToTags {
		t.Set(f.tag, optional(opts, f.key))
	}
	return t
}

func paymentBlock(opts gateway.Options, now time.Time) *xmltree.Tree {
	number, ok := opts.Lookup(gateway.OptNumber)
	if !ok {
		return nil
	}
	return xmltree.New().Set("creditCard", xmltree.New().
		Set("cardNumber", NormalizeCardNumber(number)).
		Set("expirationDate", FormatExpiration(opts.Get(gateway.OptYear), opts.Get(gateway.OptMonth), now)).
		Set("cardCode", optional(opts, gateway.OptCVV)))
}

func customerBlock(opts gateway.Options) *xmltree.Tree {
	if !opts.HasAny(gateway.OptCustomerID, gateway.OptEmail) {
		return nil
	}
	return xmltree.New().
		Set("id", optional(opts, gateway.OptCustomerID)).
		Set("email", optional(opts, gateway.OptEmail))
}

func orderBlock(opts gateway.Options) *xmltree.Tree {
	if !opts.HasAny(gateway.OptInvoiceNumber, gateway.OptDescription) {
		return nil
	}
	return xmltree.New().
		Set("invoiceNumber", optional(opts, gateway.OptInvoiceNumber)).
		Set("description", optional(opts, gateway.OptDescription))
}

func transactionSettings() *xmltree.Tree {
	return xmltree.New().Set("setting", []any{
		xmltree.New().Set("settingName", "duplicateWindow").Set("settingValue", 0),
		xmltree.New().Set("settingName", "testRequest").Set("settingValue", "false"),
	})
}

func transactionRequest(t *xmltree.Tree) request {
	return request{
		name: "createTransactionRequest",
		body: xmltree.New().Set("transactionRequest", t),
	}
}

func chargeRequest(price decimal.Decimal, opts gateway.Options, now time.Time) request {
	txnType := "authCaptureTransaction"
	if !opts.Settle() {
		txnType = "authOnlyTransaction"
	}

	t := xmltree.New().
		Set("transactionType", txnType).
		Set("amount", price).
		Set("payment", paymentBlock(opts, now)).
		Set("order", orderBlock(opts)).
		Set("customer", customerBlock(opts))

	if billTo := billToBlock(opts); billTo != nil {
		t.Set("billTo", billTo)
		t.Set("transactionSettings", transactionSettings())
	}
	return transactionRequest(t)
}

func voidRequest(transactionID string) request {
	return transactionRequest(xmltree.New().
		Set("transactionType", "voidTransaction").
		Set("refTransId", transactionID))
}

// refundRequest sends the masked account number with an unknown expiry,
// which is all the processor needs to match the original transaction.
func refundRequest(txn *gateway.Transaction, amount decimal.Decimal, now time.Time) request {
	number := txn.AccountNumber
	if number == "" {
		number = "XXXX" + txn.Last4
	}
	payment := gateway.Options{
		gateway.OptNumber: number,
		gateway.OptYear:   unknownExpiration,
		gateway.OptMonth:  "XX",
	}
	return transactionRequest(xmltree.New().
		Set("transactionType", "refundTransaction").
		Set("amount", amount).
		Set("payment", paymentBlock(payment, now)).
		Set("refTransId", txn.TransactionID))
}

func settleRequest(transactionID string, amount decimal.Decimal) request {
	return transactionRequest(xmltree.New().
		Set("transactionType", "priorAuthCaptureTransaction").
		Set("amount", amount).
		Set("refTransId", transactionID))
}

func transactionDetailsRequest(transactionID string) request {
	return request{
		name: "getTransactionDetailsRequest",
		body: xmltree.New().Set("transId", transactionID),
	}
}

// paymentProfileBlock holds the billTo and payment blocks of a stored card,
// each only when one of its fields is present.
func paymentProfileBlock(opts gateway.Options, now time.Time) *xmltree.Tree {
	return xmltree.New().
		Set("billTo", billToBlock(opts)).
		Set("payment", paymentBlock(opts, now))
}

func createCustomerRequest(opts gateway.Options, now time.Time) request {
	profile := xmltree.New().Set("email", opts.Get(gateway.OptEmail))
	if opts.HasAny(gateway.BillingKeys...) || opts.Has(gateway.OptNumber) {
		profile.Set("paymentProfiles", paymentProfileBlock(opts, now))
	}
	return request{
		name: "createCustomerProfileRequest",
		body: xmltree.New().Set("profile", profile),
	}
}

func updateCustomerRequest(customerID string, opts gateway.Options) request {
	return request{
		name: "updateCustomerProfileRequest",
		body: xmltree.New().Set("profile", xmltree.New().
			Set("description", optional(opts, gateway.OptDescription)).
			Set("email", optional(opts, gateway.OptEmail)).
			Set("customerProfileId", customerID)),
	}
}

func getCustomerRequest(customerID string) request {
	return request{
		name: "getCustomerProfileRequest",
		body: xmltree.New().Set("customerProfileId", customerID),
	}
}

func deleteCustomerRequest(customerID string) request {
	return request{
		name: "deleteCustomerProfileRequest",
		body: xmltree.New().Set("customerProfileId", customerID),
	}
}

// validationModeValue omits the element for an empty mode.
func validationModeValue(mode string) any {
	if mode == "" {
		return nil
	}
	return mode
}

func createPaymentProfileRequest(customerID string, profile *xmltree.Tree, validationMode string) request {
	return request{
		name: "createCustomerPaymentProfileRequest",
		body: xmltree.New().
			Set("customerProfileId", customerID).
			Set("paymentProfile", profile).
			Set("validationMode", validationModeValue(validationMode)),
	}
}

func updatePaymentProfileRequest(customerID, cardID string, profile *xmltree.Tree, validationMode string) request {
	profile.Set("customerPaymentProfileId", cardID)
	return request{
		name: "updateCustomerPaymentProfileRequest",
		body: xmltree.New().
			Set("customerProfileId", customerID).
			Set("paymentProfile", profile).
			Set("validationMode", validationModeValue(validationMode)),
	}
}

func getPaymentProfileRequest(customerID, cardID string) request {
	return request{
		name: "getCustomerPaymentProfileRequest",
		body: xmltree.New().
			Set("customerProfileId", customerID).
			Set("customerPaymentProfileId", cardID),
	}
}

func deletePaymentProfileRequest(customerID, cardID string) request {
	return request{
		name: "deleteCustomerPaymentProfileRequest",
		body: xmltree.New().
			Set("customerProfileId", customerID).
			Set("customerPaymentProfileId", cardID),
	}
}

// chargeProfileRequest charges a stored payment profile. Only profile
// identifiers are sent, never billing or card data.
func chargeProfileRequest(customerID, cardID string, price decimal.Decimal, opts gateway.Options) request {
	txnType := "profileTransAuthCapture"
	if !opts.Settle() {
		txnType = "profileTransAuthOnly"
	}
	return request{
		name: "createCustomerProfileTransactionRequest",
		body: xmltree.New().Set("transaction", xmltree.New().Set(txnType, xmltree.New().
			Set("amount", price).
			Set("customerProfileId", customerID).
			Set("customerPaymentProfileId", cardID).
			Set("order", orderBlock(opts)).
			Set("cardCode", optional(opts, gateway.OptCVV)))),
	}
}
