package authorizenet

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fusionbox/dinero/internal/testutil"
	"github.com/fusionbox/dinero/pkg/xmltree"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

const okMessages = `<messages><resultCode>Ok</resultCode><message><code>I00001</code><text>Successful.</text></message></messages>`

func okResponse(root, inner string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?><%s xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns="%s">%s%s</%s>`,
		root, Namespace, okMessages, inner, root)
}

func errorResponse(root, code, text, inner string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?><%s xmlns="%s"><messages><resultCode>Error</resultCode><message><code>%s</code><text>%s</text></message></messages>%s</%s>`,
		root, Namespace, code, text, inner, root)
}

func authFailure() string {
	return errorResponse("ErrorResponse", "E00007", "User authentication failed due to invalid authentication values.", "")
}

func transactionErrors(responseCode string, codes ...string) string {
	var b strings.Builder
	b.WriteString(`<transactionResponse><responseCode>` + responseCode + `</responseCode><transId>0</transId><errors>`)
	for _, c := range codes {
		fmt.Fprintf(&b, `<error><errorCode>%s</errorCode><errorText>error %s</errorText></error>`, c, c)
	}
	b.WriteString(`</errors></transactionResponse>`)
	return errorResponse("createTransactionResponse", "E00027", "The transaction was unsuccessful.", b.String())
}

func invalidTransaction() string {
	return transactionErrors("3", "33")
}

const approvedTransaction = `<transactionResponse>` +
	`<responseCode>1</responseCode><authCode>ABC123</authCode>` +
	`<avsResultCode>Y</avsResultCode><cvvResultCode>M</cvvResultCode>` +
	`<transId>2156009012</transId><refTransID/>` +
	`<accountNumber>XXXX1111</accountNumber><accountType>Visa</accountType>` +
	`<messages><message><code>1</code><description>This transaction has been approved.</description></message></messages>` +
	`</transactionResponse>`

func directResponse(sep string) string {
	return strings.Join(directResponseFields(), sep)
}

func directResponseFields() []string {
	fields := make([]string, 68)
	fields[directResponseCode] = "1"
	fields[directReasonCode] = "1"
	fields[directReasonText] = "This transaction has been approved."
	fields[directAuthCode] = "AUTH01"
	fields[directAVSCode] = "Z"
	fields[directTransactionID] = "2230001"
	fields[directCardCode] = "M"
	fields[directAccountNumber] = "XXXX1111"
	fields[directAccountType] = "Visa"
	return fields
}

const customerProfile = `<profile>` +
	`<merchantCustomerId>m-1</merchantCustomerId><email>joey@example.com</email>` +
	`<customerProfileId>10</customerProfileId>` +
	`<paymentProfiles>` +
	`<billTo><firstName>Joey</firstName><lastName>Shabadoo</lastName><zip>90210</zip></billTo>` +
	`<customerPaymentProfileId>20</customerPaymentProfileId>` +
	`<payment><creditCard><cardNumber>XXXX1111</cardNumber><expirationDate>XXXX</expirationDate></creditCard></payment>` +
	`</paymentProfiles>` +
	`<paymentProfiles>` +
	`<billTo><firstName>Jo</firstName></billTo>` +
	`<customerPaymentProfileId>21</customerPaymentProfileId>` +
	`<payment><creditCard><cardNumber>XXXX0027</cardNumber><expirationDate>2030-12</expirationDate></creditCard></payment>` +
	`</paymentProfiles>` +
	`</profile>`

const storedPaymentProfile = `<paymentProfile>` +
	`<billTo><firstName>Joey</firstName><lastName>Shabadoo</lastName><address>123 Elm</address><zip>90210</zip></billTo>` +
	`<customerPaymentProfileId>20</customerPaymentProfileId>` +
	`<payment><creditCard><cardNumber>XXXX1111</cardNumber><expirationDate>XXXX</expirationDate></creditCard></payment>` +
	`</paymentProfile>`

func decode(t *testing.T, s string) *xmltree.Tree {
	t.Helper()
	_, tree, err := xmltree.Unmarshal([]byte(s))
	require.NoError(t, err)
	return tree
}

// sent decodes the i-th request captured by the poster.
func sent(t *testing.T, p *testutil.MockPoster, i int) (string, *xmltree.Tree) {
	t.Helper()
	require.Greater(t, len(p.Requests), i)
	root, tree, err := xmltree.Unmarshal(p.Requests[i].Body)
	require.NoError(t, err)
	return root, tree
}

func newTestGateway(poster *testutil.MockPoster, endpoint string) *Gateway {
	return New(Config{
		LoginID:        "login",
		TransactionKey: "key",
		Endpoint:       endpoint,
	}, poster, WithClock(fixedClock))
}
