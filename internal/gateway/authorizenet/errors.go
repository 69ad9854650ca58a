package authorizenet

import (
	"fmt"
	"regexp"
	"strings"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/pkg/xmltree"
)

// responseCodeKinds maps transaction response reason codes to the rejection
// kinds they imply. One code may imply several kinds.
var responseCodeKinds = map[string][]domainErrors.Kind{
	"2":  {domainErrors.KindCardDeclined},
	"3":  {domainErrors.KindCardDeclined},
	"4":  {domainErrors.KindCardDeclined},
	"5":  {domainErrors.KindInvalidAmount},
	"6":  {domainErrors.KindInvalidCard},
	"8":  {domainErrors.KindExpired},
	"11": {domainErrors.KindDuplicateTransaction},
	"16": {domainErrors.KindInvalidTransaction},
	"17": {domainErrors.KindInvalidCard},
	"27": {domainErrors.KindAVS},
	"28": {domainErrors.KindInvalidCard},
	"33": {domainErrors.KindInvalidTransaction},
	"37": {domainErrors.KindInvalidCard},
	"44": {domainErrors.KindCVV},
	"45": {domainErrors.KindAVS, domainErrors.KindCVV},
	"54": {domainErrors.KindRefund},
	"55": {domainErrors.KindRefund},
	"65": {domainErrors.KindCVV},
}

// Result codes of the API envelope.
const (
	codeAuthentication   = "E00007"
	codeInvalidCard      = "E00013"
	codeTransactionError = "E00027"
	codeDuplicate        = "E00039"
	codeNotFound         = "E00040"
)

var duplicateCustomerRe = regexp.MustCompile(`^A duplicate record with ID (.*) already exists\.$`)

type codeText struct {
	code string
	text string
}

// paymentErrors expands processor codes into rejection reasons, keeping the
// processor's order. An unknown code means the table is out of date.
func paymentErrors(pairs []codeText) ([]*domainErrors.PaymentError, error) {
	var out []*domainErrors.PaymentError
	for _, p := range pairs {
		kinds, ok := responseCodeKinds[p.code]
		if !ok {
			return nil, domainErrors.NewGatewayError(
				fmt.Errorf("%w %q", domainErrors.ErrUnmappedCode, p.code),
				processorMessages(pairs)...,
			)
		}
		for _, k := range kinds {
			out = append(out, &domainErrors.PaymentError{Kind: k, Code: p.code, Message: p.text})
		}
	}
	return out, nil
}

func rejection(pairs []codeText) error {
	errs, err := paymentErrors(pairs)
	if err != nil {
		return err
	}
	return domainErrors.NewPaymentRejected(errs...)
}

// classify inspects a decoded response once and returns nil on success or
// the typed failure. Embedded transaction errors win over the envelope's
// result code, which the processor does not always set consistently.
func classify(resp *xmltree.Tree) error {
	if pairs := pairsAt(resp, "transactionResponse.errors.error", "errorCode", "errorText"); len(pairs) > 0 {
		return rejection(pairs)
	}

	if xmltree.LookupString(resp, "messages.resultCode") != "Error" {
		return nil
	}

	messages := pairsAt(resp, "messages.message", "code", "text")
	for _, m := range messages {
		switch m.code {
		case codeDuplicate:
			if strings.Contains(m.text, "payment profile") {
				return domainErrors.NewCustomerError(domainErrors.CustomerDuplicateCard, m.code, m.text)
			}
			cerr := domainErrors.NewCustomerError(domainErrors.CustomerDuplicate, m.code, m.text)
			if match := duplicateCustomerRe.FindStringSubmatch(m.text); match != nil {
				cerr.CustomerID = match[1]
			}
			return cerr
		case codeAuthentication:
			return domainErrors.NewGatewayError(domainErrors.ErrAuthentication, processorMessages(messages)...)
		case codeInvalidCard:
			return domainErrors.NewPaymentRejected(&domainErrors.PaymentError{
				Kind: domainErrors.KindInvalidCard, Code: m.code, Message: m.text,
			})
		case codeNotFound:
			return domainErrors.NewCustomerError(domainErrors.CustomerNotFound, m.code, m.text)
		case codeTransactionError:
			if direct := directResponseOf(resp); direct != "" {
				if fields, err := splitDirectResponse(direct); err == nil {
					return rejection([]codeText{{code: fields[directReasonCode], text: fields[directReasonText]}})
				}
			}
		}
	}

	return domainErrors.NewGatewayError(nil, processorMessages(messages)...)
}

func pairsAt(resp *xmltree.Tree, path, codeKey, textKey string) []codeText {
	v, ok := xmltree.Lookup(resp, path)
	if !ok {
		return nil
	}
	var out []codeText
	for _, item := range xmltree.AsList(v) {
		node, ok := item.(*xmltree.Tree)
		if !ok {
			continue
		}
		out = append(out, codeText{
			code: xmltree.LookupString(node, codeKey),
			text: xmltree.LookupString(node, textKey),
		})
	}
	return out
}

func processorMessages(pairs []codeText) []domainErrors.ProcessorMessage {
	out := make([]domainErrors.ProcessorMessage, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, domainErrors.ProcessorMessage{Code: p.code, Text: p.text})
	}
	return out
}
