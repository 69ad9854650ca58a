package mercadopago

import (
	"strings"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
)

const (
	statusApproved   = "approved"
	statusAuthorized = "authorized"
	statusPending    = "pending"
	statusInProcess  = "in_process"
	statusRejected   = "rejected"
	statusCancelled  = "cancelled"
)

// statusDetailKinds maps the status_detail of a rejected payment.
var statusDetailKinds = map[string]domainErrors.Kind{
	"cc_rejected_bad_filled_card_number":   domainErrors.KindInvalidCard,
	"cc_rejected_bad_filled_other":         domainErrors.KindInvalidCard,
	"cc_rejected_card_error":               domainErrors.KindInvalidCard,
	"cc_rejected_bad_filled_date":          domainErrors.KindExpired,
	"cc_rejected_bad_filled_security_code": domainErrors.KindCVV,
	"cc_rejected_call_for_authorize":       domainErrors.KindCardDeclined,
	"cc_rejected_card_disabled":            domainErrors.KindCardDeclined,
	"cc_rejected_high_risk":                domainErrors.KindCardDeclined,
	"cc_rejected_insufficient_amount":      domainErrors.KindCardDeclined,
	"cc_rejected_max_attempts":             domainErrors.KindCardDeclined,
	"cc_rejected_other_reason":             domainErrors.KindCardDeclined,
	"cc_rejected_blacklist":                domainErrors.KindCardDeclined,
	"cc_rejected_duplicated_payment":       domainErrors.KindDuplicateTransaction,
	"cc_rejected_invalid_installments":     domainErrors.KindInvalidAmount,
}

// rejection classifies a rejected payment by its status detail.
func rejection(status, detail string) error {
	kind, ok := statusDetailKinds[detail]
	if !ok {
		return domainErrors.NewGatewayError(domainErrors.ErrUnmappedCode,
			domainErrors.ProcessorMessage{Code: status, Text: detail})
	}
	return domainErrors.NewPaymentRejected(&domainErrors.PaymentError{Kind: kind, Code: detail, Message: status})
}

// customerError translates an error returned by the customer or card
// clients. The SDK only exposes the API message, so faults are recognized
// by text.
func customerError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return domainErrors.NewCustomerError(domainErrors.CustomerNotFound, "404", err.Error())
	case strings.Contains(msg, "already exist"):
		return domainErrors.NewCustomerError(domainErrors.CustomerDuplicate, "101", err.Error())
	default:
		return domainErrors.NewGatewayError(err)
	}
}

// paymentError translates an error returned by the payment or refund
// clients for payment id.
func paymentError(id string, err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return invalidTransaction(id, err.Error())
	}
	return domainErrors.NewGatewayError(err)
}

func invalidTransaction(id, reason string) error {
	return domainErrors.NewPaymentRejected(&domainErrors.PaymentError{
		Kind: domainErrors.KindInvalidTransaction, Code: id, Message: reason,
	})
}
