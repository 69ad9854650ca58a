package errors

import (
	"fmt"
	"strings"
)

// Kind identifies why a processor rejected a payment.
type Kind string

const (
	KindAVS                  Kind = "avs"
	KindCVV                  Kind = "cvv"
	KindInvalidCard          Kind = "invalid_card"
	KindInvalidAmount        Kind = "invalid_amount"
	KindExpired              Kind = "expired"
	KindCardDeclined         Kind = "card_declined"
	KindDuplicateTransaction Kind = "duplicate_transaction"
	KindRefund               Kind = "refund"
	KindInvalidTransaction   Kind = "invalid_transaction"
)

// Verification reports whether the kind is an AVS or CVV check failure.
func (k Kind) Verification() bool {
	return k == KindAVS || k == KindCVV
}

var kindMessages = map[Kind]string{
	KindAVS:                  "address verification failed",
	KindCVV:                  "card code verification failed",
	KindInvalidCard:          "invalid card",
	KindInvalidAmount:        "invalid amount",
	KindExpired:              "card expired",
	KindCardDeclined:         "card declined",
	KindDuplicateTransaction: "duplicate transaction",
	KindRefund:               "refund failed",
	KindInvalidTransaction:   "invalid transaction",
}

// PaymentError is a single rejection reason carrying the processor's code
// and message.
type PaymentError struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *PaymentError) Error() string {
	if e.Message == "" {
		return kindMessages[e.Kind]
	}
	return fmt.Sprintf("%s (%s): %s", kindMessages[e.Kind], e.Code, e.Message)
}

// PaymentRejectedError aggregates every rejection reason returned for one
// request, in the order the processor listed them.
type PaymentRejectedError struct {
	Errors []*PaymentError
	Reason string
	Err    error
}

// NewPaymentRejected wraps one or more rejection reasons.
func NewPaymentRejected(errs ...*PaymentError) *PaymentRejectedError {
	return &PaymentRejectedError{Errors: errs}
}

func (e *PaymentRejectedError) Error() string {
	parts := make([]string, 0, len(e.Errors)+1)
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	for _, pe := range e.Errors {
		parts = append(parts, pe.Error())
	}
	if len(parts) == 0 {
		return ErrPaymentRejected.Error()
	}
	return ErrPaymentRejected.Error() + ": " + strings.Join(parts, "; ")
}

func (e *PaymentRejectedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPaymentRejected}
	}
	return []error{ErrPaymentRejected, e.Err}
}

// Has reports whether any of the aggregated errors is of kind k.
func (e *PaymentRejectedError) Has(k Kind) bool {
	for _, pe := range e.Errors {
		if pe.Kind == k {
			return true
		}
	}
	return false
}

// HasAny reports whether any of kinds is present.
func (e *PaymentRejectedError) HasAny(kinds ...Kind) bool {
	for _, k := range kinds {
		if e.Has(k) {
			return true
		}
	}
	return false
}

// Kinds lists the kinds in processor order, duplicates included.
func (e *PaymentRejectedError) Kinds() []Kind {
	out := make([]Kind, 0, len(e.Errors))
	for _, pe := range e.Errors {
		out = append(out, pe.Kind)
	}
	return out
}

// Messages returns the processor messages carried by the errors.
func (e *PaymentRejectedError) Messages() []ProcessorMessage {
	out := make([]ProcessorMessage, 0, len(e.Errors))
	for _, pe := range e.Errors {
		out = append(out, ProcessorMessage{Code: pe.Code, Text: pe.Message})
	}
	return out
}
