package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Gateway errors
	ErrGateway          = errors.New("gateway error")
	ErrAuthentication   = errors.New("gateway authentication failed")
	ErrUnmappedCode     = errors.New("unmapped processor response code")
	ErrConfiguration    = errors.New("gateway misconfigured")
	ErrNotSupported     = errors.New("operation not supported by gateway")
	ErrUnexpectedStatus = errors.New("unexpected gateway http status")
	ErrGatewayNotFound  = errors.New("gateway not found")

	// Payment errors
	ErrPaymentRejected        = errors.New("payment rejected")
	ErrPartialRefundUnsettled = errors.New("cannot partially refund an unsettled transaction")

	// Customer errors
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrDuplicateCustomer = errors.New("duplicate customer")
	ErrDuplicateCard     = errors.New("duplicate card")
	ErrInvalidCustomer   = errors.New("invalid customer")

	// Access errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ProcessorMessage is a code/text pair reported by a payment processor.
type ProcessorMessage struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

func (m ProcessorMessage) String() string {
	return fmt.Sprintf("%s: %s", m.Code, m.Text)
}

// GatewayError is a processor-level fault: a malformed request, bad
// credentials, a code the classification table does not know, or a
// transport failure. It is never retried.
type GatewayError struct {
	Messages []ProcessorMessage
	Err      error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(ErrGateway.Error())
	}
	for i, m := range e.Messages {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(m.String())
	}
	return b.String()
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGateway}
	}
	return []error{ErrGateway, e.Err}
}

// NewGatewayError builds a GatewayError from a cause and processor messages.
func NewGatewayError(err error, messages ...ProcessorMessage) *GatewayError {
	return &GatewayError{Messages: messages, Err: err}
}
