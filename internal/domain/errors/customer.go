package errors

import "fmt"

// CustomerKind identifies a stored-customer fault.
type CustomerKind string

const (
	CustomerNotFound      CustomerKind = "not_found"
	CustomerDuplicate     CustomerKind = "duplicate"
	CustomerDuplicateCard CustomerKind = "duplicate_card"
	CustomerInvalid       CustomerKind = "invalid"
)

var customerSentinels = map[CustomerKind]error{
	CustomerNotFound:      ErrCustomerNotFound,
	CustomerDuplicate:     ErrDuplicateCustomer,
	CustomerDuplicateCard: ErrDuplicateCard,
	CustomerInvalid:       ErrInvalidCustomer,
}

// CustomerError reports a fault on a stored customer or card. For
// CustomerDuplicate, CustomerID holds the id of the existing record when the
// processor reveals it.
type CustomerError struct {
	Kind       CustomerKind
	CustomerID string
	Code       string
	Message    string
}

func NewCustomerError(kind CustomerKind, code, message string) *CustomerError {
	return &CustomerError{Kind: kind, Code: code, Message: message}
}

func (e *CustomerError) Error() string {
	base := customerSentinels[e.Kind].Error()
	if e.CustomerID != "" {
		base = fmt.Sprintf("%s %s", base, e.CustomerID)
	}
	if e.Message == "" {
		return base
	}
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", base, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", base, e.Code, e.Message)
}

func (e *CustomerError) Unwrap() error {
	return customerSentinels[e.Kind]
}
