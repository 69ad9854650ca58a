package gateway

import "strings"

// Option keys understood by every gateway.
const (
	OptNumber        = "number"
	OptMonth         = "month"
	OptYear          = "year"
	OptCVV           = "cvv"
	OptFirstName     = "first_name"
	OptLastName      = "last_name"
	OptCompany       = "company"
	OptAddress       = "address"
	OptCity          = "city"
	OptState         = "state"
	OptZip           = "zip"
	OptCountry       = "country"
	OptPhone         = "phone"
	OptFax           = "fax"
	OptEmail         = "email"
	OptCustomerID    = "customer_id"
	OptCardID        = "card_id"
	OptInvoiceNumber = "invoice_number"
	OptSettle        = "settle"
	OptDescription   = "description"

	// REST processor specific.
	OptToken           = "token"
	OptPaymentMethodID = "payment_method_id"
	OptInstallments    = "installments"
)

// BillingKeys are the option keys that make up a billing address.
var BillingKeys = []string{
	OptFirstName, OptLastName, OptCompany, OptAddress, OptCity,
	OptState, OptZip, OptCountry, OptPhone, OptFax,
}

// CardKeys are the option keys that describe a card.
var CardKeys = []string{OptNumber, OptMonth, OptYear}

// Options is a flat bag of caller supplied fields. The presence of a key,
// not its value, decides whether the matching request block is emitted.
type Options map[string]string

// Get returns the value for key, or "".
func (o Options) Get(key string) string {
	return o[key]
}

// Lookup returns the value for key and whether it is present.
func (o Options) Lookup(key string) (string, bool) {
	v, ok := o[key]
	return v, ok
}

func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// HasAny reports whether at least one of keys is present.
func (o Options) HasAny(keys ...string) bool {
	for _, k := range keys {
		if o.Has(k) {
			return true
		}
	}
	return false
}

// HasAll reports whether every key is present.
func (o Options) HasAll(keys ...string) bool {
	for _, k := range keys {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy. A nil bag clones to an empty one.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge returns a copy of o overlaid with over. Keys in over win.
func (o Options) Merge(over Options) Options {
	out := o.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Settle reports whether a charge should capture immediately. Missing or
// unrecognized values default to true.
func (o Options) Settle() bool {
	v, ok := o[OptSettle]
	if !ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}
