package gateway

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
)

// Message is an informational code/description pair returned with a
// successful response.
type Message struct {
	Code        string `json:"code" mapstructure:"code"`
	Description string `json:"description" mapstructure:"description"`
}

// Billing is the billing address attached to a customer or card.
type Billing struct {
	FirstName string `json:"first_name,omitempty" mapstructure:"first_name"`
	LastName  string `json:"last_name,omitempty" mapstructure:"last_name"`
	Company   string `json:"company,omitempty" mapstructure:"company"`
	Address   string `json:"address,omitempty" mapstructure:"address"`
	City      string `json:"city,omitempty" mapstructure:"city"`
	State     string `json:"state,omitempty" mapstructure:"state"`
	Zip       string `json:"zip,omitempty" mapstructure:"zip"`
	Country   string `json:"country,omitempty" mapstructure:"country"`
	Phone     string `json:"phone,omitempty" mapstructure:"phone"`
	Fax       string `json:"fax,omitempty" mapstructure:"fax"`
}

func (b Billing) fields() []struct{ key, value string } {
	return []struct{ key, value string }{
		{OptFirstName, b.FirstName},
		{OptLastName, b.LastName},
		{OptCompany, b.Company},
		{OptAddress, b.Address},
		{OptCity, b.City},
		{OptState, b.State},
		{OptZip, b.Zip},
		{OptCountry, b.Country},
		{OptPhone, b.Phone},
		{OptFax, b.Fax},
	}
}

// Options returns the non-empty billing fields as an option bag.
func (b Billing) Options() Options {
	out := Options{}
	for _, f := range b.fields() {
		if f.value != "" {
			out[f.key] = f.value
		}
	}
	return out
}

// BillingFromOptions copies the billing keys out of opts.
func BillingFromOptions(opts Options) Billing {
	return Billing{
		FirstName: opts.Get(OptFirstName),
		LastName:  opts.Get(OptLastName),
		Company:   opts.Get(OptCompany),
		Address:   opts.Get(OptAddress),
		City:      opts.Get(OptCity),
		State:     opts.Get(OptState),
		Zip:       opts.Get(OptZip),
		Country:   opts.Get(OptCountry),
		Phone:     opts.Get(OptPhone),
		Fax:       opts.Get(OptFax),
	}
}

// Transaction is the normalized result of a charge or lookup.
type Transaction struct {
	Price                decimal.Decimal `json:"price" mapstructure:"price"`
	TransactionID        string          `json:"transaction_id" mapstructure:"transaction_id"`
	AuthCode             string          `json:"auth_code,omitempty" mapstructure:"auth_code"`
	AccountNumber        string          `json:"account_number,omitempty" mapstructure:"account_number"`
	CardType             string          `json:"card_type,omitempty" mapstructure:"card_type"`
	Last4                string          `json:"last_4,omitempty" mapstructure:"last_4"`
	AVSSuccessful        bool            `json:"avs_successful" mapstructure:"avs_successful"`
	AVSZipSuccessful     bool            `json:"avs_zip_successful" mapstructure:"avs_zip_successful"`
	AVSAddressSuccessful bool            `json:"avs_address_successful" mapstructure:"avs_address_successful"`
	CVVSuccessful        bool            `json:"cvv_successful" mapstructure:"cvv_successful"`
	CustomerID           string          `json:"customer_id,omitempty" mapstructure:"customer_id"`
	Email                string          `json:"email,omitempty" mapstructure:"email"`
	Status               string          `json:"status,omitempty" mapstructure:"status"`
	ResponseCode         string          `json:"response_code,omitempty" mapstructure:"response_code"`
	Messages             []Message       `json:"messages,omitempty" mapstructure:"messages"`
	Gateway              string          `json:"gateway,omitempty" mapstructure:"gateway"`
	Extra                map[string]any  `json:"extra,omitempty" mapstructure:",remain"`
}

// ToDict flattens the record into a caller-level map.
func (t *Transaction) ToDict() map[string]any {
	out := map[string]any{
		"price":                  t.Price.String(),
		"transaction_id":         t.TransactionID,
		"avs_successful":         t.AVSSuccessful,
		"avs_zip_successful":     t.AVSZipSuccessful,
		"avs_address_successful": t.AVSAddressSuccessful,
		"cvv_successful":         t.CVVSuccessful,
	}
	putString(out, "auth_code", t.AuthCode)
	putString(out, "account_number", t.AccountNumber)
	putString(out, "card_type", t.CardType)
	putString(out, "last_4", t.Last4)
	putString(out, "customer_id", t.CustomerID)
	putString(out, "email", t.Email)
	putString(out, "status", t.Status)
	putString(out, "response_code", t.ResponseCode)
	putString(out, "gateway", t.Gateway)
	putMessages(out, t.Messages)
	putExtra(out, t.Extra)
	return out
}

// TransactionFromDict rebuilds a transaction from ToDict output. Unknown
// keys land in Extra.
func TransactionFromDict(d map[string]any) (*Transaction, error) {
	var t Transaction
	if err := decodeDict(d, &t); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &t, nil
}

// Card is a stored payment method. Number and ExpirationDate hold the
// processor's masked values and are only used to rebuild update requests.
type Card struct {
	CustomerID     string         `json:"customer_id,omitempty" mapstructure:"customer_id"`
	CardID         string         `json:"card_id,omitempty" mapstructure:"card_id"`
	Billing        `mapstructure:",squash"`
	Last4          string         `json:"last_4,omitempty" mapstructure:"last_4"`
	Number         string         `json:"number,omitempty" mapstructure:"number"`
	ExpirationDate string         `json:"expiration_date,omitempty" mapstructure:"expiration_date"`
	Year           string         `json:"year,omitempty" mapstructure:"year"`
	Month          string         `json:"month,omitempty" mapstructure:"month"`
	CVV            string         `json:"-" mapstructure:"cvv"`
	Messages       []Message      `json:"messages,omitempty" mapstructure:"messages"`
	Extra          map[string]any `json:"extra,omitempty" mapstructure:",remain"`
}

// Options renders the card as an option bag for request builders.
func (c *Card) Options() Options {
	out := c.Billing.Options()
	putOption(out, OptNumber, c.Number)
	putOption(out, OptYear, c.Year)
	putOption(out, OptMonth, c.Month)
	putOption(out, OptCVV, c.CVV)
	putOption(out, OptCustomerID, c.CustomerID)
	putOption(out, OptCardID, c.CardID)
	return out
}

func (c *Card) ToDict() map[string]any {
	out := map[string]any{}
	putString(out, "customer_id", c.CustomerID)
	putString(out, "card_id", c.CardID)
	for _, f := range c.Billing.fields() {
		putString(out, f.key, f.value)
	}
	putString(out, "last_4", c.Last4)
	putString(out, "number", c.Number)
	putString(out, "expiration_date", c.ExpirationDate)
	putString(out, "year", c.Year)
	putString(out, "month", c.Month)
	putMessages(out, c.Messages)
	putExtra(out, c.Extra)
	return out
}

func CardFromDict(d map[string]any) (*Card, error) {
	var c Card
	if err := decodeDict(d, &c); err != nil {
		return nil, fmt.Errorf("decode card: %w", err)
	}
	return &c, nil
}

// Customer is a stored customer profile. The primary card's fields are
// copied to the top level for convenience.
type Customer struct {
	CustomerID     string         `json:"customer_id" mapstructure:"customer_id"`
	Email          string         `json:"email,omitempty" mapstructure:"email"`
	Billing        `mapstructure:",squash"`
	CardID         string         `json:"card_id,omitempty" mapstructure:"card_id"`
	Last4          string         `json:"last_4,omitempty" mapstructure:"last_4"`
	Number         string         `json:"number,omitempty" mapstructure:"number"`
	ExpirationDate string         `json:"expiration_date,omitempty" mapstructure:"expiration_date"`
	Year           string         `json:"year,omitempty" mapstructure:"year"`
	Month          string         `json:"month,omitempty" mapstructure:"month"`
	Messages       []Message      `json:"messages,omitempty" mapstructure:"messages"`
	Cards          []*Card        `json:"cards,omitempty" mapstructure:"-"`
	Extra          map[string]any `json:"extra,omitempty" mapstructure:",remain"`
}

// PrimaryCard returns the card matching CardID, falling back to the first
// stored card.
func (c *Customer) PrimaryCard() *Card {
	for _, card := range c.Cards {
		if card.CardID == c.CardID {
			return card
		}
	}
	if len(c.Cards) > 0 {
		return c.Cards[0]
	}
	return nil
}

func (c *Customer) ToDict() map[string]any {
	out := map[string]any{"customer_id": c.CustomerID}
	putString(out, "email", c.Email)
	for _, f := range c.Billing.fields() {
		putString(out, f.key, f.value)
	}
	putString(out, "card_id", c.CardID)
	putString(out, "last_4", c.Last4)
	putString(out, "number", c.Number)
	putString(out, "expiration_date", c.ExpirationDate)
	putString(out, "year", c.Year)
	putString(out, "month", c.Month)
	putMessages(out, c.Messages)
	putExtra(out, c.Extra)
	return out
}

func CustomerFromDict(d map[string]any) (*Customer, error) {
	var c Customer
	if err := decodeDict(d, &c); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	return &c, nil
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func putOption(o Options, key, value string) {
	if value != "" {
		o[key] = value
	}
}

func putMessages(m map[string]any, msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	list := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		list = append(list, map[string]any{"code": msg.Code, "description": msg.Description})
	}
	m["messages"] = list
}

func putExtra(m map[string]any, extra map[string]any) {
	for k, v := range extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return data, nil
	}
}

func decodeDict(d map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(decimalHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(d)
}
