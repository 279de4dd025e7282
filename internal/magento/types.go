package magento

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ID is a numeric identifier that the API emits as a number or as a quoted
// string, depending on the record.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric id %q", s)
	}
	*id = ID(n)
	return nil
}

// StringID is an identifier kept as text. Accepts both quoted and bare
// numeric forms.
type StringID string

func (s *StringID) UnmarshalJSON(b []byte) error {
	t := strings.TrimSpace(string(b))
	if t == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(t, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = StringID(v)
		return nil
	}
	*s = StringID(t)
	return nil
}

// Decimal is an amount or quantity. The API mixes JSON numbers, numeric
// strings, empty strings and nulls for these fields; the empty forms decode
// to zero.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		d.Decimal = decimal.Zero
		return nil
	}
	return d.Decimal.UnmarshalJSON(b)
}

// RawOrder is one order record as returned by the Orders action. The exact
// bytes received on the wire are retained for storage next to the normalized
// rows.
//
// A record whose body does not decode is kept in the page rather than
// aborting it; the mapper rejects it through DecodeErr.
type RawOrder struct {
	ID                 ID           `json:"Id"`
	OrderNumber        string       `json:"OrderNumber"`
	ReplaceOrderNumber string       `json:"ReplaceOrderNumber"`
	Date               string       `json:"Date"`
	LastUpdatedDate    string       `json:"LastUpdatedDate"`
	Type               string       `json:"Type"`
	Status             string       `json:"Status"`
	CurrencyCode       string       `json:"CurrencyCode"`
	Notes              string       `json:"Notes"`
	Tags               string       `json:"Tags"`
	Discounts          Decimal      `json:"Discounts"`
	Total              Decimal      `json:"Total"`
	Shipping           RawShipping  `json:"Shipping"`
	Payments           RawPayments  `json:"Payments"`
	Items              []RawItem    `json:"Items"`
	Addresses          RawAddresses `json:"Addresses"`
	Credits            []RawCredit  `json:"Credits"`

	raw       json.RawMessage
	decodeErr error
}

func (o *RawOrder) UnmarshalJSON(b []byte) error {
	type alias RawOrder
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		*o = RawOrder{}
		o.raw = append(json.RawMessage(nil), b...)
		o.decodeErr = err
		return nil
	}
	*o = RawOrder(a)
	o.raw = append(json.RawMessage(nil), b...)
	return nil
}

// Payload returns the order exactly as received on the wire.
func (o *RawOrder) Payload() []byte { return o.raw }

// DecodeErr reports why this record failed to decode, or nil.
func (o *RawOrder) DecodeErr() error { return o.decodeErr }

// RawItem is one order line on the wire.
type RawItem struct {
	ProductID       StringID `json:"ProductId"`
	ProductCode     string   `json:"ProductCode"`
	ProductName     string   `json:"ProductName"`
	Quantity        Decimal  `json:"Quantity"`
	Price           Decimal  `json:"Price"`
	UnitPriceExTax  Decimal  `json:"UnitPriceExTax"`
	Taxes           RawTaxes `json:"Taxes"`
	LineTotalIncTax Decimal  `json:"LineTotalIncTax"`
}

// RawTaxes carries the tax block shared by items and shipping.
type RawTaxes struct {
	TaxRate   Decimal `json:"TaxRate"`
	TaxAmount Decimal `json:"TaxAmount"`
}

// RawShipping is the order-level shipping block.
type RawShipping struct {
	ShippingMethod string   `json:"ShippingMethod"`
	Amount         Decimal  `json:"Amount"`
	Taxes          RawTaxes `json:"Taxes"`
}

// RawPayments wraps the single payment method the API reports per order.
type RawPayments struct {
	PaymentMethod RawPaymentMethod `json:"PaymentMethod"`
}

// RawPaymentMethod names the tender and the amount taken.
type RawPaymentMethod struct {
	MethodName string  `json:"MethodName"`
	Amount     Decimal `json:"Amount"`
}

// RawAddresses holds the optional billing and shipping contacts.
type RawAddresses struct {
	BillingAddress  *RawAddress `json:"BillingAddress"`
	ShippingAddress *RawAddress `json:"ShippingAddress"`
}

// RawAddress is one postal contact.
type RawAddress struct {
	Salutation       string `json:"Salutation"`
	FirstName        string `json:"FirstName"`
	LastName         string `json:"LastName"`
	OrganizationName string `json:"OrganizationName"`
	WorkPhone        string `json:"WorkPhone"`
	Line1            string `json:"Line1"`
	Line2            string `json:"Line2"`
	City             string `json:"City"`
	PostCode         string `json:"PostCode"`
	State            string `json:"State"`
	CountryCode      string `json:"CountryCode"`
}

// RawCredit is a credit memo entity, passed through by the API in the
// platform's own snake_case field names.
type RawCredit struct {
	EntityID           StringID `json:"entity_id"`
	StoreID            StringID `json:"store_id"`
	IncrementID        StringID `json:"increment_id"`
	AdjustmentPositive Decimal  `json:"adjustment_positive"`
	AdjustmentNegative Decimal  `json:"adjustment_negative"`
	GrandTotal         Decimal  `json:"grand_total"`
	Reason             string   `json:"reason"`
	CreatedAt          string   `json:"created_at"`
}

type ordersResponse struct {
	Version string     `json:"OneSaas Version"`
	Orders  []RawOrder `json:"Orders"`
}
