package mapper

import (
	"fmt"
	"strings"
	"time"

	"github.com/pmbright/synclet/internal/magento"
	"github.com/pmbright/synclet/internal/models"
)

// MappingError reports a raw record that cannot be normalized. It invalidates
// only the record it names, never the page around it.
type MappingError struct {
	RemoteID int64 // zero when the identifier itself is missing
	Field    string
	Reason   string
}

func (e *MappingError) Error() string {
	if e.RemoteID == 0 {
		return fmt.Sprintf("mapping order: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("mapping order %d: %s: %s", e.RemoteID, e.Field, e.Reason)
}

// Defaults applied when the API omits the field.
const (
	defaultOrderType    = "Order"
	defaultCurrencyCode = "GBP"
)

// The API is inconsistent about the separator between date and time.
var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// MapOrder normalizes one raw API record into the persistable record set. It
// is pure: same input, same output, and it never touches the network or the
// database.
func MapOrder(raw *magento.RawOrder) (*models.Order, error) {
	if err := raw.DecodeErr(); err != nil {
		return nil, &MappingError{Field: "payload", Reason: fmt.Sprintf("undecodable record: %v", err)}
	}
	if raw.ID == 0 {
		return nil, &MappingError{Field: "Id", Reason: "missing remote order identifier"}
	}
	remoteID := int64(raw.ID)
	if strings.TrimSpace(raw.OrderNumber) == "" {
		return nil, &MappingError{RemoteID: remoteID, Field: "OrderNumber", Reason: "missing"}
	}
	if len(raw.Items) == 0 {
		return nil, &MappingError{RemoteID: remoteID, Field: "Items", Reason: "order has no line items"}
	}

	orderDate, err := parseDate(raw.Date)
	if err != nil {
		return nil, &MappingError{RemoteID: remoteID, Field: "Date", Reason: err.Error()}
	}
	updatedDate, err := parseDate(raw.LastUpdatedDate)
	if err != nil {
		return nil, &MappingError{RemoteID: remoteID, Field: "LastUpdatedDate", Reason: err.Error()}
	}

	order := &models.Order{
		RemoteID:           remoteID,
		OrderNumber:        strings.TrimSpace(raw.OrderNumber),
		ReplaceOrderNumber: strings.TrimSpace(raw.ReplaceOrderNumber),
		OrderDate:          orderDate,
		LastUpdatedDate:    updatedDate,
		OrderType:          withDefault(raw.Type, defaultOrderType),
		Status:             strings.TrimSpace(raw.Status),
		CurrencyCode:       withDefault(raw.CurrencyCode, defaultCurrencyCode),
		Notes:              raw.Notes,
		Tags:               raw.Tags,
		Discounts:          raw.Discounts.Decimal,
		Total:              raw.Total.Decimal,
		ShippingMethod:     strings.TrimSpace(raw.Shipping.ShippingMethod),
		ShippingAmount:     raw.Shipping.Amount.Decimal,
		ShippingTaxAmount:  raw.Shipping.Taxes.TaxAmount.Decimal,
		PaymentMethod:      strings.TrimSpace(raw.Payments.PaymentMethod.MethodName),
		PaymentAmount:      raw.Payments.PaymentMethod.Amount.Decimal,
		RawPayload:         raw.Payload(),
	}

	for i := range raw.Items {
		order.Items = append(order.Items, mapItem(&raw.Items[i]))
	}
	if raw.Addresses.BillingAddress != nil {
		order.Addresses = append(order.Addresses, mapAddress(models.AddressRoleBilling, raw.Addresses.BillingAddress))
	}
	if raw.Addresses.ShippingAddress != nil {
		order.Addresses = append(order.Addresses, mapAddress(models.AddressRoleShipping, raw.Addresses.ShippingAddress))
	}
	for i := range raw.Credits {
		order.Credits = append(order.Credits, mapCredit(&raw.Credits[i]))
	}

	return order, nil
}

func mapItem(raw *magento.RawItem) models.OrderItem {
	return models.OrderItem{
		ProductID:       string(raw.ProductID),
		ProductCode:     strings.TrimSpace(raw.ProductCode),
		ProductName:     strings.TrimSpace(raw.ProductName),
		Quantity:        raw.Quantity.Decimal,
		Price:           raw.Price.Decimal,
		UnitPriceExTax:  raw.UnitPriceExTax.Decimal,
		TaxRate:         raw.Taxes.TaxRate.Decimal,
		TaxAmount:       raw.Taxes.TaxAmount.Decimal,
		LineTotalIncTax: raw.LineTotalIncTax.Decimal,
	}
}

func mapAddress(role string, raw *magento.RawAddress) models.OrderAddress {
	return models.OrderAddress{
		AddressType:      role,
		Salutation:       raw.Salutation,
		FirstName:        raw.FirstName,
		LastName:         raw.LastName,
		OrganizationName: raw.OrganizationName,
		WorkPhone:        raw.WorkPhone,
		Line1:            raw.Line1,
		Line2:            raw.Line2,
		City:             raw.City,
		PostCode:         raw.PostCode,
		State:            raw.State,
		CountryCode:      raw.CountryCode,
	}
}

func mapCredit(raw *magento.RawCredit) models.OrderCredit {
	credit := models.OrderCredit{
		CreditID:           string(raw.EntityID),
		IncrementID:        string(raw.IncrementID),
		StoreID:            string(raw.StoreID),
		AdjustmentPositive: raw.AdjustmentPositive.Decimal,
		AdjustmentNegative: raw.AdjustmentNegative.Decimal,
		GrandTotal:         raw.GrandTotal.Decimal,
		Reason:             raw.Reason,
	}
	if at, err := parseDate(raw.CreatedAt); err == nil {
		credit.CreditedAt = &at
	}
	return credit
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func withDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
