package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmbright/synclet/internal/magento"
	"github.com/pmbright/synclet/internal/models"
)

func mustRawOrder(t *testing.T, body string) *magento.RawOrder {
	t.Helper()
	var order magento.RawOrder
	require.NoError(t, json.Unmarshal([]byte(body), &order))
	return &order
}

const fullOrderJSON = `{
	"Id": 1207,
	"OrderNumber": "WEB-1207",
	"ReplaceOrderNumber": "",
	"Date": "2025-07-01 10:30:00",
	"LastUpdatedDate": "2025-07-02T08:15:00",
	"Type": "Order",
	"Status": "processing",
	"CurrencyCode": "EUR",
	"Notes": "leave at door",
	"Tags": "wholesale",
	"Discounts": "2.50",
	"Total": 57.48,
	"Shipping": {
		"ShippingMethod": "flatrate_flatrate",
		"Amount": "4.99",
		"Taxes": {"TaxRate": 20, "TaxAmount": "0.83"}
	},
	"Payments": {
		"PaymentMethod": {"MethodName": "stripe", "Amount": "57.48"}
	},
	"Items": [
		{
			"ProductId": "101",
			"ProductCode": "SKU-RED",
			"ProductName": "Red Widget",
			"Quantity": 2,
			"Price": "25.00",
			"UnitPriceExTax": "20.83",
			"Taxes": {"TaxRate": 20, "TaxAmount": "8.33"},
			"LineTotalIncTax": "50.00"
		}
	],
	"Addresses": {
		"BillingAddress": {
			"Salutation": "Ms",
			"FirstName": "Ada",
			"LastName": "Lovelace",
			"OrganizationName": "Analytical Ltd",
			"WorkPhone": "020 7946 0000",
			"Line1": "1 Engine Row",
			"Line2": "",
			"City": "London",
			"PostCode": "EC1A 1AA",
			"State": "",
			"CountryCode": "GB"
		},
		"ShippingAddress": {
			"FirstName": "Ada",
			"LastName": "Lovelace",
			"Line1": "1 Engine Row",
			"City": "London",
			"PostCode": "EC1A 1AA",
			"CountryCode": "GB"
		}
	},
	"Credits": [
		{
			"entity_id": 9,
			"store_id": "1",
			"increment_id": "100000023",
			"adjustment_positive": "5.00",
			"adjustment_negative": "0.00",
			"grand_total": "12.00",
			"reason": "damaged item",
			"created_at": "2025-07-03 09:15:00"
		}
	]
}`

func TestMapOrderFull(t *testing.T) {
	raw := mustRawOrder(t, fullOrderJSON)

	order, err := MapOrder(raw)
	require.NoError(t, err)

	assert.Equal(t, int64(1207), order.RemoteID)
	assert.Equal(t, "WEB-1207", order.OrderNumber)
	assert.Equal(t, time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC), order.OrderDate)
	assert.Equal(t, time.Date(2025, 7, 2, 8, 15, 0, 0, time.UTC), order.LastUpdatedDate)
	assert.Equal(t, "Order", order.OrderType)
	assert.Equal(t, "processing", order.Status)
	assert.Equal(t, "EUR", order.CurrencyCode)
	assert.Equal(t, "leave at door", order.Notes)
	assert.Equal(t, "wholesale", order.Tags)
	assert.True(t, order.Discounts.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("57.48")))
	assert.Equal(t, "flatrate_flatrate", order.ShippingMethod)
	assert.True(t, order.ShippingAmount.Equal(decimal.RequireFromString("4.99")))
	assert.True(t, order.ShippingTaxAmount.Equal(decimal.RequireFromString("0.83")))
	assert.Equal(t, "stripe", order.PaymentMethod)
	assert.True(t, order.PaymentAmount.Equal(decimal.RequireFromString("57.48")))
	assert.JSONEq(t, fullOrderJSON, string(order.RawPayload))

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, "101", item.ProductID)
	assert.Equal(t, "SKU-RED", item.ProductCode)
	assert.Equal(t, "Red Widget", item.ProductName)
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, item.TaxRate.Equal(decimal.NewFromInt(20)))
	assert.True(t, item.LineTotalIncTax.Equal(decimal.RequireFromString("50.00")))

	require.Len(t, order.Addresses, 2)
	assert.Equal(t, models.AddressRoleBilling, order.Addresses[0].AddressType)
	assert.Equal(t, "Analytical Ltd", order.Addresses[0].OrganizationName)
	assert.Equal(t, models.AddressRoleShipping, order.Addresses[1].AddressType)
	assert.Equal(t, "EC1A 1AA", order.Addresses[1].PostCode)

	require.Len(t, order.Credits, 1)
	credit := order.Credits[0]
	assert.Equal(t, "9", credit.CreditID)
	assert.Equal(t, "100000023", credit.IncrementID)
	assert.Equal(t, "damaged item", credit.Reason)
	assert.True(t, credit.AdjustmentPositive.Equal(decimal.RequireFromString("5.00")))
	require.NotNil(t, credit.CreditedAt)
	assert.Equal(t, time.Date(2025, 7, 3, 9, 15, 0, 0, time.UTC), *credit.CreditedAt)
}

func TestMapOrderIsDeterministic(t *testing.T) {
	first, err := MapOrder(mustRawOrder(t, fullOrderJSON))
	require.NoError(t, err)
	second, err := MapOrder(mustRawOrder(t, fullOrderJSON))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMapOrderDefaults(t *testing.T) {
	raw := mustRawOrder(t, `{
		"Id": 3,
		"OrderNumber": "WEB-3",
		"Date": "2025-07-01 00:00:00",
		"LastUpdatedDate": "2025-07-01 00:00:00",
		"Items": [{"ProductCode": "SKU-1", "Quantity": 1}]
	}`)

	order, err := MapOrder(raw)
	require.NoError(t, err)

	assert.Equal(t, "Order", order.OrderType)
	assert.Equal(t, "GBP", order.CurrencyCode)
	assert.True(t, order.Total.IsZero())
	assert.Empty(t, order.Addresses)
	assert.Empty(t, order.Credits)
}

func TestMapOrderRejections(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantID    int64
	}{
		{
			name:      "missing remote id",
			body:      `{"OrderNumber": "X", "Date": "2025-07-01 00:00:00", "LastUpdatedDate": "2025-07-01 00:00:00", "Items": [{}]}`,
			wantField: "Id",
		},
		{
			name:      "missing order number",
			body:      `{"Id": 4, "Date": "2025-07-01 00:00:00", "LastUpdatedDate": "2025-07-01 00:00:00", "Items": [{}]}`,
			wantField: "OrderNumber",
			wantID:    4,
		},
		{
			name:      "no line items",
			body:      `{"Id": 5, "OrderNumber": "WEB-5", "Date": "2025-07-01 00:00:00", "LastUpdatedDate": "2025-07-01 00:00:00"}`,
			wantField: "Items",
			wantID:    5,
		},
		{
			name:      "unparseable order date",
			body:      `{"Id": 6, "OrderNumber": "WEB-6", "Date": "01/07/2025", "LastUpdatedDate": "2025-07-01 00:00:00", "Items": [{}]}`,
			wantField: "Date",
			wantID:    6,
		},
		{
			name:      "missing updated date",
			body:      `{"Id": 7, "OrderNumber": "WEB-7", "Date": "2025-07-01 00:00:00", "Items": [{}]}`,
			wantField: "LastUpdatedDate",
			wantID:    7,
		},
		{
			name:      "undecodable record",
			body:      `{"Id": 8, "OrderNumber": "WEB-8", "Total": "not-a-number", "Items": [{}]}`,
			wantField: "payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := MapOrder(mustRawOrder(t, tt.body))
			require.Error(t, err)
			assert.Nil(t, order)

			var mapErr *MappingError
			require.ErrorAs(t, err, &mapErr)
			assert.Equal(t, tt.wantField, mapErr.Field)
			assert.Equal(t, tt.wantID, mapErr.RemoteID)
		})
	}
}

func TestMapOrderAcceptsBothDateLayouts(t *testing.T) {
	for _, date := range []string{"2025-07-01 10:30:00", "2025-07-01T10:30:00"} {
		raw := mustRawOrder(t, `{
			"Id": 9,
			"OrderNumber": "WEB-9",
			"Date": "`+date+`",
			"LastUpdatedDate": "`+date+`",
			"Items": [{"ProductCode": "SKU-1"}]
		}`)

		order, err := MapOrder(raw)
		require.NoError(t, err, "layout %q", date)
		assert.Equal(t, time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC), order.OrderDate)
	}
}

func TestMapOrderSingleAddress(t *testing.T) {
	raw := mustRawOrder(t, `{
		"Id": 10,
		"OrderNumber": "WEB-10",
		"Date": "2025-07-01 00:00:00",
		"LastUpdatedDate": "2025-07-01 00:00:00",
		"Items": [{"ProductCode": "SKU-1"}],
		"Addresses": {"ShippingAddress": {"FirstName": "Grace", "CountryCode": "US"}}
	}`)

	order, err := MapOrder(raw)
	require.NoError(t, err)

	require.Len(t, order.Addresses, 1)
	assert.Equal(t, models.AddressRoleShipping, order.Addresses[0].AddressType)
	assert.Equal(t, "Grace", order.Addresses[0].FirstName)
}

func TestMapOrderCreditWithoutDate(t *testing.T) {
	raw := mustRawOrder(t, `{
		"Id": 11,
		"OrderNumber": "WEB-11",
		"Date": "2025-07-01 00:00:00",
		"LastUpdatedDate": "2025-07-01 00:00:00",
		"Items": [{"ProductCode": "SKU-1"}],
		"Credits": [{"entity_id": 1, "grand_total": "3.00"}]
	}`)

	order, err := MapOrder(raw)
	require.NoError(t, err)

	require.Len(t, order.Credits, 1)
	assert.Nil(t, order.Credits[0].CreditedAt)
}
