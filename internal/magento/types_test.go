package magento

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "number", input: `1207`, want: 1207},
		{name: "quoted number", input: `"1207"`, want: 1207},
		{name: "null", input: `null`, want: 0},
		{name: "empty string", input: `""`, want: 0},
		{name: "garbage", input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, int64(id))
		})
	}
}

func TestStringIDUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "string", input: `"42"`, want: "42"},
		{name: "bare number", input: `42`, want: "42"},
		{name: "null", input: `null`, want: ""},
		{name: "text", input: `"100000023"`, want: "100000023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s StringID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &s))
			assert.Equal(t, tt.want, string(s))
		})
	}
}

func TestDecimalUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "number", input: `12.5`, want: "12.5"},
		{name: "quoted number", input: `"12.50"`, want: "12.5"},
		{name: "integer", input: `120`, want: "120"},
		{name: "null", input: `null`, want: "0"},
		{name: "empty string", input: `""`, want: "0"},
		{name: "garbage", input: `"12,50"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decimal
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestRawOrderRetainsPayload(t *testing.T) {
	payload := `{"Id": 1207, "OrderNumber": "ORD-001", "Total": "99.95"}`

	var order RawOrder
	require.NoError(t, json.Unmarshal([]byte(payload), &order))

	assert.Equal(t, int64(1207), int64(order.ID))
	assert.Equal(t, "ORD-001", order.OrderNumber)
	assert.JSONEq(t, payload, string(order.Payload()))
	assert.NoError(t, order.DecodeErr())
}

func TestRawOrderBadRecordDoesNotAbortPage(t *testing.T) {
	// The second record carries an unparseable total. The page must still
	// decode, with the bad record flagged instead of dropped.
	body := `{
		"OneSaas Version": "1.0.1207",
		"Orders": [
			{"Id": 1, "OrderNumber": "A", "Total": "10.00"},
			{"Id": 2, "OrderNumber": "B", "Total": "not-a-number"},
			{"Id": 3, "OrderNumber": "C", "Total": "30.00"}
		]
	}`

	var resp ordersResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Orders, 3)

	assert.NoError(t, resp.Orders[0].DecodeErr())
	assert.Error(t, resp.Orders[1].DecodeErr())
	assert.NoError(t, resp.Orders[2].DecodeErr())

	assert.Equal(t, int64(1), int64(resp.Orders[0].ID))
	assert.Equal(t, int64(3), int64(resp.Orders[2].ID))

	// The bad record still knows its own bytes.
	assert.Contains(t, string(resp.Orders[1].Payload()), "not-a-number")
}

func TestRawOrderNestedStructures(t *testing.T) {
	body := `{
		"Id": "7",
		"OrderNumber": "WEB-7",
		"Shipping": {"ShippingMethod": "flatrate", "Amount": "4.99", "Taxes": {"TaxRate": 20, "TaxAmount": "0.83"}},
		"Payments": {"PaymentMethod": {"MethodName": "checkmo", "Amount": 54.98}},
		"Items": [
			{"ProductId": 101, "ProductCode": "SKU-1", "Quantity": "2", "Price": "25.00"}
		],
		"Addresses": {
			"BillingAddress": {"FirstName": "Ada", "LastName": "Lovelace", "CountryCode": "GB"}
		},
		"Credits": [
			{"entity_id": 9, "increment_id": "100000023", "grand_total": "12.00", "created_at": "2025-07-03 09:15:00"}
		]
	}`

	var order RawOrder
	require.NoError(t, json.Unmarshal([]byte(body), &order))

	assert.Equal(t, "flatrate", order.Shipping.ShippingMethod)
	assert.Equal(t, "4.99", order.Shipping.Amount.String())
	assert.Equal(t, "0.83", order.Shipping.Taxes.TaxAmount.String())
	assert.Equal(t, "checkmo", order.Payments.PaymentMethod.MethodName)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "101", string(order.Items[0].ProductID))
	assert.Equal(t, "2", order.Items[0].Quantity.String())

	require.NotNil(t, order.Addresses.BillingAddress)
	assert.Equal(t, "Ada", order.Addresses.BillingAddress.FirstName)
	assert.Nil(t, order.Addresses.ShippingAddress)

	require.Len(t, order.Credits, 1)
	assert.Equal(t, "9", string(order.Credits[0].EntityID))
	assert.Equal(t, "100000023", string(order.Credits[0].IncrementID))
}
