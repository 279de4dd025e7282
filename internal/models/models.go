package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the locally mirrored header of one remote order. RemoteID is the
// platform's identifier and never changes; re-syncing the same RemoteID
// updates the row in place.
type Order struct {
	ID                 int64           `db:"id" json:"id"`
	RemoteID           int64           `db:"remote_id" json:"remote_id"`
	OrderNumber        string          `db:"order_number" json:"order_number"`
	ReplaceOrderNumber string          `db:"replace_order_number" json:"replace_order_number,omitempty"`
	OrderDate          time.Time       `db:"order_date" json:"order_date"`
	LastUpdatedDate    time.Time       `db:"last_updated_date" json:"last_updated_date"`
	OrderType          string          `db:"order_type" json:"order_type"`
	Status             string          `db:"status" json:"status"`
	CurrencyCode       string          `db:"currency_code" json:"currency_code"`
	Notes              string          `db:"notes" json:"notes,omitempty"`
	Tags               string          `db:"tags" json:"tags,omitempty"`
	Discounts          decimal.Decimal `db:"discounts" json:"discounts"`
	Total              decimal.Decimal `db:"total" json:"total"`
	ShippingMethod     string          `db:"shipping_method" json:"shipping_method,omitempty"`
	ShippingAmount     decimal.Decimal `db:"shipping_amount" json:"shipping_amount"`
	ShippingTaxAmount  decimal.Decimal `db:"shipping_tax_amount" json:"shipping_tax_amount"`
	PaymentMethod      string          `db:"payment_method" json:"payment_method,omitempty"`
	PaymentAmount      decimal.Decimal `db:"payment_amount" json:"payment_amount"`
	RawPayload         []byte          `db:"raw_payload" json:"-"`
	FirstSeenAt        time.Time       `db:"first_seen_at" json:"first_seen_at"`
	LastSyncedAt       time.Time       `db:"last_synced_at" json:"last_synced_at"`

	Items     []OrderItem    `db:"-" json:"items,omitempty"`
	Addresses []OrderAddress `db:"-" json:"addresses,omitempty"`
	Credits   []OrderCredit  `db:"-" json:"credits,omitempty"`
}

// OrderItem is one line of an order. Items are owned by their order and are
// replaced wholesale whenever the order is re-synced.
type OrderItem struct {
	ID              int64           `db:"id" json:"id"`
	OrderID         int64           `db:"order_id" json:"order_id"`
	ProductID       string          `db:"product_id" json:"product_id,omitempty"`
	ProductCode     string          `db:"product_code" json:"product_code"`
	ProductName     string          `db:"product_name" json:"product_name"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	Price           decimal.Decimal `db:"price" json:"price"`
	UnitPriceExTax  decimal.Decimal `db:"unit_price_ex_tax" json:"unit_price_ex_tax"`
	TaxRate         decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	TaxAmount       decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	LineTotalIncTax decimal.Decimal `db:"line_total_inc_tax" json:"line_total_inc_tax"`
}

// Address roles
const (
	AddressRoleBilling  = "billing"
	AddressRoleShipping = "shipping"
)

// OrderAddress holds the billing or shipping contact of an order. An order
// carries at most one address per role.
type OrderAddress struct {
	ID               int64  `db:"id" json:"id"`
	OrderID          int64  `db:"order_id" json:"order_id"`
	AddressType      string `db:"address_type" json:"address_type"`
	Salutation       string `db:"salutation" json:"salutation,omitempty"`
	FirstName        string `db:"first_name" json:"first_name"`
	LastName         string `db:"last_name" json:"last_name"`
	OrganizationName string `db:"organization_name" json:"organization_name,omitempty"`
	WorkPhone        string `db:"work_phone" json:"work_phone,omitempty"`
	Line1            string `db:"line1" json:"line1"`
	Line2            string `db:"line2" json:"line2,omitempty"`
	City             string `db:"city" json:"city"`
	PostCode         string `db:"post_code" json:"post_code"`
	State            string `db:"state" json:"state,omitempty"`
	CountryCode      string `db:"country_code" json:"country_code"`
}

// OrderCredit is a credit memo attached to an order.
type OrderCredit struct {
	ID                 int64           `db:"id" json:"id"`
	OrderID            int64           `db:"order_id" json:"order_id"`
	CreditID           string          `db:"credit_id" json:"credit_id"`
	IncrementID        string          `db:"increment_id" json:"increment_id,omitempty"`
	StoreID            string          `db:"store_id" json:"store_id,omitempty"`
	AdjustmentPositive decimal.Decimal `db:"adjustment_positive" json:"adjustment_positive"`
	AdjustmentNegative decimal.Decimal `db:"adjustment_negative" json:"adjustment_negative"`
	GrandTotal         decimal.Decimal `db:"grand_total" json:"grand_total"`
	Reason             string          `db:"reason" json:"reason,omitempty"`
	CreditedAt         *time.Time      `db:"credited_at" json:"credited_at,omitempty"`
}

// Sync modes
const (
	SyncModeInitial     = "initial"
	SyncModeIncremental = "incremental"
)

// Sync run outcomes
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// SyncRun is one append-only sync_history entry. The window is the time range
// the run asked the remote API for; the watermark is the window end of the
// most recent run whose outcome is success.
type SyncRun struct {
	ID             int64     `db:"id" json:"id"`
	RunID          string    `db:"run_id" json:"run_id"`
	Mode           string    `db:"mode" json:"mode"`
	WindowStart    time.Time `db:"window_start" json:"window_start"`
	WindowEnd      time.Time `db:"window_end" json:"window_end"`
	PagesFetched   int       `db:"pages_fetched" json:"pages_fetched"`
	OrdersUpserted int       `db:"orders_upserted" json:"orders_upserted"`
	OrdersFailed   int       `db:"orders_failed" json:"orders_failed"`
	Outcome        string    `db:"outcome" json:"outcome"`
	ErrorSummary   string    `db:"error_summary" json:"error_summary,omitempty"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	FinishedAt     time.Time `db:"finished_at" json:"finished_at"`
}
