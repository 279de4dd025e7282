package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderSynced   = "ORDER_SYNCED"
	EventTypeSyncCompleted = "SYNC_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSyncedEvent published after an order is upserted into the mirror
type OrderSyncedEvent struct {
	BaseEvent
	RemoteID        int64           `json:"remote_id"`
	OrderNumber     string          `json:"order_number"`
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	CurrencyCode    string          `json:"currency_code"`
	LastUpdatedDate time.Time       `json:"last_updated_date"`
}

// SyncCompletedEvent published once per sync run, whatever the outcome
type SyncCompletedEvent struct {
	BaseEvent
	RunID          string    `json:"run_id"`
	Mode           string    `json:"mode"`
	Outcome        string    `json:"outcome"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	PagesFetched   int       `json:"pages_fetched"`
	OrdersUpserted int       `json:"orders_upserted"`
	OrdersFailed   int       `json:"orders_failed"`
}
