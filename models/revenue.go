package models

import "time"

// Revenue is an append-only settlement record. It outlives the orders it
// was derived from.
type Revenue struct {
	ID          string    `json:"_id" bson:"_id"`
	GuestID     string    `json:"guestId" bson:"guestId"`
	TableID     string    `json:"tableId" bson:"tableId"`
	TotalAmount float64   `json:"totalAmount" bson:"totalAmount"`
	Date        time.Time `json:"date" bson:"date"`
	OrderIDs    []string  `json:"orderIds,omitempty" bson:"orderIds,omitempty"`
}

type RevenueSum struct {
	Total float64 `json:"totalRevenue"`
	Count int64   `json:"totalEntries"`
}

// RevenueMatch describes the heuristic key used to find a settlement for a
// historical order.
type RevenueMatch struct {
	OrderID  string
	GuestID  string
	TableID  string
	Amount   float64
	DayStart time.Time
	DayEnd   time.Time
}
