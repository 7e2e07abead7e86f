package models

import (
	"math"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusPreparing OrderStatus = "Preparing"
	StatusReady     OrderStatus = "Ready"
	StatusServed    OrderStatus = "Served"
	StatusCancelled OrderStatus = "Cancelled"
)

// ActiveStatuses are the statuses shown on the kitchen board.
var ActiveStatuses = []OrderStatus{StatusPending, StatusPreparing, StatusReady}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case StatusPending, StatusPreparing, StatusReady, StatusServed, StatusCancelled:
		return st, true
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusServed || s == StatusCancelled
}

// OrderItem is a line item. Name and Price are copied from the catalog
// when the order is placed and never re-read afterwards.
type OrderItem struct {
	FoodID   string  `json:"food" bson:"food"`
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

func (i OrderItem) LineTotal() float64 {
	return RoundMoney(i.Price * float64(i.Quantity))
}

type Order struct {
	ID         string      `json:"_id" bson:"_id"`
	TableID    string      `json:"tableId" bson:"tableId"`
	GuestID    string      `json:"guestId" bson:"guestId"`
	Items      []OrderItem `json:"items" bson:"items"`
	TotalPrice float64     `json:"totalPrice" bson:"totalPrice"`
	Status     OrderStatus `json:"status" bson:"status"`
	CreatedAt  time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// OrderDeleted is the payload of the orderDeleted event.
type OrderDeleted struct {
	ID string `json:"id"`
}

// SumItems returns Σ(price × quantity) rounded to cents.
func SumItems(items []OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return RoundMoney(total)
}

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
