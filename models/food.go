package models

import "time"

// FoodItem is a catalog entry. TotalSold is only ever incremented, by the
// Served transition and by guest checkout.
type FoodItem struct {
	ID                string    `json:"_id" bson:"_id"`
	Name              string    `json:"name" bson:"name"`
	Price             float64   `json:"price" bson:"price"`
	QuantityAvailable int       `json:"quantityAvailable" bson:"quantityAvailable"`
	Description       string    `json:"description" bson:"description"`
	Type              string    `json:"type" bson:"type"`
	Category          string    `json:"category" bson:"category"`
	Offer             string    `json:"offer,omitempty" bson:"offer,omitempty"`
	Image             string    `json:"image" bson:"image"`
	Thumbnail         string    `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	TotalSold         int       `json:"totalSold" bson:"totalSold"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}
