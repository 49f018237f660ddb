package model

import "time"

// FoodSummary is a food row without its ingredients.
type FoodSummary struct {
	ID               string
	Name             string
	IconID           string
	SelectedUnit     string
	SelectedQuantity float64
	IngredientCount  int
	SourceProvider   string
	SourceRef        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type BarcodeCacheItem struct {
	Provider    string    `json:"provider"`
	Barcode     string    `json:"barcode"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	ExpiresAt   time.Time `json:"expires_at"`
}
