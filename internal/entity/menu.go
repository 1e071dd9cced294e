package entity

import "github.com/shopspring/decimal"

// Menu is a sellable dish.
type Menu struct {
	ID          string          `json:"id,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

// Category groups menus on the web order form.
type Category struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}
