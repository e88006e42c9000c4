package core

import (
	"errors"
	"strings"
)

const (
	Drink Category = "drink"
	Food  Category = "food"
	Other Category = "other"
)

type (
	Category string

	// Item is one consumable on the tab. Icon and Color come from the
	// palette at creation time and never change afterwards.
	Item struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Price    float64  `json:"price"`
		Count    int      `json:"count"`
		Icon     string   `json:"icon"`
		Color    string   `json:"color"`
		Category Category `json:"category"`
	}
)

var (
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidIcon   = errors.New("invalid icon index")
	ErrEmptyID       = errors.New("empty id")
	ErrNegativeCount = errors.New("negative count")
)

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case Drink, Food, Other:
		return true
	default:
		return false
	}
}

// Subtotal returns count * price for the item.
func (i Item) Subtotal() float64 {
	return float64(i.Count) * i.Price
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.Price < 0 {
		return ErrInvalidPrice
	}
	if i.Count < 0 {
		return ErrNegativeCount
	}
	if !i.Category.IsValid() {
		return errors.New("invalid category")
	}
	return nil
}

// DefaultItems returns the built-in seed tab used when nothing was persisted.
func DefaultItems() []Item {
	return []Item{
		{
			ID:       "chopp",
			Name:     "Chopp",
			Price:    12.00,
			Icon:     "fa-beer-mug-empty",
			Color:    "bg-yellow-400",
			Category: Drink,
		},
		{
			ID:       "pizza",
			Name:     "Pizza",
			Price:    8.50,
			Icon:     "fa-pizza-slice",
			Color:    "bg-orange-500",
			Category: Food,
		},
	}
}

// TotalBill sums the subtotals of items.
func TotalBill(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// Active filters items down to those with a positive count, keeping order.
func Active(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Count > 0 {
			out = append(out, it)
		}
	}
	return out
}
