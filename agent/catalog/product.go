package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("product not found")
	ErrUnavailable = errors.New("catalog unavailable")
)

// Product is a catalog item. The router only reads it.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Rating       float64         `json:"rating"`
	InStock      bool            `json:"in_stock"`
	Stock        int             `json:"stock"`
	Description  string          `json:"description,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	Availability string          `json:"availability,omitempty"`
	Thumbnail    string          `json:"thumbnail,omitempty"`
}

// FirstToken returns the lower-cased first whitespace-delimited word of the name.
func (p Product) FirstToken() string {
	fields := strings.Fields(strings.ToLower(p.Name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Catalog is implemented by Client and Static.
type Catalog interface {
	Search(ctx context.Context, q Query) ([]Product, error)
	ByCategory(ctx context.Context, category string) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
}

func filterMaxPrice(products []Product, max *decimal.Decimal) []Product {
	if max == nil {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Price.LessThanOrEqual(*max) {
			out = append(out, p)
		}
	}
	return out
}
