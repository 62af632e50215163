package cart

import (
	"fmt"
	"math"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/identity"
)

// Owner is the row key of a cart: exactly one of UserID or GuestID is set.
type Owner struct {
	UserID  string
	GuestID string
}

// OwnerOf maps a resolved identity onto the cart ownership key.
func OwnerOf(id identity.Identity) (Owner, error) {
	switch v := id.(type) {
	case identity.UserIdentity:
		if v.UserID == "" {
			return Owner{}, fmt.Errorf("%w: empty user id", identity.ErrIdentityUnavailable)
		}
		return Owner{UserID: v.UserID}, nil
	case identity.GuestIdentity:
		if v.GuestID == "" {
			return Owner{}, fmt.Errorf("%w: empty guest id", identity.ErrIdentityUnavailable)
		}
		return Owner{GuestID: v.GuestID}, nil
	default:
		return Owner{}, fmt.Errorf("%w: unsupported identity %T", identity.ErrIdentityUnavailable, id)
	}
}

type Line struct {
	ID        string
	CartID    string
	VariantID string
	Quantity  int
}

// LineView is a cart line joined against the current catalog; prices are never stored on the line.
type LineView struct {
	LineID      string   `json:"lineId"`
	VariantID   string   `json:"variantId"`
	ProductName string   `json:"productName"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Color       string   `json:"color,omitempty"`
	Size        string   `json:"size,omitempty"`
	UnitPrice   float64  `json:"unitPrice"`
	SalePrice   *float64 `json:"salePrice,omitempty"`
	Quantity    int      `json:"quantity"`
	LineTotal   float64  `json:"lineTotal"`
	InStock     int      `json:"inStock"`
}

type StockWarning struct {
	LineID    string `json:"lineId"`
	VariantID string `json:"variantId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type Cart struct {
	ID         string         `json:"cartId"`
	Lines      []LineView     `json:"lines"`
	TotalItems int            `json:"totalItems"`
	Subtotal   float64        `json:"subtotal"`
	Warnings   []StockWarning `json:"warnings,omitempty"`
}

func newCart(id string, lines []LineView) Cart {
	c := Cart{ID: id, Lines: lines}
	if c.Lines == nil {
		c.Lines = []LineView{}
	}
	for i := range c.Lines {
		l := &c.Lines[i]
		l.LineTotal = roundCents(l.UnitPrice * float64(l.Quantity))
		c.TotalItems += l.Quantity
		c.Subtotal += l.LineTotal
	}
	c.Subtotal = roundCents(c.Subtotal)
	return c
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
