package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/tablewise-app/tablewise-backend/pkg/errors"
)

// LineItem is one purchasable entry in the cart. Image, alt text,
// customizations and special requests are display metadata and never touch
// pricing.
type LineItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	Image           string          `json:"image,omitempty"`
	ImageAlt        string          `json:"image_alt,omitempty"`
	Customizations  []string        `json:"customizations,omitempty"`
	SpecialRequests string          `json:"special_requests,omitempty"`
}

// LineTotal is unit price times quantity at full precision.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PromoCode is a named discount rule gated on a minimum order subtotal.
type PromoCode struct {
	Code                 string          `json:"code"`
	DiscountRate         decimal.Decimal `json:"discount_rate"`
	Description          string          `json:"description"`
	MinimumOrderSubtotal decimal.Decimal `json:"minimum_order_subtotal"`
}

// Snapshot is the immutable cart state. Every transition returns a fresh
// snapshot and leaves the receiver untouched, so readers can hold a snapshot
// across a mutation and compare by identity.
type Snapshot struct {
	Items        []LineItem `json:"items"`
	AppliedPromo *PromoCode `json:"applied_promo,omitempty"`
}

// ValidateLineItem rejects malformed items before they reach the cart.
func ValidateLineItem(item LineItem) error {
	if strings.TrimSpace(item.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if item.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "item unit price cannot be negative")
	}
	return nil
}

// WithItem merges the item into the snapshot. A repeated id increments the
// existing quantity instead of duplicating the line; a non-positive quantity
// counts as one.
func (s Snapshot) WithItem(item LineItem) (Snapshot, error) {
	if err := ValidateLineItem(item); err != nil {
		return s, err
	}

	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}

	items := cloneItems(s.Items)
	for i := range items {
		if items[i].ID == item.ID {
			items[i].Quantity += qty
			return Snapshot{Items: items, AppliedPromo: s.AppliedPromo}, nil
		}
	}

	item.Quantity = qty
	item.Customizations = cloneStrings(item.Customizations)
	items = append(items, item)
	return Snapshot{Items: items, AppliedPromo: s.AppliedPromo}, nil
}

// WithQuantity sets the quantity for the identified item. A quantity of zero
// or below removes the line entirely; an unknown id is a no-op.
func (s Snapshot) WithQuantity(id string, quantity int) Snapshot {
	if quantity <= 0 {
		return s.WithoutItem(id)
	}

	items := cloneItems(s.Items)
	for i := range items {
		if items[i].ID == id {
			items[i].Quantity = quantity
			break
		}
	}
	return Snapshot{Items: items, AppliedPromo: s.AppliedPromo}
}

// WithoutItem drops the identified item. Removing an absent id is a no-op,
// which makes removal idempotent.
func (s Snapshot) WithoutItem(id string) Snapshot {
	items := make([]LineItem, 0, len(s.Items))
	for _, item := range s.Items {
		if item.ID == id {
			continue
		}
		items = append(items, cloneItem(item))
	}
	return Snapshot{Items: items, AppliedPromo: s.AppliedPromo}
}

// WithPromo applies the promotion when the current subtotal clears its
// minimum. The rejection carries the shortfall so callers can tell the user
// how far away they are. Applying a promo replaces any existing one.
func (s Snapshot) WithPromo(promo PromoCode) (Snapshot, error) {
	subtotal := s.Subtotal()
	if subtotal.LessThan(promo.MinimumOrderSubtotal) {
		shortfall := promo.MinimumOrderSubtotal.Sub(subtotal)
		return s, pkgerrors.New(pkgerrors.CodePromoRejected, "order subtotal below promo minimum").
			WithDetails(map[string]any{
				"code":          promo.Code,
				"minimum_order": promo.MinimumOrderSubtotal.StringFixed(2),
				"shortfall":     shortfall.StringFixed(2),
			})
	}

	applied := promo
	return Snapshot{Items: cloneItems(s.Items), AppliedPromo: &applied}, nil
}

// WithoutPromo drops the applied promo, keeping the items. Dropping an
// absent promo is a no-op.
func (s Snapshot) WithoutPromo() Snapshot {
	if s.AppliedPromo == nil {
		return s
	}
	return Snapshot{Items: cloneItems(s.Items)}
}

// Cleared empties the cart and drops the applied promo. This is the only
// destruction path: checkout success or an explicit user action.
func (s Snapshot) Cleared() Snapshot {
	return Snapshot{Items: []LineItem{}}
}

// Subtotal sums unit price times quantity over all lines at full precision.
func (s Snapshot) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range s.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

// IsEmpty reports whether the snapshot holds no items.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

func cloneItems(items []LineItem) []LineItem {
	cloned := make([]LineItem, len(items))
	for i, item := range items {
		cloned[i] = cloneItem(item)
	}
	return cloned
}

func cloneItem(item LineItem) LineItem {
	item.Customizations = cloneStrings(item.Customizations)
	return item
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	cloned := make([]string, len(values))
	copy(cloned, values)
	return cloned
}
