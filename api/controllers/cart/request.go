package cart

import (
	"github.com/shopspring/decimal"

	cartsvc "github.com/tablewise-app/tablewise-backend/internal/cart"
)

// AddItemRequest carries a menu item into the cart. Price and presentation
// fields travel with the request because the cart service does not own the
// menu catalog.
type AddItemRequest struct {
	ID              string          `json:"id" validate:"required"`
	Name            string          `json:"name" validate:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	Image           string          `json:"image"`
	ImageAlt        string          `json:"image_alt"`
	Customizations  []string        `json:"customizations"`
	SpecialRequests string          `json:"special_requests"`
}

func (r AddItemRequest) toLineItem() cartsvc.LineItem {
	return cartsvc.LineItem{
		ID:              r.ID,
		Name:            r.Name,
		UnitPrice:       r.UnitPrice,
		Quantity:        r.Quantity,
		Image:           r.Image,
		ImageAlt:        r.ImageAlt,
		Customizations:  r.Customizations,
		SpecialRequests: r.SpecialRequests,
	}
}

// UpdateQuantityRequest sets a line's quantity. Zero and below remove the
// line, so the field is a pointer to tell "0" apart from "absent".
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type ApplyPromoRequest struct {
	Code string `json:"code" validate:"required"`
}
