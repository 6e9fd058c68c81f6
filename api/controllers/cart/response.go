package cart

import (
	cartsvc "github.com/tablewise-app/tablewise-backend/internal/cart"
)

// CartView is the cart snapshot exposed through the API. Monetary values are
// rendered as fixed two-decimal strings at this boundary only; everything
// upstream stays full precision.
type CartView struct {
	Items     []ItemView `json:"items"`
	Promo     *PromoView `json:"promo,omitempty"`
	Totals    TotalsView `json:"totals"`
	SyncState string     `json:"sync_state"`
}

type ItemView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	UnitPrice       string   `json:"unit_price"`
	Quantity        int      `json:"quantity"`
	LineTotal       string   `json:"line_total"`
	Image           string   `json:"image,omitempty"`
	ImageAlt        string   `json:"image_alt,omitempty"`
	Customizations  []string `json:"customizations,omitempty"`
	SpecialRequests string   `json:"special_requests,omitempty"`
}

type PromoView struct {
	Code                 string `json:"code"`
	DiscountRate         string `json:"discount_rate"`
	Description          string `json:"description,omitempty"`
	MinimumOrderSubtotal string `json:"minimum_order_subtotal"`
}

type TotalsView struct {
	Subtotal    string `json:"subtotal"`
	Discount    string `json:"discount"`
	Tax         string `json:"tax"`
	DeliveryFee string `json:"delivery_fee"`
	Total       string `json:"total"`
}

func newCartView(snapshot cartsvc.Snapshot, state cartsvc.State, rates cartsvc.Rates) CartView {
	items := make([]ItemView, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, ItemView{
			ID:              item.ID,
			Name:            item.Name,
			UnitPrice:       item.UnitPrice.StringFixed(2),
			Quantity:        item.Quantity,
			LineTotal:       item.LineTotal().Round(2).StringFixed(2),
			Image:           item.Image,
			ImageAlt:        item.ImageAlt,
			Customizations:  item.Customizations,
			SpecialRequests: item.SpecialRequests,
		})
	}

	var promo *PromoView
	if snapshot.AppliedPromo != nil {
		promo = &PromoView{
			Code:                 snapshot.AppliedPromo.Code,
			DiscountRate:         snapshot.AppliedPromo.DiscountRate.String(),
			Description:          snapshot.AppliedPromo.Description,
			MinimumOrderSubtotal: snapshot.AppliedPromo.MinimumOrderSubtotal.StringFixed(2),
		}
	}

	quote := cartsvc.Price(snapshot, rates).Rounded()

	return CartView{
		Items: items,
		Promo: promo,
		Totals: TotalsView{
			Subtotal:    quote.Subtotal.StringFixed(2),
			Discount:    quote.Discount.StringFixed(2),
			Tax:         quote.Tax.StringFixed(2),
			DeliveryFee: quote.DeliveryFee.StringFixed(2),
			Total:       quote.Total.StringFixed(2),
		},
		SyncState: string(state),
	}
}
