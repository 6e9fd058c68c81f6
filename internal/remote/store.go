package remote

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tablewise-app/tablewise-backend/internal/cart"
)

// cartDocument is the whole-cart record keyed by user identity. Monetary
// values persist as decimal strings so nothing is lost to binary floats. The
// promo field marshals even when nil: a full-record write carries an explicit
// null rather than leaving a stale promo untouched.
type cartDocument struct {
	UserID    string         `bson:"user_id"`
	Items     []itemDocument `bson:"items"`
	Promo     *promoDocument `bson:"promo"`
	Revision  int64          `bson:"revision"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type itemDocument struct {
	ID              string   `bson:"id"`
	Name            string   `bson:"name"`
	UnitPrice       string   `bson:"unit_price"`
	Quantity        int      `bson:"quantity"`
	Image           string   `bson:"image,omitempty"`
	ImageAlt        string   `bson:"image_alt,omitempty"`
	Customizations  []string `bson:"customizations,omitempty"`
	SpecialRequests string   `bson:"special_requests,omitempty"`
}

type promoDocument struct {
	Code                 string `bson:"code"`
	DiscountRate         string `bson:"discount_rate"`
	Description          string `bson:"description,omitempty"`
	MinimumOrderSubtotal string `bson:"minimum_order_subtotal"`
}

func toItemDocument(item cart.LineItem) itemDocument {
	return itemDocument{
		ID:              item.ID,
		Name:            item.Name,
		UnitPrice:       item.UnitPrice.String(),
		Quantity:        item.Quantity,
		Image:           item.Image,
		ImageAlt:        item.ImageAlt,
		Customizations:  item.Customizations,
		SpecialRequests: item.SpecialRequests,
	}
}

func toPromoDocument(promo *cart.PromoCode) *promoDocument {
	if promo == nil {
		return nil
	}
	return &promoDocument{
		Code:                 promo.Code,
		DiscountRate:         promo.DiscountRate.String(),
		Description:          promo.Description,
		MinimumOrderSubtotal: promo.MinimumOrderSubtotal.String(),
	}
}

func toDocument(userID string, snapshot cart.Snapshot, revision int64) cartDocument {
	items := make([]itemDocument, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, toItemDocument(item))
	}
	return cartDocument{
		UserID:    userID,
		Items:     items,
		Promo:     toPromoDocument(snapshot.AppliedPromo),
		Revision:  revision,
		UpdatedAt: time.Now().UTC(),
	}
}

func (d cartDocument) toSnapshot() (cart.Snapshot, error) {
	items := make([]cart.LineItem, 0, len(d.Items))
	for _, doc := range d.Items {
		price, err := decimal.NewFromString(doc.UnitPrice)
		if err != nil {
			return cart.Snapshot{}, fmt.Errorf("decode unit price for %q: %w", doc.ID, err)
		}
		items = append(items, cart.LineItem{
			ID:              doc.ID,
			Name:            doc.Name,
			UnitPrice:       price,
			Quantity:        doc.Quantity,
			Image:           doc.Image,
			ImageAlt:        doc.ImageAlt,
			Customizations:  doc.Customizations,
			SpecialRequests: doc.SpecialRequests,
		})
	}

	snapshot := cart.Snapshot{Items: items}
	if d.Promo != nil {
		rate, err := decimal.NewFromString(d.Promo.DiscountRate)
		if err != nil {
			return cart.Snapshot{}, fmt.Errorf("decode promo rate: %w", err)
		}
		minimum, err := decimal.NewFromString(d.Promo.MinimumOrderSubtotal)
		if err != nil {
			return cart.Snapshot{}, fmt.Errorf("decode promo minimum: %w", err)
		}
		snapshot.AppliedPromo = &cart.PromoCode{
			Code:                 d.Promo.Code,
			DiscountRate:         rate,
			Description:          d.Promo.Description,
			MinimumOrderSubtotal: minimum,
		}
	}
	return snapshot, nil
}
