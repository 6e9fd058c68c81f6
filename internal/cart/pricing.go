package cart

import (
	"github.com/shopspring/decimal"

	"github.com/tablewise-app/tablewise-backend/pkg/config"
)

// Rates carries the deployment's pricing constants. They come from
// configuration so every call site shares a single source of truth.
type Rates struct {
	TaxRate               decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	DeliveryFee           decimal.Decimal
}

// RatesFromConfig lifts the pricing section of the config into the calculator.
func RatesFromConfig(cfg config.PricingConfig) Rates {
	return Rates{
		TaxRate:               cfg.TaxRate,
		FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		DeliveryFee:           cfg.DeliveryFee,
	}
}

// Quote is the derived checkout breakdown. Values are kept at full precision;
// call Rounded before showing them to a user.
type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

// Price derives the checkout totals for the snapshot. It is deterministic and
// side-effect free: the same snapshot and rates always produce the same quote.
// Nothing is rounded mid-chain, so rounding error cannot compound across the
// subtotal, discount and tax steps.
func Price(s Snapshot, rates Rates) Quote {
	if s.IsEmpty() {
		return Quote{
			Subtotal:    decimal.Zero,
			Discount:    decimal.Zero,
			Tax:         decimal.Zero,
			DeliveryFee: decimal.Zero,
			Total:       decimal.Zero,
		}
	}

	subtotal := s.Subtotal()

	discount := decimal.Zero
	if s.AppliedPromo != nil {
		discount = subtotal.Mul(s.AppliedPromo.DiscountRate)
	}

	discounted := subtotal.Sub(discount)
	tax := discounted.Mul(rates.TaxRate)

	deliveryFee := rates.DeliveryFee
	if discounted.GreaterThanOrEqual(rates.FreeDeliveryThreshold) {
		deliveryFee = decimal.Zero
	}

	return Quote{
		Subtotal:    subtotal,
		Discount:    discount,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		Total:       discounted.Add(tax).Add(deliveryFee),
	}
}

// Rounded returns the quote rounded to cents, half away from zero. This is
// the presentation boundary: internal math stays at full precision.
func (q Quote) Rounded() Quote {
	return Quote{
		Subtotal:    q.Subtotal.Round(2),
		Discount:    q.Discount.Round(2),
		Tax:         q.Tax.Round(2),
		DeliveryFee: q.DeliveryFee.Round(2),
		Total:       q.Total.Round(2),
	}
}
