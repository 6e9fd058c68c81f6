package cart

import (
	"strings"

	"github.com/tablewise-app/tablewise-backend/pkg/config"
)

// Catalog is the closed promo-code table. Codes are supplied by configuration
// and matched case-insensitively; there is no network lookup.
type Catalog struct {
	byCode map[string]PromoCode
}

// NewCatalog indexes the configured promo entries.
func NewCatalog(entries []config.PromoEntry) *Catalog {
	byCode := make(map[string]PromoCode, len(entries))
	for _, entry := range entries {
		code := normalizePromoCode(entry.Code)
		if code == "" {
			continue
		}
		byCode[code] = PromoCode{
			Code:                 code,
			DiscountRate:         entry.DiscountRate,
			Description:          entry.Description,
			MinimumOrderSubtotal: entry.MinimumOrderSubtotal,
		}
	}
	return &Catalog{byCode: byCode}
}

// Lookup resolves a code to its promo rule.
func (c *Catalog) Lookup(code string) (PromoCode, bool) {
	if c == nil {
		return PromoCode{}, false
	}
	promo, ok := c.byCode[normalizePromoCode(code)]
	return promo, ok
}

func normalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
