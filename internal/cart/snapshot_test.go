package cart

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/tablewise-app/tablewise-backend/pkg/errors"
)

func lineItem(id string, price string, qty int) LineItem {
	return LineItem{
		ID:        id,
		Name:      "Item " + id,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestWithItemMergesDuplicateIDs(t *testing.T) {
	t.Parallel()

	snapshot := Snapshot{}
	snapshot, err := snapshot.WithItem(lineItem("margherita", "12.99", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot, err = snapshot.WithItem(lineItem("tiramisu", "8.99", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot, err = snapshot.WithItem(lineItem("margherita", "12.99", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshot.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(snapshot.Items))
	}
	if snapshot.Items[0].ID != "margherita" || snapshot.Items[0].Quantity != 2 {
		t.Fatalf("expected merged quantity 2 for margherita, got %+v", snapshot.Items[0])
	}
	if snapshot.Items[1].ID != "tiramisu" {
		t.Fatalf("insertion order not preserved: %+v", snapshot.Items)
	}
}

func TestWithItemCoercesZeroQuantityToOne(t *testing.T) {
	t.Parallel()

	snapshot, err := Snapshot{}.WithItem(lineItem("soup", "4.50", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Items[0].Quantity != 1 {
		t.Fatalf("expected quantity coerced to 1, got %d", snapshot.Items[0].Quantity)
	}
}

func TestWithItemRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	_, err := Snapshot{}.WithItem(LineItem{Name: "no id", UnitPrice: decimal.Zero})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing id, got %v", err)
	}

	negative := lineItem("bad", "1.00", 1)
	negative.UnitPrice = decimal.RequireFromString("-0.01")
	_, err = Snapshot{}.WithItem(negative)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestWithItemDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base, err := Snapshot{}.WithItem(lineItem("salad", "7.00", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := base.WithItem(lineItem("salad", "7.00", 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.Items[0].Quantity != 1 {
		t.Fatalf("receiver mutated: %+v", base.Items[0])
	}
}

func TestWithQuantityFloorEqualsRemoval(t *testing.T) {
	t.Parallel()

	base, _ := Snapshot{}.WithItem(lineItem("pasta", "11.00", 2))

	for _, qty := range []int{0, -1, -100} {
		updated := base.WithQuantity("pasta", qty)
		removed := base.WithoutItem("pasta")
		if len(updated.Items) != len(removed.Items) {
			t.Fatalf("quantity %d should remove the line", qty)
		}
	}

	updated := base.WithQuantity("pasta", 5)
	if updated.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", updated.Items[0].Quantity)
	}
}

func TestWithQuantityUnknownIDIsNoOp(t *testing.T) {
	t.Parallel()

	base, _ := Snapshot{}.WithItem(lineItem("pasta", "11.00", 2))
	updated := base.WithQuantity("ghost", 3)
	if len(updated.Items) != 1 || updated.Items[0].Quantity != 2 {
		t.Fatalf("unknown id should not change the cart: %+v", updated.Items)
	}
}

func TestWithoutItemIsIdempotent(t *testing.T) {
	t.Parallel()

	base, _ := Snapshot{}.WithItem(lineItem("pasta", "11.00", 2))
	once := base.WithoutItem("pasta")
	twice := once.WithoutItem("pasta")

	if len(once.Items) != 0 || len(twice.Items) != 0 {
		t.Fatalf("expected empty cart after removal, got %d and %d items", len(once.Items), len(twice.Items))
	}

	ghost := base.WithoutItem("ghost")
	if len(ghost.Items) != 1 {
		t.Fatalf("removing an absent id should be a no-op")
	}
}

func TestWithPromoThresholdBoundary(t *testing.T) {
	t.Parallel()

	promo := PromoCode{
		Code:                 "WELCOME10",
		DiscountRate:         decimal.RequireFromString("0.10"),
		MinimumOrderSubtotal: decimal.RequireFromString("20.00"),
	}

	atMinimum, _ := Snapshot{}.WithItem(lineItem("platter", "20.00", 1))
	applied, err := atMinimum.WithPromo(promo)
	if err != nil {
		t.Fatalf("subtotal equal to minimum must succeed: %v", err)
	}
	if applied.AppliedPromo == nil || applied.AppliedPromo.Code != "WELCOME10" {
		t.Fatalf("promo not applied: %+v", applied.AppliedPromo)
	}

	below, _ := Snapshot{}.WithItem(lineItem("platter", "19.99", 1))
	_, err = below.WithPromo(promo)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePromoRejected {
		t.Fatalf("expected promo rejection one cent under the minimum, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["shortfall"] != "0.01" {
		t.Fatalf("expected shortfall 0.01, got %v", details["shortfall"])
	}
	if below.AppliedPromo != nil {
		t.Fatalf("rejected promo must not mutate state")
	}
}

func TestWithPromoReplacesExisting(t *testing.T) {
	t.Parallel()

	snapshot, _ := Snapshot{}.WithItem(lineItem("feast", "80.00", 1))
	snapshot, err := snapshot.WithPromo(PromoCode{Code: "WELCOME10", DiscountRate: decimal.RequireFromString("0.10")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot, err = snapshot.WithPromo(PromoCode{Code: "FEAST20", DiscountRate: decimal.RequireFromString("0.20")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.AppliedPromo.Code != "FEAST20" {
		t.Fatalf("expected FEAST20 to replace WELCOME10, got %s", snapshot.AppliedPromo.Code)
	}
}

func TestWithoutPromoKeepsItems(t *testing.T) {
	t.Parallel()

	snapshot, _ := Snapshot{}.WithItem(lineItem("feast", "80.00", 1))
	snapshot, _ = snapshot.WithPromo(PromoCode{Code: "FEAST20", DiscountRate: decimal.RequireFromString("0.20")})

	dropped := snapshot.WithoutPromo()
	if dropped.AppliedPromo != nil {
		t.Fatalf("expected promo dropped, got %+v", dropped.AppliedPromo)
	}
	if len(dropped.Items) != 1 {
		t.Fatalf("items must survive promo removal: %+v", dropped.Items)
	}
	if snapshot.AppliedPromo == nil {
		t.Fatal("receiver must not be mutated")
	}

	again := dropped.WithoutPromo()
	if again.AppliedPromo != nil {
		t.Fatalf("dropping an absent promo must be a no-op, got %+v", again.AppliedPromo)
	}
}

func TestClearedDropsItemsAndPromo(t *testing.T) {
	t.Parallel()

	snapshot, _ := Snapshot{}.WithItem(lineItem("feast", "80.00", 1))
	snapshot, _ = snapshot.WithPromo(PromoCode{Code: "FEAST20", DiscountRate: decimal.RequireFromString("0.20")})

	cleared := snapshot.Cleared()
	if !cleared.IsEmpty() || cleared.AppliedPromo != nil {
		t.Fatalf("expected empty cart without promo, got %+v", cleared)
	}
}
