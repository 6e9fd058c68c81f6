package session

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tablewise-app/tablewise-backend/internal/cart"
)

func sampleSnapshot(t *testing.T) cart.Snapshot {
	t.Helper()
	snapshot, err := cart.Snapshot{}.WithItem(cart.LineItem{
		ID:        "pizza",
		Name:      "Margherita",
		UnitPrice: decimal.RequireFromString("12.99"),
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return snapshot
}

func TestMemoryAdapterLoadAbsentSession(t *testing.T) {
	t.Parallel()

	hub := NewMemoryHub()
	adapter := hub.Adapter("sess-1")

	_, found, err := adapter.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected no snapshot for a fresh session")
	}
}

func TestMemoryAdapterSaveThenLoad(t *testing.T) {
	t.Parallel()

	hub := NewMemoryHub()
	adapter := hub.Adapter("sess-1")
	snapshot := sampleSnapshot(t)

	if err := adapter.Save(context.Background(), snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, found, err := adapter.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected saved snapshot to be found")
	}
	if len(loaded.Items) != 1 || loaded.Items[0].ID != "pizza" {
		t.Fatalf("round-trip mismatch: %+v", loaded.Items)
	}
}

func TestMemoryAdapterEmptySaveDropsRecord(t *testing.T) {
	t.Parallel()

	hub := NewMemoryHub()
	adapter := hub.Adapter("sess-1")
	other := hub.Adapter("sess-1")

	if err := adapter.Save(context.Background(), sampleSnapshot(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mu sync.Mutex
	var seen []cart.Snapshot
	stop, err := other.OnExternalChange(context.Background(), func(s cart.Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	// Clearing the cart saves an empty snapshot; the record goes away but the
	// other surface still hears about the change.
	if err := adapter.Save(context.Background(), cart.Snapshot{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, found, err := adapter.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if found {
		t.Fatal("expected no record after saving an empty cart")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || !seen[0].IsEmpty() {
		t.Fatalf("expected one empty-cart broadcast, got %+v", seen)
	}
}

func TestMemoryAdapterBroadcastSkipsOwnOrigin(t *testing.T) {
	t.Parallel()

	hub := NewMemoryHub()
	badge := hub.Adapter("sess-1")
	page := hub.Adapter("sess-1")
	other := hub.Adapter("sess-2")

	var mu sync.Mutex
	var badgeSeen, pageSeen, otherSeen int

	stopBadge, err := badge.OnExternalChange(context.Background(), func(cart.Snapshot) {
		mu.Lock()
		badgeSeen++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stopBadge()

	stopPage, err := page.OnExternalChange(context.Background(), func(cart.Snapshot) {
		mu.Lock()
		pageSeen++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stopPage()

	stopOther, err := other.OnExternalChange(context.Background(), func(cart.Snapshot) {
		mu.Lock()
		otherSeen++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stopOther()

	// A save on the cart page must reach the nav badge, not bounce back to
	// the page itself, and never cross sessions.
	if err := page.Save(context.Background(), sampleSnapshot(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if badgeSeen != 1 {
		t.Fatalf("expected the other surface to see 1 change, got %d", badgeSeen)
	}
	if pageSeen != 0 {
		t.Fatalf("origin surface must not see its own save, got %d", pageSeen)
	}
	if otherSeen != 0 {
		t.Fatalf("change leaked across sessions: %d", otherSeen)
	}
}

func TestMemoryAdapterUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	hub := NewMemoryHub()
	a := hub.Adapter("sess-1")
	b := hub.Adapter("sess-1")

	var mu sync.Mutex
	seen := 0
	stop, err := a.OnExternalChange(context.Background(), func(cart.Snapshot) {
		mu.Lock()
		seen++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stop()
	if err := b.Save(context.Background(), sampleSnapshot(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen != 0 {
		t.Fatalf("stopped listener still notified %d times", seen)
	}
}
