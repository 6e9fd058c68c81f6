package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tablewise-app/tablewise-backend/api/middleware"
	cartsvc "github.com/tablewise-app/tablewise-backend/internal/cart"
	"github.com/tablewise-app/tablewise-backend/internal/engine"
	"github.com/tablewise-app/tablewise-backend/internal/session"
	"github.com/tablewise-app/tablewise-backend/pkg/config"
)

type noopRemote struct{}

func (noopRemote) Get(ctx context.Context, userID string) (cartsvc.Snapshot, bool, error) {
	return cartsvc.Snapshot{}, false, nil
}
func (noopRemote) Set(ctx context.Context, userID string, snapshot cartsvc.Snapshot, revision int64) error {
	return nil
}
func (noopRemote) UpsertItem(ctx context.Context, userID string, item cartsvc.LineItem, revision int64) error {
	return nil
}
func (noopRemote) RemoveItem(ctx context.Context, userID, itemID string, revision int64) error {
	return nil
}
func (noopRemote) SetQuantity(ctx context.Context, userID, itemID string, quantity int, revision int64) error {
	return nil
}
func (noopRemote) SetPromo(ctx context.Context, userID string, promo *cartsvc.PromoCode, revision int64) error {
	return nil
}
func (noopRemote) Delete(ctx context.Context, userID string) error { return nil }

func newTestManager(t *testing.T) *engine.Manager {
	t.Helper()

	hub := session.NewMemoryHub()
	catalog := cartsvc.NewCatalog([]config.PromoEntry{
		{Code: "WELCOME10", DiscountRate: decimal.RequireFromString("0.10"), MinimumOrderSubtotal: decimal.RequireFromString("20.00")},
	})

	m, err := engine.NewManager(engine.ManagerParams{
		Adapters: func(sessionID string) (session.Adapter, error) {
			return hub.Adapter(sessionID), nil
		},
		Remote:  noopRemote{},
		Catalog: catalog,
		Session: config.SessionConfig{WriteBacklog: 8},
	})
	if err != nil {
		t.Fatalf("building manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func testRates() cartsvc.Rates {
	return cartsvc.RatesFromConfig(config.PricingConfig{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeDeliveryThreshold: decimal.RequireFromString("30.00"),
		DeliveryFee:           decimal.RequireFromString("3.99"),
	})
}

func sessionRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithSessionID(req.Context(), "session-1"))
}

func decodeView(t *testing.T, resp *httptest.ResponseRecorder) CartView {
	t.Helper()
	var envelope struct {
		Data CartView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCartAddItemComputesTotals(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartAddItem(mgr, testRates(), nil)

	body := `{"id":"pizza","name":"Margherita","unit_price":"12.99","quantity":2}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	view := decodeView(t, resp)
	if len(view.Items) != 1 || view.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", view.Items)
	}
	if view.Totals.Subtotal != "25.98" {
		t.Fatalf("expected subtotal 25.98, got %s", view.Totals.Subtotal)
	}
	if view.Totals.Tax != "2.08" {
		t.Fatalf("expected tax 2.08, got %s", view.Totals.Tax)
	}
	if view.Totals.DeliveryFee != "3.99" {
		t.Fatalf("expected delivery fee 3.99, got %s", view.Totals.DeliveryFee)
	}
	if view.Totals.Total != "32.05" {
		t.Fatalf("expected total 32.05, got %s", view.Totals.Total)
	}
	if view.SyncState != string(cartsvc.StateAnonymous) {
		t.Fatalf("expected anonymous sync state, got %s", view.SyncState)
	}
}

func TestCartAddItemRejectsBadBody(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartAddItem(mgr, testRates(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/items", `{"name":"no id"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartRequiresSessionContext(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartFetch(mgr, testRates(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session got %d", resp.Code)
	}
}

func TestCartApplyPromoUnknownCode(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartApplyPromo(mgr, testRates(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/promo", `{"code":"NOPE"}`))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartApplyPromoBelowMinimum(t *testing.T) {
	mgr := newTestManager(t)

	add := CartAddItem(mgr, testRates(), nil)
	resp := httptest.NewRecorder()
	add.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/items", `{"id":"pizza","name":"Margherita","unit_price":"12.99","quantity":1}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("seeding cart failed: %d", resp.Code)
	}

	promo := CartApplyPromo(mgr, testRates(), nil)
	resp = httptest.NewRecorder()
	promo.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/promo", `{"code":"WELCOME10"}`))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "PROMO_REJECTED" {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
	if envelope.Error.Details["minimum_order"] != "20.00" {
		t.Fatalf("expected minimum_order detail, got %v", envelope.Error.Details)
	}
}

func TestCartApplyAndRemovePromo(t *testing.T) {
	mgr := newTestManager(t)

	add := CartAddItem(mgr, testRates(), nil)
	resp := httptest.NewRecorder()
	add.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/items", `{"id":"pizza","name":"Margherita","unit_price":"12.99","quantity":2}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("seeding cart failed: %d", resp.Code)
	}

	apply := CartApplyPromo(mgr, testRates(), nil)
	resp = httptest.NewRecorder()
	apply.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/promo", `{"code":"WELCOME10"}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeView(t, resp)
	if view.Promo == nil || view.Promo.Code != "WELCOME10" {
		t.Fatalf("expected applied promo, got %+v", view.Promo)
	}
	if view.Totals.Discount != "2.60" {
		t.Fatalf("expected discount 2.60, got %s", view.Totals.Discount)
	}

	remove := CartRemovePromo(mgr, testRates(), nil)
	resp = httptest.NewRecorder()
	remove.ServeHTTP(resp, sessionRequest(http.MethodDelete, "/api/v1/cart/promo", ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	view = decodeView(t, resp)
	if view.Promo != nil {
		t.Fatalf("expected promo removed, got %+v", view.Promo)
	}
	if view.Totals.Discount != "0.00" {
		t.Fatalf("expected zero discount, got %s", view.Totals.Discount)
	}
	if len(view.Items) != 1 {
		t.Fatalf("items must survive promo removal: %+v", view.Items)
	}
}

func TestCartUpdateQuantityZeroRemovesLine(t *testing.T) {
	mgr := newTestManager(t)

	add := CartAddItem(mgr, testRates(), nil)
	resp := httptest.NewRecorder()
	add.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/items", `{"id":"pizza","name":"Margherita","unit_price":"12.99","quantity":1}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("seeding cart failed: %d", resp.Code)
	}

	update := CartUpdateQuantity(mgr, testRates(), nil)
	req := sessionRequest(http.MethodPatch, "/api/v1/cart/items/pizza", `{"quantity":0}`)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("itemId", "pizza")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp = httptest.NewRecorder()
	update.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	view := decodeView(t, resp)
	if len(view.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", view.Items)
	}
	if view.Totals.Total != "0.00" {
		t.Fatalf("expected zero total for empty cart, got %s", view.Totals.Total)
	}
}

func TestCartClearEmptiesCart(t *testing.T) {
	mgr := newTestManager(t)

	add := CartAddItem(mgr, testRates(), nil)
	resp := httptest.NewRecorder()
	add.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/items", `{"id":"pizza","name":"Margherita","unit_price":"12.99","quantity":3}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("seeding cart failed: %d", resp.Code)
	}

	clear := CartClear(mgr, testRates(), nil)
	resp = httptest.NewRecorder()
	clear.ServeHTTP(resp, sessionRequest(http.MethodDelete, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	view := decodeView(t, resp)
	if len(view.Items) != 0 || view.Promo != nil {
		t.Fatalf("expected cleared cart, got %+v", view)
	}
}
