package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablewise-app/tablewise-backend/api/middleware"
	"github.com/tablewise-app/tablewise-backend/api/responses"
	"github.com/tablewise-app/tablewise-backend/api/validators"
	cartsvc "github.com/tablewise-app/tablewise-backend/internal/cart"
	"github.com/tablewise-app/tablewise-backend/internal/engine"
	pkgerrors "github.com/tablewise-app/tablewise-backend/pkg/errors"
	"github.com/tablewise-app/tablewise-backend/pkg/logger"
)

// CartFetch returns the session's cart with computed totals.
func CartFetch(mgr *engine.Manager, rates cartsvc.Rates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := engineFor(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(eng.Sync.Snapshot(), eng.Sync.State(), rates))
	}
}

// CartAddItem adds a menu item; a repeated item id merges quantities.
func CartAddItem(mgr *engine.Manager, rates cartsvc.Rates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := engineFor(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := eng.Sync.AddItem(r.Context(), payload.toLineItem())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(snapshot, eng.Sync.State(), rates))
	}
}

// CartUpdateQuantity sets one line's quantity; zero or below removes it.
func CartUpdateQuantity(mgr *engine.Manager, rates cartsvc.Rates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := engineFor(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot := eng.Sync.UpdateQuantity(r.Context(), chi.URLParam(r, "itemId"), *payload.Quantity)
		responses.WriteSuccess(w, newCartView(snapshot, eng.Sync.State(), rates))
	}
}

// CartRemoveItem deletes one line; removing an absent line succeeds.
func CartRemoveItem(mgr *engine.Manager, rates cartsvc.Rates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := engineFor(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot := eng.Sync.RemoveItem(r.Context(), chi.URLParam(r, "itemId"))
		responses.WriteSuccess(w, newCartView(snapshot, eng.Sync.State(), rates))
	}
}

// CartApplyPromo validates the code against the catalog and the current
// subtotal before applying it.
func CartApplyPromo(mgr *engine.Manager, rates cartsvc.Rates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := engineFor(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ApplyPromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := eng.Sync.ApplyPromo(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(snapshot, eng.Sync.State(), rates))
	}
}

// CartRemovePromo drops the applied promo without touching the items.
func CartRemovePromo(mgr *engine.Manager, rates cartsvc.Rates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := engineFor(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot := eng.Sync.RemovePromo(r.Context())
		responses.WriteSuccess(w, newCartView(snapshot, eng.Sync.State(), rates))
	}
}

// CartClear empties the cart and drops the applied promo.
func CartClear(mgr *engine.Manager, rates cartsvc.Rates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := engineFor(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot := eng.Sync.Clear(r.Context())
		responses.WriteSuccess(w, newCartView(snapshot, eng.Sync.State(), rates))
	}
}

func engineFor(r *http.Request, mgr *engine.Manager) (*engine.Engine, error) {
	if mgr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable")
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id missing")
	}

	eng, err := mgr.ForSession(r.Context(), sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cart engine unavailable")
	}
	eng.EnsureIdentity(middleware.UserIDFromContext(r.Context()))
	return eng, nil
}
