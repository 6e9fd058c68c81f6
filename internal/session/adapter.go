package session

import (
	"context"

	"github.com/tablewise-app/tablewise-backend/internal/cart"
)

// Adapter is the session-scoped persistence surface for one cart. Load
// rehydrates the store at session start, Save runs after every local
// mutation, and OnExternalChange surfaces writes made by other views of the
// same session so independent UI surfaces converge without direct coupling.
// Saving an empty cart removes the stored record; a later Load reports
// absence, which rehydrates to the same empty cart.
type Adapter interface {
	Load(ctx context.Context) (cart.Snapshot, bool, error)
	Save(ctx context.Context, snapshot cart.Snapshot) error
	OnExternalChange(ctx context.Context, fn func(cart.Snapshot)) (stop func(), err error)
}

// envelope is the broadcast payload. Origin lets a surface skip the
// notifications caused by its own saves.
type envelope struct {
	Origin   string        `json:"origin"`
	Snapshot cart.Snapshot `json:"snapshot"`
}
