package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartSessionStore remembers issued guest cart sessions. It is optional.
type CartSessionStore interface {
	RememberCartSession(ctx context.Context, sessionID string, ttl time.Duration) error
	TouchCartSession(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	ForgetCartSession(ctx context.Context, sessionID string) error
}

// CartAccess decides whether a request may use a cart key. user_<id> keys
// belong to that account and need its token or an admin token. Guest keys
// must have been issued by this server when a session store is configured.
type CartAccess struct {
	store CartSessionStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCartAccess builds the guard. store may be nil.
func NewCartAccess(store CartSessionStore, ttl time.Duration, logg *logger.Logger) *CartAccess {
	return &CartAccess{store: store, ttl: ttl, logg: logg}
}

// Authorize returns a typed error when the caller may not use sessionID.
// Guest sessions are refreshed on use; a store outage lets the request
// through.
func (a *CartAccess) Authorize(r *http.Request, sessionID string) error {
	ctx := r.Context()
	if owner, ok := cart.SessionOwner(sessionID); ok {
		caller, authenticated := middleware.UserIDFromContext(ctx)
		if !authenticated {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to use this cart")
		}
		if caller != owner && middleware.RoleFromContext(ctx) != enums.UserRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another account")
		}
		return nil
	}

	if a == nil || a.store == nil || !cart.IsGuestSession(sessionID) {
		return nil
	}
	known, err := a.store.TouchCartSession(ctx, sessionID, a.ttl)
	if err != nil {
		if a.logg != nil {
			a.logg.Warn(a.logg.WithField(ctx, "error", err.Error()), "cart.session.lookup_failed")
		}
		return nil
	}
	if !known {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart session not found")
	}
	return nil
}

func (a *CartAccess) forget(ctx context.Context, sessionID string) {
	if a == nil || a.store == nil || !cart.IsGuestSession(sessionID) {
		return
	}
	if err := a.store.ForgetCartSession(ctx, sessionID); err != nil && a.logg != nil {
		a.logg.Warn(a.logg.WithField(ctx, "error", err.Error()), "cart.session.forget_failed")
	}
}
