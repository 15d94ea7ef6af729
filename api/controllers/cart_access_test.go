package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCartService struct {
	cart.Service
	added *cart.AddInput
}

func (s *stubCartService) AddToCart(_ context.Context, input cart.AddInput) (*cart.AddResult, error) {
	s.added = &input
	return &cart.AddResult{SessionID: input.SessionID, ProductID: input.ProductID, Quantity: input.Quantity}, nil
}

func requestAs(method, path, body string, userID int64, role enums.UserRole) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID > 0 {
		req = req.WithContext(middleware.WithIdentity(req.Context(), userID, role))
	}
	return req
}

func TestCartAccessUserCartNeedsOwner(t *testing.T) {
	access := NewCartAccess(nil, time.Hour, testLogger())
	cases := []struct {
		name   string
		caller int64
		role   enums.UserRole
		code   pkgerrors.Code
	}{
		{name: "anonymous", code: pkgerrors.CodeUnauthorized},
		{name: "other customer", caller: 6, role: enums.UserRoleCustomer, code: pkgerrors.CodeForbidden},
		{name: "owner", caller: 5, role: enums.UserRoleCustomer},
		{name: "admin", caller: 1, role: enums.UserRoleAdmin},
	}
	for _, tc := range cases {
		err := access.Authorize(requestAs(http.MethodGet, "/api/cart/user_5", "", tc.caller, tc.role), cart.UserSessionID(5))
		if tc.code == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != tc.code {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.code, err)
		}
	}
}

func TestCartAccessGuestSessionsMustBeIssued(t *testing.T) {
	store := &stubSessionStore{remembered: []string{"sess_1_abc"}}
	access := NewCartAccess(store, time.Hour, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/cart/sess_1_abc", nil)

	if err := access.Authorize(req, "sess_1_abc"); err != nil {
		t.Fatalf("issued session rejected: %v", err)
	}
	if len(store.touched) != 1 || store.touched[0] != "sess_1_abc" {
		t.Fatalf("expected issued session to be refreshed, got %v", store.touched)
	}

	err := access.Authorize(req, "sess_9_forged")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected unknown session to be not found, got %v", err)
	}

	down := NewCartAccess(&stubSessionStore{err: errors.New("redis down")}, time.Hour, testLogger())
	if err := down.Authorize(req, "sess_1_abc"); err != nil {
		t.Fatalf("expected store outage to be tolerated, got %v", err)
	}

	var unguarded *CartAccess
	if err := unguarded.Authorize(req, "sess_9_forged"); err != nil {
		t.Fatalf("expected no check without a store, got %v", err)
	}
}

func TestCartAddOwnership(t *testing.T) {
	svc := &stubCartService{}
	rec := httptest.NewRecorder()
	body := `{"sessionId":"sess_1_abc","productId":3,"userId":999}`
	CartAdd(svc, nil, testLogger()).ServeHTTP(rec, requestAs(http.MethodPost, "/api/cart/add", body, 0, ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an anonymous account claim, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.added != nil {
		t.Fatal("cart should not be touched")
	}

	rec = httptest.NewRecorder()
	body = `{"sessionId":"user_5","productId":3,"quantity":2}`
	CartAdd(svc, nil, testLogger()).ServeHTTP(rec, requestAs(http.MethodPost, "/api/cart/add", body, 1, enums.UserRoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.added == nil || svc.added.UserID == nil || *svc.added.UserID != 5 {
		t.Fatalf("expected user cart lines to be owned by user 5, got %+v", svc.added)
	}
	if svc.added.Quantity != 2 {
		t.Fatalf("unexpected quantity %d", svc.added.Quantity)
	}
}

func TestCartMergeForgetsGuestSession(t *testing.T) {
	store := &stubSessionStore{remembered: []string{"sess_1_abc"}}
	access := NewCartAccess(store, time.Hour, testLogger())
	svc := &mergeCartService{}
	rec := httptest.NewRecorder()
	CartMerge(svc, access, testLogger()).ServeHTTP(rec, requestAs(http.MethodPost, "/api/cart/merge", `{"sessionId":"sess_1_abc"}`, 5, enums.UserRoleCustomer))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.guest != "sess_1_abc" || svc.userID != 5 {
		t.Fatalf("unexpected merge %q -> %d", svc.guest, svc.userID)
	}
	if len(store.forgotten) != 1 || store.forgotten[0] != "sess_1_abc" {
		t.Fatalf("expected merged guest session to be forgotten, got %v", store.forgotten)
	}

	svc.guest = ""
	rec = httptest.NewRecorder()
	CartMerge(svc, access, testLogger()).ServeHTTP(rec, requestAs(http.MethodPost, "/api/cart/merge", `{"sessionId":"user_6"}`, 5, enums.UserRoleCustomer))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 merging another account's cart, got %d", rec.Code)
	}
	if svc.guest != "" {
		t.Fatal("merge should not run")
	}
}

type mergeCartService struct {
	cart.Service
	guest  string
	userID int64
}

func (s *mergeCartService) MergeGuestCart(_ context.Context, guest string, userID int64) (*cart.CartDTO, error) {
	s.guest = guest
	s.userID = userID
	return &cart.CartDTO{SessionID: cart.UserSessionID(userID)}, nil
}
