package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

type stubProductService struct {
	products.Service
	filter    products.ListFilter
	threshold *int
	reserve   func(id int64, quantity int) (int, error)
}

func (s *stubProductService) List(_ context.Context, filter products.ListFilter) ([]products.ProductDTO, error) {
	s.filter = filter
	return []products.ProductDTO{}, nil
}

func (s *stubProductService) LowStock(_ context.Context, threshold *int) ([]products.ProductDTO, error) {
	s.threshold = threshold
	return []products.ProductDTO{}, nil
}

func (s *stubProductService) CheckAndReserve(_ context.Context, id int64, quantity int) (int, error) {
	return s.reserve(id, quantity)
}

type stubCheckoutService struct {
	placed *checkout.PlaceOrderInput
	err    error
}

func (s *stubCheckoutService) PlaceOrder(_ context.Context, input checkout.PlaceOrderInput) (*checkout.Result, error) {
	s.placed = &input
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.Result{OrderID: 11, TotalAmount: input.TotalAmount}, nil
}

func (s *stubCheckoutService) CheckoutCart(context.Context, checkout.CartCheckoutInput) (*checkout.Result, error) {
	return nil, errors.New("not used")
}

type stubSessionStore struct {
	remembered []string
	touched    []string
	forgotten  []string
	err        error
}

func (s *stubSessionStore) RememberCartSession(_ context.Context, id string, _ time.Duration) error {
	s.remembered = append(s.remembered, id)
	return s.err
}

func (s *stubSessionStore) TouchCartSession(_ context.Context, id string, _ time.Duration) (bool, error) {
	s.touched = append(s.touched, id)
	if s.err != nil {
		return false, s.err
	}
	for _, known := range s.remembered {
		if known == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubSessionStore) ForgetCartSession(_ context.Context, id string) error {
	s.forgotten = append(s.forgotten, id)
	return nil
}

func TestProductsListParsesFilters(t *testing.T) {
	stub := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/products?category=all&minPrice=100&maxPrice=900", nil)
	rec := httptest.NewRecorder()
	ProductsList(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.filter.Category != "" {
		t.Fatalf("expected category all to clear the filter, got %q", stub.filter.Category)
	}
	if stub.filter.MinPrice == nil || *stub.filter.MinPrice != 100 || stub.filter.MaxPrice == nil || *stub.filter.MaxPrice != 900 {
		t.Fatalf("unexpected price filter %+v", stub.filter)
	}

	rec = httptest.NewRecorder()
	ProductsList(stub, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products?minPrice=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric price, got %d", rec.Code)
	}
}

func TestProductsLowStockThreshold(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		stub := &stubProductService{}
		rec := httptest.NewRecorder()
		ProductsLowStock(stub, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/low-stock", nil))
		if rec.Code != http.StatusOK || stub.threshold != nil {
			t.Fatalf("expected default threshold, code=%d threshold=%v", rec.Code, stub.threshold)
		}
	})

	t.Run("explicit", func(t *testing.T) {
		stub := &stubProductService{}
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/low-stock/4", nil), "threshold", "4")
		rec := httptest.NewRecorder()
		ProductsLowStock(stub, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || stub.threshold == nil || *stub.threshold != 4 {
			t.Fatalf("expected threshold 4, code=%d", rec.Code)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/low-stock/-1", nil), "threshold", "-1")
		rec := httptest.NewRecorder()
		ProductsLowStock(&stubProductService{}, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestProductUpdateStock(t *testing.T) {
	stub := &stubProductService{reserve: func(id int64, quantity int) (int, error) {
		if quantity > 3 {
			return 0, pkgerrors.InsufficientStock(id, quantity, 3)
		}
		return 3 - quantity, nil
	}}

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/products/7/update-stock", strings.NewReader(body))
		rec := httptest.NewRecorder()
		ProductUpdateStock(stub, testLogger()).ServeHTTP(rec, withURLParam(req, "id", "7"))
		return rec
	}

	rec := send(`{"quantity":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ok struct {
		Data products.StockUpdateDTO `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ok.Data.NewStock != 1 || ok.Data.SoldQuantity != 2 || ok.Data.ProductID != 7 {
		t.Fatalf("unexpected payload %+v", ok.Data)
	}

	rec = send(`{"quantity":5}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var failed struct {
		Error struct {
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &failed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if failed.Error.Details["available"] != float64(3) {
		t.Fatalf("expected available=3, got %v", failed.Error.Details)
	}
}

func TestOrdersCreateMapsLines(t *testing.T) {
	stub := &stubCheckoutService{}
	body := `{"products":[{"id":4,"quantity":2,"price":150,"name":"ignored"}],"totalAmount":300,"shippingAddress":"  1 Main St  ","sessionId":"sess_1_abc"}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	req = req.WithContext(middleware.WithIdentity(req.Context(), 9, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	OrdersCreate(stub, nil, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.placed == nil || len(stub.placed.Lines) != 1 {
		t.Fatalf("expected one line, got %+v", stub.placed)
	}
	line := stub.placed.Lines[0]
	if line.ProductID != 4 || line.Quantity != 2 || line.Price != 150 {
		t.Fatalf("unexpected line %+v", line)
	}
	if stub.placed.UserID == nil || *stub.placed.UserID != 9 {
		t.Fatalf("expected token user to own the order")
	}
	if stub.placed.ShippingAddress != "1 Main St" || stub.placed.SessionID != "sess_1_abc" {
		t.Fatalf("unexpected input %+v", stub.placed)
	}
}

func TestOrdersCreateRejectsEmptyLines(t *testing.T) {
	stub := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"products":[],"totalAmount":0,"shippingAddress":"x"}`))
	rec := httptest.NewRecorder()
	OrdersCreate(stub, nil, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if stub.placed != nil {
		t.Fatal("checkout should not run")
	}
}

func TestResolveOwner(t *testing.T) {
	id := func(v int64) *int64 { return &v }
	cases := []struct {
		name      string
		caller    int64
		role      enums.UserRole
		requested *int64
		want      *int64
		code      pkgerrors.Code
	}{
		{name: "anonymous guest"},
		{name: "anonymous claiming account", requested: id(3), code: pkgerrors.CodeUnauthorized},
		{name: "token user", caller: 3, role: enums.UserRoleCustomer, want: id(3)},
		{name: "matching body", caller: 3, role: enums.UserRoleCustomer, requested: id(3), want: id(3)},
		{name: "other account", caller: 3, role: enums.UserRoleCustomer, requested: id(4), code: pkgerrors.CodeForbidden},
		{name: "admin on behalf", caller: 1, role: enums.UserRoleAdmin, requested: id(4), want: id(4)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
		if tc.caller > 0 {
			req = req.WithContext(middleware.WithIdentity(req.Context(), tc.caller, tc.role))
		}
		got, err := resolveOwner(req, tc.requested)
		if tc.code != "" {
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.code {
				t.Fatalf("%s: expected %s, got %v", tc.name, tc.code, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if (got == nil) != (tc.want == nil) || (got != nil && *got != *tc.want) {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestCartSessionRecordsIssuedID(t *testing.T) {
	store := &stubSessionStore{}
	rec := httptest.NewRecorder()
	CartSession(store, time.Hour, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/session", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var payload struct {
		Data struct {
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(store.remembered) != 1 || store.remembered[0] != payload.Data.SessionID {
		t.Fatalf("expected issued id recorded, got %v", store.remembered)
	}

	failing := &stubSessionStore{err: errors.New("redis down")}
	rec = httptest.NewRecorder()
	CartSession(failing, time.Hour, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/session", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected store failure to be tolerated, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	CartSession(nil, time.Hour, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/session", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 without a store, got %d", rec.Code)
	}
}
