package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/api/middleware"
	"github.com/ikrcommerce/ikr-backend/internal/cart"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
	"github.com/ikrcommerce/ikr-backend/pkg/types"
)

type stubCartService struct {
	cart    *cart.Cart
	err     error
	added   []cart.AddInput
	removed []*uuid.UUID
	cleared []string
}

func (s *stubCartService) Add(_ context.Context, sessionID string, input cart.AddInput) (*cart.Cart, error) {
	s.added = append(s.added, input)
	return s.cart, s.err
}

func (s *stubCartService) Get(_ context.Context, sessionID string) (*cart.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartService) UpdateQuantity(_ context.Context, sessionID string, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*cart.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartService) Remove(_ context.Context, sessionID string, productID uuid.UUID, variantID *uuid.UUID) (*cart.Cart, error) {
	s.removed = append(s.removed, variantID)
	return s.cart, s.err
}

func (s *stubCartService) Clear(_ context.Context, sessionID string) error {
	s.cleared = append(s.cleared, sessionID)
	return s.err
}

func controllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withSession(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(middleware.WithSessionID(r.Context(), sessionID))
}

func TestGetCartReturnsSessionCart(t *testing.T) {
	sessionCart := cart.NewCart()
	sessionCart.Items[uuid.NewString()] = cart.Item{
		ProductID: uuid.New(),
		Name:      "Ceramic Mug",
		Price:     decimal.NewFromInt(350),
		Quantity:  2,
	}
	svc := &stubCartService{cart: sessionCart}

	req := withSession(httptest.NewRequest(http.MethodGet, "/cart", nil), "sess-1")
	rec := httptest.NewRecorder()
	GetCart(svc, controllerLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
}

func TestGetCartWithoutSessionFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	GetCart(&stubCartService{cart: cart.NewCart()}, controllerLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddCartItemDecodesPayload(t *testing.T) {
	svc := &stubCartService{cart: cart.NewCart()}
	productID := uuid.New()
	body := `{"product_id":"` + productID.String() + `","quantity":3}`

	req := withSession(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body)), "sess-1")
	rec := httptest.NewRecorder()
	AddCartItem(svc, controllerLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(svc.added) != 1 {
		t.Fatalf("Add invoked %d times, want 1", len(svc.added))
	}
	if svc.added[0].ProductID != productID || svc.added[0].Quantity != 3 {
		t.Fatalf("unexpected add input %+v", svc.added[0])
	}
}

func TestAddCartItemRejectsZeroQuantity(t *testing.T) {
	svc := &stubCartService{cart: cart.NewCart()}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":0}`

	req := withSession(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body)), "sess-1")
	rec := httptest.NewRecorder()
	AddCartItem(svc, controllerLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.added) != 0 {
		t.Fatal("service should not be called on invalid payloads")
	}
}

func TestRemoveCartItemParsesRouteParam(t *testing.T) {
	svc := &stubCartService{cart: cart.NewCart()}
	productID := uuid.New()

	router := chi.NewRouter()
	router.Delete("/cart/items/{productID}", RemoveCartItem(svc, controllerLogger()))

	req := withSession(httptest.NewRequest(http.MethodDelete, "/cart/items/"+productID.String(), nil), "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(svc.removed) != 1 || svc.removed[0] != nil {
		t.Fatalf("removed = %v, want one call without a variant", svc.removed)
	}
}

func TestRemoveCartItemPassesVariant(t *testing.T) {
	svc := &stubCartService{cart: cart.NewCart()}
	productID := uuid.New()
	variantID := uuid.New()

	router := chi.NewRouter()
	router.Delete("/cart/items/{productID}", RemoveCartItem(svc, controllerLogger()))

	target := "/cart/items/" + productID.String() + "?variant_id=" + variantID.String()
	req := withSession(httptest.NewRequest(http.MethodDelete, target, nil), "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(svc.removed) != 1 || svc.removed[0] == nil || *svc.removed[0] != variantID {
		t.Fatalf("removed = %v, want the variant id", svc.removed)
	}
}
