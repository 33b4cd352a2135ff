package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ikrcommerce/ikr-backend/internal/catalog"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
)

// cartTTL keeps abandoned session carts from accumulating forever.
const cartTTL = 7 * 24 * time.Hour

// Service manages the session cart document.
type Service interface {
	Add(ctx context.Context, sessionID string, input AddInput) (*Cart, error)
	Get(ctx context.Context, sessionID string) (*Cart, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*Cart, error)
	Remove(ctx context.Context, sessionID string, productID uuid.UUID, variantID *uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// AddInput identifies the line to add or merge.
type AddInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

type snapshotter interface {
	Snapshot(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*catalog.ItemSnapshot, error)
}

type service struct {
	store   store
	catalog snapshotter
}

// NewService builds a cart service with the required dependencies.
func NewService(store store, catalog snapshotter) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog snapshotter required")
	}
	return &service{store: store, catalog: catalog}, nil
}

// Add merges the quantity into an existing line or creates a new one with
// the product's current name and price.
func (s *service) Add(ctx context.Context, sessionID string, input AddInput) (*Cart, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	snapshot, err := s.catalog.Snapshot(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Two variants of one product are distinct lines; keying on the
	// resolved variant keeps them from merging into each other.
	key := lineKey(input.ProductID, snapshot.VariantID)
	line := cart.Items[key]
	line.ProductID = input.ProductID
	line.VariantID = snapshot.VariantID
	line.Quantity += quantity
	line.Price = snapshot.UnitPrice
	line.Name = snapshot.Name
	cart.Items[key] = line

	if err := s.save(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return s.load(ctx, sessionID)
}

// UpdateQuantity sets an absolute quantity; zero or less removes the line.
func (s *service) UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*Cart, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	key := lineKey(productID, variantID)
	if _, ok := cart.Items[key]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}

	if quantity <= 0 {
		delete(cart.Items, key)
	} else {
		line := cart.Items[key]
		line.Quantity = quantity
		cart.Items[key] = line
	}

	if err := s.save(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Remove(ctx context.Context, sessionID string, productID uuid.UUID, variantID *uuid.UUID) (*Cart, error) {
	return s.UpdateQuantity(ctx, sessionID, productID, variantID, 0)
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.store.Del(ctx, s.store.CartKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) load(ctx context.Context, sessionID string) (*Cart, error) {
	raw, err := s.store.Get(ctx, s.store.CartKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewCart(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart := NewCart()
	if err := json.Unmarshal([]byte(raw), cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart document")
	}
	if cart.Items == nil {
		cart.Items = map[string]Item{}
	}
	return cart, nil
}

func (s *service) save(ctx context.Context, sessionID string, cart *Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart document")
	}
	if err := s.store.Set(ctx, s.store.CartKey(sessionID), string(raw), cartTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func lineKey(productID uuid.UUID, variantID *uuid.UUID) string {
	if variantID == nil {
		return productID.String()
	}
	return productID.String() + ":" + variantID.String()
}
