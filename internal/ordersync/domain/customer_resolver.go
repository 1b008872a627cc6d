package domain

import (
	"context"

	apperrors "github.com/qhato/ecommerce/pkg/errors"
)

// CustomerResolverConfig mirrors the configuration surface spec §6
// names for guest/missing-email fallback behavior.
type CustomerResolverConfig struct {
	AllowGuestOrders   bool
	RequireCustomerEmail bool
	DefaultGuestCustomerID *int64
}

// CustomerResolver resolves a storefront order's customer payload to
// an RMS customer id, against the RmsStore's customer lookup/create
// operations. All email comparisons are exact, case-sensitive
// equality; normalization is out of scope.
type CustomerResolver struct {
	store RmsStore
	cfg   CustomerResolverConfig
}

// NewCustomerResolver builds a resolver bound to a store and config.
func NewCustomerResolver(store RmsStore, cfg CustomerResolverConfig) *CustomerResolver {
	return &CustomerResolver{store: store, cfg: cfg}
}

// Resolve implements spec §4.7's three branches: no customer block,
// customer without email, and customer with email.
func (r *CustomerResolver) Resolve(ctx context.Context, customer *Customer, billing *Address) (*int64, error) {
	if customer == nil {
		return r.handleGuestOrder()
	}
	if customer.Email == "" {
		return r.handleCustomerWithoutEmail()
	}
	return r.resolveByEmail(ctx, customer, billing)
}

func (r *CustomerResolver) handleGuestOrder() (*int64, error) {
	if !r.cfg.AllowGuestOrders {
		return nil, apperrors.SyncValidationError("order has no customer and guest orders are not allowed")
	}
	return r.cfg.DefaultGuestCustomerID, nil
}

func (r *CustomerResolver) handleCustomerWithoutEmail() (*int64, error) {
	if r.cfg.RequireCustomerEmail {
		return nil, apperrors.SyncValidationError("customer has no email and an email is required")
	}
	return r.cfg.DefaultGuestCustomerID, nil
}

func (r *CustomerResolver) resolveByEmail(ctx context.Context, customer *Customer, billing *Address) (*int64, error) {
	existing, err := r.store.FindCustomerByEmail(ctx, customer.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		id := existing.ID
		return &id, nil
	}

	fields := CustomerRecord{
		Email:     customer.Email,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Phone:     customer.Phone,
		Address:   billing,
	}
	id, err := r.store.CreateCustomer(ctx, fields)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
