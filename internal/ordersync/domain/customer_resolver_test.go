package domain

import (
	"context"
	"testing"

	"github.com/qhato/ecommerce/pkg/testutil"
)

// fakeCustomerStore implements only the RmsStore methods CustomerResolver
// touches; the rest panic if called, keeping this test double honest
// about its narrow scope.
type fakeCustomerStore struct {
	byEmail       map[string]CustomerRecord
	createCalls   []CustomerRecord
	nextCreatedID int64
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{byEmail: make(map[string]CustomerRecord), nextCreatedID: 100}
}

func (s *fakeCustomerStore) BeginSession(ctx context.Context) (Session, error) { panic("unused") }
func (s *fakeCustomerStore) FindOrderByReference(ctx context.Context, ref OrderReference) (*OrderRow, error) {
	panic("unused")
}
func (s *fakeCustomerStore) BatchCheckOrderExistence(ctx context.Context, refs []OrderReference) (map[OrderReference]bool, error) {
	panic("unused")
}
func (s *fakeCustomerStore) CreateOrder(ctx context.Context, header OrderHeader, session Session) (int64, error) {
	panic("unused")
}
func (s *fakeCustomerStore) UpdateOrder(ctx context.Context, id int64, header OrderHeader, session Session) error {
	panic("unused")
}
func (s *fakeCustomerStore) ListOrderEntries(ctx context.Context, orderID int64, session Session) ([]OrderEntry, error) {
	panic("unused")
}
func (s *fakeCustomerStore) CreateOrderEntry(ctx context.Context, entry OrderEntry, session Session) (int64, error) {
	panic("unused")
}
func (s *fakeCustomerStore) UpdateOrderEntry(ctx context.Context, id int64, entry OrderEntry, session Session) error {
	panic("unused")
}
func (s *fakeCustomerStore) DeleteOrderEntry(ctx context.Context, id int64, session Session) error {
	panic("unused")
}
func (s *fakeCustomerStore) FindCustomerByEmail(ctx context.Context, email string) (*CustomerRecord, error) {
	if rec, ok := s.byEmail[email]; ok {
		return &rec, nil
	}
	return nil, nil
}
func (s *fakeCustomerStore) CreateCustomer(ctx context.Context, fields CustomerRecord) (int64, error) {
	s.createCalls = append(s.createCalls, fields)
	s.nextCreatedID++
	return s.nextCreatedID, nil
}
func (s *fakeCustomerStore) ResolveItemIDBySku(ctx context.Context, sku string) (*int64, error) {
	panic("unused")
}

func TestCustomerResolver_GuestOrderAllowed(t *testing.T) {
	// Arrange
	defaultID := int64(42)
	resolver := NewCustomerResolver(newFakeCustomerStore(), CustomerResolverConfig{AllowGuestOrders: true, DefaultGuestCustomerID: &defaultID})

	// Act
	id, err := resolver.Resolve(context.Background(), nil, nil)

	// Assert
	testutil.AssertNoError(t, err, "guest order should resolve")
	testutil.AssertNotNil(t, id, "should return the default guest id")
	testutil.AssertEqual(t, *id, int64(42), "default guest id")
}

func TestCustomerResolver_GuestOrderDisallowed(t *testing.T) {
	// Arrange
	resolver := NewCustomerResolver(newFakeCustomerStore(), CustomerResolverConfig{AllowGuestOrders: false})

	// Act
	_, err := resolver.Resolve(context.Background(), nil, nil)

	// Assert
	testutil.AssertError(t, err, "guest order should fail when disallowed")
}

func TestCustomerResolver_NoEmailRequiresEmail(t *testing.T) {
	// Arrange
	resolver := NewCustomerResolver(newFakeCustomerStore(), CustomerResolverConfig{RequireCustomerEmail: true})

	// Act
	_, err := resolver.Resolve(context.Background(), &Customer{FirstName: "Jane"}, nil)

	// Assert
	testutil.AssertError(t, err, "missing email should fail when required")
}

func TestCustomerResolver_FindsExistingByEmail(t *testing.T) {
	// Arrange
	store := newFakeCustomerStore()
	store.byEmail["jane@example.com"] = CustomerRecord{ID: 7, Email: "jane@example.com"}
	resolver := NewCustomerResolver(store, CustomerResolverConfig{})

	// Act
	id, err := resolver.Resolve(context.Background(), &Customer{Email: "jane@example.com"}, nil)

	// Assert
	testutil.AssertNoError(t, err, "should resolve")
	testutil.AssertEqual(t, *id, int64(7), "should return existing id")
	testutil.AssertLen(t, store.createCalls, 0, "should not create when found")
}

func TestCustomerResolver_CreatesWhenNotFound(t *testing.T) {
	// Arrange
	store := newFakeCustomerStore()
	resolver := NewCustomerResolver(store, CustomerResolverConfig{})
	billing := &Address{City: "Heredia"}

	// Act
	id, err := resolver.Resolve(context.Background(), &Customer{Email: "new@example.com", FirstName: "New"}, billing)

	// Assert
	testutil.AssertNoError(t, err, "should resolve")
	testutil.AssertNotNil(t, id, "should return a new id")
	testutil.AssertLen(t, store.createCalls, 1, "should create exactly once")
	testutil.AssertEqual(t, store.createCalls[0].Email, "new@example.com", "create should carry email")
}
