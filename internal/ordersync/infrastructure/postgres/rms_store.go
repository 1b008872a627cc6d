// Package postgres implements domain.RmsStore against the RMS schema
// over pgx, the same pool this repository already uses for every other
// bounded context's Postgres access.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/qhato/ecommerce/pkg/errors"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
	"github.com/qhato/ecommerce/pkg/database"
)

// RmsStore implements domain.RmsStore over the RMS order schema.
type RmsStore struct {
	db *database.DB
}

// NewRmsStore builds a store bound to the shared connection pool.
func NewRmsStore(db *database.DB) *RmsStore {
	return &RmsStore{db: db}
}

// pgSession wraps a pgx.Tx so OrderWriter's three-phase
// begin/write/commit-or-rollback sequence shares one transaction.
type pgSession struct {
	tx pgx.Tx
}

func (s *pgSession) Commit(ctx context.Context) error   { return s.tx.Commit(ctx) }
func (s *pgSession) Rollback(ctx context.Context) error { return s.tx.Rollback(ctx) }

func txFrom(session domain.Session) (pgx.Tx, error) {
	s, ok := session.(*pgSession)
	if !ok {
		return nil, apperrors.ConnectionLost(errors.New("session was not opened by this store"))
	}
	return s.tx, nil
}

// BeginSession opens a new RMS transaction.
func (s *RmsStore) BeginSession(ctx context.Context) (domain.Session, error) {
	tx, err := s.db.Pool().BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperrors.ConnectionLost(fmt.Errorf("beginning order sync session: %w", err))
	}
	return &pgSession{tx: tx}, nil
}

// FindOrderByReference runs outside any transaction, mirroring how
// batchCheckOrderExistence does: it's a read used to decide whether
// the subsequent session does a create or an update.
func (s *RmsStore) FindOrderByReference(ctx context.Context, ref domain.OrderReference) (*domain.OrderRow, error) {
	const query = `SELECT order_id, reference_number FROM rms_order WHERE reference_number = $1`

	var row domain.OrderRow
	err := s.db.Pool().QueryRow(ctx, query, string(ref)).Scan(&row.ID, &row.ReferenceNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.ConnectionLost(fmt.Errorf("finding order by reference %q: %w", ref, err))
	}
	return &row, nil
}

// BatchCheckOrderExistence reports which of refs already have an RMS
// order row, in one round trip.
func (s *RmsStore) BatchCheckOrderExistence(ctx context.Context, refs []domain.OrderReference) (map[domain.OrderReference]bool, error) {
	result := make(map[domain.OrderReference]bool, len(refs))
	for _, r := range refs {
		result[r] = false
	}
	if len(refs) == 0 {
		return result, nil
	}

	raw := make([]string, len(refs))
	for i, r := range refs {
		raw[i] = string(r)
	}

	const query = `SELECT reference_number FROM rms_order WHERE reference_number = ANY($1)`
	rows, err := s.db.Pool().Query(ctx, query, raw)
	if err != nil {
		return nil, apperrors.ConnectionLost(fmt.Errorf("batch checking order existence: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, apperrors.ConnectionLost(fmt.Errorf("scanning existence row: %w", err))
		}
		result[domain.OrderReference(ref)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ConnectionLost(fmt.Errorf("iterating existence rows: %w", err))
	}
	return result, nil
}

// CreateOrder inserts the RMS order header and returns its id.
func (s *RmsStore) CreateOrder(ctx context.Context, header domain.OrderHeader, session domain.Session) (int64, error) {
	tx, err := txFrom(session)
	if err != nil {
		return 0, err
	}

	const query = `
		INSERT INTO rms_order (
			store_id, order_date, order_type, customer_id, total, tax, deposit,
			shipping_charge, reference_number, channel_type, closed,
			customer_email, shopify_order_id, shopify_order_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING order_id`

	var id int64
	err = tx.QueryRow(ctx, query,
		header.StoreID, header.Time, header.Type, header.CustomerID, header.Total, header.Tax, header.Deposit,
		header.ShippingChargeOnOrder, string(header.ReferenceNumber), header.ChannelType, header.Closed,
		header.CustomerEmail, header.ShopifyOrderID, header.ShopifyOrderName,
	).Scan(&id)
	if err != nil {
		return 0, classifyWriteError(err, "creating order")
	}
	return id, nil
}

// UpdateOrder overwrites the mutable fields of an existing order header.
func (s *RmsStore) UpdateOrder(ctx context.Context, id int64, header domain.OrderHeader, session domain.Session) error {
	tx, err := txFrom(session)
	if err != nil {
		return err
	}

	const query = `
		UPDATE rms_order SET
			total = $1, tax = $2, deposit = $3, shipping_charge = $4,
			customer_id = $5, customer_email = $6, closed = $7
		WHERE order_id = $8`

	_, err = tx.Exec(ctx, query,
		header.Total, header.Tax, header.Deposit, header.ShippingChargeOnOrder,
		header.CustomerID, header.CustomerEmail, header.Closed, id,
	)
	if err != nil {
		return classifyWriteError(err, "updating order")
	}
	return nil
}

// ListOrderEntries returns every current entry for an order, including
// zeroed shipping entries from a prior sync.
func (s *RmsStore) ListOrderEntries(ctx context.Context, orderID int64, session domain.Session) ([]domain.OrderEntry, error) {
	tx, err := txFrom(session)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT entry_id, order_id, item_id, price, full_price, quantity_on_order,
			quantity_rtd, taxable, description, sales_rep_id, discount_reason_code_id,
			return_reason_code_id, is_add_money, voucher_id, comment, price_source
		FROM rms_order_entry WHERE order_id = $1`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		return nil, classifyWriteError(err, "listing order entries")
	}
	defer rows.Close()

	var entries []domain.OrderEntry
	for rows.Next() {
		var e domain.OrderEntry
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.ItemID, &e.Price, &e.FullPrice, &e.QuantityOnOrder,
			&e.QuantityRTD, &e.Taxable, &e.Description, &e.SalesRepID, &e.DiscountReasonCodeID,
			&e.ReturnReasonCodeID, &e.IsAddMoney, &e.VoucherID, &e.Comment, &e.PriceSource,
		); err != nil {
			return nil, classifyWriteError(err, "scanning order entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyWriteError(err, "iterating order entries")
	}
	return entries, nil
}

// CreateOrderEntry inserts one order line and returns its id.
func (s *RmsStore) CreateOrderEntry(ctx context.Context, entry domain.OrderEntry, session domain.Session) (int64, error) {
	tx, err := txFrom(session)
	if err != nil {
		return 0, err
	}

	const query = `
		INSERT INTO rms_order_entry (
			order_id, item_id, price, full_price, quantity_on_order, quantity_rtd,
			taxable, description, sales_rep_id, discount_reason_code_id,
			return_reason_code_id, is_add_money, voucher_id, comment, price_source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING entry_id`

	var id int64
	err = tx.QueryRow(ctx, query,
		entry.OrderID, entry.ItemID, entry.Price, entry.FullPrice, entry.QuantityOnOrder, entry.QuantityRTD,
		entry.Taxable, entry.Description, entry.SalesRepID, entry.DiscountReasonCodeID,
		entry.ReturnReasonCodeID, entry.IsAddMoney, entry.VoucherID, entry.Comment, entry.PriceSource,
	).Scan(&id)
	if err != nil {
		return 0, classifyWriteError(err, "creating order entry")
	}
	return id, nil
}

// UpdateOrderEntry overwrites an existing order line in place.
func (s *RmsStore) UpdateOrderEntry(ctx context.Context, id int64, entry domain.OrderEntry, session domain.Session) error {
	tx, err := txFrom(session)
	if err != nil {
		return err
	}

	const query = `
		UPDATE rms_order_entry SET
			price = $1, full_price = $2, quantity_on_order = $3, quantity_rtd = $4,
			taxable = $5, description = $6
		WHERE entry_id = $7`

	_, err = tx.Exec(ctx, query,
		entry.Price, entry.FullPrice, entry.QuantityOnOrder, entry.QuantityRTD,
		entry.Taxable, entry.Description, id,
	)
	if err != nil {
		return classifyWriteError(err, "updating order entry")
	}
	return nil
}

// DeleteOrderEntry removes an orphaned order line.
func (s *RmsStore) DeleteOrderEntry(ctx context.Context, id int64, session domain.Session) error {
	tx, err := txFrom(session)
	if err != nil {
		return err
	}

	const query = `DELETE FROM rms_order_entry WHERE entry_id = $1`
	if _, err := tx.Exec(ctx, query, id); err != nil {
		return classifyWriteError(err, "deleting order entry")
	}
	return nil
}

// FindCustomerByEmail runs outside any transaction.
func (s *RmsStore) FindCustomerByEmail(ctx context.Context, email string) (*domain.CustomerRecord, error) {
	const query = `SELECT customer_id, email, first_name, last_name, phone FROM rms_customer WHERE email = $1`

	var rec domain.CustomerRecord
	err := s.db.Pool().QueryRow(ctx, query, email).Scan(&rec.ID, &rec.Email, &rec.FirstName, &rec.LastName, &rec.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.ConnectionLost(fmt.Errorf("finding customer by email: %w", err))
	}
	return &rec, nil
}

// CreateCustomer inserts a new RMS customer outside any transaction,
// mirroring findCustomerByEmail's scope. The insert itself does not
// check for an existing email; CustomerResolver looks the email up
// before calling it.
func (s *RmsStore) CreateCustomer(ctx context.Context, fields domain.CustomerRecord) (int64, error) {
	const query = `
		INSERT INTO rms_customer (email, first_name, last_name, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING customer_id`

	var id int64
	err := s.db.Pool().QueryRow(ctx, query, fields.Email, fields.FirstName, fields.LastName, fields.Phone).Scan(&id)
	if err != nil {
		return 0, classifyWriteError(err, "creating customer")
	}
	return id, nil
}

// ResolveItemIDBySku looks up the RMS item id for a SKU, outside any
// transaction since it's a pure lookup the converter treats as
// read-only.
func (s *RmsStore) ResolveItemIDBySku(ctx context.Context, sku string) (*int64, error) {
	const query = `SELECT item_id FROM rms_item WHERE sku = $1`

	var id int64
	err := s.db.Pool().QueryRow(ctx, query, sku).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.ConnectionLost(fmt.Errorf("resolving sku %q: %w", sku, err))
	}
	return &id, nil
}

// classifyWriteError distinguishes constraint violations (caller data
// problem, not retryable) from anything else (treated as a dropped
// connection, retryable).
func classifyWriteError(err error, action string) error {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "23505", "23503", "23514": // unique/foreign-key/check violation
			return apperrors.ConstraintViolation(fmt.Sprintf("%s: constraint violation", action), err)
		}
	}
	return apperrors.ConnectionLost(fmt.Errorf("%s: %w", action, err))
}
