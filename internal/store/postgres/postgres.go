// Package postgres implements the storage contract on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/store"
)

// Store is a Storage implementation backed by *sql.DB.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(db), nil
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			phone_number TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			total_amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			items JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL,
			invoice_number TEXT NOT NULL UNIQUE,
			total_amount BIGINT NOT NULL,
			gst_amount BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'issued',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			from_number TEXT NOT NULL,
			message_body TEXT NOT NULL,
			parsed_data JSONB NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			is_order_created BOOLEAN NOT NULL DEFAULT FALSE,
			order_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS product_prices (
			id BIGSERIAL PRIMARY KEY,
			business_account TEXT NOT NULL,
			product_name TEXT NOT NULL,
			normalized_name TEXT NOT NULL,
			unit_price BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (business_account, normalized_name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

func (s *Store) GetCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, phone_number, name, created_at FROM customers ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var out []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	var c model.Customer
	err := s.db.QueryRowContext(ctx,
		"SELECT id, phone_number, name, created_at FROM customers WHERE phone_number = $1", phone).
		Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error) {
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO customers (phone_number, name) VALUES ($1, $2) RETURNING id, created_at",
		c.PhoneNumber, c.Name).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return model.Customer{}, fmt.Errorf("failed to insert customer: %w", err)
	}
	return c, nil
}

func (s *Store) GetOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, customer_id, total_amount, status, items, created_at FROM orders ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, customer_id, total_amount, status, items, created_at FROM orders WHERE id = $1", id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to marshal order items: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		"INSERT INTO orders (customer_id, total_amount, status, items) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		o.CustomerID, o.TotalAmount, o.Status, items).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"UPDATE orders SET status = $2 WHERE id = $1 RETURNING id, customer_id, total_amount, status, items, created_at",
		id, status)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

func (s *Store) GetInvoices(ctx context.Context) ([]model.Invoice, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, order_id, invoice_number, total_amount, gst_amount, status, created_at FROM invoices ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.OrderID, &inv.InvoiceNumber, &inv.TotalAmount, &inv.GSTAmount, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.db.QueryRowContext(ctx,
		"SELECT id, order_id, invoice_number, total_amount, gst_amount, status, created_at FROM invoices WHERE id = $1", id).
		Scan(&inv.ID, &inv.OrderID, &inv.InvoiceNumber, &inv.TotalAmount, &inv.GSTAmount, &inv.Status, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}
	return &inv, nil
}

func (s *Store) GetInvoiceByOrder(ctx context.Context, orderID int64) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.db.QueryRowContext(ctx,
		"SELECT id, order_id, invoice_number, total_amount, gst_amount, status, created_at FROM invoices WHERE order_id = $1",
		orderID).
		Scan(&inv.ID, &inv.OrderID, &inv.InvoiceNumber, &inv.TotalAmount, &inv.GSTAmount, &inv.Status, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}
	return &inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv model.Invoice) (model.Invoice, error) {
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO invoices (order_id, invoice_number, total_amount, gst_amount, status) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		inv.OrderID, inv.InvoiceNumber, inv.TotalAmount, inv.GSTAmount, inv.Status).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return model.Invoice{}, fmt.Errorf("failed to insert invoice: %w", err)
	}
	return inv, nil
}

func (s *Store) DeleteInvoiceByOrder(ctx context.Context, orderID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM invoices WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}

func (s *Store) GetMessages(ctx context.Context) ([]model.MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, from_number, message_body, parsed_data, confidence_score, is_order_created, order_id, created_at FROM messages ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []model.MessageRecord
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMessage(ctx context.Context, id int64) (*model.MessageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, from_number, message_body, parsed_data, confidence_score, is_order_created, order_id, created_at FROM messages WHERE id = $1", id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) CreateMessage(ctx context.Context, m model.MessageRecord) (model.MessageRecord, error) {
	parsed, err := json.Marshal(m.Parsed)
	if err != nil {
		return model.MessageRecord{}, fmt.Errorf("failed to marshal parsed data: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		"INSERT INTO messages (from_number, message_body, parsed_data, confidence_score, is_order_created, order_id) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		m.FromNumber, m.MessageBody, parsed, m.ConfidenceScore, m.OrderCreated, m.OrderID).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return model.MessageRecord{}, fmt.Errorf("failed to insert message: %w", err)
	}
	return m, nil
}

func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAllMessages(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages")
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) GetProductPrices(ctx context.Context, businessAccount string) ([]model.ProductPrice, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, business_account, product_name, normalized_name, unit_price, created_at, updated_at FROM product_prices WHERE business_account = $1 ORDER BY normalized_name",
		businessAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to query product prices: %w", err)
	}
	defer rows.Close()

	var out []model.ProductPrice
	for rows.Next() {
		var p model.ProductPrice
		if err := rows.Scan(&p.ID, &p.BusinessAccount, &p.ProductName, &p.NormalizedName, &p.UnitPrice, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpsertProductPrice(ctx context.Context, p model.ProductPrice) (model.ProductPrice, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO product_prices (business_account, product_name, normalized_name, unit_price)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (business_account, normalized_name)
		 DO UPDATE SET product_name = EXCLUDED.product_name, unit_price = EXCLUDED.unit_price, updated_at = now()
		 RETURNING id, created_at, updated_at`,
		p.BusinessAccount, p.ProductName, p.NormalizedName, p.UnitPrice).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.ProductPrice{}, fmt.Errorf("failed to upsert product price: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.Order, error) {
	var o model.Order
	var items []byte
	if err := row.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &items, &o.CreatedAt); err != nil {
		return model.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("failed to decode order items: %w", err)
	}
	return o, nil
}

func scanMessage(row rowScanner) (model.MessageRecord, error) {
	var m model.MessageRecord
	var parsed []byte
	if err := row.Scan(&m.ID, &m.FromNumber, &m.MessageBody, &parsed, &m.ConfidenceScore, &m.OrderCreated, &m.OrderID, &m.CreatedAt); err != nil {
		return model.MessageRecord{}, err
	}
	if err := json.Unmarshal(parsed, &m.Parsed); err != nil {
		return model.MessageRecord{}, fmt.Errorf("failed to decode parsed data: %w", err)
	}
	return m, nil
}
