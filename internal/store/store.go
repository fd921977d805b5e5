// Package store defines the persistence contract of the service and
// provides the in-memory implementation.
package store

import (
	"context"
	"errors"

	"github.com/fairyhunter13/chat-order-service/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Storage is the persistence collaborator of the pipeline and the HTTP
// layer. Implementations must be safe for concurrent use. There is no
// cross-message locking; concurrent messages can interleave catalog
// reads and writes.
type Storage interface {
	GetCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error)
	CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error)

	GetOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	CreateOrder(ctx context.Context, o model.Order) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error

	GetInvoices(ctx context.Context) ([]model.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*model.Invoice, error)
	GetInvoiceByOrder(ctx context.Context, orderID int64) (*model.Invoice, error)
	CreateInvoice(ctx context.Context, inv model.Invoice) (model.Invoice, error)
	DeleteInvoiceByOrder(ctx context.Context, orderID int64) error

	GetMessages(ctx context.Context) ([]model.MessageRecord, error)
	GetMessage(ctx context.Context, id int64) (*model.MessageRecord, error)
	CreateMessage(ctx context.Context, m model.MessageRecord) (model.MessageRecord, error)
	DeleteMessage(ctx context.Context, id int64) error
	DeleteAllMessages(ctx context.Context) (int, error)

	GetProductPrices(ctx context.Context, businessAccount string) ([]model.ProductPrice, error)
	UpsertProductPrice(ctx context.Context, p model.ProductPrice) (model.ProductPrice, error)
}
