// Package pipeline orchestrates the interpretation of one incoming
// message: catalog build, price updates, order extraction, arbitration,
// persistence, and notification.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/fairyhunter13/chat-order-service/internal/catalog"
	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/notify"
	"github.com/fairyhunter13/chat-order-service/internal/obs"
	"github.com/fairyhunter13/chat-order-service/internal/parser"
	"github.com/fairyhunter13/chat-order-service/internal/store"
)

// orderConfidenceGate is the minimum confidence for order creation.
const orderConfidenceGate = 0.5

// gstRateBasisPoints is the GST applied to order totals (18%).
const gstRateBasisPoints = 18

// EventMessageProcessed is the broadcast event name.
const EventMessageProcessed = "message_processed"

// Pipeline is the only component with side effects; all parsing layers
// below it are pure functions over their inputs.
type Pipeline struct {
	store store.Storage
	sink  notify.Sink
	arb   *parser.Arbitrator
}

// New wires the pipeline to its collaborators.
func New(st store.Storage, sink notify.Sink, fallbackEnabled bool) *Pipeline {
	return &Pipeline{store: st, sink: sink, arb: parser.NewArbitrator(fallbackEnabled)}
}

// Process runs one message through the pipeline. Parsing never fails:
// a message with nothing understood still yields a successful result
// with zero items and baseline confidence. Only persistence errors
// propagate to the caller.
func (p *Pipeline) Process(ctx context.Context, in model.IncomingMessage) (model.ProcessResult, error) {
	orders, err := p.store.GetOrders(ctx)
	if err != nil {
		return model.ProcessResult{}, fmt.Errorf("load orders: %w", err)
	}
	prices, err := p.store.GetProductPrices(ctx, in.BusinessAccount)
	if err != nil {
		return model.ProcessResult{}, fmt.Errorf("load product prices: %w", err)
	}
	cat := catalog.Build(prices, orders)

	parsed := model.ParseResult{ConfidenceScore: parser.ConfidenceNone}
	switch in.SenderRole {
	case model.RoleAdmin:
		// Admin messages are price updates, never orders.
		if err := p.applyPriceUpdates(ctx, in, cat); err != nil {
			return model.ProcessResult{}, err
		}
	default:
		parsed = parser.ParseOrder(in.Message, cat)
		parsed = p.arb.Arbitrate(in.Message, cat, in.SenderRole, parsed)
	}

	customer, err := p.resolveCustomer(ctx, in.From)
	if err != nil {
		return model.ProcessResult{}, err
	}

	orderCreated := false
	var orderID *int64
	if in.SenderRole == model.RoleCustomer && parsed.ConfidenceScore > orderConfidenceGate && len(parsed.Items) > 0 {
		order, err := p.createOrderWithInvoice(ctx, customer.ID, parsed)
		if err != nil {
			return model.ProcessResult{}, err
		}
		orderCreated = true
		orderID = &order.ID
	}

	_, err = p.store.CreateMessage(ctx, model.MessageRecord{
		FromNumber:  in.From,
		MessageBody: in.Message,
		Parsed: model.ParsedData{
			Items:           parsed.Items,
			Channel:         in.Channel,
			BusinessAccount: in.BusinessAccount,
			SenderRole:      in.SenderRole,
		},
		ConfidenceScore: parsed.ConfidenceScore,
		OrderCreated:    orderCreated,
		OrderID:         orderID,
	})
	if err != nil {
		return model.ProcessResult{}, fmt.Errorf("persist message: %w", err)
	}

	p.sink.Broadcast(EventMessageProcessed, notify.MessageProcessed{
		Channel:         in.Channel,
		BusinessAccount: in.BusinessAccount,
		SenderRole:      in.SenderRole,
		From:            in.From,
		OrderCreated:    orderCreated,
		ItemsDetected:   len(parsed.Items),
		ConfidenceScore: parsed.ConfidenceScore,
		Timestamp:       time.Now().UTC(),
	})

	return model.ProcessResult{
		Success:         true,
		OrderCreated:    orderCreated,
		ConfidenceScore: parsed.ConfidenceScore,
		ItemsDetected:   len(parsed.Items),
	}, nil
}

// applyPriceUpdates extracts admin price statements, upserts them into
// the persisted catalog, and reflects them into the in-memory view for
// the remainder of this message.
func (p *Pipeline) applyPriceUpdates(ctx context.Context, in model.IncomingMessage, cat *catalog.Catalog) error {
	updates := parser.ExtractPriceUpdates(in.Message)
	for _, u := range updates {
		_, err := p.store.UpsertProductPrice(ctx, model.ProductPrice{
			BusinessAccount: in.BusinessAccount,
			ProductName:     u.NormalizedName,
			NormalizedName:  u.NormalizedName,
			UnitPrice:       u.UnitPrice,
		})
		if err != nil {
			return fmt.Errorf("upsert product price: %w", err)
		}
		cat.Set(u.NormalizedName, u.UnitPrice)
		obs.Logger.Info("price_updated",
			"business_account", in.BusinessAccount,
			"product", u.NormalizedName,
			"unit_price", u.UnitPrice,
		)
	}
	return nil
}

// resolveCustomer finds the sender by exact identifier match or creates
// a new customer record.
func (p *Pipeline) resolveCustomer(ctx context.Context, from string) (*model.Customer, error) {
	customer, err := p.store.GetCustomerByPhone(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	if customer != nil {
		return customer, nil
	}
	created, err := p.store.CreateCustomer(ctx, model.Customer{PhoneNumber: from})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &created, nil
}

// createOrderWithInvoice persists a pending order plus its issued
// invoice. GST is 18% of the order total, rounded to the nearest paisa
// in integer arithmetic.
func (p *Pipeline) createOrderWithInvoice(ctx context.Context, customerID int64, parsed model.ParseResult) (model.Order, error) {
	order, err := p.store.CreateOrder(ctx, model.Order{
		CustomerID:  customerID,
		TotalAmount: parsed.TotalAmount,
		Status:      model.OrderStatusPending,
		Items:       parsed.Items,
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}

	gst := GST(parsed.TotalAmount)
	_, err = p.store.CreateInvoice(ctx, model.Invoice{
		OrderID:       order.ID,
		InvoiceNumber: fmt.Sprintf("INV-%d-%d", time.Now().UnixMilli(), order.ID),
		TotalAmount:   parsed.TotalAmount + gst,
		GSTAmount:     gst,
		Status:        model.InvoiceStatusIssued,
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("create invoice: %w", err)
	}
	return order, nil
}

// GST computes 18% of an amount in paise, rounded to the nearest paisa.
func GST(totalPaise int64) int64 {
	return (totalPaise*gstRateBasisPoints + 50) / 100
}

// DeleteMessage removes a message and, via the explicit order
// reference, exactly the order and invoice created from it. Messages
// from the same customer are never inferred as related by timing.
func (p *Pipeline) DeleteMessage(ctx context.Context, id int64) error {
	msg, err := p.store.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if msg.OrderID != nil {
		if err := p.store.DeleteInvoiceByOrder(ctx, *msg.OrderID); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		if err := p.store.DeleteOrder(ctx, *msg.OrderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
	}
	return p.store.DeleteMessage(ctx, id)
}
