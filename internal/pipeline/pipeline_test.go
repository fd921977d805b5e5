package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/store"
)

type recordingSink struct {
	events []string
}

func (r *recordingSink) Broadcast(event string, payload any) {
	r.events = append(r.events, event)
}

func newTestPipeline() (*Pipeline, *store.Memory, *recordingSink) {
	st := store.NewMemory()
	sink := &recordingSink{}
	return New(st, sink, true), st, sink
}

func customerMsg(from, text string) model.IncomingMessage {
	return model.IncomingMessage{
		From:            from,
		Message:         text,
		Channel:         model.ChannelWhatsApp,
		BusinessAccount: "acct",
		SenderRole:      model.RoleCustomer,
	}
}

func adminMsg(text string) model.IncomingMessage {
	m := customerMsg("+919999999999", text)
	m.SenderRole = model.RoleAdmin
	return m
}

func TestProcessExplicitOrderCreatesOrderAndInvoice(t *testing.T) {
	p, st, sink := newTestPipeline()
	ctx := context.Background()

	res, err := p.Process(ctx, customerMsg("+911234567890", "2 saree 1200 each"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.OrderCreated)
	assert.Equal(t, 1, res.ItemsDetected)
	assert.InDelta(t, 0.92, res.ConfidenceScore, 1e-9)

	orders, err := st.GetOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(240000), orders[0].TotalAmount)
	assert.Equal(t, model.OrderStatusPending, orders[0].Status)

	invoices, err := st.GetInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, int64(43200), invoices[0].GSTAmount)
	assert.Equal(t, int64(283200), invoices[0].TotalAmount)
	assert.Equal(t, model.InvoiceStatusIssued, invoices[0].Status)
	assert.True(t, strings.HasPrefix(invoices[0].InvoiceNumber, "INV-"))

	assert.Equal(t, []string{EventMessageProcessed}, sink.events)
}

func TestProcessLowConfidenceCreatesNoOrder(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	res, err := p.Process(ctx, customerMsg("+911234567890", "hello, is the shop open?"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.OrderCreated)
	assert.Zero(t, res.ItemsDetected)

	orders, _ := st.GetOrders(ctx)
	assert.Empty(t, orders)

	// The message is still recorded for the audit trail.
	msgs, _ := st.GetMessages(ctx)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].OrderID)
}

func TestProcessAdminPriceUpdate(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	res, err := p.Process(ctx, adminMsg("update kurti price to 450"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.OrderCreated)
	assert.Zero(t, res.ItemsDetected)

	prices, err := st.GetProductPrices(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "kurti", prices[0].NormalizedName)
	assert.Equal(t, int64(45000), prices[0].UnitPrice)
}

func TestProcessAdminNeverCreatesOrders(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	// An admin message shaped exactly like an order stays an update-only
	// message.
	res, err := p.Process(ctx, adminMsg("2 saree 1200"))
	require.NoError(t, err)
	assert.False(t, res.OrderCreated)
	assert.Zero(t, res.ItemsDetected)

	orders, _ := st.GetOrders(ctx)
	assert.Empty(t, orders)
}

func TestProcessPriceUpdateThenCatalogOrder(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	_, err := p.Process(ctx, adminMsg("update kurti price to 450"))
	require.NoError(t, err)

	res, err := p.Process(ctx, customerMsg("+911234567890", "I want 2 kurti"))
	require.NoError(t, err)
	assert.True(t, res.OrderCreated)
	assert.Equal(t, 1, res.ItemsDetected)

	orders, _ := st.GetOrders(ctx)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(90000), orders[0].TotalAmount)
}

func TestProcessHinglishFallbackOrder(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	_, err := p.Process(ctx, adminMsg("update kurti price to 450"))
	require.NoError(t, err)

	res, err := p.Process(ctx, customerMsg("+911234567890", "mujhe 2 kurti chahiye"))
	require.NoError(t, err)
	assert.True(t, res.OrderCreated)
	assert.InDelta(t, 0.85, res.ConfidenceScore, 1e-9)

	orders, _ := st.GetOrders(ctx)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "kurti", orders[0].Items[0].Name)
	assert.Equal(t, int64(90000), orders[0].TotalAmount)
}

func TestProcessFallbackDisabled(t *testing.T) {
	st := store.NewMemory()
	p := New(st, &recordingSink{}, false)
	ctx := context.Background()

	_, err := p.Process(ctx, adminMsg("update kurti price to 450"))
	require.NoError(t, err)

	// Phase 2 still prices "kurti chahiye" through the catalog, so the
	// order is created, but the fallback never cleans up the item name.
	res, err := p.Process(ctx, customerMsg("+911234567890", "mujhe 2 kurti chahiye"))
	require.NoError(t, err)
	assert.True(t, res.OrderCreated)
	assert.InDelta(t, 0.76, res.ConfidenceScore, 1e-9)
}

func TestProcessReusesExistingCustomer(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	_, err := p.Process(ctx, customerMsg("+911234567890", "2 saree 1200 each"))
	require.NoError(t, err)
	_, err = p.Process(ctx, customerMsg("+911234567890", "1 saree 1200"))
	require.NoError(t, err)

	customers, _ := st.GetCustomers(ctx)
	assert.Len(t, customers, 1)

	orders, _ := st.GetOrders(ctx)
	assert.Len(t, orders, 2)
}

func TestProcessOrderPriceOverridesStaleCatalog(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	_, err := p.Process(ctx, adminMsg("update saree price to 1000"))
	require.NoError(t, err)

	// An explicit order price becomes the new effective price.
	_, err = p.Process(ctx, customerMsg("+911234567890", "1 saree 1200"))
	require.NoError(t, err)

	res, err := p.Process(ctx, customerMsg("+911234567891", "I want 2 saree"))
	require.NoError(t, err)
	assert.True(t, res.OrderCreated)

	orders, _ := st.GetOrders(ctx)
	// Newest first: the catalog-priced order used the observed 1200.
	assert.Equal(t, int64(240000), orders[0].TotalAmount)
}

func TestGST(t *testing.T) {
	cases := []struct {
		total int64
		want  int64
	}{
		{0, 0},
		{100, 18},
		{240000, 43200},
		{1, 0},  // 0.18 paise rounds down
		{3, 1},  // 0.54 paise rounds up
		{50, 9}, // exact
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GST(c.total), "GST(%d)", c.total)
	}
}

func TestDeleteMessageCascades(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	_, err := p.Process(ctx, customerMsg("+911234567890", "2 saree 1200 each"))
	require.NoError(t, err)

	msgs, _ := st.GetMessages(ctx)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].OrderID)

	require.NoError(t, p.DeleteMessage(ctx, msgs[0].ID))

	orders, _ := st.GetOrders(ctx)
	assert.Empty(t, orders)
	invoices, _ := st.GetInvoices(ctx)
	assert.Empty(t, invoices)
	msgs, _ = st.GetMessages(ctx)
	assert.Empty(t, msgs)
}

func TestDeleteMessageWithoutOrder(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	_, err := p.Process(ctx, customerMsg("+911234567890", "hello"))
	require.NoError(t, err)
	msgs, _ := st.GetMessages(ctx)
	require.Len(t, msgs, 1)

	require.NoError(t, p.DeleteMessage(ctx, msgs[0].ID))
	assert.ErrorIs(t, p.DeleteMessage(ctx, msgs[0].ID), store.ErrNotFound)
}

func TestDeleteMessageKeepsUnrelatedOrders(t *testing.T) {
	p, st, _ := newTestPipeline()
	ctx := context.Background()

	_, err := p.Process(ctx, customerMsg("+911234567890", "2 saree 1200 each"))
	require.NoError(t, err)
	_, err = p.Process(ctx, customerMsg("+911234567890", "1 dupatta 400"))
	require.NoError(t, err)

	msgs, _ := st.GetMessages(ctx)
	require.Len(t, msgs, 2)

	// Delete the newest message; the older order survives.
	require.NoError(t, p.DeleteMessage(ctx, msgs[0].ID))

	orders, _ := st.GetOrders(ctx)
	assert.Len(t, orders, 1)
	invoices, _ := st.GetInvoices(ctx)
	assert.Len(t, invoices, 1)
}
