package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/chat-order-service/internal/config"
	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/notify"
	"github.com/fairyhunter13/chat-order-service/internal/pipeline"
	"github.com/fairyhunter13/chat-order-service/internal/queue"
	"github.com/fairyhunter13/chat-order-service/internal/store"
)

type testEnv struct {
	app    *App
	srv    http.Handler
	store  *store.Memory
	hub    *notify.Hub
	mgr    *queue.Manager
	cancel context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Load()
	st := store.NewMemory()
	hub := notify.NewHub(4)
	pipe := pipeline.New(st, hub, cfg.FallbackParserEnabled)
	q := queue.New(16)
	mgr := queue.NewManager(cfg, q, pipe)
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	t.Cleanup(func() {
		cancel()
		mgr.Stop()
	})
	app := NewApp(cfg, st, pipe, hub, mgr)
	return &testEnv{app: app, srv: NewRouter(app), store: st, hub: hub, mgr: mgr, cancel: cancel}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestIngestChatValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name string
		body string
	}{
		{"missing from", `{"message":"hi","businessAccount":"a"}`},
		{"short from", `{"from":"ab","message":"hi","businessAccount":"a"}`},
		{"missing message", `{"from":"+911234567890","businessAccount":"a"}`},
		{"missing business account", `{"from":"+911234567890","message":"hi"}`},
		{"bad channel", `{"from":"+911234567890","message":"hi","businessAccount":"a","channel":"fax"}`},
		{"bad role", `{"from":"+911234567890","message":"hi","businessAccount":"a","senderRole":"bot"}`},
		{"unknown field", `{"from":"+911234567890","message":"hi","businessAccount":"a","extra":1}`},
		{"malformed json", `{`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/ingest-chat", c.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestIngestChatCreatesOrder(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/ingest-chat",
		`{"from":"+911234567890","message":"2 saree 1200 each","businessAccount":"acct"}`)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeJSON[model.ProcessResult](t, w)
	assert.True(t, res.Success)
	assert.True(t, res.OrderCreated)
	assert.Equal(t, 1, res.ItemsDetected)
}

func TestIngestChatZeroItemsIsStillOK(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/ingest-chat",
		`{"from":"+911234567890","message":"hello there","businessAccount":"acct"}`)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeJSON[model.ProcessResult](t, w)
	assert.True(t, res.Success)
	assert.False(t, res.OrderCreated)
	assert.Zero(t, res.ItemsDetected)
}

func TestWebhookDefaultsMetadata(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/webhook",
		`{"from":"+911234567890","message":"2 saree 1200 each"}`)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeJSON[map[string]bool](t, w)
	assert.True(t, res["success"])
	assert.True(t, res["orderCreated"])

	msgs, err := env.store.GetMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.ChannelWhatsApp, msgs[0].Parsed.Channel)
	assert.Equal(t, "default-webhook", msgs[0].Parsed.BusinessAccount)
}

func TestTwilioWebhookAcksWithTwiML(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio-whatsapp",
		strings.NewReader("From=whatsapp%3A%2B911234567890&Body=2+saree+1200+each"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<Response>")

	// The message drains through the worker pool.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.True(t, env.mgr.DrainUntil(ctx))

	orders, err := env.store.GetOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(240000), orders[0].TotalAmount)
}

func TestTwilioWebhookRejectedWhenShuttingDown(t *testing.T) {
	env := newTestEnv(t)
	env.app.StartShutdown()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio-whatsapp",
		strings.NewReader("From=%2B911234567890&Body=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/ingest-chat",
		`{"from":"+911234567890","message":"2 saree 1200 each","businessAccount":"acct"}`)
	require.Equal(t, http.StatusOK, w.Code)

	orders, err := env.store.GetOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)

	// Pending orders count but do not contribute revenue.
	w = env.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeJSON[map[string]float64](t, w)
	assert.Equal(t, float64(0), stats["totalRevenue"])
	assert.Equal(t, float64(1), stats["totalOrders"])
	assert.Equal(t, float64(1), stats["pendingOrders"])
	assert.Equal(t, float64(1), stats["recentMessages"])

	w = env.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/%d/status", orders[0].ID), `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/stats", "")
	stats = decodeJSON[map[string]float64](t, w)
	assert.Equal(t, float64(240000), stats["totalRevenue"])
	assert.Equal(t, float64(0), stats["pendingOrders"])
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPatch, "/api/orders/99/status", `{"status":"paid"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPatch, "/api/orders/99/status", `{"status":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/api/orders/abc/status", `{"status":"paid"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEndpointsReturnEmptyArrays(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/orders", "/api/customers", "/api/messages", "/api/invoices"} {
		w := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "[]\n", w.Body.String(), path)
	}
}

func TestDeleteMessageCascade(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/ingest-chat",
		`{"from":"+911234567890","message":"2 saree 1200 each","businessAccount":"acct"}`)
	require.Equal(t, http.StatusOK, w.Code)

	msgs, err := env.store.GetMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/messages/%d", msgs[0].ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	orders, err := env.store.GetOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/messages/%d", msgs[0].ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAllMessages(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodPost, "/api/ingest-chat",
			fmt.Sprintf(`{"from":"+91123456789%d","message":"hello","businessAccount":"acct"}`, i))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(t, http.MethodDelete, "/api/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeJSON[map[string]any](t, w)
	assert.Equal(t, float64(3), res["deleted"])
}

func TestInvoiceHTML(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/ingest-chat",
		`{"from":"+911234567890","message":"2 saree 1200 each","businessAccount":"acct"}`)
	require.Equal(t, http.StatusOK, w.Code)

	invoices, err := env.store.GetInvoices(context.Background())
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/invoices/%d/html", invoices[0].ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Tax Invoice")
	assert.Contains(t, w.Body.String(), "saree")

	w = env.do(t, http.MethodGet, "/api/invoices/999/html", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeJSON[map[string]string](t, w)
	assert.Equal(t, "ok", res["status"])
}

func TestDebugMetrics(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/debug/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeJSON[map[string]any](t, w)
	assert.Contains(t, res, "worker_count")
	assert.Contains(t, res, "backlog_size")
	assert.Contains(t, res, "subscribers")
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		env.srv.ServeHTTP(w, req)
		close(done)
	}()

	// Wait for the subscription before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.NotZero(t, env.hub.SubscriberCount())

	env.hub.Broadcast(pipeline.EventMessageProcessed, notify.MessageProcessed{From: "+911234567890"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Contains(t, body, "event: message_processed")
	assert.Contains(t, body, `"from":"+911234567890"`)
}

func TestOpenAPIServed(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = env.do(t, http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")
}
