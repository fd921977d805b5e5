package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/chat-order-service/internal/config"
	"github.com/fairyhunter13/chat-order-service/internal/http/openapi"
	"github.com/fairyhunter13/chat-order-service/internal/invoice"
	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/notify"
	"github.com/fairyhunter13/chat-order-service/internal/obs"
	"github.com/fairyhunter13/chat-order-service/internal/pipeline"
	"github.com/fairyhunter13/chat-order-service/internal/queue"
	"github.com/fairyhunter13/chat-order-service/internal/store"
)

// App carries the handler dependencies.
type App struct {
	Cfg     config.Config
	Store   store.Storage
	Pipe    *pipeline.Pipeline
	Hub     *notify.Hub
	Manager *queue.Manager
	closing bool
	started time.Time
}

// NewApp wires the HTTP layer to its collaborators.
func NewApp(cfg config.Config, st store.Storage, pipe *pipeline.Pipeline, hub *notify.Hub, m *queue.Manager) *App {
	return &App{Cfg: cfg, Store: st, Pipe: pipe, Hub: hub, Manager: m, started: time.Now()}
}

// StartShutdown stops intake before draining.
func (a *App) StartShutdown() {
	a.closing = true
	a.Manager.CloseIntake()
}

type ingestRequest struct {
	Channel         string `json:"channel"`
	BusinessAccount string `json:"businessAccount"`
	SenderRole      string `json:"senderRole"`
	From            string `json:"from"`
	Message         string `json:"message"`
}

// toMessage validates the request and applies defaults. Malformed
// input is rejected here, before the pipeline is involved.
func (in ingestRequest) toMessage() (model.IncomingMessage, string, string) {
	if in.Channel == "" {
		in.Channel = string(model.ChannelOther)
	}
	if in.SenderRole == "" {
		in.SenderRole = string(model.RoleCustomer)
	}
	switch model.Channel(in.Channel) {
	case model.ChannelWhatsApp, model.ChannelTelegram, model.ChannelOther:
	default:
		return model.IncomingMessage{}, "channel", "channel must be whatsapp, telegram, or other"
	}
	switch model.SenderRole(in.SenderRole) {
	case model.RoleCustomer, model.RoleAdmin:
	default:
		return model.IncomingMessage{}, "senderRole", "senderRole must be customer or admin"
	}
	if in.BusinessAccount == "" {
		return model.IncomingMessage{}, "businessAccount", "businessAccount is required"
	}
	if len(in.From) < 3 {
		return model.IncomingMessage{}, "from", "from must be at least 3 characters"
	}
	if in.Message == "" {
		return model.IncomingMessage{}, "message", "message is required"
	}
	return model.IncomingMessage{
		From:            in.From,
		Message:         in.Message,
		Channel:         model.Channel(in.Channel),
		BusinessAccount: in.BusinessAccount,
		SenderRole:      model.SenderRole(in.SenderRole),
	}, "", ""
}

// ingestChatHandler runs a message through the pipeline synchronously
// and returns the interpretation outcome. Zero detected items is a
// valid, non-error response.
func (a *App) ingestChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	msg, field, details := req.toMessage()
	if field != "" {
		WriteValidationError(w, field, details)
		return
	}
	res, err := a.Pipe.Process(r.Context(), msg)
	if err != nil {
		obs.Logger.Error("pipeline_error", "error", err, "request_id", RequestIDFromContext(r.Context()))
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// webhookHandler is the minimal ingestion endpoint: only sender and
// body, everything else defaulted.
func (a *App) webhookHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From    string `json:"from"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req.From) < 3 {
		WriteValidationError(w, "from", "from must be at least 3 characters")
		return
	}
	if req.Message == "" {
		WriteValidationError(w, "message", "message is required")
		return
	}
	res, err := a.Pipe.Process(r.Context(), model.IncomingMessage{
		From:            req.From,
		Message:         req.Message,
		Channel:         model.ChannelWhatsApp,
		BusinessAccount: "default-webhook",
		SenderRole:      model.RoleCustomer,
	})
	if err != nil {
		obs.Logger.Error("pipeline_error", "error", err, "request_id", RequestIDFromContext(r.Context()))
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": res.Success, "orderCreated": res.OrderCreated})
}

const twimlAck = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Message></Message>
</Response>`

// twilioWebhookHandler acks immediately and drains the message through
// the worker pool; the TwiML response never carries the parse outcome.
func (a *App) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing || a.Manager.IsShuttingDown() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	if err := r.ParseForm(); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_form", err.Error())
		return
	}
	from := strings.TrimPrefix(r.PostFormValue("From"), "whatsapp:")
	body := r.PostFormValue("Body")
	if from == "" || body == "" {
		WriteValidationError(w, "From", "From and Body are required")
		return
	}
	seq := a.Manager.NextSequence()
	ok := a.Manager.Enqueue(model.IncomingMessage{
		From:            from,
		Message:         body,
		Channel:         model.ChannelWhatsApp,
		BusinessAccount: "default",
		SenderRole:      model.RoleCustomer,
	})
	if !ok {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	obs.Logger.Info("webhook_accepted",
		"sequence", seq,
		"from", from,
		"backlog_size", a.Manager.BacklogSize(),
		"worker_count", a.Manager.WorkerCount(),
		"request_id", RequestIDFromContext(r.Context()),
	)
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(twimlAck))
}

func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.Store.GetOrders(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	messages, err := a.Store.GetMessages(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	var totalRevenue int64
	pending := 0
	for _, o := range orders {
		switch o.Status {
		case model.OrderStatusPaid:
			totalRevenue += o.TotalAmount
		case model.OrderStatusPending:
			pending++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalRevenue":   totalRevenue,
		"totalOrders":    len(orders),
		"pendingOrders":  pending,
		"recentMessages": len(messages),
	})
}

func (a *App) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.Store.GetOrders(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(orders))
}

func (a *App) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteValidationError(w, "id", "order id must be an integer")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Status != model.OrderStatusPending && req.Status != model.OrderStatusPaid {
		WriteValidationError(w, "status", "status must be pending or paid")
		return
	}
	order, err := a.Store.UpdateOrderStatus(r.Context(), id, req.Status)
	if errors.Is(err, store.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *App) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := a.Store.GetCustomers(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(customers))
}

func (a *App) listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := a.Store.GetMessages(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(messages))
}

func (a *App) deleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteValidationError(w, "id", "message id must be an integer")
		return
	}
	err = a.Pipe.DeleteMessage(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "message not found")
		return
	}
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *App) deleteAllMessagesHandler(w http.ResponseWriter, r *http.Request) {
	n, err := a.Store.DeleteAllMessages(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}

func (a *App) listInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	invoices, err := a.Store.GetInvoices(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(invoices))
}

// invoiceHTMLHandler renders the printable invoice document.
func (a *App) invoiceHTMLHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteValidationError(w, "id", "invoice id must be an integer")
		return
	}
	inv, err := a.Store.GetInvoice(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "invoice not found")
		return
	}
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	order, err := a.Store.GetOrder(r.Context(), inv.OrderID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	html, err := invoice.RenderHTML(*inv, order)
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

// eventsHandler streams hub broadcasts to the client as server-sent
// events. Delivery is best-effort; a slow client is pruned by the hub.
func (a *App) eventsHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteJSONError(w, http.StatusInternalServerError, "streaming_unsupported", "")
		return
	}
	id, ch := a.Hub.Subscribe()
	defer a.Hub.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case env, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(env.Payload)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Event, data)
			flusher.Flush()
		}
	}
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	enq, proc, backlog, depth := a.Manager.QueueMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"webhook_enqueued":  enq,
		"webhook_processed": proc,
		"backlog_size":      backlog,
		"queue_depth":       depth,
		"worker_count":      a.Manager.WorkerCount(),
		"subscribers":       a.Hub.SubscriberCount(),
		"uptime_sec":        time.Since(a.started).Seconds(),
	})
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// emptyIfNil keeps list endpoints returning [] instead of null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
