package httpapi

import (
	"expvar"
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
// Only the ingestion endpoints sit behind the rate limiter.
func NewRouter(app *App) http.Handler {
	rl := NewRateLimiter(app.Cfg.RateLimitRPS, app.Cfg.RateLimitBurst)

	mux := http.NewServeMux()
	mux.Handle("POST /api/ingest-chat", rl.Middleware(http.HandlerFunc(app.ingestChatHandler)))
	mux.Handle("POST /webhook", rl.Middleware(http.HandlerFunc(app.webhookHandler)))
	mux.Handle("POST /webhooks/twilio-whatsapp", rl.Middleware(http.HandlerFunc(app.twilioWebhookHandler)))

	mux.HandleFunc("GET /api/stats", app.statsHandler)
	mux.HandleFunc("GET /api/orders", app.listOrdersHandler)
	mux.HandleFunc("PATCH /api/orders/{id}/status", app.updateOrderStatusHandler)
	mux.HandleFunc("GET /api/customers", app.listCustomersHandler)
	mux.HandleFunc("GET /api/messages", app.listMessagesHandler)
	mux.HandleFunc("DELETE /api/messages/{id}", app.deleteMessageHandler)
	mux.HandleFunc("DELETE /api/messages", app.deleteAllMessagesHandler)
	mux.HandleFunc("GET /api/invoices", app.listInvoicesHandler)
	mux.HandleFunc("GET /api/invoices/{id}/html", app.invoiceHTMLHandler)
	mux.HandleFunc("GET /api/events", app.eventsHandler)

	mux.HandleFunc("GET /healthz", app.healthHandler)
	mux.HandleFunc("GET /debug/metrics", app.metricsHandler)
	mux.Handle("GET /debug/vars", expvar.Handler())
	mux.HandleFunc("GET /openapi.yaml", app.openapiHandler)
	mux.HandleFunc("GET /docs", app.docsHandler)

	return WithRequestID(WithLogging(mux))
}
