// Package api exposes the admin HTTP surface: login, pending-order
// management, the delivery and dashboard read models, reconciliation and menu
// maintenance. All responses are JSON; mutating routes sit behind the admin
// token middleware.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"wavefood-admin/internal/auth"
	"wavefood-admin/internal/dashboard"
	"wavefood-admin/internal/delivery"
	"wavefood-admin/internal/earnings"
	"wavefood-admin/internal/ingest"
	"wavefood-admin/internal/lifecycle"
	"wavefood-admin/internal/logger"
	"wavefood-admin/internal/menu"
	"wavefood-admin/internal/middleware"
)

type Server struct {
	auth       *auth.Authenticator
	pending    *ingest.Service
	machine    *lifecycle.Machine
	deliveries *delivery.Projection
	earnings   *earnings.Aggregator
	dashboard  *dashboard.Service
	menu       menu.Service
}

func NewServer(
	a *auth.Authenticator,
	pending *ingest.Service,
	machine *lifecycle.Machine,
	deliveries *delivery.Projection,
	agg *earnings.Aggregator,
	dash *dashboard.Service,
	m menu.Service,
) *Server {
	return &Server{
		auth:       a,
		pending:    pending,
		machine:    machine,
		deliveries: deliveries,
		earnings:   agg,
		dashboard:  dash,
		menu:       m,
	}
}

// Routes assembles the router with the full middleware chain. Reads are open;
// every mutation requires a valid admin token.
func (s *Server) Routes() http.Handler {
	admin := middleware.RequireAdmin(s.auth)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /login", s.handleLogin)

	mux.HandleFunc("GET /orders/pending", s.handlePendingOrders)
	mux.Handle("POST /orders/{key}/accept", admin(http.HandlerFunc(s.handleAccept)))
	mux.Handle("POST /orders/{key}/dispatch", admin(http.HandlerFunc(s.handleDispatch)))
	mux.HandleFunc("GET /orders/delivery", s.handleDelivery)

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.Handle("GET /reconcile", admin(http.HandlerFunc(s.handleReconcile)))

	mux.HandleFunc("GET /menu", s.handleMenuList)
	mux.Handle("POST /menu", admin(http.HandlerFunc(s.handleMenuAdd)))
	mux.Handle("DELETE /menu/{key}", admin(http.HandlerFunc(s.handleMenuDelete)))
	mux.Handle("POST /menu/{key}/quantity", admin(http.HandlerFunc(s.handleMenuQuantity)))

	var h http.Handler = mux
	h = middleware.RateLimitMiddleware(h)
	h = logger.LoggingMiddleware(h)
	h = logger.RequestIDMiddleware(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
