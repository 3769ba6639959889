package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"wavefood-admin/internal/auth"
	"wavefood-admin/internal/lifecycle"
	"wavefood-admin/internal/menu"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handlePendingOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  s.pending.Count(),
		"orders": s.pending.Orders(),
	})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.machine.Accept(r.Context(), key); err != nil {
		if _, ok := s.pending.Order(key); !ok {
			writeError(w, http.StatusNotFound, "no pending order with that key")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to accept order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "key": key})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	err := s.machine.Dispatch(r.Context(), key)
	if err != nil {
		var moveErr *lifecycle.PartialMoveError
		if errors.As(err, &moveErr) {
			// The order is now in both collections. Surface that plainly
			// rather than pretending the dispatch failed cleanly.
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": "order copied but not removed from pending",
				"key":   moveErr.Key,
			})
			return
		}
		if _, ok := s.pending.Order(key); !ok {
			writeError(w, http.StatusNotFound, "no pending order with that key")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to dispatch order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dispatched", "key": key})
}

func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	entries, available := s.deliveries.Entries()
	if !available {
		writeError(w, http.StatusServiceUnavailable, "delivery data unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": entries})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	pendingCount, completedCount := s.dashboard.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"pendingOrders":   pendingCount,
		"completedOrders": completedCount,
		"totalEarnings":   s.earnings.FormattedTotal(),
	})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	duplicates, err := s.machine.Reconcile(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "reconcile failed")
		return
	}
	if duplicates == nil {
		duplicates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"duplicates": duplicates})
}

func (s *Server) handleMenuList(w http.ResponseWriter, r *http.Request) {
	items, err := s.menu.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to list menu")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleMenuAdd(w http.ResponseWriter, r *http.Request) {
	var item menu.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if item.FoodName == "" {
		writeError(w, http.StatusBadRequest, "foodName is required")
		return
	}

	key, err := s.menu.Add(r.Context(), item)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to add menu item")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleMenuDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.menu.Delete(r.Context(), key); err != nil {
		if errors.Is(err, menu.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to delete menu item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "key": key})
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) handleMenuQuantity(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity, err := s.menu.AdjustQuantity(r.Context(), key, req.Delta)
	if err != nil {
		switch {
		case errors.Is(err, menu.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "menu item not found")
		case errors.Is(err, menu.ErrQuantityOutOfRange):
			writeError(w, http.StatusUnprocessableEntity, "quantity out of range")
		default:
			writeError(w, http.StatusBadGateway, "failed to adjust quantity")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "foodQuantity": quantity})
}
