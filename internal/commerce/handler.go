package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/commentorder/internal/domain"
	"github.com/joao-fontenele/commentorder/internal/telemetry"
)

// Service is the part of the Synchronizer served over HTTP.
type Service interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	SetOrderStatusFlag(ctx context.Context, orderID string, flag domain.OrderFlag, value bool, actor string) (bool, error)
	FlagHistory(ctx context.Context, orderID string) ([]domain.FlagChange, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(h.HandleListProducts))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(h.HandleGetProduct))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(h.HandleListOrders))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(h.HandleGetOrder))
	mux.HandleFunc("PUT /orders/{id}/flags/{flag}", telemetry.WithHTTPRoute(h.HandleSetFlag))
	mux.HandleFunc("GET /orders/{id}/flags", telemetry.WithHTTPRoute(h.HandleFlagHistory))
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type setFlagRequest struct {
	Value *bool  `json:"value"`
	Actor string `json:"actor"`
}

func (h *Handler) HandleSetFlag(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	flag := domain.OrderFlag(r.PathValue("flag"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}
	if !flag.Valid() {
		h.writeError(w, http.StatusBadRequest, "unknown flag")
		return
	}

	var req setFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor == "" {
		h.writeError(w, http.StatusBadRequest, "missing actor")
		return
	}

	found, err := h.svc.SetOrderStatusFlag(r.Context(), id, flag, *req.Value, req.Actor)
	if err != nil {
		if errors.Is(err, ErrUnknownFlag) {
			h.writeError(w, http.StatusBadRequest, "unknown flag")
			return
		}
		h.logger.Error("failed to set order flag", "error", err, "order_id", id, "flag", flag)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !found {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil || order == nil {
		h.logger.Error("failed to reload order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order flag set", "order_id", id, "flag", flag, "value", *req.Value, "actor", req.Actor)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleFlagHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	changes, err := h.svc.FlagHistory(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list flag changes", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, changes)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
