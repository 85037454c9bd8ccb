package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"stusave.app/config"
	"stusave.app/internal/exchange"
	"stusave.app/internal/store"
)

// Exchange is the part of exchange.Service the handlers need.
type Exchange interface {
	Register(ctx context.Context, payload json.RawMessage) (string, time.Time, error)
	Redeem(ctx context.Context, id string) (json.RawMessage, error)
	ValidID(id string) bool
}

type Handler struct {
	exchange Exchange
	config   *config.Config
	logger   *slog.Logger
}

func NewHandler(ex Exchange, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		exchange: ex,
		config:   cfg,
		logger:   logger,
	}
}

type RegisterResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterTransfer stores the request body and answers with the id that redeems it.
func (h *Handler) RegisterTransfer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.Transfer.MaxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.error(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, expiresAt, err := h.exchange.Register(r.Context(), body)
	if err != nil {
		if errors.Is(err, exchange.ErrInvalidPayload) {
			h.error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		h.logger.Error("register transfer failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		h.error(w, http.StatusInternalServerError, "failed to register transfer")
		return
	}

	h.json(w, http.StatusOK, RegisterResponse{
		ID:        id,
		ExpiresAt: expiresAt,
	})
}

// RedeemTransfer hands out the payload for ?id= exactly once.
func (h *Handler) RedeemTransfer(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.error(w, http.StatusBadRequest, "an id is required")
		return
	}

	// ids we could never have minted cannot be in the store
	if !h.exchange.ValidID(id) {
		h.handleStoreError(w, r, store.ErrNotFound)
		return
	}

	payload, err := h.exchange.Redeem(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.logger.Warn("write transfer payload", "error", err)
	}
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("write json response", "error", err)
	}
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

func (h *Handler) handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.error(w, http.StatusNotFound, "transfer code not found or already used")
	case errors.Is(err, store.ErrExpired):
		h.error(w, http.StatusGone, "transfer code has expired")
	default:
		h.logger.Error("redeem transfer failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		h.error(w, http.StatusInternalServerError, "internal error")
	}
}
