package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/merchforge/api/internal/platform/httpx"
	"github.com/merchforge/api/internal/services"
)

const maxCommerceBodySize = 16 * 1024

// CommerceHandlers exposes the offer and order endpoints of the demo store.
type CommerceHandlers struct {
	store *services.CommerceStore
}

// CommerceHandlersDeps configures CommerceHandlers.
type CommerceHandlersDeps struct {
	Store *services.CommerceStore
}

// NewCommerceHandlers constructs the commerce handlers.
func NewCommerceHandlers(deps CommerceHandlersDeps) (*CommerceHandlers, error) {
	if deps.Store == nil {
		return nil, errors.New("commerce handlers: store is required")
	}
	return &CommerceHandlers{store: deps.Store}, nil
}

// Routes wires the commerce endpoints directly under the API prefix.
func (h *CommerceHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/offer", h.postOffer)
	r.Get("/offer/{offerID}", h.getOffer)
	r.Post("/commit", h.postCommit)
	r.Get("/order/{orderID}", h.getOrder)
}

type offerRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Color    string `json:"color"`
	Size     string `json:"size"`
	Material string `json:"material"`
}

type commitRequest struct {
	OfferID string `json:"offer_id"`
}

func (h *CommerceHandlers) postOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req offerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommerceBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.ItemID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "item_id is required", http.StatusBadRequest))
		return
	}

	offer, err := h.store.CreateOffer(services.CreateOfferInput{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		Color:    req.Color,
		Size:     req.Size,
		Material: req.Material,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, offer)
}

func (h *CommerceHandlers) getOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.store.GetOffer(chi.URLParam(r, "offerID"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, offer)
}

func (h *CommerceHandlers) postCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req commitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommerceBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.OfferID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "offer_id is required", http.StatusBadRequest))
		return
	}

	order, err := h.store.CommitOffer(req.OfferID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, order)
}

func (h *CommerceHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.GetOrder(chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *CommerceHandlers) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_found", "no such inventory item", http.StatusNotFound))
	case errors.Is(err, services.ErrItemNotEligible):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_eligible", "item is not eligible for checkout", http.StatusConflict))
	case errors.Is(err, services.ErrOfferNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("offer_not_found", "no such offer", http.StatusNotFound))
	case errors.Is(err, services.ErrOfferNotOpen):
		httpx.WriteError(ctx, w, httpx.NewError("offer_not_open", "offer can no longer be committed", http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "no such order", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "commerce operation failed", http.StatusInternalServerError))
	}
}
