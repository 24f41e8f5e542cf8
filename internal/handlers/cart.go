package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/httpx"
	"github.com/merchforge/api/internal/services"
)

const maxCartBodySize = 256 * 1024 // quote bodies carry an inline SVG snapshot

// CartHandlers exposes server-side cart line pricing. The client owns cart
// persistence; this endpoint only computes priced lines.
type CartHandlers struct {
	carts *services.CartService
}

// CartHandlersDeps configures CartHandlers.
type CartHandlersDeps struct {
	Carts *services.CartService
}

// NewCartHandlers constructs the cart handlers.
func NewCartHandlers(deps CartHandlersDeps) (*CartHandlers, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart handlers: cart service is required")
	}
	return &CartHandlers{carts: deps.Carts}, nil
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/quote", h.postQuote)
}

type quoteRequest struct {
	State       *domain.ConversationState `json:"state"`
	VariantName string                    `json:"variantName"`
	DesignSVG   string                    `json:"designSVG"`
}

func (h *CartHandlers) postQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req quoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCartBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.State == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "state is required", http.StatusBadRequest))
		return
	}

	item, err := h.carts.Quote(services.QuoteInput{
		State:       *req.State,
		VariantName: req.VariantName,
		DesignSVG:   req.DesignSVG,
	})
	if err != nil {
		if errors.Is(err, services.ErrNotCartReady) {
			httpx.WriteError(ctx, w, httpx.NewError("not_cart_ready", "product, color, and text or icon are required", http.StatusUnprocessableEntity))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "quote failed", http.StatusInternalServerError))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"item": item})
}
