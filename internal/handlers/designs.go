package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/merchforge/api/internal/platform/httpx"
	"github.com/merchforge/api/internal/services"
)

const maxDesignBodySize = 16 * 1024

// DesignHandlers exposes design variant generation.
type DesignHandlers struct {
	designs *services.DesignService
}

// DesignHandlersDeps configures DesignHandlers.
type DesignHandlersDeps struct {
	Designs *services.DesignService
}

// NewDesignHandlers constructs the design handlers.
func NewDesignHandlers(deps DesignHandlersDeps) (*DesignHandlers, error) {
	if deps.Designs == nil {
		return nil, errors.New("design handlers: design service is required")
	}
	return &DesignHandlers{designs: deps.Designs}, nil
}

// Routes wires the /designs endpoints onto the provided router.
func (h *DesignHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.postDesigns)
}

type designRequest struct {
	Text     string `json:"text"`
	IconID   string `json:"iconId"`
	Vibe     string `json:"vibe"`
	Occasion string `json:"occasion"`
}

func (h *DesignHandlers) postDesigns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req designRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDesignBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	designs, err := h.designs.Generate(ctx, services.DesignRequest{
		Text:     req.Text,
		IconID:   req.IconID,
		Vibe:     req.Vibe,
		Occasion: req.Occasion,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "text or icon is required to generate designs", http.StatusBadRequest))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, designs)
}
