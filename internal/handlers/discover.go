package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/httpx"
	"github.com/merchforge/api/internal/services"
)

const (
	maxDiscoverBodySize = 64 * 1024

	// discoverDeltaRunes is the chunk size for streamed assistant text.
	discoverDeltaRunes = 16
)

// DiscoverHandlers exposes the inventory discovery endpoint.
type DiscoverHandlers struct {
	engine  *services.DiscoverEngine
	limiter rateLimiter
}

// DiscoverHandlersDeps configures DiscoverHandlers.
type DiscoverHandlersDeps struct {
	Engine     *services.DiscoverEngine
	RateLimit  int
	RateWindow time.Duration
	Clock      func() time.Time
}

// NewDiscoverHandlers constructs the discovery handlers.
func NewDiscoverHandlers(deps DiscoverHandlersDeps) (*DiscoverHandlers, error) {
	if deps.Engine == nil {
		return nil, errors.New("discover handlers: engine is required")
	}
	return &DiscoverHandlers{
		engine:  deps.Engine,
		limiter: newSimpleRateLimiter(deps.RateLimit, deps.RateWindow, deps.Clock),
	}, nil
}

// Routes wires the discovery endpoint onto the provided router.
func (h *DiscoverHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.postDiscover)
}

type discoverRequest struct {
	State       *domain.DiscoverState `json:"state"`
	UserMessage string                `json:"userMessage"`
	Messages    []domain.Message      `json:"messages"`
	Stream      bool                  `json:"stream"`
}

type discoverResponse struct {
	Assistant    string                     `json:"assistantMessage"`
	Updates      domain.DiscoverConstraints `json:"updates"`
	State        domain.DiscoverState       `json:"state"`
	Results      []domain.InventoryResult   `json:"results"`
	Relaxed      []string                   `json:"relaxed,omitempty"`
	FallbackUsed bool                       `json:"fallbackUsed"`
}

func (h *DiscoverHandlers) postDiscover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !checkRateLimit(h.limiter, w, r) {
		return
	}

	var req discoverRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDiscoverBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.State == nil || req.UserMessage == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "state and userMessage are required", http.StatusBadRequest))
		return
	}

	result := h.engine.Respond(ctx, *req.State, req.UserMessage, req.Messages)

	resp := discoverResponse{
		Assistant: result.AssistantMessage,
		Updates:   updatesView(result.Updates),
		State: domain.DiscoverState{
			Stage:       result.Stage,
			Constraints: result.Constraints,
		},
		Results:      result.Results,
		Relaxed:      result.Relaxed,
		FallbackUsed: result.FallbackUsed,
	}
	if resp.Results == nil {
		resp.Results = []domain.InventoryResult{}
	}

	if !req.Stream {
		httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}

	sse := httpx.NewSSEWriter(w)
	_ = sse.Send("updates", map[string]any{
		"updates": resp.Updates,
		"state":   resp.State,
	})
	_ = sse.Send("results", map[string]any{
		"results": resp.Results,
		"relaxed": resp.Relaxed,
	})
	for _, chunk := range chunkRunes(resp.Assistant, discoverDeltaRunes) {
		_ = sse.Send("delta", chunk)
	}
	_ = sse.Send("done", map[string]any{"fallbackUsed": resp.FallbackUsed})
}

// updatesView projects turn updates into the wire constraint shape.
func updatesView(updates services.DiscoverUpdates) domain.DiscoverConstraints {
	return services.MergeConstraints(domain.DiscoverConstraints{}, updates)
}
