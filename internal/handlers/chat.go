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
	maxChatBodySize = 64 * 1024

	// chatDeltaRunes is the chunk size for streamed assistant text.
	chatDeltaRunes = 12
)

// ChatHandlers exposes the conversational customization endpoint.
type ChatHandlers struct {
	engine  *services.ConversationEngine
	limiter rateLimiter
}

// ChatHandlersDeps configures ChatHandlers.
type ChatHandlersDeps struct {
	Engine     *services.ConversationEngine
	RateLimit  int
	RateWindow time.Duration
	Clock      func() time.Time
}

// NewChatHandlers constructs the chat handlers.
func NewChatHandlers(deps ChatHandlersDeps) (*ChatHandlers, error) {
	if deps.Engine == nil {
		return nil, errors.New("chat handlers: engine is required")
	}
	return &ChatHandlers{
		engine:  deps.Engine,
		limiter: newSimpleRateLimiter(deps.RateLimit, deps.RateWindow, deps.Clock),
	}, nil
}

// Routes wires the chat endpoint onto the provided router.
func (h *ChatHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.postChat)
}

type chatRequest struct {
	State       *domain.ConversationState `json:"state"`
	UserMessage string                    `json:"userMessage"`
	Messages    []domain.Message          `json:"messages"`
	Stream      bool                      `json:"stream"`
}

type chatResponse struct {
	Assistant    string                   `json:"assistantMessage"`
	Updates      map[string]any           `json:"updates"`
	State        domain.ConversationState `json:"state"`
	CanAddToCart bool                     `json:"canAddToCart"`
	FallbackUsed bool                     `json:"fallbackUsed"`
}

func (h *ChatHandlers) postChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !checkRateLimit(h.limiter, w, r) {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.State == nil || req.UserMessage == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "state and userMessage are required", http.StatusBadRequest))
		return
	}

	var result services.EngineResult
	if req.Stream {
		result = h.engine.RespondStream(ctx, *req.State, req.UserMessage, req.Messages)
	} else {
		result = h.engine.Respond(ctx, *req.State, req.UserMessage, req.Messages)
	}
	next := services.Apply(*req.State, result.Updates)

	resp := chatResponse{
		Assistant:    result.AssistantMessage,
		Updates:      result.Updates.Raw(),
		State:        next,
		CanAddToCart: services.CanAddToCart(next),
		FallbackUsed: result.FallbackUsed,
	}

	if !req.Stream {
		httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}

	// The full turn is resolved above; the stream replays the finished reply.
	// Delta payloads are bare JSON strings, not objects.
	sse := httpx.NewSSEWriter(w)
	_ = sse.Send("updates", map[string]any{
		"updates":      resp.Updates,
		"state":        resp.State,
		"canAddToCart": resp.CanAddToCart,
	})
	for _, chunk := range chunkRunes(resp.Assistant, chatDeltaRunes) {
		_ = sse.Send("delta", chunk)
	}
	_ = sse.Send("done", map[string]any{"fallbackUsed": resp.FallbackUsed})
}

// chunkRunes splits text into rune-safe chunks of at most size runes.
func chunkRunes(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
