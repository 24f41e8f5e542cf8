package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/httpx"
)

const (
	searchDefaultLimit = 12
	searchMaxLimit     = 50
)

// CatalogHandlers exposes the customizable product catalog and the searchable
// inventory feed.
type CatalogHandlers struct {
	inventory []domain.ACPItem
}

// CatalogHandlersDeps configures CatalogHandlers.
type CatalogHandlersDeps struct {
	Inventory []domain.ACPItem
}

// NewCatalogHandlers constructs the catalog handlers.
func NewCatalogHandlers(deps CatalogHandlersDeps) (*CatalogHandlers, error) {
	if len(deps.Inventory) == 0 {
		return nil, errors.New("catalog handlers: inventory is required")
	}
	return &CatalogHandlers{inventory: deps.Inventory}, nil
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.getProducts)
	r.Get("/search", h.getSearch)
}

func (h *CatalogHandlers) getProducts(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"products":   catalog.Products(),
		"icons":      catalog.Icons(),
		"textColors": catalog.TextColorOptions,
	})
}

func (h *CatalogHandlers) getSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := strings.ToLower(strings.TrimSpace(query.Get("q")))
	category := strings.ToLower(strings.TrimSpace(query.Get("category")))
	color := strings.ToLower(strings.TrimSpace(query.Get("color")))
	material := strings.ToLower(strings.TrimSpace(query.Get("material")))

	maxPrice := 0.0
	if raw := query.Get("max_price"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			maxPrice = parsed
		}
	}

	limit := searchDefaultLimit
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > searchMaxLimit {
		limit = searchMaxLimit
	}

	items := make([]domain.ACPItem, 0, limit)
	for _, item := range h.inventory {
		if !item.IsEligibleSearch {
			continue
		}
		if q != "" && !matchesQuery(item, q) {
			continue
		}
		if category != "" && strings.ToLower(item.Attributes.Category) != category {
			continue
		}
		if color != "" && !hasColorNamed(item, color) {
			continue
		}
		if material != "" && !hasMaterial(item, material) {
			continue
		}
		if maxPrice > 0 && item.Price.Amount > maxPrice {
			continue
		}
		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}

func matchesQuery(item domain.ACPItem, q string) bool {
	if strings.Contains(strings.ToLower(item.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(item.Description), q) {
		return true
	}
	for _, tag := range item.Attributes.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func hasColorNamed(item domain.ACPItem, color string) bool {
	for _, c := range item.Attributes.Variants.Colors {
		if strings.ToLower(c.Name) == color {
			return true
		}
	}
	return false
}

func hasMaterial(item domain.ACPItem, material string) bool {
	for _, m := range item.Attributes.Materials {
		if strings.ToLower(m) == material {
			return true
		}
	}
	return false
}
