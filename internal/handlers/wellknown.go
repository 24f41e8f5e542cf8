package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/httpx"
)

// WellKnownHandlers serves the merchant capability documents under
// /.well-known. Bodies are canonicalized once at construction so the ETag is
// stable for the process lifetime.
type WellKnownHandlers struct {
	capabilities []byte
	jsonld       []byte
	products     []byte
}

// WellKnownHandlersDeps configures WellKnownHandlers.
type WellKnownHandlersDeps struct {
	Capabilities domain.Capabilities
	ProductsFeed []byte
}

// NewWellKnownHandlers constructs the handlers, pre-rendering every document.
func NewWellKnownHandlers(deps WellKnownHandlersDeps) (*WellKnownHandlers, error) {
	if deps.Capabilities.MerchantID == "" {
		return nil, errors.New("well-known handlers: capabilities are required")
	}
	if len(deps.ProductsFeed) == 0 {
		return nil, errors.New("well-known handlers: products feed is required")
	}

	capabilities, err := httpx.CanonicalJSON(deps.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("well-known handlers: canonicalize capabilities: %w", err)
	}
	jsonld, err := httpx.CanonicalJSON(buildJSONLD(deps.Capabilities))
	if err != nil {
		return nil, fmt.Errorf("well-known handlers: canonicalize jsonld: %w", err)
	}

	return &WellKnownHandlers{
		capabilities: capabilities,
		jsonld:       jsonld,
		products:     deps.ProductsFeed,
	}, nil
}

// Routes wires the documents onto the /.well-known router.
func (h *WellKnownHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/ucp-capabilities.json", h.getCapabilities)
	r.Get("/ucp.jsonld", h.getJSONLD)
	r.Get("/ucp-products.json", h.getProducts)
}

func (h *WellKnownHandlers) getCapabilities(w http.ResponseWriter, r *http.Request) {
	httpx.WriteCached(w, r, "application/json", h.capabilities)
}

func (h *WellKnownHandlers) getJSONLD(w http.ResponseWriter, r *http.Request) {
	httpx.WriteCached(w, r, "application/ld+json", h.jsonld)
}

func (h *WellKnownHandlers) getProducts(w http.ResponseWriter, r *http.Request) {
	httpx.WriteCached(w, r, "application/json", h.products)
}

// buildJSONLD projects the capability document into a schema.org Organization
// description for agent discovery.
func buildJSONLD(caps domain.Capabilities) map[string]any {
	doc := map[string]any{
		"@context": map[string]any{
			"@vocab": "https://schema.org/",
			"ucp":    "https://example.com/ucp#",
		},
		"@type":              "Organization",
		"identifier":         caps.MerchantID,
		"areaServed":         caps.SupportedCountries,
		"currenciesAccepted": strings.Join(caps.SupportedCurrencies, ","),
		"ucp:capabilities":   caps.Capabilities,
	}
	if caps.Notes != "" {
		doc["description"] = caps.Notes
	}
	return doc
}
