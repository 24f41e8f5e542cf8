package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
)

func newCatalogRouter(t *testing.T) http.Handler {
	t.Helper()
	inventory, err := catalog.Inventory()
	if err != nil {
		t.Fatalf("catalog.Inventory: %v", err)
	}
	h, err := NewCatalogHandlers(CatalogHandlersDeps{Inventory: inventory})
	if err != nil {
		t.Fatalf("NewCatalogHandlers: %v", err)
	}
	return NewRouter(WithCatalogRoutes(h.Routes))
}

type searchResponse struct {
	Count int              `json:"count"`
	Items []domain.ACPItem `json:"items"`
}

func doSearch(t *testing.T, r http.Handler, query string) searchResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search"+query, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("search %q status = %d", query, rec.Code)
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestCatalogProducts(t *testing.T) {
	r := newCatalogRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Products []domain.Product `json:"products"`
		Icons    []domain.Icon    `json:"icons"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Products) != 4 || len(resp.Icons) != 16 {
		t.Fatalf("products = %d, icons = %d", len(resp.Products), len(resp.Icons))
	}
}

func TestCatalogSearchByQuery(t *testing.T) {
	r := newCatalogRouter(t)

	resp := doSearch(t, r, "?q=retro")
	if resp.Count == 0 {
		t.Fatal("no results for tag substring")
	}
	for _, item := range resp.Items {
		if !item.IsEligibleSearch {
			t.Fatalf("search-ineligible item returned: %s", item.ItemID)
		}
	}
}

func TestCatalogSearchFilters(t *testing.T) {
	r := newCatalogRouter(t)

	resp := doSearch(t, r, "?category=tee&material=organic")
	if resp.Count != 1 || resp.Items[0].ItemID != "tee-organic-heavy" {
		t.Fatalf("results = %+v", resp.Items)
	}

	resp = doSearch(t, r, "?category=tee&max_price=19")
	for _, item := range resp.Items {
		if item.Price.Amount > 19 {
			t.Fatalf("item over max_price: %s", item.ItemID)
		}
	}

	resp = doSearch(t, r, "?color=navy")
	for _, item := range resp.Items {
		found := false
		for _, c := range item.Attributes.Variants.Colors {
			if c.Name == "Navy" {
				found = true
			}
		}
		if !found {
			t.Fatalf("item without navy variant: %s", item.ItemID)
		}
	}
}

func TestCatalogSearchLimitCap(t *testing.T) {
	r := newCatalogRouter(t)

	resp := doSearch(t, r, "?limit=500")
	if resp.Count > searchMaxLimit {
		t.Fatalf("count = %d exceeds cap", resp.Count)
	}

	resp = doSearch(t, r, "?limit=1")
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
}
