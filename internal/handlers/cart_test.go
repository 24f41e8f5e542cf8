package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/services"
)

func newCartRouter(t *testing.T) http.Handler {
	t.Helper()
	carts, err := services.NewCartService(services.CartServiceDeps{
		PrintFee:     3.00,
		Currency:     "EUR",
		DeliveryDays: 7,
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	h, err := NewCartHandlers(CartHandlersDeps{Carts: carts})
	if err != nil {
		t.Fatalf("NewCartHandlers: %v", err)
	}
	return NewRouter(WithCartRoutes(h.Routes))
}

func TestCartQuote(t *testing.T) {
	r := newCartRouter(t)

	body := `{
		"state": {
			"product": {"id":"classic-tee","name":"Classic Tee","category":"tee","basePrice":19.99,
				"colors":[{"name":"Navy","hex":"#1e3a5f"}],"sizes":["S","M","L"],
				"printArea":{"x":30,"y":25,"w":40,"h":45},"imageRef":"tee"},
			"productColor": "Navy",
			"text": "GO TEAM",
			"quantity": 2
		},
		"variantName": "Bold Statement",
		"designSVG": "<svg></svg>"
	}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/quote", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Item domain.CartItem `json:"item"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Item.Price != 22.99 || resp.Item.Total != 45.98 {
		t.Fatalf("pricing = %v / %v", resp.Item.Price, resp.Item.Total)
	}
}

func TestCartQuoteIncompleteStateReturns422(t *testing.T) {
	r := newCartRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/quote",
		strings.NewReader(`{"state":{}}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCartQuoteMissingStateReturns400(t *testing.T) {
	r := newCartRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/quote", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
