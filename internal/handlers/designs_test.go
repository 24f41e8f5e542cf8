package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/merchforge/api/internal/services"
)

func newDesignsRouter(t *testing.T) http.Handler {
	t.Helper()
	designs, err := services.NewDesignService(services.DesignServiceDeps{})
	if err != nil {
		t.Fatalf("NewDesignService: %v", err)
	}
	h, err := NewDesignHandlers(DesignHandlersDeps{Designs: designs})
	if err != nil {
		t.Fatalf("NewDesignHandlers: %v", err)
	}
	return NewRouter(WithDesignRoutes(h.Routes))
}

func TestDesignsReturnsThreeVariants(t *testing.T) {
	r := newDesignsRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/designs",
		strings.NewReader(`{"text":"GO TEAM","vibe":"bold"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp services.GeneratedDesigns
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Variants) != 3 {
		t.Fatalf("variants = %d", len(resp.Variants))
	}
	if resp.Recommended != "A" {
		t.Fatalf("recommended = %q", resp.Recommended)
	}
	for _, v := range resp.Variants {
		if !strings.Contains(v.SVG, "GO TEAM") {
			t.Fatalf("variant %s SVG missing text", v.ID)
		}
	}
}

func TestDesignsWithoutTextOrIconReturns400(t *testing.T) {
	r := newDesignsRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/designs",
		strings.NewReader(`{"vibe":"minimal"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
