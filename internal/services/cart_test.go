package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
)

func newTestCartService(t *testing.T) *CartService {
	t.Helper()
	fixed := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc, err := NewCartService(CartServiceDeps{
		PrintFee:     3.00,
		Currency:     "EUR",
		DeliveryDays: 7,
		Now:          func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func TestQuoteAddsPrintFee(t *testing.T) {
	svc := newTestCartService(t)
	tee, _ := catalog.ProductByID("classic-tee")

	item, err := svc.Quote(QuoteInput{
		State: domain.ConversationState{
			Product:      &tee,
			ProductColor: "Navy",
			Text:         "GO TEAM",
			Quantity:     2,
		},
		VariantName: "Bold Statement",
		DesignSVG:   "<svg></svg>",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	if item.Price != 22.99 {
		t.Fatalf("unit price = %v, want base price plus print fee", item.Price)
	}
	if item.Total != 45.98 {
		t.Fatalf("total = %v", item.Total)
	}
	if item.Color.Name != "Navy" {
		t.Fatalf("color = %+v", item.Color)
	}
	if item.Currency != "EUR" || item.DeliveryEstimateDays != 7 {
		t.Fatalf("item = %+v", item)
	}
	if item.DesignSVG != "<svg></svg>" || item.Variant != "Bold Statement" {
		t.Fatal("design snapshot not carried into the line")
	}
}

func TestQuoteResolvesCurrentColorInSnapshot(t *testing.T) {
	svc := newTestCartService(t)
	tee, _ := catalog.ProductByID("classic-tee")

	item, err := svc.Quote(QuoteInput{
		State: domain.ConversationState{
			Product:      &tee,
			ProductColor: "White",
			Text:         "GO",
		},
		DesignSVG: `<svg><text fill="currentColor">GO</text></svg>`,
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if strings.Contains(item.DesignSVG, "currentColor") {
		t.Fatalf("currentColor left unresolved: %s", item.DesignSVG)
	}
	if !strings.Contains(item.DesignSVG, "#1a1a1a") {
		t.Fatalf("snapshot = %s, want dark ink on a white product", item.DesignSVG)
	}
}

func TestQuoteRejectsIncompleteState(t *testing.T) {
	svc := newTestCartService(t)
	tee, _ := catalog.ProductByID("classic-tee")

	_, err := svc.Quote(QuoteInput{State: domain.ConversationState{Product: &tee}})
	if !errors.Is(err, ErrNotCartReady) {
		t.Fatalf("err = %v, want ErrNotCartReady", err)
	}
}

func TestQuoteDefaultsSizeAndQuantity(t *testing.T) {
	svc := newTestCartService(t)
	tee, _ := catalog.ProductByID("classic-tee")

	item, err := svc.Quote(QuoteInput{
		State: domain.ConversationState{Product: &tee, ProductColor: "Black", Icon: "star"},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if item.Size != "M" {
		t.Fatalf("size = %q, want default M", item.Size)
	}
	if item.Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", item.Quantity)
	}
}

func TestQuoteOneSizeProductHasNoSize(t *testing.T) {
	svc := newTestCartService(t)
	mug, _ := catalog.ProductByID("mug")

	item, err := svc.Quote(QuoteInput{
		State: domain.ConversationState{Product: &mug, ProductColor: "White", Text: "MORNING"},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if item.Size != "" {
		t.Fatalf("size = %q, want empty for one-size product", item.Size)
	}
	if item.Price != 15.99 {
		t.Fatalf("unit price = %v", item.Price)
	}
}
