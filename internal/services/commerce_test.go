package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/merchforge/api/internal/domain"
)

func newTestStore(t *testing.T) *CommerceStore {
	t.Helper()
	fixed := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store, err := NewCommerceStore(CommerceStoreDeps{
		Inventory:    testInventory(t),
		Currency:     "EUR",
		DeliveryDays: 7,
		Now:          func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("NewCommerceStore: %v", err)
	}
	return store
}

func TestCreateOfferTotals(t *testing.T) {
	store := newTestStore(t)
	offer, err := store.CreateOffer(CreateOfferInput{ItemID: "tee-classic-cotton", Quantity: 3})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	if !strings.HasPrefix(offer.OfferID, "offer_") {
		t.Fatalf("OfferID = %q", offer.OfferID)
	}
	if len(offer.Items) != 1 {
		t.Fatalf("items = %d", len(offer.Items))
	}
	line := offer.Items[0]
	if line.UnitPrice != 18.50 || line.TotalPrice != 55.50 {
		t.Fatalf("line pricing = %v / %v", line.UnitPrice, line.TotalPrice)
	}
	if offer.Total != 55.50 || offer.Currency != "EUR" {
		t.Fatalf("offer total = %v %s", offer.Total, offer.Currency)
	}
	if offer.Status != domain.OfferStatusOpen {
		t.Fatalf("status = %q", offer.Status)
	}
}

func TestCreateOfferClampsQuantity(t *testing.T) {
	store := newTestStore(t)
	offer, err := store.CreateOffer(CreateOfferInput{ItemID: "mug-ceramic", Quantity: 0})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if offer.Items[0].Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", offer.Items[0].Quantity)
	}
}

func TestCreateOfferUnknownItem(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.CreateOffer(CreateOfferInput{ItemID: "no-such-item", Quantity: 1}); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}

func TestCreateOfferIneligibleItem(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.CreateOffer(CreateOfferInput{ItemID: "tee-limited-retro", Quantity: 1}); !errors.Is(err, ErrItemNotEligible) {
		t.Fatalf("err = %v, want ErrItemNotEligible", err)
	}
}

func TestCreateOfferResolvesVariantImage(t *testing.T) {
	store := newTestStore(t)
	offer, err := store.CreateOffer(CreateOfferInput{ItemID: "tee-classic-cotton", Quantity: 1, Color: "White", Material: "cotton"})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if offer.Items[0].ImageURL == "" {
		t.Fatal("variant image not resolved")
	}
}

func TestCommitOfferCreatesOrder(t *testing.T) {
	store := newTestStore(t)
	offer, err := store.CreateOffer(CreateOfferInput{ItemID: "tote-canvas", Quantity: 2})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	order, err := store.CommitOffer(offer.OfferID)
	if err != nil {
		t.Fatalf("CommitOffer: %v", err)
	}
	if !strings.HasPrefix(order.OrderID, "order_") {
		t.Fatalf("OrderID = %q", order.OrderID)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("status = %q", order.Status)
	}
	if order.Total != offer.Total || order.DeliveryEstimateDays != 7 {
		t.Fatalf("order = %+v", order)
	}

	got, err := store.GetOrder(order.OrderID)
	if err != nil || got.OrderID != order.OrderID {
		t.Fatalf("GetOrder: %v, %+v", err, got)
	}
}

func TestCommitOfferTwiceCreatesTwoOrders(t *testing.T) {
	// Offers stay open after commit; re-committing is allowed and produces a
	// distinct order.
	store := newTestStore(t)
	offer, err := store.CreateOffer(CreateOfferInput{ItemID: "mug-ceramic", Quantity: 1})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	first, err := store.CommitOffer(offer.OfferID)
	if err != nil {
		t.Fatalf("first CommitOffer: %v", err)
	}
	second, err := store.CommitOffer(offer.OfferID)
	if err != nil {
		t.Fatalf("second CommitOffer: %v", err)
	}
	if first.OrderID == second.OrderID {
		t.Fatal("both commits produced the same order id")
	}
}

func TestCommitUnknownOffer(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.CommitOffer("offer_missing"); !errors.Is(err, ErrOfferNotFound) {
		t.Fatalf("err = %v, want ErrOfferNotFound", err)
	}
}

func TestGetOfferRoundTrip(t *testing.T) {
	store := newTestStore(t)
	offer, err := store.CreateOffer(CreateOfferInput{ItemID: "hoodie-comfort", Quantity: 4})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	got, err := store.GetOffer(offer.OfferID)
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if got.Total != offer.Total || len(got.Items) != 1 {
		t.Fatalf("got = %+v", got)
	}

	if _, err := store.GetOffer("offer_missing"); !errors.Is(err, ErrOfferNotFound) {
		t.Fatalf("missing offer err = %v", err)
	}
	if _, err := store.GetOrder("order_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("missing order err = %v", err)
	}
}
