package services

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/merchforge/api/internal/domain"
)

var (
	// ErrItemNotFound is returned when an offer references an unknown item.
	ErrItemNotFound = errors.New("commerce: item not found")
	// ErrItemNotEligible is returned for items excluded from checkout.
	ErrItemNotEligible = errors.New("commerce: item not eligible for checkout")
	// ErrOfferNotFound is returned for unknown offer ids.
	ErrOfferNotFound = errors.New("commerce: offer not found")
	// ErrOfferNotOpen is returned when committing a non-open offer.
	ErrOfferNotOpen = errors.New("commerce: offer is not open")
	// ErrOrderNotFound is returned for unknown order ids.
	ErrOrderNotFound = errors.New("commerce: order not found")
)

// CommerceStore is the in-memory offer and order store backing the demo
// checkout. All state is process-local and lost on restart.
type CommerceStore struct {
	inventory    map[string]domain.ACPItem
	currency     string
	deliveryDays int
	now          func() time.Time
	logger       *zap.Logger

	mu     sync.Mutex
	offers map[string]domain.Offer
	orders map[string]domain.Order
}

// CommerceStoreDeps configures a CommerceStore.
type CommerceStoreDeps struct {
	Inventory    []domain.ACPItem
	Currency     string
	DeliveryDays int
	Now          func() time.Time
	Logger       *zap.Logger
}

// NewCommerceStore constructs the store.
func NewCommerceStore(deps CommerceStoreDeps) (*CommerceStore, error) {
	if len(deps.Inventory) == 0 {
		return nil, errors.New("commerce store: inventory is required")
	}
	if deps.Currency == "" {
		return nil, errors.New("commerce store: currency is required")
	}
	if deps.DeliveryDays <= 0 {
		return nil, errors.New("commerce store: delivery days must be positive")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	inventory := make(map[string]domain.ACPItem, len(deps.Inventory))
	for _, item := range deps.Inventory {
		inventory[item.ItemID] = item
	}

	return &CommerceStore{
		inventory:    inventory,
		currency:     deps.Currency,
		deliveryDays: deps.DeliveryDays,
		now:          now,
		logger:       logger,
		offers:       make(map[string]domain.Offer),
		orders:       make(map[string]domain.Order),
	}, nil
}

// CreateOfferInput describes one requested offer line.
type CreateOfferInput struct {
	ItemID   string
	Quantity int
	Color    string
	Size     string
	Material string
}

// CreateOffer prices a single-line offer against the inventory. Quantity is
// clamped to at least one whole unit.
func (s *CommerceStore) CreateOffer(input CreateOfferInput) (domain.Offer, error) {
	item, ok := s.inventory[input.ItemID]
	if !ok {
		return domain.Offer{}, fmt.Errorf("%w: %s", ErrItemNotFound, input.ItemID)
	}
	if !item.IsEligibleCheckout {
		return domain.Offer{}, fmt.Errorf("%w: %s", ErrItemNotEligible, input.ItemID)
	}

	quantity := input.Quantity
	if quantity < 1 {
		quantity = 1
	}
	quantity = int(math.Floor(float64(quantity)))

	unit := item.Price.Amount
	line := domain.OfferItem{
		ItemID:     item.ItemID,
		Quantity:   quantity,
		UnitPrice:  unit,
		TotalPrice: unit * float64(quantity),
		Currency:   item.Price.Currency,
		Color:      input.Color,
		Size:       input.Size,
		Material:   input.Material,
		ImageURL:   resolveVariantImage(item, input.Color, input.Material),
	}

	offer := domain.Offer{
		OfferID:   "offer_" + ulid.Make().String(),
		CreatedAt: s.now(),
		Items:     []domain.OfferItem{line},
		Total:     line.TotalPrice,
		Currency:  line.Currency,
		Status:    domain.OfferStatusOpen,
	}

	s.mu.Lock()
	s.offers[offer.OfferID] = offer
	s.mu.Unlock()

	s.logger.Debug("offer created",
		zap.String("offer_id", offer.OfferID),
		zap.String("item_id", item.ItemID),
		zap.Int("quantity", quantity),
	)
	return offer, nil
}

// GetOffer returns an offer by id.
func (s *CommerceStore) GetOffer(offerID string) (domain.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.offers[offerID]
	if !ok {
		return domain.Offer{}, fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
	}
	return offer, nil
}

// CommitOffer converts an open offer into a confirmed order with a delivery
// estimate. The offer stays open, so committing twice produces two orders.
func (s *CommerceStore) CommitOffer(offerID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[offerID]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
	}
	if offer.Status != domain.OfferStatusOpen {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOfferNotOpen, offerID)
	}

	order := domain.Order{
		OrderID:              "order_" + ulid.Make().String(),
		CreatedAt:            s.now(),
		Status:               domain.OrderStatusConfirmed,
		Items:                offer.Items,
		Total:                offer.Total,
		Currency:             offer.Currency,
		DeliveryEstimateDays: s.deliveryDays,
	}
	s.orders[order.OrderID] = order

	s.logger.Debug("offer committed",
		zap.String("offer_id", offerID),
		zap.String("order_id", order.OrderID),
	)
	return order, nil
}

// GetOrder returns an order by id.
func (s *CommerceStore) GetOrder(orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// resolveVariantImage picks the variant-specific image when one exists,
// falling back to the item's primary image.
func resolveVariantImage(item domain.ACPItem, color, material string) string {
	if item.ImageURLByVariant == nil || color == "" {
		return item.ImageURL
	}
	if material == "" && len(item.Attributes.Materials) == 1 {
		material = item.Attributes.Materials[0]
	}
	if material != "" {
		if url, ok := item.ImageURLByVariant[domain.VariantKey(color, material)]; ok {
			return url
		}
	}
	return item.ImageURL
}
