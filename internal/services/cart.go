package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
)

// ErrNotCartReady is returned when the configuration cannot be quoted yet.
var ErrNotCartReady = errors.New("cart: configuration is not cart-ready")

// CartService prices cart lines. The client owns cart persistence; the server
// only computes quotes so pricing rules stay in one place.
type CartService struct {
	printFee     float64
	currency     string
	deliveryDays int
	now          func() time.Time
}

// CartServiceDeps configures a CartService.
type CartServiceDeps struct {
	PrintFee     float64
	Currency     string
	DeliveryDays int
	Now          func() time.Time
}

// NewCartService constructs the service.
func NewCartService(deps CartServiceDeps) (*CartService, error) {
	if deps.Currency == "" {
		return nil, errors.New("cart service: currency is required")
	}
	if deps.DeliveryDays <= 0 {
		return nil, errors.New("cart service: delivery days must be positive")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CartService{
		printFee:     deps.PrintFee,
		currency:     deps.Currency,
		deliveryDays: deps.DeliveryDays,
		now:          now,
	}, nil
}

// QuoteInput is one quote request: the conversation state plus the chosen
// design variant snapshot.
type QuoteInput struct {
	State       domain.ConversationState
	VariantName string
	DesignSVG   string
}

// Quote prices the configured item. The unit price is the product base price
// plus the flat print fee; the design SVG is snapshotted into the line so
// later regeneration cannot change a cart entry.
func (s *CartService) Quote(input QuoteInput) (domain.CartItem, error) {
	state := input.State
	if !CanAddToCart(state) {
		return domain.CartItem{}, ErrNotCartReady
	}
	product := state.Product

	color, ok := product.ColorByName(state.ProductColor)
	if !ok && len(product.Colors) > 0 {
		color = product.Colors[0]
	}

	textColor, ok := catalog.TextColorByName(state.TextColor)
	if !ok {
		textColor = catalog.TextColorOptions[0]
	}

	size := state.Size
	if size == "" && product.HasSize("M") {
		size = "M"
	}

	quantity := state.Quantity
	if quantity < 1 {
		quantity = 1
	}

	unit := roundCents(product.BasePrice + s.printFee)

	// The snapshot lives outside any CSS context, so currentColor is resolved
	// here against the chosen product color.
	svg := strings.ReplaceAll(input.DesignSVG, "currentColor", ContrastColor(color.Hex))

	return domain.CartItem{
		ID:                   s.now().UnixMilli(),
		ProductID:            product.ID,
		ProductName:          product.Name,
		Color:                color,
		TextColor:            textColor,
		Size:                 size,
		Quantity:             quantity,
		Variant:              input.VariantName,
		DesignSVG:            svg,
		Text:                 state.Text,
		Icon:                 state.Icon,
		Price:                unit,
		Total:                roundCents(unit * float64(quantity)),
		Currency:             s.currency,
		DeliveryEstimateDays: s.deliveryDays,
	}, nil
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}
