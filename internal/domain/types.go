package domain

import (
	"strings"
	"time"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single entry in the append-only conversation transcript.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Stage is the advisory conversation stage. It steers assistant phrasing and
// quick replies only; it never gates functionality.
type Stage string

const (
	StageWelcome    Stage = "welcome"
	StageProduct    Stage = "product"
	StageIntent     Stage = "intent"
	StageText       Stage = "text"
	StageIcon       Stage = "icon"
	StageGenerating Stage = "generating"
	StagePreview    Stage = "preview"
	StageComplete   Stage = "complete"
)

// Stages lists the ordered stage progression.
var Stages = []Stage{
	StageWelcome, StageProduct, StageIntent, StageText,
	StageIcon, StageGenerating, StagePreview, StageComplete,
}

// ValidStage reports whether s is one of the known stages.
func ValidStage(s Stage) bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// ProductColor is a named garment or print color with its hex value.
type ProductColor struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// PrintArea is the printable rectangle on a product, in percent coordinates.
type PrintArea struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Product is a customizable catalog product. Sizes is nil for one-size items.
type Product struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	BasePrice float64        `json:"basePrice"`
	Colors    []ProductColor `json:"colors"`
	Sizes     []string       `json:"sizes,omitempty"`
	PrintArea PrintArea      `json:"printArea"`
	ImageRef  string         `json:"imageRef"`
}

// HasColor reports whether the product declares the named color.
func (p Product) HasColor(name string) bool {
	for _, c := range p.Colors {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// ColorByName returns the product color matching name case-insensitively.
func (p Product) ColorByName(name string) (ProductColor, bool) {
	for _, c := range p.Colors {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ProductColor{}, false
}

// HasSize reports whether the product declares the size.
func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	return false
}

// Icon is an entry from the fixed icon library.
type Icon struct {
	ID       string   `json:"id"`
	Path     string   `json:"path"`
	Keywords []string `json:"keywords"`
}

// IconNone is the sentinel icon id that removes the icon from a design.
const IconNone = "none"

// ConversationState is the accumulated customization state for one session.
// Every field other than Stage and Messages is monotonic: turns overwrite but
// never clear it, except the explicit remove_icon action.
type ConversationState struct {
	Stage        Stage     `json:"stage,omitempty"`
	Product      *Product  `json:"product,omitempty"`
	Occasion     string    `json:"occasion,omitempty"`
	Vibe         string    `json:"vibe,omitempty"`
	Text         string    `json:"text,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	ProductColor string    `json:"productColor,omitempty"`
	TextColor    string    `json:"textColor,omitempty"`
	Size         string    `json:"size,omitempty"`
	Quantity     int       `json:"quantity,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
}

// Action is a recognized control token extracted from user input.
type Action string

const (
	ActionAddToCart  Action = "add_to_cart"
	ActionRemoveIcon Action = "remove_icon"
)

// DesignVariant is a rendered design preview. Variants are ephemeral and
// recomputed whenever the underlying design inputs change.
type DesignVariant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Style     string `json:"style"`
	SVG       string `json:"svg"`
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// CartItem is a cart-ready, fully priced line item. Persistence is owned by
// the client; the server only computes it.
type CartItem struct {
	ID                   int64        `json:"id"`
	ProductID            string       `json:"productId"`
	ProductName          string       `json:"productName"`
	Color                ProductColor `json:"color"`
	TextColor            ProductColor `json:"textColor"`
	Size                 string       `json:"size,omitempty"`
	Quantity             int          `json:"quantity"`
	Variant              string       `json:"variant"`
	DesignSVG            string       `json:"designSVG"`
	Text                 string       `json:"text,omitempty"`
	Icon                 string       `json:"icon,omitempty"`
	Price                float64      `json:"price"`
	Total                float64      `json:"total"`
	Currency             string       `json:"currency"`
	DeliveryEstimateDays int          `json:"deliveryEstimateDays"`
}

// DiscoverConstraints accumulates discovery filters across turns. All fields
// are optional and additive; a newer value replaces the old, nothing resets.
type DiscoverConstraints struct {
	Category    string   `json:"category,omitempty"`
	BudgetMax   float64  `json:"budgetMax,omitempty"`
	Materials   []string `json:"materials,omitempty"`
	Sustainable bool     `json:"sustainable,omitempty"`
	Quantity    int      `json:"quantity,omitempty"`
	EventDate   string   `json:"eventDate,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Occasion    string   `json:"occasion,omitempty"`
	Color       string   `json:"color,omitempty"`
	LeadTimeMax int      `json:"leadTimeMax,omitempty"`
	Size        string   `json:"size,omitempty"`
}

// DiscoverStage is the advisory stage of the discovery conversation.
type DiscoverStage string

const (
	DiscoverStageWelcome     DiscoverStage = "welcome"
	DiscoverStageConstraints DiscoverStage = "constraints"
	DiscoverStageResults     DiscoverStage = "results"
)

// DiscoverState bundles the discovery stage with accumulated constraints.
type DiscoverState struct {
	Stage       DiscoverStage       `json:"stage,omitempty"`
	Constraints DiscoverConstraints `json:"constraints"`
}

// ACPPrice is a monetary amount with its ISO currency code.
type ACPPrice struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// ACPVariants lists the size and color axes of an inventory item.
type ACPVariants struct {
	Sizes  []string       `json:"sizes"`
	Colors []ProductColor `json:"colors"`
}

// ACPAttributes carries the discovery-relevant attributes of an item.
type ACPAttributes struct {
	Category     string      `json:"category"`
	Materials    []string    `json:"materials"`
	LeadTimeDays int         `json:"lead_time_days"`
	MinQty       int         `json:"min_qty"`
	Tags         []string    `json:"tags"`
	Variants     ACPVariants `json:"variants"`
}

// Availability states for inventory items and their variants.
const (
	AvailabilityInStock    = "in stock"
	AvailabilityOutOfStock = "out of stock"
	AvailabilityPreorder   = "preorder"
)

// ACPItem is a static inventory entry in the agentic-commerce feed shape.
// Per-variant maps are keyed "color|material", lowercased with spaces
// replaced by hyphens.
type ACPItem struct {
	ItemID                string            `json:"item_id"`
	Title                 string            `json:"title"`
	Description           string            `json:"description"`
	URL                   string            `json:"url"`
	ImageURL              string            `json:"image_url"`
	ImageURLByVariant     map[string]string `json:"image_url_by_variant,omitempty"`
	AvailabilityByVariant map[string]string `json:"availability_by_variant,omitempty"`
	Price                 ACPPrice          `json:"price"`
	Availability          string            `json:"availability"`
	AvailabilityDate      string            `json:"availability_date,omitempty"`
	IsEligibleSearch      bool              `json:"is_eligible_search"`
	IsEligibleCheckout    bool              `json:"is_eligible_checkout"`
	Attributes            ACPAttributes     `json:"attributes"`
}

// VariantKey builds the canonical "color|material" lookup key used by the
// per-variant image and availability maps.
func VariantKey(color, material string) string {
	key := strings.ToLower(color) + "|" + strings.ToLower(material)
	return strings.ReplaceAll(key, " ", "-")
}

// InventoryResult is a ranked discovery hit with its matching rationale.
type InventoryResult struct {
	ItemID              string   `json:"item_id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	ImageURL            string   `json:"image_url"`
	ImageURLSelected    string   `json:"image_url_selected,omitempty"`
	ImageURLFallback    string   `json:"image_url_fallback,omitempty"`
	Price               string   `json:"price"`
	Tags                []string `json:"tags"`
	Reason              string   `json:"reason"`
	LeadTimeDays        int      `json:"leadTimeDays"`
	Availability        string   `json:"availability"`
	MatchedColor        string   `json:"matchedColor,omitempty"`
	MatchedColorHex     string   `json:"matchedColorHex,omitempty"`
	MatchedMaterial     string   `json:"matchedMaterial,omitempty"`
	VariantAvailability string   `json:"variantAvailability,omitempty"`
}

// OfferStatus enumerates offer lifecycle states. Expiry is declared but not
// enforced by the demo store.
type OfferStatus string

const (
	OfferStatusOpen    OfferStatus = "open"
	OfferStatusExpired OfferStatus = "expired"
)

// OfferItem is one line of an offer or order.
type OfferItem struct {
	ItemID     string  `json:"item_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Currency   string  `json:"currency"`
	Color      string  `json:"color,omitempty"`
	Size       string  `json:"size,omitempty"`
	Material   string  `json:"material,omitempty"`
	ImageURL   string  `json:"image_url,omitempty"`
}

// Offer is a priced, uncommitted purchase proposal.
type Offer struct {
	OfferID   string      `json:"offer_id"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []OfferItem `json:"items"`
	Total     float64     `json:"total"`
	Currency  string      `json:"currency"`
	Status    OfferStatus `json:"status"`
}

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a committed offer with a delivery estimate.
type Order struct {
	OrderID              string      `json:"order_id"`
	CreatedAt            time.Time   `json:"created_at"`
	Status               OrderStatus `json:"status"`
	Items                []OfferItem `json:"items"`
	Total                float64     `json:"total"`
	Currency             string      `json:"currency"`
	DeliveryEstimateDays int         `json:"delivery_estimate_days"`
}

// Capabilities is the merchant capability document served under /.well-known.
type Capabilities struct {
	MerchantID          string          `json:"merchant_id"`
	Capabilities        map[string]bool `json:"capabilities"`
	SupportedCurrencies []string        `json:"supported_currencies"`
	SupportedCountries  []string        `json:"supported_countries"`
	Notes               string          `json:"notes,omitempty"`
}
