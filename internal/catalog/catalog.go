// Package catalog holds the static merchandising data: customizable
// products, the icon library, text color options, and the agentic-commerce
// inventory feed embedded at build time.
package catalog

import (
	"strings"

	"github.com/merchforge/api/internal/domain"
)

// Occasions and vibes recognized by the customization flow.
var (
	Occasions = []string{"gift", "team", "event", "personal"}
	Vibes     = []string{"minimal", "bold", "retro", "cute", "sporty"}
)

// TextColorOptions are the print colors offered for text and icons.
var TextColorOptions = []domain.ProductColor{
	{Name: "white", Hex: "#ffffff"},
	{Name: "black", Hex: "#111111"},
	{Name: "navy", Hex: "#1e3a5f"},
	{Name: "forest", Hex: "#2d5016"},
	{Name: "burgundy", Hex: "#6b1f3a"},
	{Name: "charcoal", Hex: "#4a4a4a"},
	{Name: "natural", Hex: "#f5f1e8"},
	{Name: "red", Hex: "#e4002b"},
	{Name: "pink", Hex: "#ff6fb1"},
	{Name: "blue", Hex: "#2f6fed"},
	{Name: "green", Hex: "#2d9d78"},
}

var products = []domain.Product{
	{
		ID:        "classic-tee",
		Name:      "Classic Tee",
		Category:  "tee",
		BasePrice: 19.99,
		Colors: []domain.ProductColor{
			{Name: "Black", Hex: "#1a1a1a"},
			{Name: "White", Hex: "#f5f5f5"},
			{Name: "Navy", Hex: "#1e3a5f"},
			{Name: "Forest", Hex: "#2d5016"},
			{Name: "Burgundy", Hex: "#6b1f3a"},
		},
		Sizes:     []string{"XS", "S", "M", "L", "XL", "2XL"},
		PrintArea: domain.PrintArea{X: 30, Y: 25, W: 40, H: 45},
		ImageRef:  "tee",
	},
	{
		ID:        "hoodie",
		Name:      "Comfort Hoodie",
		Category:  "hoodie",
		BasePrice: 39.99,
		Colors: []domain.ProductColor{
			{Name: "Black", Hex: "#1a1a1a"},
			{Name: "Charcoal", Hex: "#4a4a4a"},
			{Name: "Navy", Hex: "#1e3a5f"},
			{Name: "Burgundy", Hex: "#6b1f3a"},
		},
		Sizes:     []string{"S", "M", "L", "XL", "2XL"},
		PrintArea: domain.PrintArea{X: 30, Y: 28, W: 40, H: 40},
		ImageRef:  "hoodie",
	},
	{
		ID:        "tote",
		Name:      "Canvas Tote",
		Category:  "tote",
		BasePrice: 14.99,
		Colors: []domain.ProductColor{
			{Name: "Natural", Hex: "#f5f1e8"},
			{Name: "Black", Hex: "#1a1a1a"},
		},
		PrintArea: domain.PrintArea{X: 25, Y: 35, W: 50, H: 35},
		ImageRef:  "tote",
	},
	{
		ID:        "mug",
		Name:      "Ceramic Mug",
		Category:  "mug",
		BasePrice: 12.99,
		Colors: []domain.ProductColor{
			{Name: "White", Hex: "#ffffff"},
			{Name: "Black", Hex: "#1a1a1a"},
		},
		PrintArea: domain.PrintArea{X: 20, Y: 30, W: 60, H: 40},
		ImageRef:  "mug",
	},
}

// Products returns the customizable product catalog.
func Products() []domain.Product {
	return products
}

// ProductByID returns the product with the given id.
func ProductByID(id string) (domain.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// TextColorByName resolves a print color name case-insensitively.
func TextColorByName(name string) (domain.ProductColor, bool) {
	for _, c := range TextColorOptions {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return domain.ProductColor{}, false
}

// ValidOccasion reports whether the occasion is one of the known values.
func ValidOccasion(occasion string) bool {
	return containsFold(Occasions, occasion)
}

// ValidVibe reports whether the vibe is one of the known values.
func ValidVibe(vibe string) bool {
	return containsFold(Vibes, vibe)
}

func containsFold(values []string, candidate string) bool {
	for _, v := range values {
		if strings.EqualFold(v, candidate) {
			return true
		}
	}
	return false
}
