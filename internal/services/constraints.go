package services

import (
	"errors"
	"html"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
)

// placeholderTokens are values the model emits when it echoes the output
// contract instead of a real value. They are never valid field content.
var placeholderTokens = map[string]bool{
	"string":    true,
	"number":    true,
	"color":     true,
	"size":      true,
	"value":     true,
	"null":      true,
	"undefined": true,
	"unknown":   true,
	"n/a":       true,
}

// genericColors is the allowed color vocabulary used before a product is
// resolved, so a single utterance like "navy tee" can set both fields.
var genericColors = []string{
	"black", "white", "red", "navy", "forest", "burgundy",
	"charcoal", "natural", "pink", "blue", "green",
}

// genericSizes is the size vocabulary used before a product is resolved.
var genericSizes = []string{"XS", "S", "M", "L", "XL", "2XL"}

// Updates is the sanitized subset of extracted fields. Zero values mean the
// field was absent or rejected; HasQuantity disambiguates quantity 0.
type Updates struct {
	Stage        domain.Stage
	ProductID    string
	Occasion     string
	Vibe         string
	Text         string
	IconID       string
	ProductColor string
	TextColor    string
	Size         string
	Quantity     int
	HasQuantity  bool
	Action       domain.Action
	BudgetMax    float64
	LeadTimeMax  int
	Materials    []string
	Tags         []string
}

// IsEmpty reports whether no field survived validation.
func (u Updates) IsEmpty() bool {
	return u.Stage == "" && u.ProductID == "" && u.Occasion == "" && u.Vibe == "" &&
		u.Text == "" && u.IconID == "" && u.ProductColor == "" && u.TextColor == "" &&
		u.Size == "" && !u.HasQuantity && u.Action == "" &&
		u.BudgetMax == 0 && u.LeadTimeMax == 0 && len(u.Materials) == 0 && len(u.Tags) == 0
}

// Raw converts the sanitized updates back into the loose map shape, so a
// second validation pass sees the same input a first pass produced.
func (u Updates) Raw() map[string]any {
	raw := map[string]any{}
	if u.Stage != "" {
		raw["stage"] = string(u.Stage)
	}
	if u.ProductID != "" {
		raw["productId"] = u.ProductID
	}
	if u.Occasion != "" {
		raw["occasion"] = u.Occasion
	}
	if u.Vibe != "" {
		raw["vibe"] = u.Vibe
	}
	if u.Text != "" {
		raw["text"] = u.Text
	}
	if u.IconID != "" {
		raw["iconId"] = u.IconID
	}
	if u.ProductColor != "" {
		raw["productColor"] = u.ProductColor
	}
	if u.TextColor != "" {
		raw["textColor"] = u.TextColor
	}
	if u.Size != "" {
		raw["size"] = u.Size
	}
	if u.HasQuantity {
		raw["quantity"] = float64(u.Quantity)
	}
	if u.Action != "" {
		raw["action"] = string(u.Action)
	}
	if u.BudgetMax > 0 {
		raw["budgetMax"] = u.BudgetMax
	}
	if u.LeadTimeMax > 0 {
		raw["leadTimeMax"] = float64(u.LeadTimeMax)
	}
	if len(u.Materials) > 0 {
		raw["materials"] = stringsToAny(u.Materials)
	}
	if len(u.Tags) > 0 {
		raw["tags"] = stringsToAny(u.Tags)
	}
	return raw
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Validator sanitizes loosely shaped extraction output. It is total: invalid
// fields are dropped, never reported as errors.
type Validator struct {
	textMaxLength int
	minQuantity   int
	maxQuantity   int
	policy        *bluemonday.Policy
}

// ValidatorDeps configures a Validator.
type ValidatorDeps struct {
	TextMaxLength int
	MinQuantity   int
	MaxQuantity   int
}

// NewValidator constructs a Validator with the configured bounds.
func NewValidator(deps ValidatorDeps) (*Validator, error) {
	if deps.TextMaxLength <= 0 {
		return nil, errors.New("validator: text max length must be positive")
	}
	if deps.MinQuantity <= 0 || deps.MaxQuantity < deps.MinQuantity {
		return nil, errors.New("validator: quantity bounds are invalid")
	}
	return &Validator{
		textMaxLength: deps.TextMaxLength,
		minQuantity:   deps.MinQuantity,
		maxQuantity:   deps.MaxQuantity,
		policy:        bluemonday.StrictPolicy(),
	}, nil
}

// NormalizeText trims, NFC-normalizes, collapses internal whitespace, and
// strips markup from user-supplied design text.
func (v *Validator) NormalizeText(text string) string {
	normalized := norm.NFC.String(text)
	normalized = html.UnescapeString(v.policy.Sanitize(normalized))
	return strings.Join(strings.Fields(normalized), " ")
}

// Validate sanitizes raw extraction output against the catalog and, when a
// product is already resolved, against that product's declared variants.
func (v *Validator) Validate(raw map[string]any, product *domain.Product) Updates {
	updates := Updates{}
	if raw == nil {
		return updates
	}

	if stage, ok := rawString(raw, "stage"); ok && domain.ValidStage(domain.Stage(stage)) {
		updates.Stage = domain.Stage(stage)
	}

	if id, ok := rawString(raw, "productId"); ok {
		if resolved, found := resolveProduct(id); found {
			updates.ProductID = resolved.ID
		}
	}

	if occasion, ok := rawString(raw, "occasion"); ok && catalog.ValidOccasion(occasion) {
		updates.Occasion = strings.ToLower(occasion)
	}

	if vibe, ok := rawString(raw, "vibe"); ok && catalog.ValidVibe(vibe) {
		updates.Vibe = strings.ToLower(vibe)
	}

	if text, ok := rawString(raw, "text"); ok {
		normalized := v.NormalizeText(text)
		if normalized != "" && len([]rune(normalized)) <= v.textMaxLength {
			updates.Text = normalized
		}
	}

	if iconID, ok := rawString(raw, "iconId"); ok {
		if _, found := catalog.IconByID(iconID); found {
			updates.IconID = iconID
		}
	}

	if color, ok := rawString(raw, "productColor"); ok {
		if valid := validateProductColor(strings.ToLower(color), product); valid != "" {
			updates.ProductColor = valid
		}
	}

	if color, ok := rawString(raw, "textColor"); ok {
		lowered := strings.ToLower(color)
		if !placeholderTokens[lowered] {
			if _, found := catalog.TextColorByName(lowered); found {
				updates.TextColor = lowered
			}
		}
	}

	if size, ok := rawString(raw, "size"); ok {
		if valid := validateSize(strings.ToUpper(size), product); valid != "" {
			updates.Size = valid
		}
	}

	if qty, ok := rawNumber(raw, "quantity"); ok {
		clamped := int(math.Floor(qty))
		if clamped < v.minQuantity {
			clamped = v.minQuantity
		}
		if clamped > v.maxQuantity {
			clamped = v.maxQuantity
		}
		updates.Quantity = clamped
		updates.HasQuantity = true
	}

	if action, ok := rawString(raw, "action"); ok {
		switch domain.Action(action) {
		case domain.ActionAddToCart, domain.ActionRemoveIcon:
			updates.Action = domain.Action(action)
		}
	}

	if budget, ok := rawNumber(raw, "budgetMax"); ok && budget > 0 {
		updates.BudgetMax = budget
	}

	if lead, ok := rawNumber(raw, "leadTimeMax"); ok && lead > 0 {
		updates.LeadTimeMax = int(math.Floor(lead))
	}

	if materials := rawStringSlice(raw, "materials"); len(materials) > 0 {
		updates.Materials = materials
	}

	if tags := rawStringSlice(raw, "tags"); len(tags) > 0 {
		updates.Tags = tags
	}

	return updates
}

// validateProductColor checks a lowered color name against the resolved
// product, or against the generic vocabulary when no product is known yet.
func validateProductColor(color string, product *domain.Product) string {
	if color == "" || placeholderTokens[color] {
		return ""
	}
	if product != nil {
		if product.HasColor(color) {
			return color
		}
		return ""
	}
	for _, known := range genericColors {
		if known == color {
			return color
		}
	}
	return ""
}

func validateSize(size string, product *domain.Product) string {
	if size == "" || placeholderTokens[strings.ToLower(size)] {
		return ""
	}
	if product != nil {
		if product.HasSize(size) {
			return size
		}
		return ""
	}
	for _, known := range genericSizes {
		if known == size {
			return size
		}
	}
	return ""
}

// resolveProduct accepts a catalog product by id, exact name, or category.
func resolveProduct(ref string) (domain.Product, bool) {
	if product, ok := catalog.ProductByID(ref); ok {
		return product, true
	}
	for _, product := range catalog.Products() {
		if strings.EqualFold(product.Name, ref) || strings.EqualFold(product.Category, ref) {
			return product, true
		}
	}
	return domain.Product{}, false
}

func rawString(raw map[string]any, key string) (string, bool) {
	value, ok := raw[key].(string)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func rawNumber(raw map[string]any, key string) (float64, bool) {
	switch value := raw[key].(type) {
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		return value, true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}

func rawStringSlice(raw map[string]any, key string) []string {
	switch value := raw[key].(type) {
	case []any:
		out := make([]string, 0, len(value))
		for _, entry := range value {
			if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.ToLower(strings.TrimSpace(s)))
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(value))
		for _, s := range value {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.ToLower(strings.TrimSpace(s)))
			}
		}
		return out
	default:
		return nil
	}
}
