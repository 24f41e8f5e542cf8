package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/merchforge/api/internal/domain"
)

// Discovery constraint vocabularies.
var (
	discoverCategoryKeywords = []struct {
		category string
		keywords []string
	}{
		{"tee", []string{"tee", "t-shirt", "shirt"}},
		{"hoodie", []string{"hoodie", "sweatshirt"}},
		{"tote", []string{"tote", "bag"}},
		{"mug", []string{"mug", "cup"}},
	}

	discoverOccasionKeywords = []struct {
		occasion string
		keywords []string
	}{
		{"gift", []string{"gift", "present", "birthday"}},
		{"team", []string{"team", "group", "club"}},
		{"event", []string{"event", "party", "concert"}},
		{"personal", []string{"personal", "myself", "me"}},
	}

	discoverMaterials = []string{"cotton", "canvas", "ceramic", "organic", "recycled", "poly", "polyester"}
	discoverTags      = []string{"eco", "sustainable", "minimal", "bold", "retro", "cute", "sporty"}
	discoverColors    = []string{"white", "black", "navy", "forest", "burgundy", "natural", "charcoal"}
)

var (
	budgetPattern        = regexp.MustCompile(`(?:under|less than|below)\s*[€$]?(\d+(?:\.\d+)?)`)
	barePricePattern     = regexp.MustCompile(`[€$](\d+(?:\.\d+)?)`)
	discoverQtyPattern   = regexp.MustCompile(`(\d+)\s*(?:items|pcs|pieces|shirts|hoodies|totes|mugs)`)
	leadTimePattern      = regexp.MustCompile(`(?:under|less than|within|in)\s*(\d+)\s*days?`)
	eventMonthPattern    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	materialsAskPatterns = []string{"fabric", "material", "materials"}
)

// DiscoverUpdates is the sanitized per-turn delta to the discovery
// constraints. HasSustainable disambiguates an explicit false.
type DiscoverUpdates struct {
	Stage          domain.DiscoverStage
	Category       string
	BudgetMax      float64
	Materials      []string
	Sustainable    bool
	HasSustainable bool
	Quantity       int
	EventDate      string
	Tags           []string
	Occasion       string
	Color          string
	LeadTimeMax    int
	Size           string
}

// ParseDiscoverConstraints extracts constraint updates from a user message
// using keyword and regex matching only.
func ParseDiscoverConstraints(message string) DiscoverUpdates {
	text := strings.ToLower(message)
	updates := DiscoverUpdates{}

	for _, entry := range discoverCategoryKeywords {
		if containsAny(text, entry.keywords) {
			updates.Category = entry.category
			break
		}
	}

	for _, entry := range discoverOccasionKeywords {
		if containsAny(text, entry.keywords) {
			updates.Occasion = entry.occasion
			break
		}
	}

	if strings.Contains(text, "sustainable") || strings.Contains(text, "eco") {
		updates.Sustainable = true
		updates.HasSustainable = true
	}

	for _, material := range discoverMaterials {
		if strings.Contains(text, material) {
			updates.Materials = append(updates.Materials, material)
		}
	}

	for _, tag := range discoverTags {
		if strings.Contains(text, tag) {
			updates.Tags = append(updates.Tags, tag)
		}
	}

	for _, color := range discoverColors {
		if strings.Contains(text, color) {
			updates.Color = color
			break
		}
	}

	for _, size := range genericSizes {
		if sizePatterns[strings.ToLower(size)].MatchString(text) {
			updates.Size = size
			break
		}
	}

	if match := budgetPattern.FindStringSubmatch(text); match != nil {
		updates.BudgetMax, _ = strconv.ParseFloat(match[1], 64)
	} else if match := barePricePattern.FindStringSubmatch(text); match != nil {
		updates.BudgetMax, _ = strconv.ParseFloat(match[1], 64)
	}

	if match := discoverQtyPattern.FindStringSubmatch(text); match != nil {
		updates.Quantity, _ = strconv.Atoi(match[1])
	}

	if match := leadTimePattern.FindStringSubmatch(text); match != nil {
		updates.LeadTimeMax, _ = strconv.Atoi(match[1])
	}

	if match := eventMonthPattern.FindStringSubmatch(text); match != nil {
		updates.EventDate = strings.ToLower(match[1])
	}

	return updates
}

// MergeConstraints folds a turn's updates into the accumulated constraints.
// Values are additive: a newer value replaces the old, nothing resets.
func MergeConstraints(constraints domain.DiscoverConstraints, updates DiscoverUpdates) domain.DiscoverConstraints {
	if updates.Category != "" {
		constraints.Category = updates.Category
	}
	if updates.BudgetMax > 0 {
		constraints.BudgetMax = updates.BudgetMax
	}
	if len(updates.Materials) > 0 {
		constraints.Materials = updates.Materials
	}
	if updates.HasSustainable {
		constraints.Sustainable = updates.Sustainable
	}
	if updates.Quantity > 0 {
		constraints.Quantity = updates.Quantity
	}
	if updates.EventDate != "" {
		constraints.EventDate = updates.EventDate
	}
	if len(updates.Tags) > 0 {
		constraints.Tags = updates.Tags
	}
	if updates.Occasion != "" {
		constraints.Occasion = updates.Occasion
	}
	if updates.Color != "" {
		constraints.Color = updates.Color
	}
	if updates.LeadTimeMax > 0 {
		constraints.LeadTimeMax = updates.LeadTimeMax
	}
	if updates.Size != "" {
		constraints.Size = updates.Size
	}
	return constraints
}

// IsMaterialsQuestion reports whether the user is asking what materials are
// available rather than stating a constraint.
func IsMaterialsQuestion(message string) bool {
	text := strings.ToLower(message)
	return containsAny(text, materialsAskPatterns)
}

// AvailableMaterials aggregates the distinct materials across the items that
// still match the constraints, sorted for stable output.
func AvailableMaterials(items []domain.ACPItem, constraints domain.DiscoverConstraints) []string {
	seen := map[string]bool{}
	for _, item := range FilterInventory(items, constraints) {
		for _, material := range item.Attributes.Materials {
			seen[material] = true
		}
	}
	out := make([]string, 0, len(seen))
	for material := range seen {
		out = append(out, material)
	}
	sort.Strings(out)
	return out
}

func isSustainableItem(item domain.ACPItem) bool {
	return containsString(item.Attributes.Tags, "eco") ||
		containsString(item.Attributes.Materials, "organic") ||
		containsString(item.Attributes.Materials, "recycled")
}

// FilterInventory applies every set constraint as a hard AND predicate.
// Variant-level availability overrides item-level when both color and a
// matching material are constrained.
func FilterInventory(items []domain.ACPItem, constraints domain.DiscoverConstraints) []domain.ACPItem {
	var out []domain.ACPItem
	for _, item := range items {
		if !item.IsEligibleSearch {
			continue
		}
		if item.Availability != domain.AvailabilityInStock {
			continue
		}
		if constraints.Category != "" && item.Attributes.Category != constraints.Category {
			continue
		}
		if constraints.BudgetMax > 0 && item.Price.Amount > constraints.BudgetMax {
			continue
		}
		if constraints.Sustainable && !isSustainableItem(item) {
			continue
		}
		if len(constraints.Materials) > 0 && !intersects(constraints.Materials, item.Attributes.Materials) {
			continue
		}
		if len(constraints.Tags) > 0 && !intersects(constraints.Tags, item.Attributes.Tags) {
			continue
		}
		if constraints.LeadTimeMax > 0 && item.Attributes.LeadTimeDays > constraints.LeadTimeMax {
			continue
		}
		if constraints.Color != "" && !hasVariantColor(item, constraints.Color) {
			continue
		}
		if constraints.Size != "" {
			if len(item.Attributes.Variants.Sizes) == 0 || !containsString(item.Attributes.Variants.Sizes, constraints.Size) {
				continue
			}
		}
		if constraints.Color != "" && len(constraints.Materials) > 0 && item.AvailabilityByVariant != nil {
			if material := firstMatchingMaterial(constraints.Materials, item.Attributes.Materials); material != "" {
				key := domain.VariantKey(constraints.Color, material)
				if item.AvailabilityByVariant[key] == domain.AvailabilityOutOfStock {
					continue
				}
			}
		}
		out = append(out, item)
	}
	return out
}

func scoreItem(item domain.ACPItem, constraints domain.DiscoverConstraints) int {
	score := 0
	if constraints.Category != "" && item.Attributes.Category == constraints.Category {
		score += 3
	}
	if constraints.BudgetMax > 0 && item.Price.Amount <= constraints.BudgetMax {
		score += 2
	}
	if constraints.Sustainable && isSustainableItem(item) {
		score += 2
	}
	for _, material := range constraints.Materials {
		if containsString(item.Attributes.Materials, material) {
			score++
		}
	}
	for _, tag := range constraints.Tags {
		if containsString(item.Attributes.Tags, tag) {
			score++
		}
	}
	if constraints.Color != "" && hasVariantColor(item, constraints.Color) {
		score++
	}
	if constraints.Size != "" && containsString(item.Attributes.Variants.Sizes, constraints.Size) {
		score++
	}
	if constraints.Occasion != "" && containsString(item.Attributes.Tags, constraints.Occasion) {
		score++
	}
	return score
}

// RankInventory filters, scores, and truncates to the top three, attaching a
// human-readable reason and the best-matching variant image per survivor.
func RankInventory(items []domain.ACPItem, constraints domain.DiscoverConstraints) []domain.InventoryResult {
	filtered := FilterInventory(items, constraints)

	type scored struct {
		item  domain.ACPItem
		score int
	}
	ranked := make([]scored, 0, len(filtered))
	for _, item := range filtered {
		ranked = append(ranked, scored{item: item, score: scoreItem(item, constraints)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	results := make([]domain.InventoryResult, 0, len(ranked))
	for _, entry := range ranked {
		results = append(results, buildResult(entry.item, constraints))
	}
	return results
}

func buildResult(item domain.ACPItem, constraints domain.DiscoverConstraints) domain.InventoryResult {
	var reasons []string
	if constraints.Category != "" {
		reasons = append(reasons, fmt.Sprintf("matches %s", constraints.Category))
	}
	if constraints.BudgetMax > 0 {
		reasons = append(reasons, fmt.Sprintf("under €%g", constraints.BudgetMax))
	}
	if constraints.Sustainable && isSustainableItem(item) {
		reasons = append(reasons, "sustainable-friendly")
	}
	if constraints.Quantity > 0 && item.Attributes.MinQty > constraints.Quantity {
		reasons = append(reasons, fmt.Sprintf("min qty %d", item.Attributes.MinQty))
	}
	reason := "popular pick"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ", ")
	}

	var matchedColor, matchedColorHex string
	if constraints.Color != "" {
		for _, color := range item.Attributes.Variants.Colors {
			if strings.ToLower(color.Name) == constraints.Color {
				matchedColor = color.Name
				matchedColorHex = color.Hex
				break
			}
		}
	}

	matchedMaterial := firstMatchingMaterial(constraints.Materials, item.Attributes.Materials)

	var imageSelected string
	if matchedColor != "" && item.ImageURLByVariant != nil {
		switch {
		case matchedMaterial != "":
			imageSelected = item.ImageURLByVariant[domain.VariantKey(matchedColor, matchedMaterial)]
		case len(item.Attributes.Materials) == 1:
			imageSelected = item.ImageURLByVariant[domain.VariantKey(matchedColor, item.Attributes.Materials[0])]
		}
	}

	var imageFallback string
	if len(item.ImageURLByVariant) > 0 {
		keys := make([]string, 0, len(item.ImageURLByVariant))
		for key := range item.ImageURLByVariant {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		imageFallback = item.ImageURLByVariant[keys[0]]
	}

	var variantAvailability string
	if matchedColor != "" && matchedMaterial != "" && item.AvailabilityByVariant != nil {
		variantAvailability = item.AvailabilityByVariant[domain.VariantKey(matchedColor, matchedMaterial)]
	}

	return domain.InventoryResult{
		ItemID:              item.ItemID,
		Title:               item.Title,
		Description:         item.Description,
		ImageURL:            item.ImageURL,
		ImageURLSelected:    imageSelected,
		ImageURLFallback:    imageFallback,
		Price:               fmt.Sprintf("€%.2f", item.Price.Amount),
		Tags:                item.Attributes.Tags,
		Reason:              reason,
		LeadTimeDays:        item.Attributes.LeadTimeDays,
		Availability:        item.Availability,
		MatchedColor:        matchedColor,
		MatchedColorHex:     matchedColorHex,
		MatchedMaterial:     matchedMaterial,
		VariantAvailability: variantAvailability,
	}
}

// RelaxConstraints handles empty result sets by dropping constraints in a
// fixed priority order: color, then materials, then lead time. It stops at
// the first non-empty result set and reports which constraints were dropped.
func RelaxConstraints(items []domain.ACPItem, constraints domain.DiscoverConstraints) ([]domain.InventoryResult, []string) {
	var dropped []string
	relaxed := constraints

	if relaxed.Color != "" {
		relaxed.Color = ""
		dropped = append(dropped, "color")
		if results := RankInventory(items, relaxed); len(results) > 0 {
			return results, dropped
		}
	}
	if len(relaxed.Materials) > 0 {
		relaxed.Materials = nil
		dropped = append(dropped, "materials")
		if results := RankInventory(items, relaxed); len(results) > 0 {
			return results, dropped
		}
	}
	if relaxed.LeadTimeMax > 0 {
		relaxed.LeadTimeMax = 0
		dropped = append(dropped, "lead time")
		if results := RankInventory(items, relaxed); len(results) > 0 {
			return results, dropped
		}
	}
	return nil, dropped
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func containsString(values []string, candidate string) bool {
	for _, v := range values {
		if v == candidate {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if containsString(b, v) {
			return true
		}
	}
	return false
}

func firstMatchingMaterial(wanted, available []string) string {
	for _, material := range wanted {
		if containsString(available, material) {
			return material
		}
	}
	return ""
}

func hasVariantColor(item domain.ACPItem, color string) bool {
	for _, c := range item.Attributes.Variants.Colors {
		if strings.ToLower(c.Name) == color {
			return true
		}
	}
	return false
}
