package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/merchforge/api/internal/catalog"
)

// Deterministic keyword extraction. This path has zero I/O and must produce
// usable updates even when the model backend is fully unavailable.

var (
	quantityPattern       = regexp.MustCompile(`(\d+)\s*(?:items|pcs|pieces|shirts|hoodies|totes)`)
	doubleQuotePattern    = regexp.MustCompile(`"([^"]+)"`)
	singleQuotePattern    = regexp.MustCompile(`'([^']+)'`)
	designInColorPattern  = regexp.MustCompile(`(?:star|heart|logo|text|icon|print)\s+in\s+(\w+)`)
	productInColorPattern = regexp.MustCompile(`(?:tee|shirt|t-shirt|hoodie|tote|bag)\s+in\s+(\w+)`)
)

// colorAdjacency holds the precompiled disambiguation patterns for one color:
// a color token next to a product noun sets productColor, next to a design
// noun sets textColor.
type colorAdjacency struct {
	color      string
	product    *regexp.Regexp
	productRev *regexp.Regexp
	design     *regexp.Regexp
	designRev  *regexp.Regexp
}

var colorAdjacencies = buildColorAdjacencies()

func buildColorAdjacencies() []colorAdjacency {
	const productNouns = `(?:tee|shirt|t-shirt|hoodie|tote|bag|top|garment|item)`
	const designNouns = `(?:text|icon|star|heart|logo|arrow|wave|sun|mountain|design|print)`

	out := make([]colorAdjacency, 0, len(genericColors))
	for _, color := range genericColors {
		out = append(out, colorAdjacency{
			color:      color,
			product:    regexp.MustCompile(fmt.Sprintf(`%s\s*%s`, color, productNouns)),
			productRev: regexp.MustCompile(fmt.Sprintf(`%s\s*(?:in|of)?\s*%s`, productNouns, color)),
			design:     regexp.MustCompile(fmt.Sprintf(`%s\s*%s`, color, designNouns)),
			designRev:  regexp.MustCompile(fmt.Sprintf(`%s\s*(?:in|of)?\s*%s`, designNouns, color)),
		})
	}
	return out
}

var sizePatterns = buildSizePatterns()

func buildSizePatterns() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(genericSizes))
	for _, size := range genericSizes {
		lowered := strings.ToLower(size)
		out[lowered] = regexp.MustCompile(`\b` + lowered + `\b`)
	}
	return out
}

// ParseKeywordUpdates extracts candidate updates from a raw user utterance.
// The result is loose and must still pass the Validator before use.
func ParseKeywordUpdates(message string) map[string]any {
	text := strings.ToLower(message)
	updates := map[string]any{}

	switch {
	case strings.Contains(text, "tee"), strings.Contains(text, "shirt"), strings.Contains(text, "t-shirt"):
		updates["productId"] = "classic-tee"
	case strings.Contains(text, "hoodie"):
		updates["productId"] = "hoodie"
	case strings.Contains(text, "tote"), strings.Contains(text, "bag"):
		updates["productId"] = "tote"
	case strings.Contains(text, "mug"), strings.Contains(text, "cup"):
		updates["productId"] = "mug"
	}

	for _, adj := range colorAdjacencies {
		if !strings.Contains(text, adj.color) {
			continue
		}
		switch {
		case adj.product.MatchString(text) || adj.productRev.MatchString(text):
			updates["productColor"] = adj.color
		case adj.design.MatchString(text) || adj.designRev.MatchString(text):
			updates["textColor"] = adj.color
		default:
			if _, set := updates["productColor"]; !set {
				updates["productColor"] = adj.color
			}
		}
	}

	if match := designInColorPattern.FindStringSubmatch(text); match != nil && isGenericColor(match[1]) {
		updates["textColor"] = match[1]
	}
	if match := productInColorPattern.FindStringSubmatch(text); match != nil && isGenericColor(match[1]) {
		updates["productColor"] = match[1]
	}

	for _, size := range genericSizes {
		if sizePatterns[strings.ToLower(size)].MatchString(text) {
			updates["size"] = size
			break
		}
	}

	if match := quantityPattern.FindStringSubmatch(text); match != nil {
		if qty, err := strconv.Atoi(match[1]); err == nil {
			updates["quantity"] = float64(qty)
		}
	}

	for _, icon := range catalog.Icons() {
		if strings.Contains(text, icon.ID) {
			updates["iconId"] = icon.ID
			break
		}
	}

	if match := doubleQuotePattern.FindStringSubmatch(message); match != nil {
		updates["text"] = match[1]
	} else if match := singleQuotePattern.FindStringSubmatch(message); match != nil {
		updates["text"] = match[1]
	}

	return updates
}

func isGenericColor(color string) bool {
	for _, known := range genericColors {
		if known == color {
			return true
		}
	}
	return false
}
