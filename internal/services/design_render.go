package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/merchforge/api/internal/domain"
)

// The design generator never emits coordinates. It picks from the closed
// token vocabularies below and the renderer maps each combination onto
// hand-tuned layout tables. An unreliable generator can produce a boring
// design this way, but never an invalid one.

// Token vocabularies. The first entry of each list is the sanitize default.
var (
	compositionTokens  = []string{"stacked", "badge", "split", "overlay", "minimal", "banner"}
	textSizeTokens     = []string{"medium", "small", "large"}
	textStyleTokens    = []string{"bold", "regular", "heavy"}
	fontTokens         = []string{"sans", "serif", "impact"}
	transformTokens    = []string{"uppercase", "none"}
	letterSpreadTokens = []string{"normal", "tight", "wide"}
	iconPositionTokens = []string{"above", "below", "behind"}
	iconSizeTokens     = []string{"medium", "small", "large"}
	borderTokens       = []string{"none", "line", "circle", "double-circle"}
)

// DesignTokens is one fully sanitized layout choice.
type DesignTokens struct {
	Name         string `json:"name"`
	Style        string `json:"style"`
	Reasoning    string `json:"reasoning"`
	Composition  string `json:"composition"`
	TextSize     string `json:"textSize"`
	TextStyle    string `json:"textStyle"`
	Font         string `json:"font"`
	Transform    string `json:"transform"`
	LetterSpread string `json:"letterSpread"`
	IconPosition string `json:"iconPosition"`
	IconSize     string `json:"iconSize"`
	IconFilled   bool   `json:"iconFilled"`
	Border       string `json:"border"`
}

// sanitizeTokens re-validates every generator-supplied field against its
// vocabulary, falling back to the per-field default for anything unknown.
func sanitizeTokens(raw map[string]any, ordinal int) DesignTokens {
	tokens := DesignTokens{
		Name:         stringOr(raw, "name", fmt.Sprintf("Design %d", ordinal+1)),
		Style:        stringOr(raw, "style", ""),
		Reasoning:    stringOr(raw, "reasoning", ""),
		Composition:  pickToken(raw, "composition", compositionTokens),
		TextSize:     pickToken(raw, "textSize", textSizeTokens),
		TextStyle:    pickToken(raw, "textStyle", textStyleTokens),
		Font:         pickToken(raw, "font", fontTokens),
		Transform:    pickToken(raw, "transform", transformTokens),
		LetterSpread: pickToken(raw, "letterSpread", letterSpreadTokens),
		IconPosition: pickToken(raw, "iconPosition", iconPositionTokens),
		IconSize:     pickToken(raw, "iconSize", iconSizeTokens),
		Border:       pickToken(raw, "border", borderTokens),
	}
	if filled, ok := raw["iconFilled"].(bool); ok {
		tokens.IconFilled = filled
	}
	return tokens
}

func pickToken(raw map[string]any, key string, vocabulary []string) string {
	value, _ := raw[key].(string)
	value = strings.ToLower(strings.TrimSpace(value))
	for _, known := range vocabulary {
		if value == known {
			return value
		}
	}
	return vocabulary[0]
}

func stringOr(raw map[string]any, key, fallback string) string {
	if value, ok := raw[key].(string); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// Layout tables. All coordinates live in the 400x400 viewBox.

type textPlacement struct {
	y        float64
	iconY    float64
	iconYAlt float64 // used when composition puts the icon below
}

var compositionLayout = map[string]textPlacement{
	"stacked": {y: 260, iconY: 130},
	"badge":   {y: 260, iconY: 150},
	"split":   {y: 220, iconY: 120},
	"overlay": {y: 210, iconY: 200},
	"minimal": {y: 210, iconY: 250, iconYAlt: 250},
	"banner":  {y: 210, iconY: 110},
}

var fontFamilies = map[string]string{
	"sans":   "'Helvetica Neue', sans-serif",
	"serif":  "'Georgia', serif",
	"impact": "'Impact', sans-serif",
}

var textSizePx = map[string]float64{"small": 32, "medium": 48, "large": 58}

var textWeights = map[string]int{"regular": 400, "bold": 700, "heavy": 900}

var letterSpreadPx = map[string]float64{"tight": -1, "normal": 0, "wide": 2}

var iconScales = map[string]float64{"small": 1.5, "medium": 2.5, "large": 4}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// RenderDesign maps a sanitized token set deterministically onto SVG markup.
// The icon may be empty-pathed, in which case only text and border render.
func RenderDesign(tokens DesignTokens, text string, icon domain.Icon) string {
	layout := compositionLayout[tokens.Composition]
	var parts []string
	parts = append(parts, `<svg viewBox="0 0 400 400" xmlns="http://www.w3.org/2000/svg">`)

	switch tokens.Border {
	case "line":
		parts = append(parts, `<line x1="80" y1="300" x2="320" y2="300" stroke="currentColor" stroke-width="4" />`)
	case "circle":
		parts = append(parts, `<circle cx="200" cy="200" r="140" fill="none" stroke="currentColor" stroke-width="6" />`)
	case "double-circle":
		parts = append(parts,
			`<circle cx="200" cy="200" r="140" fill="none" stroke="currentColor" stroke-width="6" />`,
			`<circle cx="200" cy="200" r="150" fill="none" stroke="currentColor" stroke-width="2" stroke-dasharray="5,5" />`,
		)
	}

	if tokens.Composition == "banner" {
		parts = append(parts,
			`<line x1="80" y1="150" x2="320" y2="150" stroke="currentColor" stroke-width="3" />`,
			`<line x1="80" y1="250" x2="320" y2="250" stroke="currentColor" stroke-width="3" />`,
		)
	}

	if icon.Path != "" {
		parts = append(parts, renderIcon(tokens, layout, icon))
	}

	if text != "" {
		display := text
		if tokens.Transform == "uppercase" {
			display = strings.ToUpper(display)
		}
		parts = append(parts, fmt.Sprintf(
			`<text x="200" y="%s" font-family="%s" font-size="%s" font-weight="%d" text-anchor="middle" fill="currentColor" letter-spacing="%s">%s</text>`,
			formatCoord(layout.y),
			fontFamilies[tokens.Font],
			formatCoord(textSizePx[tokens.TextSize]),
			textWeights[tokens.TextStyle],
			formatCoord(letterSpreadPx[tokens.LetterSpread]),
			xmlEscaper.Replace(display),
		))
	}

	parts = append(parts, `</svg>`)
	return strings.Join(parts, "\n")
}

func renderIcon(tokens DesignTokens, layout textPlacement, icon domain.Icon) string {
	scale := iconScales[tokens.IconSize]
	opacity := 1.0
	iconY := layout.iconY

	switch tokens.IconPosition {
	case "below":
		iconY = layout.y + 60
	case "behind":
		iconY = 200
		scale = iconScales["large"] + 1
		opacity = 0.15
	}
	if tokens.Composition == "overlay" {
		iconY = 200
		opacity = 0.15
		scale = iconScales["large"] + 1
	}

	// Icon paths are authored on a 24x24 grid; recenter before scaling.
	offset := -12 * scale
	if tokens.IconFilled || tokens.IconPosition == "behind" || tokens.Composition == "overlay" {
		return fmt.Sprintf(
			`<g transform="translate(200, %s)"><path d="%s" fill="currentColor" opacity="%s" transform="translate(%s, %s) scale(%s)" /></g>`,
			formatCoord(iconY), icon.Path, formatCoord(opacity), formatCoord(offset), formatCoord(offset), formatCoord(scale),
		)
	}
	return fmt.Sprintf(
		`<g transform="translate(200, %s)"><path d="%s" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" opacity="%s" transform="translate(%s, %s) scale(%s)" /></g>`,
		formatCoord(iconY), icon.Path, formatCoord(opacity), formatCoord(offset), formatCoord(offset), formatCoord(scale),
	)
}

func formatCoord(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// fallbackDesigns are the three hand-authored token sets used whenever token
// generation fails. They always render.
func fallbackDesigns() []DesignTokens {
	minimal := DesignTokens{
		Name:         "Minimal",
		Style:        "Clean text-focused with subtle accent",
		Reasoning:    "Clean composition with restrained icon placement.",
		Composition:  "minimal",
		TextSize:     "medium",
		TextStyle:    "bold",
		Font:         "sans",
		Transform:    "uppercase",
		LetterSpread: "tight",
		IconPosition: "below",
		IconSize:     "small",
		Border:       "none",
	}
	bold := DesignTokens{
		Name:         "Bold Statement",
		Style:        "Maximum impact with large elements",
		Reasoning:    "Commands attention through scale and contrast.",
		Composition:  "stacked",
		TextSize:     "large",
		TextStyle:    "heavy",
		Font:         "impact",
		Transform:    "uppercase",
		LetterSpread: "wide",
		IconPosition: "above",
		IconSize:     "large",
		IconFilled:   true,
		Border:       "line",
	}
	retro := DesignTokens{
		Name:         "Retro Badge",
		Style:        "Vintage-inspired circular composition",
		Reasoning:    "Nostalgic aesthetic with circular framing.",
		Composition:  "badge",
		TextSize:     "small",
		TextStyle:    "bold",
		Font:         "serif",
		Transform:    "uppercase",
		LetterSpread: "normal",
		IconPosition: "above",
		IconSize:     "medium",
		IconFilled:   true,
		Border:       "double-circle",
	}
	return []DesignTokens{minimal, bold, retro}
}

// ContrastColor picks a dark or light ink for the given background hex.
func ContrastColor(bgHex string) string {
	hex := strings.TrimPrefix(bgHex, "#")
	if len(hex) != 6 {
		return "#1a1a1a"
	}
	r, errR := strconv.ParseInt(hex[0:2], 16, 32)
	g, errG := strconv.ParseInt(hex[2:4], 16, 32)
	b, errB := strconv.ParseInt(hex[4:6], 16, 32)
	if errR != nil || errG != nil || errB != nil {
		return "#1a1a1a"
	}
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "#1a1a1a"
	}
	return "#f5f5f5"
}
