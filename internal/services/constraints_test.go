package services

import (
	"reflect"
	"strings"
	"testing"

	"github.com/merchforge/api/internal/catalog"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(ValidatorDeps{TextMaxLength: 50, MinQuantity: 1, MaxQuantity: 99})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidateIsIdempotent(t *testing.T) {
	v := newTestValidator(t)
	raw := map[string]any{
		"productId":    "tee",
		"occasion":     "gift",
		"vibe":         "retro",
		"text":         "  Best   Dad  ",
		"iconId":       "star",
		"productColor": "Navy",
		"textColor":    "RED",
		"size":         "xl",
		"quantity":     150.0,
		"action":       "add_to_cart",
		"garbage":      "ignored",
	}

	once := v.Validate(raw, nil)
	twice := v.Validate(once.Raw(), nil)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("validation not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
	if once.ProductID != "classic-tee" {
		t.Fatalf("ProductID = %q, want classic-tee", once.ProductID)
	}
	if once.Text != "Best Dad" {
		t.Fatalf("Text = %q, want collapsed whitespace", once.Text)
	}
}

func TestValidateClampsQuantity(t *testing.T) {
	v := newTestValidator(t)
	cases := []struct {
		in   float64
		want int
	}{
		{500, 99},
		{0, 1},
		{-3, 1},
		{12.9, 12},
		{42, 42},
	}
	for _, tc := range cases {
		got := v.Validate(map[string]any{"quantity": tc.in}, nil)
		if !got.HasQuantity || got.Quantity != tc.want {
			t.Errorf("quantity %v = %d (has=%v), want %d", tc.in, got.Quantity, got.HasQuantity, tc.want)
		}
	}

	if got := v.Validate(map[string]any{}, nil); got.HasQuantity {
		t.Fatal("absent quantity should not set HasQuantity")
	}
}

func TestValidateTextLengthBoundary(t *testing.T) {
	v := newTestValidator(t)

	atLimit := strings.Repeat("a", 50)
	if got := v.Validate(map[string]any{"text": atLimit}, nil); got.Text != atLimit {
		t.Fatalf("text at limit rejected: %q", got.Text)
	}
	over := strings.Repeat("a", 51)
	if got := v.Validate(map[string]any{"text": over}, nil); got.Text != "" {
		t.Fatalf("text over limit accepted: %q", got.Text)
	}
}

func TestValidateRejectsPlaceholders(t *testing.T) {
	v := newTestValidator(t)
	got := v.Validate(map[string]any{
		"productColor": "string",
		"textColor":    "color",
		"size":         "size",
	}, nil)
	if got.ProductColor != "" || got.TextColor != "" || got.Size != "" {
		t.Fatalf("placeholder values accepted: %+v", got)
	}
}

func TestValidateProductColorAgainstResolvedProduct(t *testing.T) {
	v := newTestValidator(t)
	tote, _ := catalog.ProductByID("tote")

	// Navy exists generically but not on the tote.
	if got := v.Validate(map[string]any{"productColor": "navy"}, &tote); got.ProductColor != "" {
		t.Fatalf("navy accepted for tote: %q", got.ProductColor)
	}
	if got := v.Validate(map[string]any{"productColor": "natural"}, &tote); got.ProductColor != "natural" {
		t.Fatalf("natural rejected for tote: %q", got.ProductColor)
	}
	if got := v.Validate(map[string]any{"productColor": "navy"}, nil); got.ProductColor != "navy" {
		t.Fatalf("generic navy rejected without product: %q", got.ProductColor)
	}
}

func TestValidateSizeAgainstResolvedProduct(t *testing.T) {
	v := newTestValidator(t)
	hoodie, _ := catalog.ProductByID("hoodie")

	if got := v.Validate(map[string]any{"size": "xs"}, &hoodie); got.Size != "" {
		t.Fatalf("XS accepted for hoodie: %q", got.Size)
	}
	if got := v.Validate(map[string]any{"size": "xl"}, &hoodie); got.Size != "XL" {
		t.Fatalf("XL rejected for hoodie: %q", got.Size)
	}
}

func TestNormalizeTextStripsMarkup(t *testing.T) {
	v := newTestValidator(t)
	got := v.NormalizeText("  <b>Team</b>  Spirit <script>x()</script> ")
	if got != "Team Spirit" {
		t.Fatalf("NormalizeText = %q, want %q", got, "Team Spirit")
	}
	if again := v.NormalizeText(got); again != got {
		t.Fatalf("NormalizeText not idempotent: %q -> %q", got, again)
	}
}

func TestResolveProductByNameAndCategory(t *testing.T) {
	v := newTestValidator(t)
	for _, ref := range []string{"classic-tee", "Classic Tee", "tee"} {
		if got := v.Validate(map[string]any{"productId": ref}, nil); got.ProductID != "classic-tee" {
			t.Errorf("productId %q resolved to %q, want classic-tee", ref, got.ProductID)
		}
	}
	if got := v.Validate(map[string]any{"productId": "socks"}, nil); got.ProductID != "" {
		t.Fatalf("unknown product accepted: %q", got.ProductID)
	}
}
