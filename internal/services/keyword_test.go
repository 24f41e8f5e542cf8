package services

import "testing"

func TestParseKeywordUpdatesProductAndColors(t *testing.T) {
	updates := ParseKeywordUpdates("I'd like a navy tee with a red star")
	if updates["productId"] != "classic-tee" {
		t.Fatalf("productId = %v", updates["productId"])
	}
	if updates["productColor"] != "navy" {
		t.Fatalf("productColor = %v", updates["productColor"])
	}
	if updates["textColor"] != "red" {
		t.Fatalf("textColor = %v", updates["textColor"])
	}
}

func TestParseKeywordUpdatesPlainColorDoesNotOverwrite(t *testing.T) {
	// "black hoodie" binds black to the product; the bare "white" later in
	// the sentence must not displace it.
	updates := ParseKeywordUpdates("a black hoodie, something white maybe")
	if updates["productColor"] != "black" {
		t.Fatalf("productColor = %v, want black", updates["productColor"])
	}
}

func TestParseKeywordUpdatesQuotedText(t *testing.T) {
	updates := ParseKeywordUpdates(`it should say "Best Dad Ever"`)
	if updates["text"] != "Best Dad Ever" {
		t.Fatalf("text = %v", updates["text"])
	}

	updates = ParseKeywordUpdates(`print 'Beach Day' on it`)
	if updates["text"] != "Beach Day" {
		t.Fatalf("single-quoted text = %v", updates["text"])
	}
}

func TestParseKeywordUpdatesSizeAndQuantity(t *testing.T) {
	updates := ParseKeywordUpdates("25 shirts in size l please")
	if updates["size"] != "L" {
		t.Fatalf("size = %v", updates["size"])
	}
	if updates["quantity"] != float64(25) {
		t.Fatalf("quantity = %v", updates["quantity"])
	}
}

func TestParseKeywordUpdatesIconByID(t *testing.T) {
	updates := ParseKeywordUpdates("add a mountain to the design")
	if updates["iconId"] != "mountain" {
		t.Fatalf("iconId = %v", updates["iconId"])
	}
}

func TestParseKeywordUpdatesEmptyMessage(t *testing.T) {
	if updates := ParseKeywordUpdates("hello there"); len(updates) != 0 {
		t.Fatalf("unexpected updates: %v", updates)
	}
}
