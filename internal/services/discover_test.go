package services

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/llm"
)

func testInventory(t *testing.T) []domain.ACPItem {
	t.Helper()
	items, err := catalog.Inventory()
	if err != nil {
		t.Fatalf("catalog.Inventory: %v", err)
	}
	return items
}

func newTestDiscoverEngine(t *testing.T, model llm.Client) *DiscoverEngine {
	t.Helper()
	engine, err := NewDiscoverEngine(DiscoverEngineDeps{
		Model:     model,
		Inventory: testInventory(t),
	})
	if err != nil {
		t.Fatalf("NewDiscoverEngine: %v", err)
	}
	return engine
}

func TestParseDiscoverConstraints(t *testing.T) {
	updates := ParseDiscoverConstraints("Sustainable cotton tees under €20 for a team, 30 items within 10 days in October")

	if updates.Category != "tee" {
		t.Errorf("Category = %q", updates.Category)
	}
	if updates.BudgetMax != 20 {
		t.Errorf("BudgetMax = %v", updates.BudgetMax)
	}
	if !updates.HasSustainable || !updates.Sustainable {
		t.Error("sustainable not detected")
	}
	if !reflect.DeepEqual(updates.Materials, []string{"cotton"}) {
		t.Errorf("Materials = %v", updates.Materials)
	}
	if updates.Occasion != "team" {
		t.Errorf("Occasion = %q", updates.Occasion)
	}
	if updates.Quantity != 30 {
		t.Errorf("Quantity = %d", updates.Quantity)
	}
	if updates.LeadTimeMax != 10 {
		t.Errorf("LeadTimeMax = %d", updates.LeadTimeMax)
	}
	if updates.EventDate != "october" {
		t.Errorf("EventDate = %q", updates.EventDate)
	}
}

func TestParseDiscoverConstraintsBarePrice(t *testing.T) {
	updates := ParseDiscoverConstraints("mugs around €12 maybe")
	if updates.Category != "mug" || updates.BudgetMax != 12 {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestMergeConstraintsIsAdditive(t *testing.T) {
	constraints := domain.DiscoverConstraints{Category: "tee", Color: "white"}
	merged := MergeConstraints(constraints, DiscoverUpdates{BudgetMax: 25})
	if merged.Category != "tee" || merged.Color != "white" || merged.BudgetMax != 25 {
		t.Fatalf("merged = %+v", merged)
	}

	merged = MergeConstraints(merged, DiscoverUpdates{Color: "navy"})
	if merged.Color != "navy" || merged.BudgetMax != 25 {
		t.Fatalf("newer value did not replace: %+v", merged)
	}
}

func TestRankInventoryWhiteTeeUnderBudget(t *testing.T) {
	results := RankInventory(testInventory(t), domain.DiscoverConstraints{
		Category:  "tee",
		Color:     "white",
		BudgetMax: 20,
	})
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].ItemID != "tee-classic-cotton" {
		t.Fatalf("first result = %q, want tee-classic-cotton", results[0].ItemID)
	}
	if results[0].Price != "€18.50" {
		t.Fatalf("price = %q", results[0].Price)
	}
	if results[0].MatchedColor != "White" {
		t.Fatalf("MatchedColor = %q", results[0].MatchedColor)
	}
	if !strings.Contains(results[0].Reason, "matches tee") || !strings.Contains(results[0].Reason, "under €20") {
		t.Fatalf("reason = %q", results[0].Reason)
	}
}

func TestRankInventoryIsDeterministic(t *testing.T) {
	constraints := domain.DiscoverConstraints{Category: "tee", BudgetMax: 30}
	first := RankInventory(testInventory(t), constraints)
	second := RankInventory(testInventory(t), constraints)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs ranked differently")
	}
	if len(first) > 3 {
		t.Fatalf("returned %d results, want at most 3", len(first))
	}
}

func TestFilterInventoryVariantAvailabilityOverride(t *testing.T) {
	// The navy/recycled combination is stocked out at the variant level even
	// though the item itself is in stock.
	filtered := FilterInventory(testInventory(t), domain.DiscoverConstraints{
		Category:  "tee",
		Color:     "navy",
		Materials: []string{"recycled"},
	})
	for _, item := range filtered {
		if item.ItemID == "tee-recycled-sport" {
			t.Fatal("stocked-out variant not excluded")
		}
	}
}

func TestFilterInventorySizeRejectsOneSizeItems(t *testing.T) {
	filtered := FilterInventory(testInventory(t), domain.DiscoverConstraints{Size: "M"})
	for _, item := range filtered {
		if len(item.Attributes.Variants.Sizes) == 0 {
			t.Fatalf("one-size item %q matched a size constraint", item.ItemID)
		}
	}
}

func TestRankInventoryMinQuantityReason(t *testing.T) {
	results := RankInventory(testInventory(t), domain.DiscoverConstraints{
		Category:  "tee",
		Materials: []string{"organic"},
		Quantity:  5,
	})
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if !strings.Contains(results[0].Reason, "min qty 12") {
		t.Fatalf("reason = %q, want min qty hint", results[0].Reason)
	}
}

func TestRelaxConstraintsDropsColorFirst(t *testing.T) {
	// No hoodie comes in natural; dropping only the color must be enough.
	results, dropped := RelaxConstraints(testInventory(t), domain.DiscoverConstraints{
		Category: "hoodie",
		Color:    "natural",
	})
	if len(results) == 0 {
		t.Fatal("relaxation produced no results")
	}
	if !reflect.DeepEqual(dropped, []string{"color"}) {
		t.Fatalf("dropped = %v, want [color]", dropped)
	}
}

func TestAvailableMaterialsSortedUnique(t *testing.T) {
	materials := AvailableMaterials(testInventory(t), domain.DiscoverConstraints{})
	if len(materials) == 0 {
		t.Fatal("no materials")
	}
	for i := 1; i < len(materials); i++ {
		if materials[i-1] >= materials[i] {
			t.Fatalf("materials not sorted unique: %v", materials)
		}
	}
}

func TestDiscoverRespondMaterialsQuestion(t *testing.T) {
	engine := newTestDiscoverEngine(t, nil)
	result := engine.Respond(context.Background(), domain.DiscoverState{}, "What materials do you offer?", nil)
	if len(result.Results) != 0 {
		t.Fatalf("materials question returned results: %v", result.Results)
	}
	if !strings.Contains(result.AssistantMessage, "cotton") {
		t.Fatalf("assistant = %q", result.AssistantMessage)
	}
}

func TestDiscoverRespondWithoutModel(t *testing.T) {
	engine := newTestDiscoverEngine(t, nil)
	result := engine.Respond(context.Background(), domain.DiscoverState{}, "sustainable tees under €25", nil)
	if !result.FallbackUsed {
		t.Fatal("FallbackUsed = false without a model")
	}
	if result.Stage != domain.DiscoverStageConstraints {
		t.Fatalf("stage = %q", result.Stage)
	}
	if len(result.Results) == 0 {
		t.Fatal("no results from deterministic path")
	}
	if result.AssistantMessage != discoverFallbackGathering {
		t.Fatalf("assistant = %q", result.AssistantMessage)
	}
}

func TestDiscoverRespondModelOverridesParsed(t *testing.T) {
	model := &stubModel{complete: func(context.Context, []llm.ChatMessage) (string, error) {
		return `{"assistant":"Navy suits that better.","updates":{"color":"navy"}}`, nil
	}}
	engine := newTestDiscoverEngine(t, model)

	result := engine.Respond(context.Background(), domain.DiscoverState{}, "white tees please", nil)
	if result.Constraints.Color != "navy" {
		t.Fatalf("Color = %q, want model override navy", result.Constraints.Color)
	}
	if result.Constraints.Category != "tee" {
		t.Fatalf("Category = %q, parsed value lost", result.Constraints.Category)
	}
}

func TestDiscoverRespondAppliesSelection(t *testing.T) {
	model := &stubModel{complete: func(context.Context, []llm.ChatMessage) (string, error) {
		return `{
			"assistant": "The recycled tee is the strongest fit.",
			"updates": {},
			"selection": {"primaryIds": ["tee-recycled-sport"], "fallbackIds": ["tee-classic-cotton"], "rationale": "Best recycled option."}
		}`, nil
	}}
	engine := newTestDiscoverEngine(t, model)

	result := engine.Respond(context.Background(), domain.DiscoverState{}, "tees under €30", nil)
	if len(result.Results) < 2 {
		t.Fatalf("results = %d", len(result.Results))
	}
	if result.Results[0].ItemID != "tee-recycled-sport" || result.Results[1].ItemID != "tee-classic-cotton" {
		t.Fatalf("selection order not applied: %q, %q", result.Results[0].ItemID, result.Results[1].ItemID)
	}
	if result.Results[0].Reason != "Best recycled option." {
		t.Fatalf("rationale not applied: %q", result.Results[0].Reason)
	}
}

func TestDiscoverRespondModelFailureFallsBack(t *testing.T) {
	model := &stubModel{complete: func(context.Context, []llm.ChatMessage) (string, error) {
		return "", context.DeadlineExceeded
	}}
	engine := newTestDiscoverEngine(t, model)

	result := engine.Respond(context.Background(), domain.DiscoverState{}, "hoodies under €50", nil)
	if !result.FallbackUsed {
		t.Fatal("FallbackUsed = false after model error")
	}
	if result.Constraints.Category != "hoodie" {
		t.Fatalf("parsed constraints lost: %+v", result.Constraints)
	}
	if len(result.Results) == 0 {
		t.Fatal("no results on fallback path")
	}
}

func TestNormalizeDiscoverUpdatesDropsUnknownValues(t *testing.T) {
	updates := normalizeDiscoverUpdates(map[string]any{
		"category":  "socks",
		"color":     "chartreuse",
		"size":      "xxxl",
		"occasion":  "heist",
		"materials": []any{"cotton", "vibranium"},
		"budgetMax": 25.0,
	})
	if updates.Category != "" || updates.Color != "" || updates.Size != "" || updates.Occasion != "" {
		t.Fatalf("unknown values accepted: %+v", updates)
	}
	if !reflect.DeepEqual(updates.Materials, []string{"cotton"}) {
		t.Fatalf("Materials = %v", updates.Materials)
	}
	if updates.BudgetMax != 25 {
		t.Fatalf("BudgetMax = %v", updates.BudgetMax)
	}
}
