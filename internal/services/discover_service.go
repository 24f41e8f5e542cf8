package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/llm"
)

const (
	discoverFallbackGathering = "Tell me what you need (budget, material, style, quantity, timing) and I'll narrow options."
	discoverFallbackResults   = "Got it. Here are the best matches based on your constraints."
	discoverDefaultAssistant  = "Here are the best matches based on your constraints."
)

// DiscoverResult is the outcome of one discovery turn.
type DiscoverResult struct {
	AssistantMessage string
	Updates          DiscoverUpdates
	Constraints      domain.DiscoverConstraints
	Stage            domain.DiscoverStage
	Results          []domain.InventoryResult
	Relaxed          []string
	FallbackUsed     bool
}

// DiscoverEngine ranks static inventory against accumulated constraints.
// The deterministic parser always runs; the model refines updates and may
// reorder the ranked results through an explicit selection.
type DiscoverEngine struct {
	model     llm.Client
	inventory []domain.ACPItem
	logger    *zap.Logger
}

// DiscoverEngineDeps configures a DiscoverEngine.
type DiscoverEngineDeps struct {
	Model     llm.Client
	Inventory []domain.ACPItem
	Logger    *zap.Logger
}

// NewDiscoverEngine constructs the engine. The model client may be nil; the
// engine then runs on the deterministic path alone.
func NewDiscoverEngine(deps DiscoverEngineDeps) (*DiscoverEngine, error) {
	if len(deps.Inventory) == 0 {
		return nil, errors.New("discover engine: inventory is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoverEngine{
		model:     deps.Model,
		inventory: deps.Inventory,
		logger:    logger,
	}, nil
}

type discoverTurn struct {
	Assistant string         `json:"assistant"`
	Updates   map[string]any `json:"updates"`
	Selection *discoverPick  `json:"selection"`
}

type discoverPick struct {
	PrimaryIDs  []string `json:"primaryIds"`
	FallbackIDs []string `json:"fallbackIds"`
	Rationale   string   `json:"rationale"`
}

// Respond processes one discovery turn. Unlike the configurator chat, a model
// value overrides the deterministic parse here: the model sees the candidate
// inventory and can correct a keyword misread against it.
func (e *DiscoverEngine) Respond(ctx context.Context, state domain.DiscoverState, userMessage string, history []domain.Message) DiscoverResult {
	if IsMaterialsQuestion(userMessage) {
		return e.materialsAnswer(state)
	}

	parsed := ParseDiscoverConstraints(userMessage)
	candidates := FilterInventory(e.inventory, MergeConstraints(state.Constraints, parsed))

	assistant := ""
	merged := parsed
	var selection *discoverPick
	fallbackUsed := false

	if e.model != nil {
		turn, err := e.modelTurn(ctx, state, userMessage, history, candidates)
		if err != nil {
			e.logger.Warn("discover model turn failed, continuing on parsed constraints", zap.Error(err))
			fallbackUsed = true
		} else {
			assistant = strings.TrimSpace(turn.Assistant)
			merged = overrideDiscoverUpdates(parsed, normalizeDiscoverUpdates(turn.Updates))
			selection = turn.Selection
		}
	} else {
		fallbackUsed = true
	}

	constraints := MergeConstraints(state.Constraints, merged)
	stage := nextDiscoverStage(state.Stage, merged.Stage)

	results := RankInventory(e.inventory, constraints)
	var relaxed []string
	if len(results) == 0 {
		results, relaxed = RelaxConstraints(e.inventory, constraints)
	}

	if selection != nil {
		results = applySelection(results, *selection)
	}

	if assistant == "" {
		if fallbackUsed {
			if stage == domain.DiscoverStageConstraints || stage == domain.DiscoverStageWelcome {
				assistant = discoverFallbackGathering
			} else {
				assistant = discoverFallbackResults
			}
		} else {
			assistant = discoverDefaultAssistant
		}
	}

	return DiscoverResult{
		AssistantMessage: assistant,
		Updates:          merged,
		Constraints:      constraints,
		Stage:            stage,
		Results:          results,
		Relaxed:          relaxed,
		FallbackUsed:     fallbackUsed,
	}
}

func (e *DiscoverEngine) materialsAnswer(state domain.DiscoverState) DiscoverResult {
	materials := AvailableMaterials(e.inventory, state.Constraints)
	assistant := "We offer cotton, canvas, ceramic, organic and recycled materials depending on the product."
	if len(materials) > 0 {
		assistant = fmt.Sprintf("For your current selection we offer: %s. Any preference?", strings.Join(materials, ", "))
	}
	stage := state.Stage
	if stage == "" {
		stage = domain.DiscoverStageWelcome
	}
	return DiscoverResult{
		AssistantMessage: assistant,
		Constraints:      state.Constraints,
		Stage:            stage,
	}
}

func (e *DiscoverEngine) modelTurn(ctx context.Context, state domain.DiscoverState, userMessage string, history []domain.Message, candidates []domain.ACPItem) (*discoverTurn, error) {
	messages := make([]llm.ChatMessage, 0, historyWindow+2)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: buildDiscoverPrompt(state, candidates)})

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, msg := range history[start:] {
		messages = append(messages, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: userMessage})

	raw, err := e.model.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("discover: model completion: %w", err)
	}

	turn := parseDiscoverTurn(raw)
	if turn == nil {
		return nil, errors.New("discover: model returned unparsable JSON")
	}
	return turn, nil
}

func buildDiscoverPrompt(state domain.DiscoverState, candidates []domain.ACPItem) string {
	type promptItem struct {
		ItemID       string   `json:"item_id"`
		Title        string   `json:"title"`
		Price        float64  `json:"price"`
		Category     string   `json:"category"`
		Materials    []string `json:"materials"`
		Tags         []string `json:"tags"`
		LeadTimeDays int      `json:"lead_time_days"`
		MinQty       int      `json:"min_qty"`
	}
	items := make([]promptItem, 0, len(candidates))
	for _, item := range candidates {
		items = append(items, promptItem{
			ItemID:       item.ItemID,
			Title:        item.Title,
			Price:        item.Price.Amount,
			Category:     item.Attributes.Category,
			Materials:    item.Attributes.Materials,
			Tags:         item.Attributes.Tags,
			LeadTimeDays: item.Attributes.LeadTimeDays,
			MinQty:       item.Attributes.MinQty,
		})
	}
	itemsJSON, _ := json.Marshal(items)
	stateJSON, _ := json.Marshal(state.Constraints)

	return strings.Join([]string{
		"You are a sourcing assistant for merch inventory. Return ONLY a JSON object with this shape:",
		`{ "assistant": string, "updates": { "category"?: string, "budgetMax"?: number, "materials"?: string[], "sustainable"?: boolean, "quantity"?: number, "eventDate"?: string, "tags"?: string[], "occasion"?: string, "color"?: string, "leadTimeMax"?: number, "size"?: string, "stage"?: "welcome" | "constraints" | "results" }, "selection": { "primaryIds": string[], "fallbackIds": string[], "rationale": string } }`,
		"IMPORTANT: You MUST return valid JSON. No text outside the JSON object, no markdown.",
		"Only use item_id values from the candidate inventory below in the selection.",
		"Prefer 1 primary item and up to 2 fallback items.",
		"",
		"Allowed categories: tee, hoodie, tote, mug.",
		fmt.Sprintf("Allowed colors: %s.", strings.Join(discoverColors, ", ")),
		"Allowed sizes: XS, S, M, L, XL, 2XL.",
		fmt.Sprintf("Allowed materials: %s.", strings.Join(discoverMaterials, ", ")),
		fmt.Sprintf("Allowed tags: %s.", strings.Join(discoverTags, ", ")),
		"If you cannot confidently extract a value, leave it out.",
		"",
		fmt.Sprintf("Current constraints: %s", stateJSON),
		fmt.Sprintf("Candidate inventory: %s", itemsJSON),
	}, "\n")
}

// parseDiscoverTurn reuses the same progressive decoding ladder as the
// configurator chat, against the discovery turn shape.
func parseDiscoverTurn(raw string) *discoverTurn {
	candidates := []string{raw}
	if match := fencedJSONPattern.FindStringSubmatch(raw); match != nil {
		candidates = append(candidates, match[1])
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}

	decode := func(candidate string) *discoverTurn {
		var turn discoverTurn
		if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &turn); err != nil {
			return nil
		}
		if turn.Assistant == "" && turn.Updates == nil && turn.Selection == nil {
			return nil
		}
		return &turn
	}

	for _, candidate := range candidates {
		if turn := decode(candidate); turn != nil {
			return turn
		}
	}
	for _, candidate := range candidates {
		if turn := decode(unquotedKeyPattern.ReplaceAllString(candidate, `$1"$2":`)); turn != nil {
			return turn
		}
	}
	return nil
}

// normalizeDiscoverUpdates validates raw model updates against the closed
// discovery vocabularies, dropping anything unknown.
func normalizeDiscoverUpdates(raw map[string]any) DiscoverUpdates {
	updates := DiscoverUpdates{}
	if raw == nil {
		return updates
	}

	if stage, ok := rawString(raw, "stage"); ok {
		switch domain.DiscoverStage(stage) {
		case domain.DiscoverStageWelcome, domain.DiscoverStageConstraints, domain.DiscoverStageResults:
			updates.Stage = domain.DiscoverStage(stage)
		}
	}
	if category, ok := rawString(raw, "category"); ok {
		category = strings.ToLower(category)
		for _, entry := range discoverCategoryKeywords {
			if entry.category == category {
				updates.Category = category
				break
			}
		}
	}
	if color, ok := rawString(raw, "color"); ok {
		color = strings.ToLower(color)
		if containsString(discoverColors, color) {
			updates.Color = color
		}
	}
	if size, ok := rawString(raw, "size"); ok {
		size = strings.ToUpper(strings.TrimSpace(size))
		if containsString(genericSizes, size) {
			updates.Size = size
		}
	}
	if occasion, ok := rawString(raw, "occasion"); ok {
		occasion = strings.ToLower(occasion)
		for _, entry := range discoverOccasionKeywords {
			if entry.occasion == occasion {
				updates.Occasion = occasion
				break
			}
		}
	}
	if eventDate, ok := rawString(raw, "eventDate"); ok {
		updates.EventDate = strings.ToLower(strings.TrimSpace(eventDate))
	}
	if budget, ok := rawNumber(raw, "budgetMax"); ok && budget > 0 {
		updates.BudgetMax = budget
	}
	if lead, ok := rawNumber(raw, "leadTimeMax"); ok && lead > 0 {
		updates.LeadTimeMax = int(lead)
	}
	if qty, ok := rawNumber(raw, "quantity"); ok && qty > 0 {
		updates.Quantity = int(qty)
	}
	if sustainable, ok := raw["sustainable"].(bool); ok {
		updates.Sustainable = sustainable
		updates.HasSustainable = true
	}
	for _, material := range rawStringSlice(raw, "materials") {
		if containsString(discoverMaterials, material) {
			updates.Materials = append(updates.Materials, material)
		}
	}
	for _, tag := range rawStringSlice(raw, "tags") {
		if containsString(discoverTags, tag) {
			updates.Tags = append(updates.Tags, tag)
		}
	}
	return updates
}

// overrideDiscoverUpdates layers model updates over the parsed ones. Model
// values win because the model has seen the candidate inventory.
func overrideDiscoverUpdates(parsed, model DiscoverUpdates) DiscoverUpdates {
	merged := parsed
	if model.Stage != "" {
		merged.Stage = model.Stage
	}
	if model.Category != "" {
		merged.Category = model.Category
	}
	if model.BudgetMax > 0 {
		merged.BudgetMax = model.BudgetMax
	}
	if len(model.Materials) > 0 {
		merged.Materials = model.Materials
	}
	if model.HasSustainable {
		merged.Sustainable = model.Sustainable
		merged.HasSustainable = true
	}
	if model.Quantity > 0 {
		merged.Quantity = model.Quantity
	}
	if model.EventDate != "" {
		merged.EventDate = model.EventDate
	}
	if len(model.Tags) > 0 {
		merged.Tags = model.Tags
	}
	if model.Occasion != "" {
		merged.Occasion = model.Occasion
	}
	if model.Color != "" {
		merged.Color = model.Color
	}
	if model.LeadTimeMax > 0 {
		merged.LeadTimeMax = model.LeadTimeMax
	}
	if model.Size != "" {
		merged.Size = model.Size
	}
	return merged
}

func nextDiscoverStage(current domain.DiscoverStage, proposed domain.DiscoverStage) domain.DiscoverStage {
	if proposed != "" {
		return proposed
	}
	if current == "" || current == domain.DiscoverStageWelcome {
		return domain.DiscoverStageConstraints
	}
	return current
}

// applySelection reorders ranked results to the model's primary-then-fallback
// order, appending anything the selection omitted. Unknown ids are ignored
// and the rationale replaces each selected item's reason.
func applySelection(results []domain.InventoryResult, pick discoverPick) []domain.InventoryResult {
	byID := make(map[string]domain.InventoryResult, len(results))
	for _, result := range results {
		byID[result.ItemID] = result
	}

	ordered := make([]domain.InventoryResult, 0, len(results))
	taken := make(map[string]bool, len(results))
	rationale := strings.TrimSpace(pick.Rationale)
	for _, id := range append(append([]string{}, pick.PrimaryIDs...), pick.FallbackIDs...) {
		result, ok := byID[id]
		if !ok || taken[id] {
			continue
		}
		if rationale != "" {
			result.Reason = rationale
		}
		ordered = append(ordered, result)
		taken[id] = true
	}
	for _, result := range results {
		if !taken[result.ItemID] {
			ordered = append(ordered, result)
		}
	}
	return ordered
}
