package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/llm"
)

const (
	fallbackAssistantMessage = "Tell me a bit more about what you'd like to make."
	degradedAssistantMessage = "I'm having trouble connecting right now. I've updated based on what I understood."

	// historyWindow bounds how many prior messages are replayed to the model.
	historyWindow = 8
)

// EngineResult is the outcome of one conversation turn.
type EngineResult struct {
	AssistantMessage string
	Updates          Updates
	FallbackUsed     bool
}

// ConversationEngine turns free-form chat input into validated state updates
// using two extraction paths: model-assisted parsing and deterministic
// keyword matching. Keyword results win any per-field conflict.
type ConversationEngine struct {
	model     llm.Client
	validator *Validator
	logger    *zap.Logger
}

// ConversationEngineDeps configures a ConversationEngine.
type ConversationEngineDeps struct {
	Model     llm.Client
	Validator *Validator
	Logger    *zap.Logger
}

// NewConversationEngine constructs the engine. The model client may be nil;
// the engine then runs on the deterministic path alone.
func NewConversationEngine(deps ConversationEngineDeps) (*ConversationEngine, error) {
	if deps.Validator == nil {
		return nil, errors.New("conversation engine: validator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationEngine{
		model:     deps.Model,
		validator: deps.Validator,
		logger:    logger,
	}, nil
}

type llmTurn struct {
	Assistant string         `json:"assistant"`
	Updates   map[string]any `json:"updates"`
}

// Respond processes one user turn: run both extraction paths, validate each,
// merge with deterministic precedence, and produce the assistant reply.
func (e *ConversationEngine) Respond(ctx context.Context, state domain.ConversationState, userMessage string, history []domain.Message) EngineResult {
	keywordUpdates := e.validator.Validate(ParseKeywordUpdates(userMessage), state.Product)

	assistant := ""
	llmUpdates := Updates{}
	fallbackUsed := false

	if e.model != nil {
		reply, updates, err := e.modelTurn(ctx, state, userMessage, history)
		if err != nil {
			e.logger.Warn("model turn failed, continuing on keyword path", zap.Error(err))
			assistant = degradedAssistantMessage
			fallbackUsed = true
		} else {
			assistant = reply
			llmUpdates = updates
		}
	} else {
		fallbackUsed = true
	}

	merged := mergeUpdates(llmUpdates, keywordUpdates)
	if assistant == "" {
		assistant = fallbackAssistantMessage
	}

	return EngineResult{
		AssistantMessage: assistant,
		Updates:          merged,
		FallbackUsed:     fallbackUsed,
	}
}

// RespondStream runs one turn over the model's token stream. Tokens
// accumulate until the stream ends and the full response is parsed once, so
// callers still get a complete, validated result. There is no self-correction
// retry here; a failed or empty stream falls back to the non-streaming path.
func (e *ConversationEngine) RespondStream(ctx context.Context, state domain.ConversationState, userMessage string, history []domain.Message) EngineResult {
	if e.model == nil {
		return e.Respond(ctx, state, userMessage, history)
	}

	keywordUpdates := e.validator.Validate(ParseKeywordUpdates(userMessage), state.Product)

	var buf strings.Builder
	err := e.model.Stream(ctx, e.buildMessages(state, userMessage, history), func(delta string) error {
		buf.WriteString(delta)
		return nil
	})
	if err != nil || strings.TrimSpace(buf.String()) == "" {
		if err != nil {
			e.logger.Warn("model stream failed, retrying without streaming", zap.Error(err))
		}
		return e.Respond(ctx, state, userMessage, history)
	}

	assistant, llmUpdates := e.resolveTurn(buf.String(), state.Product)
	return EngineResult{
		AssistantMessage: assistant,
		Updates:          mergeUpdates(llmUpdates, keywordUpdates),
	}
}

// modelTurn runs the model-assisted extraction path, including the single
// self-correction retry when the first response is not parseable JSON.
func (e *ConversationEngine) modelTurn(ctx context.Context, state domain.ConversationState, userMessage string, history []domain.Message) (string, Updates, error) {
	messages := e.buildMessages(state, userMessage, history)

	raw, err := e.model.Complete(ctx, messages)
	if err != nil {
		return "", Updates{}, fmt.Errorf("conversation: model completion: %w", err)
	}

	if parseModelTurn(raw) == nil {
		e.logger.Debug("model returned invalid JSON, requesting self-correction")
		messages = append(messages,
			llm.ChatMessage{Role: llm.RoleAssistant, Content: raw},
			llm.ChatMessage{Role: llm.RoleSystem, Content: "You failed to provide valid JSON. Please correct your previous response and return ONLY a valid JSON object."},
		)
		raw, err = e.model.Complete(ctx, messages)
		if err != nil {
			return "", Updates{}, fmt.Errorf("conversation: self-correction completion: %w", err)
		}
	}

	assistant, updates := e.resolveTurn(raw, state.Product)
	return assistant, updates, nil
}

// resolveTurn extracts the reply and validated updates from a raw model
// response. Updates survive even when the assistant text is missing; the
// reply falls back to the raw text, then to the stock prompt.
func (e *ConversationEngine) resolveTurn(raw string, product *domain.Product) (string, Updates) {
	turn := parseModelTurn(raw)
	if turn == nil {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			return trimmed, Updates{}
		}
		return fallbackAssistantMessage, Updates{}
	}

	assistant := strings.TrimSpace(turn.Assistant)
	if assistant == "" {
		assistant = strings.TrimSpace(raw)
	}
	if assistant == "" {
		assistant = fallbackAssistantMessage
	}
	return assistant, e.validator.Validate(turn.Updates, product)
}

func (e *ConversationEngine) buildMessages(state domain.ConversationState, userMessage string, history []domain.Message) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, historyWindow+2)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: buildSystemPrompt(state, e.validator.textMaxLength)})

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, msg := range history[start:] {
		messages = append(messages, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	return append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: userMessage})
}

func buildSystemPrompt(state domain.ConversationState, textMaxLength int) string {
	type promptProduct struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Category string   `json:"category"`
		Colors   []string `json:"colors"`
		Sizes    []string `json:"sizes"`
	}
	products := make([]promptProduct, 0, len(catalog.Products()))
	for _, p := range catalog.Products() {
		colors := make([]string, 0, len(p.Colors))
		for _, c := range p.Colors {
			colors = append(colors, c.Name)
		}
		products = append(products, promptProduct{ID: p.ID, Name: p.Name, Category: p.Category, Colors: colors, Sizes: p.Sizes})
	}

	type promptIcon struct {
		ID       string   `json:"id"`
		Keywords []string `json:"keywords"`
	}
	icons := make([]promptIcon, 0, len(catalog.Icons()))
	for _, icon := range catalog.Icons() {
		icons = append(icons, promptIcon{ID: icon.ID, Keywords: icon.Keywords})
	}

	textColors := make([]string, 0, len(catalog.TextColorOptions))
	for _, c := range catalog.TextColorOptions {
		textColors = append(textColors, c.Name)
	}

	stateSummary, _ := json.Marshal(map[string]any{
		"stage":        state.Stage,
		"product":      productID(state.Product),
		"occasion":     state.Occasion,
		"vibe":         state.Vibe,
		"text":         state.Text,
		"icon":         state.Icon,
		"productColor": state.ProductColor,
		"textColor":    state.TextColor,
		"size":         state.Size,
		"quantity":     state.Quantity,
	})
	productsJSON, _ := json.Marshal(products)
	iconsJSON, _ := json.Marshal(icons)

	return strings.Join([]string{
		"You are a friendly, confident merch design assistant.",
		"Keep responses concise, helpful, and action-oriented.",
		"Avoid excessive confirmations. Ask only one question at a time.",
		"Return ONLY a JSON object with this shape:",
		`{ "assistant": string, "updates": { "stage"?: string, "productId"?: string, "occasion"?: string, "vibe"?: string, "text"?: string, "iconId"?: string, "productColor"?: string, "textColor"?: string, "size"?: string, "quantity"?: number, "action"?: "add_to_cart" | "remove_icon" } }`,
		"IMPORTANT: You MUST return valid JSON. Do not include any text outside the JSON object.",
		"Do not include markdown or code fences.",
		"Only use productId and iconId values from the provided lists.",
		"NEVER use placeholders like \"string\", \"number\", or type names as values. Always use real values from the catalog.",
		"",
		"--- PRODUCT CATALOG AWARENESS (STRICT) ---",
		"- You ONLY support the products listed in the \"Products\" array below.",
		"- If the user asks for a product not in the list, you MUST politely decline.",
		"- Standard refusal response: \"We don't offer [requested product] at the moment, but we have high-quality Tees, Hoodies, Totes and Mugs! Which one would you like to design?\"",
		"- NEVER pretend to create a design for an unsupported product.",
		"",
		"--- STAGE PROGRESSION RULES ---",
		"Progression is: welcome -> product -> intent -> text -> icon -> preview.",
		"- Stage \"welcome\": Greet and ask what they want to make.",
		"- Stage \"product\": Product is selected. Ask about occasion/vibe.",
		"- Stage \"intent\": Occasion/vibe collected. Ask \"What message should it say?\".",
		"- Stage \"text\": User provides text for design. Move to \"icon\" after text is set OR if they ask for an icon directly.",
		"- Stage \"icon\": Ask about icon. Move to \"preview\" when icon is chosen.",
		"- Stage \"preview\": Design complete. Either text OR icon must be set to see a design.",
		"Stages are advisory. The user can supply several fields at once and skip ahead.",
		"",
		fmt.Sprintf("If the text is too long for a design (over %d chars), ask to shorten it.", textMaxLength),
		fmt.Sprintf("Allowed vibes: %s.", strings.Join(catalog.Vibes, ", ")),
		fmt.Sprintf("Allowed occasions: %s.", strings.Join(catalog.Occasions, ", ")),
		fmt.Sprintf("Allowed text colors: %s.", strings.Join(textColors, ", ")),
		"productColor must be a color that exists on the chosen product.",
		"IMPORTANT: When the user mentions text for their design (whether quoted or not), set updates.text to that text.",
		"If the user mentions a product and a color (e.g., \"navy tee\"), set both productId and productColor.",
		"If a user requests a text color (e.g., \"red text\"), set textColor (not productColor).",
		"If the user says \"add to cart\" or \"checkout\", set action to \"add_to_cart\".",
		"If the user says \"remove the icon\", set action to \"remove_icon\" and iconId to \"none\".",
		"If you cannot confidently extract a value, leave it out.",
		fmt.Sprintf("Current state: %s", stateSummary),
		fmt.Sprintf("Products: %s", productsJSON),
		fmt.Sprintf("Icons: %s", iconsJSON),
	}, "\n")
}

func productID(product *domain.Product) string {
	if product == nil {
		return ""
	}
	return product.ID
}

var (
	fencedJSONPattern  = regexp.MustCompile("(?is)```json\\s*([\\s\\S]*?)```")
	unquotedKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// parseModelTurn decodes a model response, trying progressively looser
// strategies: direct parse, fenced block, brace slice, key-quoting repair.
func parseModelTurn(raw string) *llmTurn {
	candidates := []string{raw}

	if match := fencedJSONPattern.FindStringSubmatch(raw); match != nil {
		candidates = append(candidates, match[1])
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}

	for _, candidate := range candidates {
		if turn := decodeTurn(candidate); turn != nil {
			return turn
		}
	}
	for _, candidate := range candidates {
		repaired := unquotedKeyPattern.ReplaceAllString(candidate, `$1"$2":`)
		if turn := decodeTurn(repaired); turn != nil {
			return turn
		}
	}
	return nil
}

func decodeTurn(candidate string) *llmTurn {
	var turn llmTurn
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &turn); err != nil {
		return nil
	}
	if turn.Assistant == "" && turn.Updates == nil {
		return nil
	}
	return &turn
}

// mergeUpdates combines both extraction paths. Deterministic keyword values
// win any field both paths populated; the model remains the sole source of
// stage transitions.
func mergeUpdates(model, keyword Updates) Updates {
	merged := model
	if keyword.ProductID != "" {
		merged.ProductID = keyword.ProductID
	}
	if keyword.Occasion != "" {
		merged.Occasion = keyword.Occasion
	}
	if keyword.Vibe != "" {
		merged.Vibe = keyword.Vibe
	}
	if keyword.Text != "" {
		merged.Text = keyword.Text
	}
	if keyword.IconID != "" {
		merged.IconID = keyword.IconID
	}
	if keyword.ProductColor != "" {
		merged.ProductColor = keyword.ProductColor
	}
	if keyword.TextColor != "" {
		merged.TextColor = keyword.TextColor
	}
	if keyword.Size != "" {
		merged.Size = keyword.Size
	}
	if keyword.HasQuantity {
		merged.Quantity = keyword.Quantity
		merged.HasQuantity = true
	}
	if keyword.Action != "" {
		merged.Action = keyword.Action
	}
	return merged
}

// Apply folds validated updates into the state. Fields are monotonic: they
// are overwritten, never cleared, except the remove_icon action.
func Apply(state domain.ConversationState, updates Updates) domain.ConversationState {
	if updates.ProductID != "" {
		if product, ok := catalog.ProductByID(updates.ProductID); ok {
			state.Product = &product
		}
	}
	if updates.Occasion != "" {
		state.Occasion = updates.Occasion
	}
	if updates.Vibe != "" {
		state.Vibe = updates.Vibe
	}
	if updates.Text != "" {
		state.Text = updates.Text
	}
	if updates.IconID != "" {
		state.Icon = updates.IconID
	}
	if updates.ProductColor != "" {
		state.ProductColor = updates.ProductColor
	}
	if updates.TextColor != "" {
		state.TextColor = updates.TextColor
	}
	if updates.Size != "" {
		state.Size = updates.Size
	}
	if updates.HasQuantity {
		state.Quantity = updates.Quantity
	}
	if updates.Action == domain.ActionRemoveIcon {
		state.Icon = domain.IconNone
	}

	// Model-supplied stages pass through the same never-backwards guard as
	// the suggested progression.
	if stageIndex(updates.Stage) > stageIndex(state.Stage) {
		state.Stage = updates.Stage
	} else {
		state.Stage = advanceStage(state)
	}
	return state
}

// advanceStage suggests the next advisory stage from the filled fields. The
// stage never moves backwards; it only steers phrasing, never gates features.
func advanceStage(state domain.ConversationState) domain.Stage {
	suggested := suggestStage(state)
	if stageIndex(suggested) > stageIndex(state.Stage) {
		return suggested
	}
	if state.Stage == "" {
		return domain.StageWelcome
	}
	return state.Stage
}

func suggestStage(state domain.ConversationState) domain.Stage {
	switch {
	case state.Product == nil:
		return domain.StageWelcome
	case state.Occasion == "" && state.Vibe == "" && state.Text == "" && !hasIcon(state):
		return domain.StageIntent
	case state.Text == "" && !hasIcon(state):
		return domain.StageText
	case !hasIcon(state):
		return domain.StageIcon
	default:
		return domain.StagePreview
	}
}

func stageIndex(stage domain.Stage) int {
	for i, known := range domain.Stages {
		if known == stage {
			return i
		}
	}
	return -1
}

func hasIcon(state domain.ConversationState) bool {
	return state.Icon != "" && state.Icon != domain.IconNone
}

// CanAddToCart reports whether the configuration is cart-ready: a product, a
// resolved product color, and at least one of text or icon.
func CanAddToCart(state domain.ConversationState) bool {
	return state.Product != nil &&
		state.ProductColor != "" &&
		(state.Text != "" || hasIcon(state))
}
