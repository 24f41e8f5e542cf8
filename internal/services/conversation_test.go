package services

import (
	"context"
	"testing"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/llm"
)

type stubModel struct {
	complete func(ctx context.Context, messages []llm.ChatMessage) (string, error)
	stream   func(ctx context.Context, messages []llm.ChatMessage, emit func(string) error) error
}

func (s *stubModel) Complete(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	return s.complete(ctx, messages)
}

func (s *stubModel) Stream(ctx context.Context, messages []llm.ChatMessage, emit func(string) error) error {
	if s.stream == nil {
		return nil
	}
	return s.stream(ctx, messages, emit)
}

func newTestEngine(t *testing.T, model llm.Client) *ConversationEngine {
	t.Helper()
	engine, err := NewConversationEngine(ConversationEngineDeps{
		Model:     model,
		Validator: newTestValidator(t),
	})
	if err != nil {
		t.Fatalf("NewConversationEngine: %v", err)
	}
	return engine
}

func TestRespondKeywordBeatsModel(t *testing.T) {
	model := &stubModel{complete: func(context.Context, []llm.ChatMessage) (string, error) {
		return `{"assistant":"How about black?","updates":{"productColor":"black"}}`, nil
	}}
	engine := newTestEngine(t, model)

	result := engine.Respond(context.Background(), domain.ConversationState{}, "I want a navy tee", nil)
	if result.Updates.ProductColor != "navy" {
		t.Fatalf("ProductColor = %q, want keyword value navy", result.Updates.ProductColor)
	}
	if result.Updates.ProductID != "classic-tee" {
		t.Fatalf("ProductID = %q, want classic-tee", result.Updates.ProductID)
	}
	if result.FallbackUsed {
		t.Fatal("FallbackUsed = true on a successful model turn")
	}
}

func TestRespondMalformedModelOutputFallsBackToRawText(t *testing.T) {
	calls := 0
	model := &stubModel{complete: func(context.Context, []llm.ChatMessage) (string, error) {
		calls++
		return "I think the answer is nice!", nil
	}}
	engine := newTestEngine(t, model)

	result := engine.Respond(context.Background(), domain.ConversationState{}, "hello there", nil)
	if calls != 2 {
		t.Fatalf("model called %d times, want initial attempt plus one self-correction", calls)
	}
	if result.AssistantMessage != "I think the answer is nice!" {
		t.Fatalf("AssistantMessage = %q, want raw model text", result.AssistantMessage)
	}
	if !result.Updates.IsEmpty() {
		t.Fatalf("updates not empty: %+v", result.Updates)
	}
}

func TestRespondKeepsUpdatesWhenAssistantTextEmpty(t *testing.T) {
	model := &stubModel{complete: func(context.Context, []llm.ChatMessage) (string, error) {
		return `{"assistant":"","updates":{"productId":"classic-tee","quantity":5}}`, nil
	}}
	engine := newTestEngine(t, model)

	result := engine.Respond(context.Background(), domain.ConversationState{}, "hello there", nil)
	if result.Updates.ProductID != "classic-tee" {
		t.Fatalf("ProductID = %q, want classic-tee kept despite empty assistant text", result.Updates.ProductID)
	}
	if !result.Updates.HasQuantity || result.Updates.Quantity != 5 {
		t.Fatalf("quantity dropped: %+v", result.Updates)
	}
	if result.AssistantMessage == "" {
		t.Fatal("AssistantMessage empty, want raw text fallback")
	}
}

func TestRespondSelfCorrectionRecovers(t *testing.T) {
	calls := 0
	model := &stubModel{complete: func(_ context.Context, messages []llm.ChatMessage) (string, error) {
		calls++
		if calls == 1 {
			return "sure thing, here you go", nil
		}
		if messages[len(messages)-2].Role != llm.RoleAssistant {
			return "", nil
		}
		return `{"assistant":"Got it.","updates":{"vibe":"retro"}}`, nil
	}}
	engine := newTestEngine(t, model)

	result := engine.Respond(context.Background(), domain.ConversationState{}, "retro please", nil)
	if result.AssistantMessage != "Got it." {
		t.Fatalf("AssistantMessage = %q", result.AssistantMessage)
	}
	if result.Updates.Vibe != "retro" {
		t.Fatalf("Vibe = %q, want retro", result.Updates.Vibe)
	}
}

func TestRespondModelErrorDegrades(t *testing.T) {
	model := &stubModel{complete: func(context.Context, []llm.ChatMessage) (string, error) {
		return "", context.DeadlineExceeded
	}}
	engine := newTestEngine(t, model)

	result := engine.Respond(context.Background(), domain.ConversationState{}, "a forest hoodie", nil)
	if !result.FallbackUsed {
		t.Fatal("FallbackUsed = false after model error")
	}
	if result.Updates.ProductID != "hoodie" {
		t.Fatalf("keyword path lost on model error: %+v", result.Updates)
	}
	if result.AssistantMessage != degradedAssistantMessage {
		t.Fatalf("AssistantMessage = %q", result.AssistantMessage)
	}
}

func TestRespondWithoutModelRunsKeywordPath(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Respond(context.Background(), domain.ConversationState{}, `a tote saying "Beach Day"`, nil)
	if !result.FallbackUsed {
		t.Fatal("FallbackUsed = false without a model")
	}
	if result.Updates.ProductID != "tote" || result.Updates.Text != "Beach Day" {
		t.Fatalf("updates = %+v", result.Updates)
	}
	if result.AssistantMessage != fallbackAssistantMessage {
		t.Fatalf("AssistantMessage = %q", result.AssistantMessage)
	}
}

func TestRespondStreamParsesAccumulatedTokens(t *testing.T) {
	completeCalls := 0
	model := &stubModel{
		complete: func(context.Context, []llm.ChatMessage) (string, error) {
			completeCalls++
			return "", nil
		},
		stream: func(_ context.Context, _ []llm.ChatMessage, emit func(string) error) error {
			for _, token := range []string{`{"assistant":"All`, ` set.","updates"`, `:{"vibe":"retro"}}`} {
				if err := emit(token); err != nil {
					return err
				}
			}
			return nil
		},
	}
	engine := newTestEngine(t, model)

	result := engine.RespondStream(context.Background(), domain.ConversationState{}, "hello there", nil)
	if completeCalls != 0 {
		t.Fatalf("Complete called %d times on a healthy stream", completeCalls)
	}
	if result.AssistantMessage != "All set." {
		t.Fatalf("AssistantMessage = %q", result.AssistantMessage)
	}
	if result.Updates.Vibe != "retro" {
		t.Fatalf("Vibe = %q, want retro", result.Updates.Vibe)
	}
	if result.FallbackUsed {
		t.Fatal("FallbackUsed = true on a healthy stream")
	}
}

func TestRespondStreamErrorFallsBackToCompletion(t *testing.T) {
	model := &stubModel{
		complete: func(context.Context, []llm.ChatMessage) (string, error) {
			return `{"assistant":"Recovered.","updates":{"vibe":"bold"}}`, nil
		},
		stream: func(context.Context, []llm.ChatMessage, func(string) error) error {
			return context.DeadlineExceeded
		},
	}
	engine := newTestEngine(t, model)

	result := engine.RespondStream(context.Background(), domain.ConversationState{}, "hello there", nil)
	if result.AssistantMessage != "Recovered." {
		t.Fatalf("AssistantMessage = %q", result.AssistantMessage)
	}
	if result.Updates.Vibe != "bold" {
		t.Fatalf("Vibe = %q, want bold", result.Updates.Vibe)
	}
}

func TestRespondTruncatesHistoryWindow(t *testing.T) {
	var seen int
	model := &stubModel{complete: func(_ context.Context, messages []llm.ChatMessage) (string, error) {
		seen = len(messages)
		return `{"assistant":"ok","updates":{}}`, nil
	}}
	engine := newTestEngine(t, model)

	history := make([]domain.Message, 20)
	for i := range history {
		history[i] = domain.Message{Role: domain.RoleUser, Content: "older"}
	}
	engine.Respond(context.Background(), domain.ConversationState{}, "latest", history)

	// System prompt + bounded history + the new user message.
	if want := historyWindow + 2; seen != want {
		t.Fatalf("model saw %d messages, want %d", seen, want)
	}
}

func TestApplyIsMonotonic(t *testing.T) {
	state := Apply(domain.ConversationState{}, Updates{ProductID: "classic-tee", ProductColor: "navy"})
	if state.Product == nil || state.Product.ID != "classic-tee" {
		t.Fatalf("product not applied: %+v", state.Product)
	}

	// An update without those fields must not clear them.
	state = Apply(state, Updates{Vibe: "bold"})
	if state.Product == nil || state.ProductColor != "navy" {
		t.Fatalf("fields cleared by unrelated update: %+v", state)
	}
	if state.Vibe != "bold" {
		t.Fatalf("Vibe = %q", state.Vibe)
	}
}

func TestApplyRemoveIconAction(t *testing.T) {
	state := domain.ConversationState{Icon: "star"}
	state = Apply(state, Updates{Action: domain.ActionRemoveIcon})
	if state.Icon != domain.IconNone {
		t.Fatalf("Icon = %q, want %q", state.Icon, domain.IconNone)
	}
}

func TestStageNeverRegresses(t *testing.T) {
	tee, _ := catalog.ProductByID("classic-tee")
	state := domain.ConversationState{
		Stage:   domain.StagePreview,
		Product: &tee,
		Text:    "HELLO",
		Icon:    "star",
	}
	state = Apply(state, Updates{Vibe: "minimal"})
	if state.Stage != domain.StagePreview {
		t.Fatalf("stage regressed to %q", state.Stage)
	}
}

func TestApplyModelStageCannotRegress(t *testing.T) {
	tee, _ := catalog.ProductByID("classic-tee")
	state := domain.ConversationState{
		Stage:        domain.StagePreview,
		Product:      &tee,
		ProductColor: "navy",
		Text:         "HELLO",
		Icon:         "star",
	}
	state = Apply(state, Updates{Stage: domain.StageWelcome})
	if state.Stage != domain.StagePreview {
		t.Fatalf("model-supplied stage regressed to %q", state.Stage)
	}

	forward := Apply(domain.ConversationState{Stage: domain.StageWelcome}, Updates{Stage: domain.StageProduct})
	if forward.Stage != domain.StageProduct {
		t.Fatalf("forward stage = %q, want product", forward.Stage)
	}
}

func TestStageAdvancesWithFields(t *testing.T) {
	state := Apply(domain.ConversationState{}, Updates{ProductID: "classic-tee"})
	if state.Stage != domain.StageIntent {
		t.Fatalf("stage after product = %q, want intent", state.Stage)
	}
	state = Apply(state, Updates{Occasion: "gift", Text: "HELLO"})
	if state.Stage != domain.StageIcon {
		t.Fatalf("stage after text = %q, want icon", state.Stage)
	}
	state = Apply(state, Updates{IconID: "star"})
	if state.Stage != domain.StagePreview {
		t.Fatalf("stage after icon = %q, want preview", state.Stage)
	}
}

func TestCanAddToCart(t *testing.T) {
	tee, _ := catalog.ProductByID("classic-tee")
	cases := []struct {
		name  string
		state domain.ConversationState
		want  bool
	}{
		{"empty", domain.ConversationState{}, false},
		{"product only", domain.ConversationState{Product: &tee}, false},
		{"no design", domain.ConversationState{Product: &tee, ProductColor: "navy"}, false},
		{"text only", domain.ConversationState{Product: &tee, ProductColor: "navy", Text: "GO"}, true},
		{"icon only", domain.ConversationState{Product: &tee, ProductColor: "navy", Icon: "star"}, true},
		{"icon none", domain.ConversationState{Product: &tee, ProductColor: "navy", Icon: domain.IconNone}, false},
		{"no color", domain.ConversationState{Product: &tee, Text: "GO"}, false},
		{"color only", domain.ConversationState{ProductColor: "navy"}, false},
		{"design only", domain.ConversationState{Text: "GO"}, false},
		{"color and design, no product", domain.ConversationState{ProductColor: "navy", Text: "GO"}, false},
	}
	for _, tc := range cases {
		if got := CanAddToCart(tc.state); got != tc.want {
			t.Errorf("%s: CanAddToCart = %v, want %v", tc.name, got, tc.want)
		}
	}
}
