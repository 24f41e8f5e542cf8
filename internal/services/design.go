package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/domain"
	"github.com/merchforge/api/internal/platform/llm"
)

// GeneratedDesigns bundles the three variants with the default selection.
type GeneratedDesigns struct {
	Variants    []domain.DesignVariant `json:"variants"`
	Recommended string                 `json:"recommended"`
}

// DesignRequest identifies one design generation input tuple.
type DesignRequest struct {
	Text     string
	IconID   string
	Vibe     string
	Occasion string
}

func (r DesignRequest) cacheKey() string {
	return strings.Join([]string{r.Text, r.IconID, r.Vibe, r.Occasion}, "|")
}

// DesignService produces three design variants per request. Token selection
// may come from the model; rendering is always deterministic, and results are
// memoized on the request tuple.
type DesignService struct {
	model  llm.Client
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]GeneratedDesigns
}

// DesignServiceDeps configures a DesignService.
type DesignServiceDeps struct {
	Model  llm.Client
	Logger *zap.Logger
}

// NewDesignService constructs the service. The model client may be nil; the
// service then always renders the fallback templates.
func NewDesignService(deps DesignServiceDeps) (*DesignService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DesignService{
		model:  deps.Model,
		logger: logger,
		cache:  make(map[string]GeneratedDesigns),
	}, nil
}

// Generate returns three variants for the request, reusing the cached result
// for an identical tuple.
func (s *DesignService) Generate(ctx context.Context, req DesignRequest) (GeneratedDesigns, error) {
	if strings.TrimSpace(req.Text) == "" && (req.IconID == "" || req.IconID == domain.IconNone) {
		return GeneratedDesigns{}, errors.New("design: text or icon is required")
	}

	key := req.cacheKey()
	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	designs := s.generate(ctx, req)

	s.mu.Lock()
	s.cache[key] = designs
	s.mu.Unlock()
	return designs, nil
}

func (s *DesignService) generate(ctx context.Context, req DesignRequest) GeneratedDesigns {
	hasIcon := req.IconID != "" && req.IconID != domain.IconNone
	icon := domain.Icon{}
	if hasIcon {
		resolved, ok := catalog.IconByID(req.IconID)
		if !ok {
			// Ids the model invents are treated as keywords against the library.
			resolved = catalog.FindIconByKeyword(req.IconID)
		}
		icon = resolved
	}

	tokens := s.proposeTokens(ctx, req, hasIcon)
	if len(tokens) == 0 {
		tokens = s.orderFallbacks(req.Vibe)
	}

	variants := make([]domain.DesignVariant, 0, 3)
	for i, t := range tokens {
		if i >= 3 {
			break
		}
		variants = append(variants, domain.DesignVariant{
			ID:        string(rune('A' + i)),
			Name:      t.Name,
			Style:     t.Style,
			SVG:       RenderDesign(t, req.Text, icon),
			Score:     90 - i*5,
			Reasoning: t.Reasoning,
		})
	}

	return GeneratedDesigns{Variants: variants, Recommended: variants[0].ID}
}

var jsonArrayPattern = regexp.MustCompile(`\[[\s\S]*\]`)

// proposeTokens asks the model for three token sets. Any failure returns nil
// and the caller falls back to the hand-authored templates.
func (s *DesignService) proposeTokens(ctx context.Context, req DesignRequest, hasIcon bool) []DesignTokens {
	if s.model == nil {
		return nil
	}

	raw, err := s.model.Complete(ctx, []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: buildDesignPrompt(req, hasIcon)},
	})
	if err != nil {
		s.logger.Warn("design token generation failed, using fallback templates", zap.Error(err))
		return nil
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// The model may wrap the array in an object or prose.
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &wrapper); err == nil {
			for _, key := range []string{"designs", "layouts"} {
				if nested, ok := wrapper[key]; ok && json.Unmarshal(nested, &entries) == nil {
					break
				}
			}
		}
		if entries == nil {
			if match := jsonArrayPattern.FindString(raw); match != "" {
				_ = json.Unmarshal([]byte(match), &entries)
			}
		}
	}
	if len(entries) == 0 {
		s.logger.Warn("design token response unparsable, using fallback templates")
		return nil
	}

	tokens := make([]DesignTokens, 0, 3)
	for i, entry := range entries {
		if i >= 3 {
			break
		}
		t := sanitizeTokens(entry, i)
		if !hasIcon {
			t.IconPosition = iconPositionTokens[0]
			t.IconFilled = false
		}
		tokens = append(tokens, t)
	}
	return tokens
}

func buildDesignPrompt(req DesignRequest, hasIcon bool) string {
	lines := []string{
		"You are a graphic design AI for merch prints. Return ONLY a valid JSON array of exactly 3 layout objects.",
		"Each object picks layout tokens; a renderer turns them into the final artwork. Every field must use one of the allowed values.",
		"",
		"{",
		`  "name": string (short creative name),`,
		`  "style": string (1-line style description),`,
		`  "reasoning": string (why this works for the request),`,
		fmt.Sprintf(`  "composition": one of %s,`, quoteList(compositionTokens)),
		fmt.Sprintf(`  "textSize": one of %s,`, quoteList(textSizeTokens)),
		fmt.Sprintf(`  "textStyle": one of %s,`, quoteList(textStyleTokens)),
		fmt.Sprintf(`  "font": one of %s,`, quoteList(fontTokens)),
		fmt.Sprintf(`  "transform": one of %s,`, quoteList(transformTokens)),
		fmt.Sprintf(`  "letterSpread": one of %s,`, quoteList(letterSpreadTokens)),
		fmt.Sprintf(`  "iconPosition": one of %s,`, quoteList(iconPositionTokens)),
		fmt.Sprintf(`  "iconSize": one of %s,`, quoteList(iconSizeTokens)),
		`  "iconFilled": boolean,`,
		fmt.Sprintf(`  "border": one of %s`, quoteList(borderTokens)),
		"}",
		"",
		"RULES:",
		"- Make the 3 designs VERY different from each other.",
		fmt.Sprintf("- The text content is always: %q", req.Text),
	}
	if hasIcon {
		lines = append(lines, fmt.Sprintf("- Every design includes the icon %q.", req.IconID))
	} else {
		lines = append(lines, "- No icon is selected; icon fields are ignored.")
	}
	if req.Vibe != "" {
		lines = append(lines, fmt.Sprintf("- Design vibe: %s", req.Vibe))
	}
	if req.Occasion != "" {
		lines = append(lines, fmt.Sprintf("- Occasion: %s", req.Occasion))
	}
	lines = append(lines, "Return ONLY the JSON array. No markdown, no explanation.")
	return strings.Join(lines, "\n")
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, " | ")
}

// orderFallbacks sorts the fallback templates so the one matching the vibe
// leads; ties keep the authored order.
func (s *DesignService) orderFallbacks(vibe string) []DesignTokens {
	templates := fallbackDesigns()
	scores := map[string]int{}
	for _, t := range templates {
		scores[t.Name] = fallbackScore(t.Name, vibe)
	}
	sort.SliceStable(templates, func(i, j int) bool {
		return scores[templates[i].Name] > scores[templates[j].Name]
	})
	return templates
}

func fallbackScore(name, vibe string) int {
	switch name {
	case "Minimal":
		if vibe == "minimal" {
			return 95
		}
		return 75
	case "Bold Statement":
		if vibe == "bold" || vibe == "sporty" {
			return 95
		}
		return 70
	case "Retro Badge":
		if vibe == "retro" || vibe == "cute" {
			return 95
		}
		return 80
	default:
		return 0
	}
}
