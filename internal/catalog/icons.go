package catalog

import (
	"strings"

	"github.com/merchforge/api/internal/domain"
)

// iconLibrary is the fixed set of printable icons. The first entry is the
// "none" sentinel that removes the icon from a design.
var iconLibrary = []domain.Icon{
	{ID: "none", Path: "", Keywords: []string{"none", "no icon", "remove icon", "remove", "plain", "text only"}},
	{ID: "heart", Path: "M20.84 4.61a5.5 5.5 0 0 0-7.78 0L12 5.67l-1.06-1.06a5.5 5.5 0 0 0-7.78 7.78l1.06 1.06L12 21.23l7.78-7.78 1.06-1.06a5.5 5.5 0 0 0 0-7.78z", Keywords: []string{"love", "heart", "valentine", "romantic", "favorite", "like"}},
	{ID: "star", Path: "M12 2l3.09 6.26L22 9.27l-5 4.87 1.18 6.88L12 17.77l-6.18 3.25L7 14.14 2 9.27l6.91-1.01L12 2z", Keywords: []string{"star", "favorite", "rating", "award", "achievement", "excellence"}},
	{ID: "coffee", Path: "M18 8h1a4 4 0 0 1 0 8h-1M2 8h16v9a4 4 0 0 1-4 4H6a4 4 0 0 1-4-4V8z", Keywords: []string{"coffee", "drink", "cafe", "morning", "caffeine", "espresso", "tea"}},
	{ID: "music", Path: "M9 18V5l12-2v13M9 18c0 1.66-1.34 3-3 3s-3-1.34-3-3 1.34-3 3-3 3 1.34 3 3zm12-2c0 1.66-1.34 3-3 3s-3-1.34-3-3 1.34-3 3-3 3 1.34 3 3z", Keywords: []string{"music", "song", "audio", "sound", "melody", "concert", "band"}},
	{ID: "gift", Path: "M20 12v10H4V12M2 7h20v5H2V7zm10 15V7m0 0H7.5a2.5 2.5 0 1 1 0-5C11 2 12 7 12 7zm0 0h4.5a2.5 2.5 0 0 0 0-5C13 2 12 7 12 7z", Keywords: []string{"gift", "present", "birthday", "celebration", "surprise", "party"}},
	{ID: "mountain", Path: "M8.5 21L2 21L12 3L22 21H15.5M8.5 21L12 15L15.5 21M8.5 21H15.5", Keywords: []string{"mountain", "adventure", "nature", "outdoor", "hiking", "climb", "explore"}},
	{ID: "lightning", Path: "M13 2L3 14h8l-1 8 10-12h-8l1-8z", Keywords: []string{"lightning", "energy", "power", "fast", "bolt", "electric", "speed"}},
	{ID: "peace", Path: "M12 2a10 10 0 1 0 0 20 10 10 0 1 0 0-20zm0 2v16m-5-5l5-5m5 5l-5-5", Keywords: []string{"peace", "harmony", "calm", "zen", "balance", "meditation"}},
	{ID: "flower", Path: "M12 2a3 3 0 0 0-3 3v1a3 3 0 0 0 0 6v1a3 3 0 0 0 3 3 3 3 0 0 0 3-3v-1a3 3 0 0 0 0-6V5a3 3 0 0 0-3-3z", Keywords: []string{"flower", "nature", "garden", "spring", "bloom", "floral", "plant"}},
	{ID: "rocket", Path: "M4.5 16.5c-1.5 1.26-2 5-2 5s3.74-.5 5-2c.71-.84.7-2.13-.09-2.91a2.18 2.18 0 0 0-2.91-.09zM12 15l-3-3a22 22 0 0 1 2-3.95A12.88 12.88 0 0 1 22 2c0 2.72-.78 7.5-6 11a22.35 22.35 0 0 1-4 2zm-7 4a6 6 0 0 1 3.5-3.5", Keywords: []string{"rocket", "space", "launch", "startup", "fast", "innovation", "technology"}},
	{ID: "sun", Path: "M12 3v1m0 16v1m9-9h-1M4 12H3m15.364 6.364l-.707-.707M6.343 6.343l-.707-.707m12.728 0l-.707.707M6.343 17.657l-.707.707M16 12a4 4 0 11-8 0 4 4 0 018 0z", Keywords: []string{"sun", "sunshine", "summer", "bright", "day", "warm", "light"}},
	{ID: "moon", Path: "M21 12.79A9 9 0 1 1 11.21 3 7 7 0 0 0 21 12.79z", Keywords: []string{"moon", "night", "dark", "sleep", "dream", "celestial", "lunar"}},
	{ID: "paw", Path: "M14.5 9.5a2.5 2.5 0 1 0 0-5 2.5 2.5 0 0 0 0 5zm0 0v0m-5 0a2.5 2.5 0 1 0 0-5 2.5 2.5 0 0 0 0 5zm0 0v0M4.5 14.5a2.5 2.5 0 1 0 0-5 2.5 2.5 0 0 0 0 5zm0 0v0m15 0a2.5 2.5 0 1 0 0-5 2.5 2.5 0 0 0 0 5zm0 0v0M9 19c.93 1.93 2.83 3 5 3s4.07-1.07 5-3a6 6 0 0 0-10 0z", Keywords: []string{"paw", "pet", "dog", "cat", "animal", "puppy", "kitten"}},
	{ID: "infinity", Path: "M18.178 8A5.002 5.002 0 0 0 9 12a5 5 0 1 0 9.178-4zm0 0V3.25A2.25 2.25 0 0 1 20.428 1h.322a2.25 2.25 0 0 1 2.25 2.25V8m-4.822 0h4.822m-14.356 0A5.002 5.002 0 0 1 15 12a5 5 0 1 1-9.178-4zm0 0V3.25A2.25 2.25 0 0 0 3.572 1h-.322a2.25 2.25 0 0 0-2.25 2.25V8m4.822 0H1", Keywords: []string{"infinity", "forever", "eternal", "endless", "unlimited", "infinite"}},
	{ID: "pizza", Path: "M12 2L2 7l10 5 10-5-10-5zM2 17l10 5 10-5M2 12l10 5 10-5", Keywords: []string{"pizza", "food", "italian", "slice", "party", "dinner"}},
}

// Icons returns the full icon library.
func Icons() []domain.Icon {
	return iconLibrary
}

// IconByID returns the icon with the given id.
func IconByID(id string) (domain.Icon, bool) {
	for _, icon := range iconLibrary {
		if icon.ID == id {
			return icon, true
		}
	}
	return domain.Icon{}, false
}

// FindIconByKeyword resolves a free-text keyword to an icon. Exact keyword
// matches win over partial ones; unknown keywords fall back to the first
// library entry.
func FindIconByKeyword(keyword string) domain.Icon {
	normalized := strings.ToLower(strings.TrimSpace(keyword))

	for _, icon := range iconLibrary {
		for _, k := range icon.Keywords {
			if k == normalized {
				return icon
			}
		}
	}

	for _, icon := range iconLibrary {
		for _, k := range icon.Keywords {
			if strings.Contains(k, normalized) || strings.Contains(normalized, k) {
				return icon
			}
		}
	}

	return iconLibrary[0]
}
