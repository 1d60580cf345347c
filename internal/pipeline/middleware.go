package pipeline

import (
	"strings"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// invisible are characters that survive strings.TrimSpace but render as nothing.
var invisible = strings.NewReplacer(
	"\u200B", "", // zero width space
	"\u200C", "",
	"\u200D", "",
	"\uFEFF", "", // byte order mark
)

// normalizeLine strips invisible characters and collapses whitespace runs
// (including full-width spaces) to one ASCII space.
func normalizeLine(s string) string {
	s = invisible.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTextMiddleware cleans the single-line text fields.
type NormalizeTextMiddleware struct{}

func (m *NormalizeTextMiddleware) Name() string { return "normalize_text" }

func (m *NormalizeTextMiddleware) Process(a *types.Article) (*types.Article, error) {
	a.Title = normalizeLine(a.Title)
	a.Source = normalizeLine(a.Source)
	if a.Source == "" {
		a.Source = types.UnknownSource
	}
	return a, nil
}

// KeywordsMiddleware trims keywords and drops blanks and repeats, keeping
// first-seen order. Matching is case-sensitive.
type KeywordsMiddleware struct{}

func (m *KeywordsMiddleware) Name() string { return "keywords" }

func (m *KeywordsMiddleware) Process(a *types.Article) (*types.Article, error) {
	if len(a.Keywords) == 0 {
		return a, nil
	}
	seen := make(map[string]struct{}, len(a.Keywords))
	out := a.Keywords[:0]
	for _, k := range a.Keywords {
		k = normalizeLine(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	a.Keywords = out
	return a, nil
}

// RequireTitleMiddleware rejects articles whose title is empty after
// normalization.
type RequireTitleMiddleware struct{}

func (m *RequireTitleMiddleware) Name() string { return "require_title" }

func (m *RequireTitleMiddleware) Process(a *types.Article) (*types.Article, error) {
	if a.Title == "" {
		return nil, nil
	}
	return a, nil
}
