package agents

import (
	"context"

	"github.com/yungbote/curricula-backend/internal/platform/texrender"
)

type fakeAI struct {
	jsonOut map[string]any
	jsonErr error
	textOut string
	textErr error

	lastSystem string
	lastUser   string
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.lastSystem, f.lastUser = system, user
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	return f.jsonOut, nil
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.lastSystem, f.lastUser = system, user
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.textOut, nil
}

type fakeRenderer struct {
	lastMarkup string
	err        error
}

func (f *fakeRenderer) Render(markup string) (texrender.Artifact, error) {
	f.lastMarkup = markup
	if f.err != nil {
		return texrender.Artifact{}, f.err
	}
	if markup == "" {
		return texrender.Artifact{}, nil
	}
	return texrender.Artifact{PNG: []byte{1}, MimeType: "image/png", Width: 10, Height: 10, Markup: markup}, nil
}

func quizItemsJSON(n int) []any {
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"question":             "q",
			"options":              []any{"a", "b", "c", "d"},
			"correct_option_index": float64(0),
			"explanation":          "because",
		})
	}
	return items
}
