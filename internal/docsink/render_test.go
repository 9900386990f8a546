package docsink

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-playground/assert/v2"

	"sdgplan/collab/internal/storage"
)

func sampleForm() storage.Form {
	return storage.Form{
		ID:                3,
		ImpactProjectName: "Clean Water",
		NameOfDesigners:   "Ana",
		Description:       "d",
		PlanContent: map[string]any{
			"SDGs":      []any{"SDG 6", "SDG 13"},
			"role":      "Teacher",
			"challenge": "Access",
			"steps": map[string]any{
				"input1": "Survey",
				"input3": "Build",
			},
			"impact_types": map[string]any{"rank1": "Social", "rank2": ""},
			"risk":         "Funding",
		},
	}
}

func TestRenderText(t *testing.T) {
	layout := Render(sampleForm())
	want := strings.Join([]string{
		"SDG Action Plan: Clean Water",
		"",
		"Basic Information",
		"Project Name: Clean Water",
		"Designers: Ana",
		"Description: d",
		"",
		"Plan Content",
		"Related SDGs: SDG 6, SDG 13",
		"Role and Affiliation: Teacher",
		"Main Challenge: Access",
		"Implementation Steps",
		"Step 1: Survey",
		"Step 3: Build",
		"Impact Types",
		"Rank 1: Social",
		"Risks and Inhibitors: Funding",
		"",
	}, "\n")
	assert.Equal(t, layout.Text, want)
}

func TestRenderRangesMatchText(t *testing.T) {
	layout := Render(sampleForm())
	at := func(r Range) string { return layout.Text[r.Start-1 : r.End-1] }

	headings := make([]string, 0, len(layout.Headings))
	for _, h := range layout.Headings {
		headings = append(headings, at(h))
	}
	assert.Equal(t, headings, []string{
		"Basic Information", "Plan Content", "Implementation Steps", "Impact Types",
	})

	bold := make([]string, 0, len(layout.Bold))
	for _, b := range layout.Bold {
		bold = append(bold, at(b))
	}
	assert.Equal(t, bold[0], "Project Name")
	assert.Equal(t, bold[len(bold)-1], "Risks and Inhibitors")
}

func TestRenderCountsUTF16(t *testing.T) {
	layout := Render(storage.Form{ImpactProjectName: "🌊"})
	assert.Equal(t, layout.Headings[0], Range{Start: 22, End: 39})
	assert.Equal(t, layout.Bold[0], Range{Start: 40, End: 52})
}

func TestRenderEmptyForm(t *testing.T) {
	layout := Render(storage.Form{})
	if !strings.HasPrefix(layout.Text, "SDG Action Plan: Untitled\n\n") {
		t.Fatalf("unexpected title: %q", layout.Text)
	}
	if strings.Contains(layout.Text, "Impact Types") {
		t.Fatalf("empty impact types should be omitted")
	}
}

func TestRenderRankLabelKeepsMultibyteRune(t *testing.T) {
	layout := Render(storage.Form{PlanContent: map[string]any{
		"impact_types": map[string]any{"rang①": "Social"},
	}})
	if !utf8.ValidString(layout.Text) {
		t.Fatalf("rendered text is not valid UTF-8: %q", layout.Text)
	}
	if !strings.Contains(layout.Text, "Rank ①: Social\n") {
		t.Fatalf("unexpected rank line in %q", layout.Text)
	}
}
