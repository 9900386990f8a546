package docsink

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"sdgplan/collab/internal/storage"
)

// Range is a half-open span of document indexes. Google Docs counts UTF-16
// code units and the body starts at index 1.
type Range struct {
	Start int64
	End   int64
}

// Layout is a form rendered as plain text plus the spans to style.
type Layout struct {
	Text     string
	Headings []Range
	Bold     []Range
}

var otherFields = []struct{ key, label string }{
	{"importance", "Impact Importance"},
	{"example", "Existing Example"},
	{"resources", "Resources and Partnerships"},
	{"impact", "Impact Avenues"},
	{"risk", "Risks and Inhibitors"},
	{"mitigation", "Mitigation Strategies"},
}

const stepCount = 6

// Render lays out a form the way it appears in the external document.
func Render(form storage.Form) Layout {
	b := &layoutBuilder{next: 1}
	content := form.PlanContent

	title := form.ImpactProjectName
	if title == "" {
		title = "Untitled"
	}
	b.write("SDG Action Plan: " + title + "\n\n")

	b.heading("Basic Information")
	b.field("Project Name", form.ImpactProjectName)
	b.field("Designers", form.NameOfDesigners)
	b.field("Description", form.Description)
	b.write("\n")

	b.heading("Plan Content")
	if sdgs := valueText(content["SDGs"]); sdgs != "" {
		b.field("Related SDGs", sdgs)
	}
	b.field("Role and Affiliation", valueText(content["role"]))
	b.field("Main Challenge", valueText(content["challenge"]))

	b.heading("Implementation Steps")
	steps, _ := content["steps"].(map[string]any)
	for i := 1; i <= stepCount; i++ {
		if step := valueText(steps[fmt.Sprintf("input%d", i)]); step != "" {
			b.field(fmt.Sprintf("Step %d", i), step)
		}
	}

	if impactTypes, ok := content["impact_types"].(map[string]any); ok && anyValue(impactTypes) {
		b.heading("Impact Types")
		ranks := make([]string, 0, len(impactTypes))
		for rank := range impactTypes {
			ranks = append(ranks, rank)
		}
		sort.Strings(ranks)
		for _, rank := range ranks {
			if v := valueText(impactTypes[rank]); v != "" && rank != "" {
				last, _ := utf8.DecodeLastRuneInString(rank)
				b.field("Rank "+string(last), v)
			}
		}
	}

	for _, f := range otherFields {
		if v := valueText(content[f.key]); v != "" {
			b.field(f.label, v)
		}
	}
	b.layout.Text = b.text.String()
	return b.layout
}

type layoutBuilder struct {
	layout Layout
	text   strings.Builder
	next   int64
}

func (b *layoutBuilder) write(s string) int64 {
	start := b.next
	b.text.WriteString(s)
	b.next += utf16Len(s)
	return start
}

func (b *layoutBuilder) heading(title string) {
	start := b.write(title + "\n")
	b.layout.Headings = append(b.layout.Headings, Range{start, start + utf16Len(title)})
}

func (b *layoutBuilder) field(label, value string) {
	start := b.write(label + ": " + value + "\n")
	b.layout.Bold = append(b.layout.Bold, Range{start, start + utf16Len(label)})
}

func utf16Len(s string) int64 {
	return int64(len(utf16.Encode([]rune(s))))
}

func anyValue(m map[string]any) bool {
	for _, v := range m {
		if valueText(v) != "" {
			return true
		}
	}
	return false
}

func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := valueText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
