package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	FieldNameOfDesigners   = "name_of_designers"
	FieldImpactProjectName = "impact_project_name"
	FieldDescription       = "description"

	// PlanContentPrefix marks a dotted path into Form.PlanContent.
	PlanContentPrefix = "plan_content."

	StatusDraft = "draft"
	StatusFinal = "final"
)

var ErrNotFound = errors.New("form not found")

// Form is the persisted snapshot of one action plan.
type Form struct {
	ID                int64          `json:"id"`
	NameOfDesigners   string         `json:"name_of_designers"`
	ImpactProjectName string         `json:"impact_project_name"`
	Description       string         `json:"description"`
	PlanContent       map[string]any `json:"plan_content"`
	Status            string         `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Link              *SyncLink      `json:"sync_link,omitempty"`
}

// SyncLink binds a form to its copy in an external document service.
type SyncLink struct {
	ExternalID   string     `json:"external_id"`
	URL          string     `json:"url,omitempty"`
	Created      bool       `json:"created"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Pushable reports whether automatic pushes may target this link.
func (l *SyncLink) Pushable() bool {
	return l != nil && l.Created && l.ExternalID != ""
}

// SetField applies value at path. Flat field names set the column directly;
// plan_content paths walk the nested content, creating missing levels.
// Unknown paths leave the form untouched.
func (f *Form) SetField(path string, value any) error {
	switch path {
	case FieldNameOfDesigners:
		f.NameOfDesigners = scalarText(value)
		return nil
	case FieldImpactProjectName:
		f.ImpactProjectName = scalarText(value)
		return nil
	case FieldDescription:
		f.Description = scalarText(value)
		return nil
	}
	if !strings.HasPrefix(path, PlanContentPrefix) {
		return nil
	}
	if f.PlanContent == nil {
		f.PlanContent = make(map[string]any)
	}
	parts := strings.Split(strings.TrimPrefix(path, PlanContentPrefix), ".")
	current := f.PlanContent
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok || next == nil {
			child := make(map[string]any)
			current[part] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("path %q: %q is not an object", path, part)
		}
		current = child
	}
	current[parts[len(parts)-1]] = value
	return nil
}

func scalarText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(b)
}
