package storage

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSetFieldNestedCreatesLevels(t *testing.T) {
	form := Form{PlanContent: map[string]any{}}
	if err := form.SetField("plan_content.steps.input1", "Draft text"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	assert.Equal(t, form.PlanContent, map[string]any{
		"steps": map[string]any{"input1": "Draft text"},
	})
}

func TestSetFieldNilContent(t *testing.T) {
	var form Form
	if err := form.SetField("plan_content.role", "Teacher"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	assert.Equal(t, form.PlanContent["role"], "Teacher")
}

func TestSetFieldKeepsSiblings(t *testing.T) {
	form := Form{PlanContent: map[string]any{
		"steps": map[string]any{"input1": "one"},
		"role":  "Student",
	}}
	if err := form.SetField("plan_content.steps.input2", "two"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	assert.Equal(t, form.PlanContent, map[string]any{
		"steps": map[string]any{"input1": "one", "input2": "two"},
		"role":  "Student",
	})
}

func TestSetFieldThroughScalarFails(t *testing.T) {
	form := Form{PlanContent: map[string]any{"steps": "flat"}}
	if err := form.SetField("plan_content.steps.input1", "x"); err == nil {
		t.Fatalf("expected error walking through a scalar")
	}
	assert.Equal(t, form.PlanContent["steps"], "flat")
}

func TestSetFieldTopLevel(t *testing.T) {
	var form Form
	assert.Equal(t, form.SetField(FieldImpactProjectName, "Clean Water"), nil)
	assert.Equal(t, form.SetField(FieldNameOfDesigners, nil), nil)
	assert.Equal(t, form.SetField(FieldDescription, 42), nil)
	assert.Equal(t, form.ImpactProjectName, "Clean Water")
	assert.Equal(t, form.NameOfDesigners, "")
	assert.Equal(t, form.Description, "42")
}

func TestSetFieldUnknownPathIsNoop(t *testing.T) {
	form := Form{Description: "keep", PlanContent: map[string]any{}}
	assert.Equal(t, form.SetField("status", "final"), nil)
	assert.Equal(t, form.SetField("plan_content", "whole"), nil)
	assert.Equal(t, form.Description, "keep")
	assert.Equal(t, len(form.PlanContent), 0)
}

func TestPushable(t *testing.T) {
	var missing *SyncLink
	assert.Equal(t, missing.Pushable(), false)
	assert.Equal(t, (&SyncLink{ExternalID: "doc"}).Pushable(), false)
	assert.Equal(t, (&SyncLink{Created: true}).Pushable(), false)
	assert.Equal(t, (&SyncLink{ExternalID: "doc", Created: true}).Pushable(), true)
}
