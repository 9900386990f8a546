package collab

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestDecodeInboundKinds(t *testing.T) {
	cases := []struct {
		frame string
		want  Inbound
	}{
		{`{"type":"google_docs_sync"}`, DocSyncRequest{}},
		{`{"type":"presence"}`, Unrecognized{Type: "presence"}},
		{`{"field":"description"}`, Unrecognized{}},
		{`{"type":5}`, Unrecognized{}},
	}
	for _, tc := range cases {
		got, err := DecodeInbound([]byte(tc.frame))
		if err != nil {
			t.Fatalf("%s: %v", tc.frame, err)
		}
		assert.Equal(t, got, tc.want)
	}
}

func TestDecodeInboundFormUpdate(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"form_update","field":"plan_content.steps.input1","value":{"n":1.50},"user_id":7}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := msg.(FormUpdate)
	if !ok {
		t.Fatalf("got %T", msg)
	}
	path, ok := m.Path()
	assert.Equal(t, ok, true)
	assert.Equal(t, path, "plan_content.steps.input1")

	value, err := m.DecodedValue()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	assert.Equal(t, value, map[string]any{"n": json.Number("1.50")})
	assert.Equal(t, string(m.UserID), "7")
	assert.Equal(t, len(m.Timestamp), 0)
}

func TestFormUpdatePathRejectsNonString(t *testing.T) {
	for _, frame := range []string{
		`{"type":"form_update","value":"x"}`,
		`{"type":"form_update","field":3,"value":"x"}`,
		`{"type":"form_update","field":null}`,
		`{"type":"form_update","field": null ,"value":"x"}`,
		`{"type":"form_update","field":["description"]}`,
	} {
		msg, err := DecodeInbound([]byte(frame))
		if err != nil {
			t.Fatalf("%s: %v", frame, err)
		}
		if _, ok := msg.(FormUpdate).Path(); ok {
			t.Fatalf("%s: expected no path", frame)
		}
	}
}

func TestFormUpdatePathAcceptsEmptyString(t *testing.T) {
	msg, _ := DecodeInbound([]byte(`{"type":"form_update","field": ""}`))
	path, ok := msg.(FormUpdate).Path()
	assert.Equal(t, ok, true)
	assert.Equal(t, path, "")
}

func TestDecodeInboundErrors(t *testing.T) {
	_, err := DecodeInbound([]byte(`{not json`))
	assert.Equal(t, errors.Is(err, ErrInvalidJSON), true)

	for _, frame := range []string{`[1,2]`, `null`, ` null `, `"text"`} {
		_, err = DecodeInbound([]byte(frame))
		if err == nil || errors.Is(err, ErrInvalidJSON) {
			t.Fatalf("%s: expected a processing error, got %v", frame, err)
		}
	}
}

func TestFormUpdateEventFillsNulls(t *testing.T) {
	msg, _ := DecodeInbound([]byte(`{"type":"form_update","field":"description","value":  [1, 2]}`))
	var got map[string]any
	if err := json.Unmarshal(encode(newFormUpdateEvent(msg.(FormUpdate))), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	assert.Equal(t, got, map[string]any{
		"type":      "form_update",
		"field":     "description",
		"value":     []any{float64(1), float64(2)},
		"user_id":   nil,
		"timestamp": nil,
	})
}
