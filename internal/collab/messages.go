package collab

import (
	"bytes"
	"encoding/json"
	"errors"
)

const (
	TypeConnectionEstablished = "connection_established"
	TypeFormUpdate            = "form_update"
	TypeDocSync               = "google_docs_sync"
	TypeDocSyncResponse       = "google_docs_sync_response"
	TypeUserTyping            = "user_typing"
	TypeCursorPosition        = "cursor_position"
	TypeError                 = "error"
)

const (
	msgInvalidJSON     = "Invalid JSON format"
	msgProcessingError = "Error processing message: %v"
	msgSyncOK          = "Google Docs synced successfully"
	msgSyncFailed      = "Failed to sync with Google Docs"
	msgSyncError       = "Error syncing with Google Docs: %v"
)

// ErrInvalidJSON is returned by DecodeInbound for frames that are not JSON.
var ErrInvalidJSON = errors.New("invalid JSON format")

// Inbound is one decoded client message.
type Inbound interface {
	inbound()
}

// FormUpdate carries its fields as raw JSON so they can be echoed unchanged.
type FormUpdate struct {
	Field     json.RawMessage `json:"field"`
	Value     json.RawMessage `json:"value"`
	UserID    json.RawMessage `json:"user_id"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type DocSyncRequest struct{}

type UserTyping struct {
	UserID   json.RawMessage `json:"user_id"`
	Field    json.RawMessage `json:"field"`
	IsTyping json.RawMessage `json:"is_typing"`
}

type CursorPosition struct {
	UserID   json.RawMessage `json:"user_id"`
	Field    json.RawMessage `json:"field"`
	Position json.RawMessage `json:"position"`
}

// Unrecognized is any message whose type is missing or unknown.
type Unrecognized struct {
	Type string
}

func (FormUpdate) inbound()     {}
func (DocSyncRequest) inbound() {}
func (UserTyping) inbound()     {}
func (CursorPosition) inbound() {}
func (Unrecognized) inbound()   {}

// Path returns the target field path; false when it is absent or not a string.
func (m FormUpdate) Path() (string, bool) {
	raw := bytes.TrimSpace(m.Field)
	// null unmarshals into a string without error, so check the token kind
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var path string
	if json.Unmarshal(raw, &path) != nil {
		return "", false
	}
	return path, true
}

// DecodedValue returns the value as a generic JSON tree, keeping numbers exact.
func (m FormUpdate) DecodedValue() (any, error) {
	if len(m.Value) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(m.Value))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInbound parses a text frame. Frames that are not JSON yield
// ErrInvalidJSON; valid JSON that is not a message object yields another error.
func DecodeInbound(frame []byte) (Inbound, error) {
	if !json.Valid(frame) {
		return nil, ErrInvalidJSON
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(frame, &envelope); err != nil || envelope == nil {
		return nil, errors.New("message must be a JSON object")
	}
	var kind string
	if raw, ok := envelope["type"]; ok {
		// a non-string type is treated like a missing one
		_ = json.Unmarshal(raw, &kind)
	}

	switch kind {
	case TypeFormUpdate:
		var m FormUpdate
		if err := json.Unmarshal(frame, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeDocSync:
		return DocSyncRequest{}, nil
	case TypeUserTyping:
		var m UserTyping
		if err := json.Unmarshal(frame, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeCursorPosition:
		var m CursorPosition
		if err := json.Unmarshal(frame, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return Unrecognized{Type: kind}, nil
	}
}

type connectionEstablished struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	User    string `json:"user"`
}

type formUpdateEvent struct {
	Type string `json:"type"`
	FormUpdate
}

type userTypingEvent struct {
	Type string `json:"type"`
	UserTyping
}

type cursorPositionEvent struct {
	Type string `json:"type"`
	CursorPosition
}

type syncResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// nullable maps an absent raw field to JSON null.
func nullable(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func newFormUpdateEvent(m FormUpdate) formUpdateEvent {
	return formUpdateEvent{Type: TypeFormUpdate, FormUpdate: FormUpdate{
		Field:     nullable(m.Field),
		Value:     nullable(m.Value),
		UserID:    nullable(m.UserID),
		Timestamp: nullable(m.Timestamp),
	}}
}

func newUserTypingEvent(m UserTyping) userTypingEvent {
	return userTypingEvent{Type: TypeUserTyping, UserTyping: UserTyping{
		UserID:   nullable(m.UserID),
		Field:    nullable(m.Field),
		IsTyping: nullable(m.IsTyping),
	}}
}

func newCursorPositionEvent(m CursorPosition) cursorPositionEvent {
	return cursorPositionEvent{Type: TypeCursorPosition, CursorPosition: CursorPosition{
		UserID:   nullable(m.UserID),
		Field:    nullable(m.Field),
		Position: nullable(m.Position),
	}}
}

func newErrorEvent(message string) errorEvent {
	return errorEvent{Type: TypeError, Message: message}
}
