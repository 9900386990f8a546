// Package docsink pushes form snapshots to external document services.
package docsink

import (
	"context"

	"sdgplan/collab/internal/storage"
)

// Sink is an external document service that holds a copy of a form.
type Sink interface {
	// CreateDocument creates a new external document for form and returns its id.
	CreateDocument(ctx context.Context, form storage.Form) (string, error)

	// ReplaceContent overwrites the document with the form's current content.
	// Calling it twice with the same form leaves the same document.
	ReplaceContent(ctx context.Context, documentID string, form storage.Form) error

	// DocumentURL is the shareable link for a document.
	DocumentURL(documentID string) string
}
