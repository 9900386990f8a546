package docsink

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"

	"sdgplan/collab/internal/storage"
)

const headingStyle = "HEADING_1"

// GoogleDocs keeps forms in Google Docs documents.
type GoogleDocs struct {
	docs *docs.Service
}

// NewGoogleDocs builds the Docs client from a service account credentials
// file. Extra options (endpoint, http client) are appended for tests.
func NewGoogleDocs(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GoogleDocs, error) {
	if credentialsFile != "" {
		opts = append([]option.ClientOption{
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(docs.DocumentsScope),
		}, opts...)
	}
	service, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create docs service: %w", err)
	}
	return &GoogleDocs{docs: service}, nil
}

func (g *GoogleDocs) CreateDocument(ctx context.Context, form storage.Form) (string, error) {
	title := "SDG Action Plan - " + form.ImpactProjectName
	doc, err := g.docs.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create google doc: %w", err)
	}
	if err := g.ReplaceContent(ctx, doc.DocumentId, form); err != nil {
		return doc.DocumentId, err
	}
	return doc.DocumentId, nil
}

// ReplaceContent clears the body and writes the rendered form in one
// batchUpdate, so a failed push leaves the previous content in place.
func (g *GoogleDocs) ReplaceContent(ctx context.Context, documentID string, form storage.Form) error {
	if documentID == "" {
		return errors.New("google doc id is required")
	}
	current, err := g.docs.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get google doc %s: %w", documentID, err)
	}

	var requests []*docs.Request
	if end := bodyEnd(current); end-1 > 1 {
		requests = append(requests, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{StartIndex: 1, EndIndex: end - 1},
			},
		})
	}
	requests = append(requests, layoutRequests(Render(form))...)

	_, err = g.docs.Documents.BatchUpdate(documentID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update google doc %s: %w", documentID, err)
	}
	return nil
}

func (g *GoogleDocs) DocumentURL(documentID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", documentID)
}

func bodyEnd(doc *docs.Document) int64 {
	if doc == nil || doc.Body == nil || len(doc.Body.Content) == 0 {
		return 0
	}
	return doc.Body.Content[len(doc.Body.Content)-1].EndIndex
}

func layoutRequests(layout Layout) []*docs.Request {
	requests := []*docs.Request{{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     layout.Text,
		},
	}}
	for _, h := range layout.Headings {
		requests = append(requests, &docs.Request{
			UpdateParagraphStyle: &docs.UpdateParagraphStyleRequest{
				Range:          &docs.Range{StartIndex: h.Start, EndIndex: h.End},
				ParagraphStyle: &docs.ParagraphStyle{NamedStyleType: headingStyle},
				Fields:         "namedStyleType",
			},
		})
	}
	for _, b := range layout.Bold {
		requests = append(requests, &docs.Request{
			UpdateTextStyle: &docs.UpdateTextStyleRequest{
				Range:     &docs.Range{StartIndex: b.Start, EndIndex: b.End},
				TextStyle: &docs.TextStyle{Bold: true},
				Fields:    "bold",
			},
		})
	}
	return requests
}
