// Package ingestion defines the document record that flows from a source
// into the index, and the Kafka event schema used to publish documents.
package ingestion

import "time"

// Document is one collection entry: an opaque identifier and its raw text.
type Document struct {
	ID       string `json:"id"`
	Contents string `json:"contents"`
}

// IngestEvent is the Kafka message payload for one published document.
// Title and Body are accepted for producers that keep them apart; they
// are joined when Contents is empty.
type IngestEvent struct {
	DocumentID string    `json:"document_id"`
	Contents   string    `json:"contents,omitempty"`
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Document converts the event to the record indexed by the builder.
func (e IngestEvent) Document() Document {
	return Document{ID: e.DocumentID, Contents: JoinFields(e.Contents, e.Title, e.Body)}
}

// JoinFields returns contents when set, otherwise title and body separated
// by a space.
func JoinFields(contents, title, body string) string {
	if contents != "" {
		return contents
	}
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + " " + body
	}
}
