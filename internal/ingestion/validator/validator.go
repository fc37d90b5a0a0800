// Package validator checks documents before they are indexed or published.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
)

const (
	maxIDLength       = 512
	maxContentsLength = 1 << 24
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	DocumentID string
	Fields     map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return fmt.Sprintf("document %q: %s", e.DocumentID, strings.Join(parts, "; "))
}

// ValidateDocument requires a non-empty identifier and UTF-8 contents
// within the size limits. Empty contents are allowed: such a document has
// length zero and matches no query.
func ValidateDocument(doc ingestion.Document) error {
	errs := make(map[string]string)

	switch {
	case strings.TrimSpace(doc.ID) == "":
		errs["id"] = "id is required"
	case len(doc.ID) > maxIDLength:
		errs["id"] = fmt.Sprintf("id must be at most %d bytes", maxIDLength)
	case !utf8.ValidString(doc.ID):
		errs["id"] = "id must be valid UTF-8"
	}
	if len(doc.Contents) > maxContentsLength {
		errs["contents"] = fmt.Sprintf("contents must be at most %d bytes", maxContentsLength)
	} else if !utf8.ValidString(doc.Contents) {
		errs["contents"] = "contents must be valid UTF-8"
	}
	if len(errs) > 0 {
		return &ValidationError{DocumentID: doc.ID, Fields: errs}
	}
	return nil
}
