// Package parser turns raw query text into the term set used for
// retrieval. Queries go through the same analyzer used at index time.
package parser

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

// Terms is a deduplicated, lexically sorted set of analyzed query terms:
// the support of a multi-hot query vector.
type Terms []string

type QueryType int

const (
	QueryOR QueryType = iota
	QueryAND
)

func (q QueryType) String() string {
	if q == QueryAND {
		return "AND"
	}
	return "OR"
}

// QueryPlan is a parsed boolean query. OR ranks every document matching
// any term; AND keeps only documents matching all of them. ExcludeTerms
// removes documents regardless of mode.
type QueryPlan struct {
	Terms        Terms     `json:"terms"`
	Type         QueryType `json:"-"`
	ExcludeTerms Terms     `json:"exclude_terms,omitempty"`
	RawQuery     string    `json:"raw_query"`
}

type Encoder struct {
	analyzer tokenizer.Analyzer
}

func NewEncoder(analyzer tokenizer.Analyzer) *Encoder {
	return &Encoder{analyzer: analyzer}
}

// Encode analyzes raw and returns its distinct terms. Text that analyzes
// to nothing yields an empty set. Invalid UTF-8 fails with
// ErrInvalidArgument.
func (e *Encoder) Encode(raw string) (Terms, error) {
	if !utf8.ValidString(raw) {
		return nil, apperrors.InvalidArgumentf("query is not valid UTF-8")
	}
	return newTerms(e.analyzer.Analyze(raw)), nil
}

// Parse reads the boolean syntax of the search API. Operators are the
// upper-case words AND, OR and NOT; NOT excludes the word that follows.
// Without operators a query is a plain disjunctive BM25 query and its
// Terms equal Encode(query).
func (e *Encoder) Parse(query string) (*QueryPlan, error) {
	if !utf8.ValidString(query) {
		return nil, apperrors.InvalidArgumentf("query is not valid UTF-8")
	}
	plan := &QueryPlan{
		Terms:        Terms{},
		ExcludeTerms: Terms{},
		Type:         QueryOR,
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return plan, nil
	}

	var include, exclude []string
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch word {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		// NOT binds to the next word even when that word analyzes away.
		terms := e.analyzer.Analyze(word)
		if excludeNext {
			exclude = append(exclude, terms...)
			excludeNext = false
		} else {
			include = append(include, terms...)
		}
	}

	plan.ExcludeTerms = newTerms(exclude)
	excluded := make(map[string]bool, len(plan.ExcludeTerms))
	for _, term := range plan.ExcludeTerms {
		excluded[term] = true
	}
	kept := include[:0]
	for _, term := range include {
		if !excluded[term] {
			kept = append(kept, term)
		}
	}
	plan.Terms = newTerms(kept)
	return plan, nil
}

func newTerms(terms []string) Terms {
	out := make(Terms, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if !seen[term] {
			seen[term] = true
			out = append(out, term)
		}
	}
	sort.Strings(out)
	return out
}
