// Package tokenizer provides the text analysis pipeline shared by indexing
// and querying. It NFKC-normalises input, segments it into words per
// UAX #29, lower-cases, strips possessives, removes stop-words, and applies
// the Snowball English stemmer.
//
// Index-time and query-time analysis must be identical: a term that is
// normalised differently on either side never matches.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	"github.com/clipperhouse/uax29/v2/words"
	snowballeng "github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// Analyzer turns raw text into an ordered sequence of normalised terms.
// Implementations must be deterministic and safe for concurrent use.
type Analyzer interface {
	Analyze(text string) []string
}

// DefaultStopWords is the English stop set used by Lucene's StandardAnalyzer.
// Interrogatives such as "what" are deliberately absent.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
	"if", "in", "into", "is", "it", "no", "not", "of", "on", "or",
	"such", "that", "the", "their", "then", "there", "these", "they",
	"this", "to", "was", "will", "with",
}

// Options configures a Standard analyzer.
type Options struct {
	Stemming       bool
	MinTokenLength int
	StopWords      []string
}

// DefaultOptions returns stemming on, two-rune minimum, Lucene stop-words.
func DefaultOptions() Options {
	return Options{
		Stemming:       true,
		MinTokenLength: 2,
		StopWords:      DefaultStopWords,
	}
}

// Standard is the default Analyzer.
type Standard struct {
	stemming  bool
	minLength int
	stopWords map[string]struct{}
}

// New builds a Standard analyzer. A nil StopWords slice selects
// DefaultStopWords; an empty non-nil slice disables stop-word removal.
func New(opts Options) *Standard {
	stop := opts.StopWords
	if stop == nil {
		stop = DefaultStopWords
	}
	set := make(map[string]struct{}, len(stop))
	for _, w := range stop {
		set[strings.ToLower(w)] = struct{}{}
	}
	minLength := opts.MinTokenLength
	if minLength < 1 {
		minLength = 1
	}
	return &Standard{
		stemming:  opts.Stemming,
		minLength: minLength,
		stopWords: set,
	}
}

// FromConfig builds the analyzer described by the analyzer config section.
func FromConfig(cfg config.AnalyzerConfig) *Standard {
	var stop []string
	if len(cfg.StopWords) > 0 {
		stop = cfg.StopWords
	}
	return New(Options{
		Stemming:       cfg.Stemming,
		MinTokenLength: cfg.MinTokenLength,
		StopWords:      stop,
	})
}

// Analyze returns the normalised terms of text in order of appearance.
// Repeated terms are kept; term frequency is derived from them.
func (s *Standard) Analyze(text string) []string {
	segments := words.FromString(norm.NFKC.String(text))
	terms := make([]string, 0, len(text)/6+1)
	for segments.Next() {
		term, ok := s.normalize(segments.Value())
		if !ok {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

func (s *Standard) normalize(segment string) (string, bool) {
	if !isWord(segment) {
		return "", false
	}
	word := strings.ToLower(segment)
	word = stripPossessive(word)
	word = strings.NewReplacer("'", "", "’", "").Replace(word)
	if utf8.RuneCountInString(word) < s.minLength {
		return "", false
	}
	if _, isStop := s.stopWords[word]; isStop {
		return "", false
	}
	if s.stemming {
		word = snowballeng.Stem(word, true)
	}
	if word == "" {
		return "", false
	}
	return word, true
}

// isWord reports whether a UAX #29 segment carries a letter or digit;
// whitespace and punctuation segments are dropped.
func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func stripPossessive(word string) string {
	for _, suffix := range []string{"'s", "’s"} {
		if strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}
