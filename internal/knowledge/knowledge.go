// Package knowledge provides the curated knowledge collections behind the
// retrieval short-circuit tier: course records and question/answer pairs,
// keyword extraction, fuzzy OR-filters, and the context block rendered for a
// grounded completion request.
package knowledge

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Course is a structured record in the courses collection. Read-only here.
type Course struct {
	Title string `json:"title"`
	Time  string `json:"time"`
}

// QA is a question/answer pair in the QA collection. Read-only here.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Fields a Filter can target.
const (
	FieldTitle    = "title"
	FieldQuestion = "question"
)

// sentence-terminal punctuation treated as token delimiters, alongside
// whitespace
const delimiters = "。！？?!"

// Tokenize splits input on whitespace and sentence-terminal punctuation and
// drops tokens of one rune or fewer. The result feeds NewFilter; an empty
// result means the caller must not query at all.
func Tokenize(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(delimiters, r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Filter is a logical OR of case-insensitive substring predicates over one
// field of a collection.
type Filter struct {
	Field string
	Terms []string
}

// NewFilter builds a filter over field from keyword terms.
func NewFilter(field string, terms []string) Filter {
	return Filter{Field: field, Terms: terms}
}

// Empty reports whether the filter has no terms. An empty filter matches
// nothing; callers are expected to short-circuit before querying.
func (f Filter) Empty() bool { return len(f.Terms) == 0 }

// Matches reports whether value satisfies any of the filter's predicates.
func (f Filter) Matches(value string) bool {
	lower := strings.ToLower(value)
	for _, term := range f.Terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// Querier answers fuzzy filters against the two collections. Implementations
// must treat an empty filter as matching nothing.
type Querier interface {
	Courses(ctx context.Context, f Filter) ([]Course, error)
	QAs(ctx context.Context, f Filter) ([]QA, error)
}
