package googlebooks

import (
	"strings"

	"github.com/justyntemme/booklist/internal/models"
)

// DefaultBaseURL is the volumes search endpoint including the q parameter
const DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes?q="

// QueryBuilder turns user input into a volumes search URL
type QueryBuilder struct {
	BaseURL string
	APIKey  string
}

// NewQueryBuilder creates a builder for the public endpoint
func NewQueryBuilder(apiKey string) QueryBuilder {
	return QueryBuilder{BaseURL: DefaultBaseURL, APIKey: apiKey}
}

// BuildRequestURL returns base + mode prefix + encoded term + API key.
// An empty term is not rejected.
func (q QueryBuilder) BuildRequestURL(rawText string, mode models.SearchMode) string {
	base := q.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString(mode.Prefix())
	b.WriteString(encodeTerm(rawText))
	if q.APIKey != "" {
		b.WriteString("&key=")
		b.WriteString(q.APIKey)
	}
	return b.String()
}

// encodeTerm trims the input and joins its space-separated tokens with %20.
// Runs of spaces produce runs of %20; nothing else is escaped.
func encodeTerm(rawText string) string {
	return strings.Join(strings.Split(strings.TrimSpace(rawText), " "), "%20")
}
