package models

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Fallback values used when a volume omits a field
const (
	NoBookID          = "No Book ID Found"
	NoTitle           = "No Title Found"
	NoAuthor          = "No Author Found"
	NoPublisher       = "No Publisher Found"
	NoPublishDate     = "No Publish Date Found"
	NoDescription     = "No Book Description Found"
	NoPageCount       = "No Page Count Found"
	NoAverageRating   = "No Average Rating Found"
	NoRatingCount     = "No Rating Count Found"
	NoCover           = "no cover"
	DefaultPreviewURL = "https://books.google.com/"
)

// ErrUnknownMode is returned when a search mode name is not recognized
var ErrUnknownMode = errors.New("unknown search mode")

// SearchMode selects which volume field a query is matched against
type SearchMode int

const (
	Title SearchMode = iota
	Author
	Subject
)

// Prefix returns the query-field prefix for the mode
func (m SearchMode) Prefix() string {
	switch m {
	case Author:
		return "inauthor:"
	case Subject:
		return "subject:"
	default:
		return "intitle:"
	}
}

func (m SearchMode) String() string {
	switch m {
	case Author:
		return "author"
	case Subject:
		return "subject"
	default:
		return "title"
	}
}

// ParseSearchMode maps "title", "author" or "subject" to a SearchMode.
// An empty name selects Title.
func ParseSearchMode(name string) (SearchMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "title":
		return Title, nil
	case "author":
		return Author, nil
	case "subject":
		return Subject, nil
	}
	return Title, ErrUnknownMode
}

// BookRecord is one parsed volume. Every field holds either the value from
// the response or its fallback constant.
type BookRecord struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Publisher     string `json:"publisher"`
	PublishedDate string `json:"published_date"`
	Description   string `json:"description"`
	PageCount     string `json:"page_count"`
	AverageRating string `json:"average_rating"`
	RatingCount   string `json:"rating_count"`
	ThumbnailURL  string `json:"thumbnail_url"`
	PreviewURL    string `json:"preview_url"` // always an absolute http(s) URL
}

// HasCover reports whether the record carries a thumbnail URL
func (b BookRecord) HasCover() bool {
	return b.ThumbnailURL != NoCover
}

// Preview returns PreviewURL parsed
func (b BookRecord) Preview() *url.URL {
	u, err := url.Parse(b.PreviewURL)
	if err != nil {
		u, _ = url.Parse(DefaultPreviewURL)
	}
	return u
}

// Search outcomes stored in history
const (
	OutcomeOK           = "ok"
	OutcomeNoBooks      = "no_books"
	OutcomeNoConnection = "no_connection"
)

// HistoryEntry records one completed search. Only the query is kept, never
// the returned volumes.
type HistoryEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Term        string    `json:"term"`
	Mode        string    `json:"mode"`
	ResultCount int       `json:"result_count"`
	Outcome     string    `json:"outcome"`
	SearchedAt  time.Time `json:"searched_at"`
}
