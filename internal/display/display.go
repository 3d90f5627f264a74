// Package display renders search results as a list of books.
package display

import (
	"embed"

	"github.com/justyntemme/booklist/internal/models"
)

// EmptyState is the message shown in place of an empty list
type EmptyState string

const (
	None         EmptyState = ""
	NoBooks      EmptyState = "No books found."
	NoConnection EmptyState = "No internet connection."
)

// PlaceholderCover stands in for volumes without a thumbnail. It is the URL
// path the HTTP API serves PlaceholderFile under.
const PlaceholderCover = "/static/no_book_cover.png"

// PlaceholderFile is the placeholder image's name within Assets
const PlaceholderFile = "static/no_book_cover.png"

// Assets holds the static files list views link to
//
//go:embed static/no_book_cover.png
var Assets embed.FS

// Renderer shows an ordered list of records, or the empty-state message when
// there are none
type Renderer interface {
	Render(books []models.BookRecord, empty EmptyState) error
}

// ListItem holds the fields a list row shows
type ListItem struct {
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	PublishedDate string `json:"published_date"`
	CoverURL      string `json:"cover_url"`
	HasCover      bool   `json:"has_cover"`
	PreviewURL    string `json:"preview_url"`
}

// NewListItem builds the row for a record
func NewListItem(book models.BookRecord) ListItem {
	item := ListItem{
		Title:         book.Title,
		Authors:       book.Authors,
		PublishedDate: book.PublishedDate,
		CoverURL:      PlaceholderCover,
		HasCover:      book.HasCover(),
		PreviewURL:    book.PreviewURL,
	}
	if item.HasCover {
		item.CoverURL = book.ThumbnailURL
	}
	return item
}

// ListItems converts records in order
func ListItems(books []models.BookRecord) []ListItem {
	items := make([]ListItem, 0, len(books))
	for _, b := range books {
		items = append(items, NewListItem(b))
	}
	return items
}
