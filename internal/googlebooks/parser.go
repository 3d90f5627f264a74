package googlebooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/justyntemme/booklist/internal/models"
)

// object is a decoded JSON object whose members are decoded on demand
type object map[string]json.RawMessage

// Parse converts a volumes search response into records, keeping the order
// of the items array. An empty body yields no records. Structural problems
// fail the whole parse with ErrParse; missing fields never do.
func Parse(body []byte) ([]models.BookRecord, error) {
	books := []models.BookRecord{}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return books, nil
	}

	if kind(body) != '{' {
		return nil, fmt.Errorf("%w: response is not an object", ErrParse)
	}
	var top object
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	rawItems, ok := top.field("items")
	if !ok {
		// Zero-hit searches come back as {"kind": ..., "totalItems": 0}
		if total, ok := top.optString("totalItems"); ok && total == "0" {
			return books, nil
		}
		return nil, fmt.Errorf("%w: missing items", ErrParse)
	}
	if kind(rawItems) != '[' {
		return nil, fmt.Errorf("%w: items is not an array", ErrParse)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawItems, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	for i, raw := range items {
		if kind(raw) != '{' {
			return nil, fmt.Errorf("%w: item %d is not an object", ErrParse, i)
		}
		var item object
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", ErrParse, i, err)
		}

		book, err := parseItem(item)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %s", ErrParse, i, err)
		}
		books = append(books, book)
	}

	return books, nil
}

// parseItem extracts one record, applying each fallback independently
func parseItem(item object) (models.BookRecord, error) {
	info, err := item.optObject("volumeInfo")
	if err != nil {
		return models.BookRecord{}, err
	}

	authors, err := joinAuthors(info)
	if err != nil {
		return models.BookRecord{}, err
	}

	thumbnail, err := smallThumbnail(info)
	if err != nil {
		return models.BookRecord{}, err
	}

	infoLink, _ := info.optString("infoLink")

	return models.BookRecord{
		ID:            item.stringOr("id", models.NoBookID),
		Title:         info.stringOr("title", models.NoTitle),
		Authors:       authors,
		Publisher:     info.stringOr("publisher", models.NoPublisher),
		PublishedDate: info.stringOr("publishedDate", models.NoPublishDate),
		Description:   info.stringOr("description", models.NoDescription),
		PageCount:     info.stringOr("pageCount", models.NoPageCount),
		AverageRating: info.stringOr("averageRating", models.NoAverageRating),
		RatingCount:   info.stringOr("ratingsCount", models.NoRatingCount),
		ThumbnailURL:  thumbnail,
		PreviewURL:    previewURL(infoLink),
	}, nil
}

func joinAuthors(info object) (string, error) {
	raw, ok := info.field("authors")
	if !ok {
		return models.NoAuthor, nil
	}
	if kind(raw) != '[' {
		return "", fmt.Errorf("authors is not an array")
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return "", err
	}

	names := make([]string, 0, len(entries))
	for j, entry := range entries {
		if kind(entry) == 'n' {
			continue
		}
		name, ok := scalarText(entry)
		if !ok {
			return "", fmt.Errorf("author %d is not a string", j)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return models.NoAuthor, nil
	}
	return strings.Join(names, ", "), nil
}

// smallThumbnail falls back to the no-cover sentinel when either imageLinks
// or its smallThumbnail member is missing
func smallThumbnail(info object) (string, error) {
	links, err := info.optObject("imageLinks")
	if err != nil {
		return "", err
	}
	return links.stringOr("smallThumbnail", models.NoCover), nil
}

// previewURL accepts only absolute http(s) links
func previewURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return models.DefaultPreviewURL
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.DefaultPreviewURL
	}
	return link
}

// field returns the raw member, treating null as absent
func (o object) field(key string) (json.RawMessage, bool) {
	raw, ok := o[key]
	if !ok || kind(raw) == 'n' {
		return nil, false
	}
	return raw, true
}

// optString returns a scalar member as text. Numbers and booleans keep
// their JSON spelling; objects and arrays count as absent.
func (o object) optString(key string) (string, bool) {
	raw, ok := o.field(key)
	if !ok {
		return "", false
	}
	return scalarText(raw)
}

func (o object) stringOr(key, fallback string) string {
	if s, ok := o.optString(key); ok {
		return s
	}
	return fallback
}

// optObject decodes a nested object. Absent or null yields a nil object,
// which answers every lookup as absent. Any other type is an error.
func (o object) optObject(key string) (object, error) {
	raw, ok := o.field(key)
	if !ok {
		return nil, nil
	}
	if kind(raw) != '{' {
		return nil, fmt.Errorf("%s is not an object", key)
	}
	var nested object
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, err
	}
	return nested, nil
}

func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	switch kind(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n', 0:
		return "", false
	default:
		return string(raw), true
	}
}

// kind returns the first significant byte of a JSON value
func kind(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}
