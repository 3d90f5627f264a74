package display

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/justyntemme/booklist/internal/models"
)

// TextRenderer writes results as an aligned terminal list
type TextRenderer struct {
	w       io.Writer
	Verbose bool // include publisher, page count, rating and link
}

// NewTextRenderer creates a renderer writing to w
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// Render writes one block per book, or the empty-state message
func (r *TextRenderer) Render(books []models.BookRecord, empty EmptyState) error {
	if len(books) == 0 {
		msg := empty
		if msg == None {
			msg = NoBooks
		}
		_, err := fmt.Fprintln(r.w, msg)
		return err
	}

	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for i, book := range books {
		item := NewListItem(book)
		cover := item.CoverURL
		if !item.HasCover {
			cover = "[no cover]"
		}

		fmt.Fprintf(tw, "%d.\t%s\n", i+1, item.Title)
		fmt.Fprintf(tw, "\tby\t%s\n", item.Authors)
		fmt.Fprintf(tw, "\tpublished\t%s\n", item.PublishedDate)
		fmt.Fprintf(tw, "\tcover\t%s\n", cover)
		if r.Verbose {
			fmt.Fprintf(tw, "\tpublisher\t%s\n", book.Publisher)
			fmt.Fprintf(tw, "\tpages\t%s\n", book.PageCount)
			fmt.Fprintf(tw, "\trating\t%s (%s)\n", book.AverageRating, book.RatingCount)
			fmt.Fprintf(tw, "\tlink\t%s\n", book.PreviewURL)
		}
	}
	return tw.Flush()
}
