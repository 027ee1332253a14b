package synth

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/accountplan/internal/docstore"
	"github.com/mohammad-safakhou/accountplan/internal/helpers"
)

// BuildContext renders docs as "[title | url] \ntext" blocks separated by a
// blank line, each text capped at maxChars runes.
func BuildContext(docs []docstore.Document, maxChars int) string {
	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		title := d.Title
		if title == "" {
			title = d.URL
		}
		if title == "" {
			title = "source"
		}
		blocks = append(blocks, fmt.Sprintf("[%s | %s] \n%s", title, d.URL, helpers.TruncateRunes(d.Text, maxChars)))
	}
	return strings.Join(blocks, "\n\n")
}
