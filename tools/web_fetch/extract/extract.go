// Package extract reduces an HTML page to its title and paragraph text.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/accountplan/internal/helpers"
)

// Page is the extracted content of one document.
type Page struct {
	Title string
	Text  string
}

// FromHTML drops script, style and noscript elements, then joins the text of
// every p and li element with single spaces, capped at maxChars runes. The
// title comes from readability, then <title>, then the page URL.
func FromHTML(html, pageURL string, maxChars int) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		if t := helpers.CollapseWhitespace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	text := strings.Join(parts, " ")
	if maxChars > 0 {
		text = helpers.TruncateRunes(text, maxChars)
	}

	return Page{Title: title(html, pageURL, doc), Text: text}, nil
}

func title(html, pageURL string, doc *goquery.Document) string {
	if u, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(strings.NewReader(html), u); err == nil {
			if t := strings.TrimSpace(article.Title); t != "" {
				return t
			}
		}
	}
	if t := helpers.CollapseWhitespace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return pageURL
}
