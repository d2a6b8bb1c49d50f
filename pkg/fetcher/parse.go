package fetcher

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is the readable view of a fetched HTML body.
type Document struct {
	Title string
	Text  string
	Links []string
}

// Parse extracts title, visible text and absolute links from html. pageURL
// resolves relative links; it may be empty.
func Parse(html, pageURL string) (Document, error) {
	var out Document

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out, err
	}

	out.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, iframe, svg").Remove()

	var textParts []string
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			textParts = append(textParts, text)
		}
	})
	out.Text = strings.Join(textParts, "\n")

	var baseURL *url.URL
	if pageURL != "" {
		baseURL, _ = url.Parse(pageURL)
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		if !linkURL.IsAbs() && baseURL != nil {
			linkURL = baseURL.ResolveReference(linkURL)
		}
		out.Links = append(out.Links, linkURL.String())
	})

	return out, nil
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
