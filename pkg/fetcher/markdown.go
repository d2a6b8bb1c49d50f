package fetcher

import (
	"bytes"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	md "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Markdown converts an HTML body to Markdown.
func Markdown(html string) (string, error) {
	out, err := md.ConvertString(html)
	if err != nil {
		return "", err
	}
	return collapseBlankLines(out), nil
}

// Article extracts the main readable text of an HTML body with Readability.
// The body is returned unchanged when no article is found.
func Article(html, pageURL string) (string, error) {
	baseURL, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		baseURL = nil
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), baseURL)
	if err != nil {
		return "", err
	}
	if article.Node == nil {
		return html, nil
	}

	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil || buf.Len() == 0 {
		return html, nil
	}
	return collapseBlankLines(buf.String()), nil
}

// collapseBlankLines keeps at most one blank line between content lines.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	result := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			result = append(result, "")
			continue
		}
		blank = 0
		result = append(result, line)
	}
	return strings.TrimSpace(strings.Join(result, "\n"))
}
