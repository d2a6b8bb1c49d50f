package fetcher

import (
	"strings"
	"testing"
)

// --- Markdown Tests ---

func TestMarkdown_BasicHTML(t *testing.T) {
	got, err := Markdown(`<h1>Title</h1><p>A paragraph.</p>`)
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(got, "# Title") {
		t.Errorf("expected markdown heading, got %q", got)
	}
	if !strings.Contains(got, "A paragraph.") {
		t.Errorf("expected paragraph text, got %q", got)
	}
}

func TestMarkdown_Links(t *testing.T) {
	got, err := Markdown(`<p><a href="https://example.com/">home</a></p>`)
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(got, "[home](https://example.com/)") {
		t.Errorf("expected markdown link, got %q", got)
	}
}

// --- Article Tests ---

func TestArticle_ExtractsMainText(t *testing.T) {
	body := strings.Repeat("Readable sentence about the topic, with enough words to count. ", 20)
	html := `<html><head><title>Post</title></head><body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<article><h1>Post</h1><p>` + body + `</p><p>` + body + `</p></article>
<footer>Copyright</footer></body></html>`

	got, err := Article(html, "https://blog.test/post")
	if err != nil {
		t.Fatalf("Article() error = %v", err)
	}
	if !strings.Contains(got, "Readable sentence about the topic") {
		t.Errorf("expected article text, got %q", got)
	}
	if strings.Contains(got, "<article>") {
		t.Errorf("expected plain text, got %q", got)
	}
}

// --- collapseBlankLines Tests ---

func TestCollapseBlankLines(t *testing.T) {
	got := collapseBlankLines("\n\na\n\n\n\nb\n  \n")
	if got != "a\n\nb" {
		t.Errorf("expected %q, got %q", "a\n\nb", got)
	}
}
