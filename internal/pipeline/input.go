package pipeline

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

const blockTags = "p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, blockquote, pre, article, section, header, footer, table, tr, figure, figcaption"

// ContainsHTML reports whether text has at least one start tag of a known
// HTML element. Angle brackets around unknown words do not count.
func ContainsHTML(text string) bool {
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) != 0 {
				return true
			}
		}
	}
}

// HTMLToText reduces an HTML document to readable text. Callers use it only
// for input they marked as HTML. Text without any known element is returned
// unchanged.
func HTMLToText(text string) string {
	if !ContainsHTML(text) {
		return text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}

	doc.Find("script, style, noscript, template, iframe, head").Remove()

	var b strings.Builder
	collectText(doc.Selection, &b)
	return normalizeText(b.String())
}

func collectText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
			return
		case "#comment":
			return
		case "br":
			b.WriteString("\n")
			return
		}

		if c.Is(blockTags) {
			b.WriteString("\n\n")
			collectText(c, b)
			b.WriteString("\n\n")
			return
		}
		collectText(c, b)
	})
}

// normalizeText collapses runs of spaces inside lines and keeps at most one
// blank line between paragraphs.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	out := strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
