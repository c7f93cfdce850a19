package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"newsdesk/internal/providers"
	"newsdesk/internal/search"
)

const (
	maxQueryLength  = 200
	searchCount     = 10
	searchFreshness = "pw" // past week
)

// Searcher looks up recent publications. search.Provider satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) *search.Response
}

// searchQuery derives a search query from the output of the freshness
// check stage: the first non-empty line, capped at maxQueryLength runes.
func searchQuery(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxQueryLength {
			line = string([]rune(line)[:maxQueryLength])
		}
		return strings.TrimSpace(line)
	}
	return ""
}

func (p *Processor) runSearch(ctx context.Context, content string) *search.Response {
	query := searchQuery(content)
	if query == "" {
		return search.Failure("", providers.FailureConfig, "search query is empty")
	}

	resp := p.searcher.Search(ctx, query, search.Options{Count: searchCount, Freshness: searchFreshness})
	if resp == nil {
		return search.Failure(query, providers.FailureUnknown, "search returned no response")
	}
	return resp
}

// withPublications appends the found publications to the news text for
// the freshness analysis stage.
func withPublications(newsText string, resp *search.Response) string {
	var b strings.Builder
	b.WriteString(newsText)
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Publications found for %q:\n", resp.Query)

	if len(resp.Results) == 0 {
		b.WriteString("No recent publications found.\n")
		return b.String()
	}

	for i, r := range resp.Results {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, r.Title)
		if r.Source != "" || r.Published != "" {
			fmt.Fprintf(&b, "   Source: %s", r.Source)
			if r.Published != "" {
				fmt.Fprintf(&b, " (%s)", r.Published)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "   URL: %s\n", r.URL)
		if r.Description != "" {
			fmt.Fprintf(&b, "   %s\n", r.Description)
		}
	}
	return b.String()
}
