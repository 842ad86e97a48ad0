package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-operators/models"
	"github.com/aluiziolira/go-scrape-operators/parser"
)

var preloadedStatePattern = regexp.MustCompile(`(?s)__PRELOADED_STATE__ = (\{.+\})`)

// Slug is the last path segment of an operator URL.
func Slug(rawURL string) string {
	return rawURL[strings.LastIndex(rawURL, "/")+1:]
}

// ExtractPreloadedState finds the embedded state object in a detail page and
// returns the content node for slug.
func ExtractPreloadedState(html, slug string) (parser.Payload, error) {
	match := preloadedStatePattern.FindStringSubmatch(html)
	if match == nil {
		return nil, &PreloadedStateError{Slug: slug}
	}

	// Only the first value is decoded; the greedy match may run into
	// later script text.
	var state parser.Payload
	if err := json.NewDecoder(strings.NewReader(match[1])).Decode(&state); err != nil {
		return nil, &PreloadedStateError{Slug: slug, Err: err}
	}

	content, err := parser.LookupObject(state, "ContentfulGraphQl", "OperatorDetailsContainer-"+slug, "content")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slug, err)
	}
	return content, nil
}

// FetchDetail downloads an operator page and extracts its content payload.
func (s *Scraper) FetchDetail(ctx context.Context, summary models.Summary) (string, parser.Payload, error) {
	slug := Slug(summary.URL)

	doc, err := s.fetcher.Fetch(ctx, phaseDetail, summary.URL)
	if err != nil {
		return slug, nil, err
	}
	markup, err := doc.Html()
	if err != nil {
		return slug, nil, fmt.Errorf("render %s: %w", slug, err)
	}

	payload, err := ExtractPreloadedState(markup, slug)
	if err != nil {
		return slug, nil, err
	}
	return slug, payload, nil
}
