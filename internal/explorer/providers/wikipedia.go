package providers

import (
	"context"
	"net/url"
	"strings"

	"github.com/i474232898/country-explorer/internal/explorer"
)

// DefaultWikipediaURL is the page summary REST root used when none is
// configured.
const DefaultWikipediaURL = "https://en.wikipedia.org/api/rest_v1"

// WikipediaClient calls the page summary REST API directly.
type WikipediaClient struct {
	ep endpoint
}

func NewWikipediaClient(cfg Config) *WikipediaClient {
	base := cfg.WikipediaURL
	if base == "" {
		base = DefaultWikipediaURL
	}
	return &WikipediaClient{ep: newEndpoint(explorer.SourceSummary, base, cfg.Client)}
}

// Summary fetches the summary of the page with the given title. A missing
// page is an empty result.
func (c *WikipediaClient) Summary(ctx context.Context, title string) (explorer.Summary, error) {
	title = strings.Join(strings.Fields(title), "_")
	if title == "" {
		return explorer.Summary{}, c.ep.empty()
	}

	r, err := c.ep.get(ctx, "page/summary/"+url.PathEscape(title), nil)
	if err != nil {
		return explorer.Summary{}, err
	}

	var payload struct {
		Title       string `json:"title"`
		Extract     string `json:"extract"`
		ExtractHTML string `json:"extract_html"`
		Thumbnail   *struct {
			Source string `json:"source"`
		} `json:"thumbnail"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := c.ep.decodePlain(r, &payload); err != nil {
		return explorer.Summary{}, err
	}
	if payload.Title == "" {
		return explorer.Summary{}, c.ep.missing("title")
	}

	s := explorer.Summary{
		Title:       payload.Title,
		Extract:     payload.Extract,
		ExtractHTML: payload.ExtractHTML,
		URL:         payload.ContentURLs.Desktop.Page,
	}
	if payload.Thumbnail != nil {
		s.Thumbnail = payload.Thumbnail.Source
	}
	return s, nil
}
