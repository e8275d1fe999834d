package providers

import (
	"context"
	"net/url"

	"github.com/i474232898/country-explorer/internal/explorer"
)

// NewsClient reads headlines through the news proxy.
type NewsClient struct {
	ep endpoint
}

func NewNewsClient(cfg Config) *NewsClient {
	return &NewsClient{ep: newEndpoint(explorer.SourceNews, cfg.ProxyBaseURL, cfg.Client)}
}

func (c *NewsClient) News(ctx context.Context, iso2 string) ([]explorer.NewsItem, error) {
	r, err := c.ep.get(ctx, "news.php", url.Values{"country": {iso2}})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data *[]struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			URL         string `json:"url"`
		} `json:"data"`
	}
	if err := c.ep.decodeEnvelope(r, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, c.ep.missing("data")
	}

	items := make([]explorer.NewsItem, 0, len(*payload.Data))
	for _, d := range *payload.Data {
		if d.Name == "" {
			continue
		}
		items = append(items, explorer.NewsItem{Name: d.Name, Description: d.Description, URL: d.URL})
	}
	if len(items) == 0 {
		return nil, c.ep.empty()
	}
	return items, nil
}
