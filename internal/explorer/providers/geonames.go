package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/country-explorer/internal/common"
	"github.com/i474232898/country-explorer/internal/explorer"
	"github.com/i474232898/country-explorer/internal/markers"
)

// GeonamesClient covers the three geonames-backed proxies: the country info
// panel, the nearby wikipedia places and the country-wide POI search.
type GeonamesClient struct {
	info   endpoint
	nearby endpoint
	search endpoint
}

func NewGeonamesClient(cfg Config) *GeonamesClient {
	return &GeonamesClient{
		info:   newEndpoint(explorer.SourceGeonames, cfg.ProxyBaseURL, cfg.Client),
		nearby: newEndpoint(explorer.SourceNearby, cfg.ProxyBaseURL, cfg.Client),
		search: newEndpoint(explorer.SourceSearch, cfg.ProxyBaseURL, cfg.Client),
	}
}

// number accepts both JSON numbers and numeric strings; geonames sends area
// and population as strings.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", b)
	}
	*n = number(v)
	return nil
}

func (c *GeonamesClient) CountryInfo(ctx context.Context, iso2 string) (explorer.GeonamesFacts, error) {
	r, err := c.info.get(ctx, "getCountryInfo.php", url.Values{"geonamesInfo": {iso2}})
	if err != nil {
		return explorer.GeonamesFacts{}, err
	}

	var payload struct {
		Data *struct {
			Geonames *[]struct {
				Capital      string `json:"capital"`
				AreaInSqKm   number `json:"areaInSqKm"`
				Continent    string `json:"continent"`
				Population   number `json:"population"`
				Languages    string `json:"languages"`
				CurrencyCode string `json:"currencyCode"`
			} `json:"geonames"`
		} `json:"data"`
	}
	if err := c.info.decodeEnvelope(r, &payload); err != nil {
		return explorer.GeonamesFacts{}, err
	}
	if payload.Data == nil || payload.Data.Geonames == nil {
		return explorer.GeonamesFacts{}, c.info.missing("data.geonames")
	}
	list := *payload.Data.Geonames
	if len(list) == 0 {
		return explorer.GeonamesFacts{}, c.info.empty()
	}

	g := list[0]
	return explorer.GeonamesFacts{
		Capital:      g.Capital,
		AreaInSqKm:   float64(g.AreaInSqKm),
		Continent:    g.Continent,
		Population:   int64(g.Population),
		Languages:    g.Languages,
		CurrencyCode: g.CurrencyCode,
	}, nil
}

// wikiEntry is one geonames wikipedia article.
type wikiEntry struct {
	GeonameID    int64  `json:"geoNameId"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Feature      string `json:"feature"`
	Lat          number `json:"lat"`
	Lng          number `json:"lng"`
	WikipediaURL string `json:"wikipediaUrl"`
	Thumbnail    string `json:"thumbnailImg"`
}

func (w wikiEntry) record() markers.Record {
	link := strings.TrimSpace(w.WikipediaURL)
	if link != "" && !strings.Contains(link, "://") {
		link = "https://" + link
	}
	return markers.Record{
		ID:        markers.NativeID(w.GeonameID, w.WikipediaURL),
		Title:     w.Title,
		Lat:       float64(w.Lat),
		Lon:       float64(w.Lng),
		Feature:   markers.ParseFeature(w.Feature),
		Summary:   w.Summary,
		URL:       link,
		Thumbnail: w.Thumbnail,
	}
}

func records(entries []wikiEntry) []markers.Record {
	out := make([]markers.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.record())
	}
	return out
}

// NearbyPlaces lists the wikipedia articles around a point.
func (c *GeonamesClient) NearbyPlaces(ctx context.Context, lat, lon float64) ([]markers.Record, error) {
	r, err := c.nearby.get(ctx, "wikiPlaces.php", url.Values{
		"lat": {formatCoord(lat)},
		"lng": {formatCoord(lon)},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Places *[]wikiEntry `json:"wikiPlaces"`
	}
	if err := c.nearby.decodeEnvelope(r, &payload); err != nil {
		return nil, err
	}
	if payload.Places == nil {
		return nil, c.nearby.missing("wikiPlaces")
	}
	if len(*payload.Places) == 0 {
		return nil, c.nearby.empty()
	}
	return records(*payload.Places), nil
}

// SearchPOI runs the country-wide article search. iso2 must be a two-letter
// code; anything else is rejected before the request is made.
func (c *GeonamesClient) SearchPOI(ctx context.Context, iso2, query string) ([]markers.Record, error) {
	iso2 = strings.ToUpper(strings.TrimSpace(iso2))
	if !common.IsCountryCode(iso2, 2) {
		return nil, explorer.ShapeError(explorer.SourceSearch, fmt.Errorf("invalid country code %q", iso2))
	}

	values := url.Values{"country": {iso2}}
	if query != "" {
		values.Set("q", query)
	}
	r, err := c.search.get(ctx, "wikipediaSearchJSONAirport.php", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Geonames *[]wikiEntry `json:"geonames"`
	}
	if err := c.search.decodeEnvelope(r, &payload); err != nil {
		return nil, err
	}
	if payload.Geonames == nil {
		return nil, c.search.missing("geonames")
	}
	if len(*payload.Geonames) == 0 {
		return nil, c.search.empty()
	}
	return records(*payload.Geonames), nil
}
