package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/i474232898/country-explorer/internal/common"
	"github.com/i474232898/country-explorer/internal/explorer"
)

// BorderClient reads the country border collection served by the proxy.
// The same collection backs the country list.
type BorderClient struct {
	ep endpoint
}

func NewBorderClient(cfg Config) *BorderClient {
	return &BorderClient{ep: newEndpoint(explorer.SourceBorders, cfg.ProxyBaseURL, cfg.Client)}
}

func (c *BorderClient) collection(ctx context.Context) (*geojson.FeatureCollection, error) {
	r, err := c.ep.get(ctx, "geoJson.php", nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data *struct {
			Border json.RawMessage `json:"border"`
		} `json:"data"`
	}
	if err := c.ep.decodeEnvelope(r, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, c.ep.missing("data")
	}
	if len(payload.Data.Border) == 0 {
		return nil, c.ep.missing("data.border")
	}

	fc, err := geojson.UnmarshalFeatureCollection(payload.Data.Border)
	if err != nil {
		return nil, explorer.ShapeError(explorer.SourceBorders, fmt.Errorf("decode border collection: %w", err))
	}
	return fc, nil
}

// Countries lists every country with a usable ISO3 code, sorted by name.
// Disputed areas the dataset codes as "-99" are left out since they cannot
// be selected.
func (c *BorderClient) Countries(ctx context.Context) ([]explorer.Country, error) {
	fc, err := c.collection(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]explorer.Country, 0, len(fc.Features))
	for _, f := range fc.Features {
		iso3 := strings.ToUpper(f.Properties.MustString("iso_a3", ""))
		if !common.IsCountryCode(iso3, 3) {
			continue
		}
		country := explorer.Country{
			ISO3: iso3,
			Name: f.Properties.MustString("name", iso3),
		}
		if iso2 := strings.ToUpper(f.Properties.MustString("iso_a2", "")); common.IsCountryCode(iso2, 2) {
			country.ISO2 = iso2
		}
		if f.Geometry != nil {
			center := f.Geometry.Bound().Center()
			country.Centroid = &center
		}
		out = append(out, country)
	}
	if len(out) == 0 {
		return nil, c.ep.empty()
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Border returns the outline of the country with the given ISO3 code.
func (c *BorderClient) Border(ctx context.Context, iso3 string) (explorer.Border, error) {
	iso3 = strings.ToUpper(iso3)
	if !common.IsCountryCode(iso3, 3) {
		return explorer.Border{}, c.ep.empty()
	}

	fc, err := c.collection(ctx)
	if err != nil {
		return explorer.Border{}, err
	}
	for _, f := range fc.Features {
		if !strings.EqualFold(f.Properties.MustString("iso_a3", ""), iso3) {
			continue
		}
		if !isArea(f.Geometry) {
			return explorer.Border{}, explorer.ShapeError(explorer.SourceBorders, fmt.Errorf("%s: unsupported geometry %T", iso3, f.Geometry))
		}
		return explorer.Border{
			ISO3:     iso3,
			Name:     f.Properties.MustString("name", iso3),
			Geometry: f.Geometry,
		}, nil
	}
	return explorer.Border{}, c.ep.empty()
}

func isArea(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}
