package providers

import (
	"context"
	"net/url"
	"strings"

	"github.com/i474232898/country-explorer/internal/common"
	"github.com/i474232898/country-explorer/internal/explorer"
)

// OpenCageGeocoder reverse-geocodes through the openCage proxy.
type OpenCageGeocoder struct {
	ep endpoint
}

func NewOpenCageGeocoder(cfg Config) *OpenCageGeocoder {
	return &OpenCageGeocoder{ep: newEndpoint(explorer.SourceGeocoder, cfg.ProxyBaseURL, cfg.Client)}
}

// ReverseGeocode returns the countries found at the position, best match
// first. No match is not an error.
func (g *OpenCageGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) ([]explorer.Country, error) {
	r, err := g.ep.get(ctx, "openCage.php", url.Values{
		"lat": {formatCoord(lat)},
		"lng": {formatCoord(lon)},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data *[]struct {
			Components map[string]any `json:"components"`
		} `json:"data"`
	}
	if err := g.ep.decodeEnvelope(r, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, g.ep.missing("data")
	}

	var out []explorer.Country
	for _, res := range *payload.Data {
		iso3 := strings.ToUpper(component(res.Components, "ISO_3166-1_alpha-3"))
		if !common.IsCountryCode(iso3, 3) {
			continue
		}
		c := explorer.Country{
			ISO3: iso3,
			Name: component(res.Components, "country"),
		}
		if iso2 := strings.ToUpper(component(res.Components, "ISO_3166-1_alpha-2")); common.IsCountryCode(iso2, 2) {
			c.ISO2 = iso2
		}
		out = append(out, c)
	}
	return out, nil
}

func component(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
