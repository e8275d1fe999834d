package markers

import (
	"fmt"
	"strings"
)

// Category is the overlay group a marker is rendered in.
type Category string

const (
	CategoryCity     Category = "city"
	CategoryAirport  Category = "airport"
	CategoryLandmark Category = "landmark"
	CategoryOther    Category = "other"
)

// Scope selects which overlay groups ClearMarkers affects.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeCity     Scope = Scope(CategoryCity)
	ScopeAirport  Scope = Scope(CategoryAirport)
	ScopeLandmark Scope = Scope(CategoryLandmark)
	ScopeOther    Scope = Scope(CategoryOther)
)

// Includes reports whether markers of category c fall under the scope.
func (s Scope) Includes(c Category) bool {
	return s == ScopeAll || string(s) == string(c)
}

// Feature is the validated feature type of a raw point-of-interest record.
type Feature int

const (
	FeatureUndefined Feature = iota
	FeatureCity
	FeatureAirport
	FeatureLandmark
	FeatureCountry
	FeatureAdm1st
	FeatureIsle
	FeatureOther
)

var featureNames = map[string]Feature{
	"city":     FeatureCity,
	"airport":  FeatureAirport,
	"landmark": FeatureLandmark,
	"country":  FeatureCountry,
	"adm1st":   FeatureAdm1st,
	"isle":     FeatureIsle,
}

// ParseFeature maps a provider feature string onto Feature. An empty string
// is FeatureUndefined, anything unrecognised is FeatureOther.
func ParseFeature(s string) Feature {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FeatureUndefined
	}
	if f, ok := featureNames[s]; ok {
		return f
	}
	return FeatureOther
}

func (f Feature) String() string {
	for name, v := range featureNames {
		if v == f {
			return name
		}
	}
	if f == FeatureOther {
		return "other"
	}
	return "undefined"
}

// Excluded reports whether records of this feature type never become pins.
func (f Feature) Excluded() bool {
	switch f {
	case FeatureCountry, FeatureAdm1st, FeatureIsle, FeatureLandmark, FeatureUndefined:
		return true
	}
	return false
}

// Record is a raw point of interest as returned by a provider.
type Record struct {
	ID        string
	Title     string
	Lat       float64
	Lon       float64
	Feature   Feature
	Summary   string
	URL       string
	Thumbnail string
}

// Marker is a single pin on the map overlay.
type Marker struct {
	ID       string   `json:"id"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Category Category `json:"category"`
	Title    string   `json:"title"`
	IconRef  string   `json:"iconRef"`
	URL      string   `json:"url,omitempty"`
}

var icons = map[Category]string{
	CategoryCity:     "fa-city",
	CategoryAirport:  "fa-plane",
	CategoryLandmark: "fa-landmark",
	CategoryOther:    "fa-map-marker",
}

// Classify turns a record into a marker. ok is false when the record has no
// id or its feature type is in the exclusion set.
func Classify(r Record) (Marker, bool) {
	if r.ID == "" || r.Feature.Excluded() {
		return Marker{}, false
	}

	cat := CategoryOther
	switch r.Feature {
	case FeatureCity:
		cat = CategoryCity
	case FeatureAirport:
		cat = CategoryAirport
	}

	return Marker{
		ID:       r.ID,
		Lat:      r.Lat,
		Lon:      r.Lon,
		Category: cat,
		Title:    r.Title,
		IconRef:  icons[cat],
		URL:      r.URL,
	}, true
}

// Pin builds an explicit landmark marker, such as the summary image pin
// placed on the selected country.
func Pin(id, title string, lat, lon float64, iconRef string) Marker {
	if iconRef == "" {
		iconRef = icons[CategoryLandmark]
	}
	return Marker{
		ID:       id,
		Lat:      lat,
		Lon:      lon,
		Category: CategoryLandmark,
		Title:    title,
		IconRef:  iconRef,
	}
}

// NativeID derives a stable marker id from a provider-native geoname id, or
// from the wikipedia url when the record has none.
func NativeID(geonameID int64, url string) string {
	if geonameID > 0 {
		return fmt.Sprintf("geonames:%d", geonameID)
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	url = strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	return "wiki:" + url
}
