package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/country-explorer/internal/common"
	"github.com/i474232898/country-explorer/internal/explorer"
)

// WeatherClient reads the current weather and the daily forecast through the
// openweather proxies.
type WeatherClient struct {
	current  endpoint
	forecast endpoint
}

func NewWeatherClient(cfg Config) *WeatherClient {
	return &WeatherClient{
		current:  newEndpoint(explorer.SourceWeather, cfg.ProxyBaseURL, cfg.Client),
		forecast: newEndpoint(explorer.SourceForecast, cfg.ProxyBaseURL, cfg.Client),
	}
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

func (c *WeatherClient) CurrentWeather(ctx context.Context, capital string) (explorer.Weather, error) {
	r, err := c.current.get(ctx, "openWeatherCurrent.php", url.Values{"capital": {capital}})
	if err != nil {
		return explorer.Weather{}, err
	}

	var payload struct {
		WeatherData *struct {
			Cod     json.RawMessage `json:"cod"`
			Message string          `json:"message"`
			Name    string          `json:"name"`
			Dt      int64           `json:"dt"`
			Coord   *struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			} `json:"coord"`
			Main *struct {
				Temp     float64 `json:"temp"`
				Humidity float64 `json:"humidity"`
			} `json:"main"`
			Wind struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
			Weather []owmCondition `json:"weather"`
		} `json:"weatherData"`
	}
	if err := c.current.decodeEnvelope(r, &payload); err != nil {
		return explorer.Weather{}, err
	}
	data := payload.WeatherData
	if data == nil {
		return explorer.Weather{}, c.current.missing("weatherData")
	}
	if err := c.current.checkCod(data.Cod, data.Message); err != nil {
		return explorer.Weather{}, err
	}
	if data.Main == nil {
		return explorer.Weather{}, c.current.missing("weatherData.main")
	}

	ts := time.Unix(data.Dt, 0).UTC()
	if data.Dt == 0 {
		ts = time.Now().UTC()
	}
	city := data.Name
	if city == "" {
		city = capital
	}

	cond, desc := mapOpenWeatherCondition(data.Weather)
	w := explorer.Weather{
		City:         city,
		TemperatureC: data.Main.Temp,
		HumidityPct:  data.Main.Humidity,
		WindSpeed:    data.Wind.Speed,
		Description:  desc,
		Condition:    cond,
		IconRef:      conditionIcon(cond),
		Timestamp:    ts,
	}
	if data.Coord != nil {
		w.Coord = &explorer.Coord{Lat: data.Coord.Lat, Lon: data.Coord.Lon}
	}
	return w, nil
}

func (c *WeatherClient) Forecast(ctx context.Context, lat, lon float64) (explorer.Forecast, error) {
	r, err := c.forecast.get(ctx, "openWeatherForcast.php", url.Values{
		"lat": {formatCoord(lat)},
		"lng": {formatCoord(lon)},
	})
	if err != nil {
		return explorer.Forecast{}, err
	}

	var payload struct {
		Forecast *struct {
			Cod     json.RawMessage `json:"cod"`
			Message string          `json:"message"`
			Daily   *[]struct {
				Dt   int64 `json:"dt"`
				Temp struct {
					Min float64 `json:"min"`
					Max float64 `json:"max"`
				} `json:"temp"`
				Weather []owmCondition `json:"weather"`
			} `json:"daily"`
		} `json:"weatherForcast"`
	}
	if err := c.forecast.decodeEnvelope(r, &payload); err != nil {
		return explorer.Forecast{}, err
	}
	if payload.Forecast == nil {
		return explorer.Forecast{}, c.forecast.missing("weatherForcast")
	}
	if err := c.forecast.checkCod(payload.Forecast.Cod, payload.Forecast.Message); err != nil {
		return explorer.Forecast{}, err
	}
	if payload.Forecast.Daily == nil {
		return explorer.Forecast{}, c.forecast.missing("weatherForcast.daily")
	}
	if len(*payload.Forecast.Daily) == 0 {
		return explorer.Forecast{}, c.forecast.empty()
	}

	days := make([]explorer.ForecastDay, 0, len(*payload.Forecast.Daily))
	for _, d := range *payload.Forecast.Daily {
		cond, desc := mapOpenWeatherCondition(d.Weather)
		days = append(days, explorer.ForecastDay{
			Date:        time.Unix(d.Dt, 0).UTC(),
			MinC:        d.Temp.Min,
			MaxC:        d.Temp.Max,
			Description: desc,
			Condition:   cond,
		})
	}
	return explorer.Forecast{Days: days}, nil
}

// checkCod inspects the upstream status code the proxy passes through. It is
// a number on success and a string on failure.
func (e endpoint) checkCod(raw json.RawMessage, message string) error {
	code := string(bytes.Trim(raw, `"`))
	switch code {
	case "", "200", "null":
		return nil
	case "404":
		return e.empty()
	}
	return explorer.TransportError(e.source, fmt.Errorf("upstream code %s: %s", code, message))
}

func mapOpenWeatherCondition(items []owmCondition) (explorer.Condition, string) {
	if len(items) == 0 {
		return explorer.ConditionUnknown, ""
	}
	main := strings.ToLower(items[0].Main)
	desc := items[0].Description

	switch {
	case common.HasAny(main, "thunder"):
		return explorer.ConditionStorm, desc
	case common.HasAny(main, "rain", "drizzle"):
		return explorer.ConditionRain, desc
	case common.HasAny(main, "snow", "sleet"):
		return explorer.ConditionSnow, desc
	case common.HasAny(main, "mist", "fog", "haze", "smoke", "dust", "sand"):
		return explorer.ConditionMist, desc
	case common.HasAny(main, "cloud"):
		return explorer.ConditionCloudy, desc
	case common.HasAny(main, "clear"):
		return explorer.ConditionClear, desc
	default:
		return explorer.ConditionUnknown, desc
	}
}

var conditionIcons = map[explorer.Condition]string{
	explorer.ConditionClear:  "assets/clear.png",
	explorer.ConditionCloudy: "assets/cloud.png",
	explorer.ConditionRain:   "assets/rain.png",
	explorer.ConditionStorm:  "assets/rain.png",
	explorer.ConditionMist:   "assets/mist.png",
	explorer.ConditionSnow:   "assets/snow.png",
}

func conditionIcon(c explorer.Condition) string {
	return conditionIcons[c]
}
