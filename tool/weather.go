package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/skylightai/skylight/internal/util"
	"github.com/skylightai/skylight/logging"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"

	forecastFields = "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,wind_gusts_10m,weather_code"
)

// WeatherResult is the validated output of the weather tool. Units pass
// through from the upstream API unconverted (metric by upstream default:
// °C and km/h).
type WeatherResult struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	WindGust    float64 `json:"windGust"`
	Conditions  string  `json:"conditions"`
}

// geocodingResponse mirrors the Open-Meteo geocoding search payload.
type geocodingResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
	} `json:"results"`
}

// forecastResponse mirrors the Open-Meteo current conditions payload.
type forecastResponse struct {
	Current struct {
		Temperature         float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		RelativeHumidity    float64 `json:"relative_humidity_2m"`
		WindSpeed           float64 `json:"wind_speed_10m"`
		WindGusts           float64 `json:"wind_gusts_10m"`
		WeatherCode         int     `json:"weather_code"`
	} `json:"current"`
}

// WeatherToolOptions configures the weather tool.
type WeatherToolOptions struct {
	HTTPClient   *http.Client
	GeocodingURL string
	ForecastURL  string
	Logger       logging.Logger
}

// WeatherTool resolves a free-text location to coordinates and fetches the
// current conditions for them. Two outbound calls per invocation; no retries
// at this layer.
type WeatherTool struct {
	httpClient   *http.Client
	geocodingURL string
	forecastURL  string
	logger       logging.Logger
}

// NewWeatherTool constructs a WeatherTool with optional overrides. The base
// URLs are injectable for tests.
func NewWeatherTool(optFns ...func(o *WeatherToolOptions)) *WeatherTool {
	opts := WeatherToolOptions{
		HTTPClient:   http.DefaultClient,
		GeocodingURL: defaultGeocodingURL,
		ForecastURL:  defaultForecastURL,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WeatherTool{
		httpClient:   opts.HTTPClient,
		geocodingURL: opts.GeocodingURL,
		forecastURL:  opts.ForecastURL,
		logger:       opts.Logger,
	}
}

// weatherArgs is the argument container the parameter schema derives from.
type weatherArgs struct {
	Location string `json:"location" description:"City name"`
}

// Name implements Tool.
func (t *WeatherTool) Name() string { return "weather" }

// Description implements Tool.
func (t *WeatherTool) Description() string { return "Get current weather for a location" }

// Parameters implements Tool.
func (t *WeatherTool) Parameters() map[string]any {
	return util.CreateSchema(weatherArgs{})
}

// Call implements Tool. Location is resolved to coordinates first; the
// forecast fetch only ever runs with resolved coordinates.
func (t *WeatherTool) Call(ctx context.Context, args map[string]any) (any, error) {
	location, _ := args["location"].(string)
	if location == "" {
		return nil, NewError(t.Name(), CodeValidation, "location must be a non-empty string")
	}

	lat, lon, resolvedName, err := t.geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("weather.geocoded", "location", location, "resolved", resolvedName)

	return t.fetchCurrent(ctx, lat, lon, resolvedName)
}

// geocode resolves a free-text location via the geocoding API, returning the
// first match.
func (t *WeatherTool) geocode(ctx context.Context, location string) (lat, lon float64, name string, err error) {
	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")

	var payload geocodingResponse
	if err := t.getJSON(ctx, t.geocodingURL+"?"+q.Encode(), &payload); err != nil {
		return 0, 0, "", err
	}

	if len(payload.Results) == 0 {
		return 0, 0, "", NewError(t.Name(), CodeNotFound, fmt.Sprintf("location %q not found", location))
	}

	first := payload.Results[0]
	return first.Latitude, first.Longitude, first.Name, nil
}

// fetchCurrent retrieves current conditions for resolved coordinates.
func (t *WeatherTool) fetchCurrent(ctx context.Context, lat, lon float64, name string) (*WeatherResult, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", forecastFields)

	var payload forecastResponse
	if err := t.getJSON(ctx, t.forecastURL+"?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	return &WeatherResult{
		Location:    name,
		Temperature: payload.Current.Temperature,
		FeelsLike:   payload.Current.ApparentTemperature,
		Humidity:    payload.Current.RelativeHumidity,
		WindSpeed:   payload.Current.WindSpeed,
		WindGust:    payload.Current.WindGusts,
		Conditions:  WeatherCondition(payload.Current.WeatherCode),
	}, nil
}

// getJSON performs a GET and decodes the JSON body, wrapping transport and
// parse failures as upstream errors.
func (t *WeatherTool) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return NewError(t.Name(), CodeUpstream, fmt.Sprintf("build request: %v", err))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return NewError(t.Name(), CodeUpstream, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewError(t.Name(), CodeUpstream, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return NewError(t.Name(), CodeUpstream, fmt.Sprintf("decode response: %v", err))
	}

	return nil
}

// weatherConditions maps WMO weather codes to human-readable condition
// strings.
var weatherConditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// WeatherCondition returns the human-readable condition for a WMO weather
// code. Unmapped codes return "Unknown" rather than an error so new upstream
// codes degrade gracefully.
func WeatherCondition(code int) string {
	if condition, ok := weatherConditions[code]; ok {
		return condition
	}
	return "Unknown"
}
