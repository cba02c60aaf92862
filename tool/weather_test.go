package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherConditionMapping(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{3, "Overcast"},
		{45, "Foggy"},
		{65, "Heavy rain"},
		{95, "Thunderstorm"},
		{99, "Thunderstorm with heavy hail"},
		{4, "Unknown"},
		{-1, "Unknown"},
		{999, "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WeatherCondition(tt.code))
	}
}

func TestWeatherToolCall(t *testing.T) {
	var order []string

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "geocode")
		assert.Equal(t, "Paris", r.URL.Query().Get("name"))
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		w.Write([]byte(`{"results":[{"latitude":48.85,"longitude":2.35,"name":"Paris"}]}`))
	}))
	defer geo.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "forecast")
		assert.Equal(t, "48.85", r.URL.Query().Get("latitude"))
		assert.Equal(t, "2.35", r.URL.Query().Get("longitude"))
		assert.Equal(t, forecastFields, r.URL.Query().Get("current"))
		w.Write([]byte(`{"current":{"temperature_2m":18.5,"apparent_temperature":17.2,"relative_humidity_2m":60,"wind_speed_10m":12.5,"wind_gusts_10m":20.1,"weather_code":2}}`))
	}))
	defer forecast.Close()

	wt := NewWeatherTool(func(o *WeatherToolOptions) {
		o.GeocodingURL = geo.URL
		o.ForecastURL = forecast.URL
	})

	result, err := wt.Call(context.Background(), map[string]any{"location": "Paris"})
	require.NoError(t, err)

	weather, ok := result.(*WeatherResult)
	require.True(t, ok)
	assert.Equal(t, "Paris", weather.Location)
	assert.Equal(t, 18.5, weather.Temperature)
	assert.Equal(t, 17.2, weather.FeelsLike)
	assert.Equal(t, 60.0, weather.Humidity)
	assert.Equal(t, 12.5, weather.WindSpeed)
	assert.Equal(t, 20.1, weather.WindGust)
	assert.Equal(t, "Partly cloudy", weather.Conditions)

	// Geocoding must resolve before any forecast fetch runs.
	assert.Equal(t, []string{"geocode", "forecast"}, order)
}

func TestWeatherToolLocationNotFound(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer geo.Close()

	forecastCalls := 0
	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forecastCalls++
	}))
	defer forecast.Close()

	wt := NewWeatherTool(func(o *WeatherToolOptions) {
		o.GeocodingURL = geo.URL
		o.ForecastURL = forecast.URL
	})

	_, err := wt.Call(context.Background(), map[string]any{"location": "Atlantis"})
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, ErrorCode(err))
	assert.Zero(t, forecastCalls)
}

func TestWeatherToolEmptyLocation(t *testing.T) {
	wt := NewWeatherTool()

	_, err := wt.Call(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestWeatherToolUpstreamFailure(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer geo.Close()

	wt := NewWeatherTool(func(o *WeatherToolOptions) {
		o.GeocodingURL = geo.URL
	})

	_, err := wt.Call(context.Background(), map[string]any{"location": "Paris"})
	require.Error(t, err)
	assert.Equal(t, CodeUpstream, ErrorCode(err))
}
