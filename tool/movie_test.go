package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovieToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Inception", r.URL.Query().Get("t"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "short", r.URL.Query().Get("plot"))
		w.Write([]byte(`{
			"Title": "Inception", "Year": "2010", "Rated": "PG-13",
			"Genre": "Action, Sci-Fi", "Director": "Christopher Nolan",
			"Plot": "A thief who steals corporate secrets.",
			"Poster": "N/A", "imdbRating": "8.8", "Response": "True"
		}`))
	}))
	defer srv.Close()

	mt := NewMovieTool("test-key", func(o *MovieToolOptions) {
		o.BaseURL = srv.URL
	})

	result, err := mt.Call(context.Background(), map[string]any{"title": "Inception"})
	require.NoError(t, err)

	movie, ok := result.(*MovieResult)
	require.True(t, ok)
	assert.Equal(t, "Inception", movie.Title)
	assert.Equal(t, "2010", movie.Year)
	assert.Equal(t, "Action, Sci-Fi", movie.Genre)
	assert.Equal(t, "8.8", movie.IMDBRating)
	// OMDb's N/A placeholder must not leak into results.
	assert.Empty(t, movie.Poster)
}

func TestMovieToolMissingAPIKey(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	mt := NewMovieTool("", func(o *MovieToolOptions) {
		o.BaseURL = srv.URL
	})
	assert.False(t, mt.Configured())

	_, err := mt.Call(context.Background(), map[string]any{"title": "Inception"})
	require.Error(t, err)
	assert.Equal(t, CodeConfiguration, ErrorCode(err))
	// The credential check runs before any network activity.
	assert.Zero(t, requests)
}

func TestMovieToolNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	}))
	defer srv.Close()

	mt := NewMovieTool("test-key", func(o *MovieToolOptions) {
		o.BaseURL = srv.URL
	})

	_, err := mt.Call(context.Background(), map[string]any{"title": "No Such Film"})
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, ErrorCode(err))
	assert.Contains(t, err.Error(), "Movie not found!")
}

func TestMovieToolEmptyTitle(t *testing.T) {
	mt := NewMovieTool("test-key")

	_, err := mt.Call(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestMovieToolUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	mt := NewMovieTool("test-key", func(o *MovieToolOptions) {
		o.BaseURL = srv.URL
	})

	_, err := mt.Call(context.Background(), map[string]any{"title": "Inception"})
	require.Error(t, err)
	assert.Equal(t, CodeUpstream, ErrorCode(err))
}
