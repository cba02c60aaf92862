package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/skylightai/skylight/internal/util"
	"github.com/skylightai/skylight/logging"
)

const defaultOMDBURL = "https://www.omdbapi.com/"

// MovieResult is the validated output of the movie tool. Title and Year are
// always present; the remaining fields are omitted when the upstream source
// does not carry them.
type MovieResult struct {
	Title      string `json:"title"`
	Year       string `json:"year"`
	Rated      string `json:"rated,omitempty"`
	Released   string `json:"released,omitempty"`
	Runtime    string `json:"runtime,omitempty"`
	Genre      string `json:"genre,omitempty"`
	Director   string `json:"director,omitempty"`
	Actors     string `json:"actors,omitempty"`
	Plot       string `json:"plot,omitempty"`
	Poster     string `json:"poster,omitempty"`
	IMDBRating string `json:"imdbRating,omitempty"`
}

// omdbResponse mirrors the flat OMDb metadata record. Response carries the
// "False" sentinel (with Error populated) for a failed lookup.
type omdbResponse struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDBRating string `json:"imdbRating"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// MovieToolOptions configures the movie tool.
type MovieToolOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	Logger     logging.Logger
}

// MovieTool fetches movie metadata by title from OMDb. One outbound call per
// invocation. The API key is required: a missing key fails with
// CodeConfiguration before any network call is attempted, which is distinct
// from a not-found lookup.
type MovieTool struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     logging.Logger
}

// NewMovieTool constructs a MovieTool with the given API key and optional
// overrides. The base URL is injectable for tests.
func NewMovieTool(apiKey string, optFns ...func(o *MovieToolOptions)) *MovieTool {
	opts := MovieToolOptions{
		HTTPClient: http.DefaultClient,
		BaseURL:    defaultOMDBURL,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MovieTool{
		apiKey:     apiKey,
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		logger:     opts.Logger,
	}
}

// Configured reports whether the tool holds an API key. Callers that treat a
// missing credential as a startup-time fatal check this before serving.
func (t *MovieTool) Configured() bool { return t.apiKey != "" }

// movieArgs is the argument container the parameter schema derives from.
type movieArgs struct {
	Title string `json:"title" description:"Movie title to search for"`
}

// Name implements Tool.
func (t *MovieTool) Name() string { return "movie" }

// Description implements Tool.
func (t *MovieTool) Description() string { return "Fetch movie details by title using OMDb" }

// Parameters implements Tool.
func (t *MovieTool) Parameters() map[string]any {
	return util.CreateSchema(movieArgs{})
}

// Call implements Tool.
func (t *MovieTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if t.apiKey == "" {
		return nil, NewError(t.Name(), CodeConfiguration, "movie API key is not set")
	}

	title, _ := args["title"].(string)
	if title == "" {
		return nil, NewError(t.Name(), CodeValidation, "title must be a non-empty string")
	}

	q := url.Values{}
	q.Set("t", title)
	q.Set("apikey", t.apiKey)
	q.Set("plot", "short")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, NewError(t.Name(), CodeUpstream, fmt.Sprintf("build request: %v", err))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, NewError(t.Name(), CodeUpstream, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewError(t.Name(), CodeUpstream, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var payload omdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewError(t.Name(), CodeUpstream, fmt.Sprintf("decode response: %v", err))
	}

	if payload.Response == "False" {
		msg := payload.Error
		if msg == "" {
			msg = fmt.Sprintf("movie %q not found", title)
		}
		return nil, NewError(t.Name(), CodeNotFound, msg)
	}

	t.logger.Debug("movie.fetched", "title", payload.Title, "year", payload.Year)

	return &MovieResult{
		Title:      payload.Title,
		Year:       payload.Year,
		Rated:      omitNA(payload.Rated),
		Released:   omitNA(payload.Released),
		Runtime:    omitNA(payload.Runtime),
		Genre:      omitNA(payload.Genre),
		Director:   omitNA(payload.Director),
		Actors:     omitNA(payload.Actors),
		Plot:       omitNA(payload.Plot),
		Poster:     omitNA(payload.Poster),
		IMDBRating: omitNA(payload.IMDBRating),
	}, nil
}

// omitNA drops OMDb's "N/A" placeholder so absent fields stay absent.
func omitNA(s string) string {
	if s == "N/A" {
		return ""
	}
	return s
}
