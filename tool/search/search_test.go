package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Execute(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))

		_, _ = io.WriteString(w, `{"organic": [
			{"title": "Go", "link": "https://go.dev", "snippet": "The Go language"},
			{"title": "Tour", "link": "https://go.dev/tour", "snippet": "A tour"},
			{"title": "Blog", "link": "https://go.dev/blog", "snippet": "News"}
		]}`)
	}))
	defer srv.Close()

	s := New(func(o *Options) {
		o.APIKey = "secret"
		o.Endpoint = srv.URL
		o.NumResults = 2
	})

	res := s.Execute(context.Background(), nil, map[string]any{"query": "golang"})
	require.False(t, res.IsError(), res.ErrorMessage)

	hits := res.Result.([]Hit)
	require.Len(t, hits, 2)
	assert.Equal(t, "https://go.dev", hits[0].Link)
	assert.Equal(t, "golang", got["q"])
	assert.Equal(t, float64(2), got["num"])
}

func TestSearch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "bad key")
	}))
	defer srv.Close()

	t.Setenv("SERPER_API_KEY", "")

	tests := []struct {
		name   string
		search *Search
		params map[string]any
		want   string
	}{
		{"missing query", New(func(o *Options) { o.APIKey = "k" }), map[string]any{}, "required"},
		{"missing key", New(), map[string]any{"query": "x"}, "not configured"},
		{"api error", New(func(o *Options) { o.APIKey = "k"; o.Endpoint = srv.URL }), map[string]any{"query": "x"}, "status 403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.search.Execute(context.Background(), nil, tt.params)
			require.True(t, res.IsError())
			assert.Contains(t, res.ErrorMessage, tt.want)
		})
	}
}

func TestFactory(t *testing.T) {
	created, err := Factory(map[string]any{"api_key": "k", "num_results": "3"})
	require.NoError(t, err)

	s := created.(*Search)
	assert.Equal(t, "k", s.opts.APIKey)
	assert.Equal(t, 3, s.opts.NumResults)
	assert.Equal(t, DefaultEndpoint, s.opts.Endpoint)
}
