package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/challenger/internal/problem"
)

func TestGenerateSendsBatchAndNormalizes(t *testing.T) {
	var got generatorRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"problems":[
			{"title":" Two Sum ","description":"find a pair","difficulty":"rookie","topic":"Algorithms","solutions":{"go":"func twoSum() {}"}},
			{"title":"Longest Path","description":"in a DAG"}
		]}`))
	}))
	defer srv.Close()

	gen := NewGenerator(Config{GeneratorURL: srv.URL + "/", GeneratorKey: "secret"}, zerolog.Nop())
	problems, err := gen.Generate(context.Background(), "Algorithms", []problem.Tier{problem.TierRookie, problem.TierVeteran})
	require.NoError(t, err)

	assert.Equal(t, "Algorithms", got.Topic)
	assert.Equal(t, []problem.Tier{problem.TierRookie, problem.TierVeteran}, got.Difficulties)

	require.Len(t, problems, 2)
	assert.Equal(t, "Two Sum", problems[0].Title)
	assert.Equal(t, problem.TierRookie, problems[0].Difficulty)
	assert.Equal(t, "func twoSum() {}", problems[0].Solutions["go"])
	assert.Empty(t, problems[0].URL)

	assert.Equal(t, problem.TierVeteran, problems[1].Difficulty, "missing difficulty falls back to requested tier")
	assert.Equal(t, "Algorithms", problems[1].Topic)
}

func TestGenerateFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`problems: none`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			gen := NewGenerator(Config{GeneratorURL: srv.URL}, zerolog.Nop())
			_, err := gen.Generate(context.Background(), "Math", []problem.Tier{problem.TierRookie})
			assert.ErrorIs(t, err, problem.ErrSourceUnavailable)
		})
	}
}

func TestGenerateWithoutEndpoint(t *testing.T) {
	gen := NewGenerator(Config{}, zerolog.Nop())
	_, err := gen.Generate(context.Background(), "Math", []problem.Tier{problem.TierRookie})
	assert.ErrorIs(t, err, problem.ErrSourceUnavailable)
}
