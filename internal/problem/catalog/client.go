package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gokatarajesh/challenger/internal/problem"
)

const defaultProblemBaseURL = "https://codeforces.com"

// Client fetches the rated problem set from a Codeforces-compatible API (no API key).
type Client struct {
	baseURL    string
	problemURL string
	httpClient *http.Client
}

// NewClient builds a catalog client. problemURL is the site used for canonical problem links.
func NewClient(baseURL, problemURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultProblemBaseURL
	}
	if problemURL == "" {
		problemURL = defaultProblemBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		problemURL: strings.TrimSuffix(problemURL, "/"),
		httpClient: httpClient,
	}
}

type cfProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
}

type cfResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  struct {
		Problems []cfProblem `json:"problems"`
	} `json:"result"`
}

// FetchAll returns the whole catalog. Filtering happens client-side.
func (c *Client) FetchAll(ctx context.Context) ([]problem.CatalogProblem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/problemset.problems", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", problem.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: catalog non-200: %d", problem.ErrSourceUnavailable, resp.StatusCode)
	}

	var payload cfResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", problem.ErrSourceUnavailable, err)
	}
	if payload.Status != "OK" {
		return nil, fmt.Errorf("%w: catalog status %s %s", problem.ErrSourceUnavailable, payload.Status, payload.Comment)
	}

	seen := make(map[string]struct{}, len(payload.Result.Problems))
	out := make([]problem.CatalogProblem, 0, len(payload.Result.Problems))
	for _, p := range payload.Result.Problems {
		if p.Name == "" {
			continue
		}
		// titles are the uniqueness key for a round, keep the first occurrence
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		out = append(out, problem.CatalogProblem{
			ID:     fmt.Sprintf("%d%s", p.ContestID, p.Index),
			Title:  p.Name,
			Rating: p.Rating,
			Tags:   p.Tags,
			URL:    fmt.Sprintf("%s/problemset/problem/%d/%s", c.problemURL, p.ContestID, p.Index),
		})
	}
	return out, nil
}
