package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/problem"
)

// Config holds connection details for the problem generator service.
type Config struct {
	GeneratorURL string
	GeneratorKey string
	Timeout      time.Duration
}

// Generator asks an external prompting service for one structured problem per requested tier.
type Generator struct {
	httpClient  *http.Client
	config      Config
	logger      zerolog.Logger
	generateURL string
}

func NewGenerator(cfg Config, logger zerolog.Logger) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	base := strings.TrimSuffix(cfg.GeneratorURL, "/")

	return &Generator{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config:      cfg,
		logger:      logger.With().Str("component", "ai_generator").Logger(),
		generateURL: base + "/generate",
	}
}

// Generate requests len(tiers) problems about topic in a single batch, in request order.
func (g *Generator) Generate(ctx context.Context, topic string, tiers []problem.Tier) ([]problem.Problem, error) {
	if g.config.GeneratorURL == "" {
		return nil, fmt.Errorf("%w: generator endpoint not configured", problem.ErrSourceUnavailable)
	}

	body, err := json.Marshal(generatorRequest{Topic: topic, Difficulties: tiers})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.generateURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.config.GeneratorKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.config.GeneratorKey)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", problem.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: generator returned status %d", problem.ErrSourceUnavailable, resp.StatusCode)
	}

	var genResp generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("%w: decode generator payload: %v", problem.ErrSourceUnavailable, err)
	}

	problems := make([]problem.Problem, 0, len(genResp.Problems))
	for i, p := range genResp.Problems {
		problems = append(problems, normalize(p, topic, tierAt(tiers, i)))
	}

	g.logger.Debug().
		Str("topic", topic).
		Int("requested", len(tiers)).
		Int("returned", len(problems)).
		Dur("took", time.Since(start)).
		Msg("generated problems")

	return problems, nil
}

func tierAt(tiers []problem.Tier, i int) problem.Tier {
	if i < len(tiers) {
		return tiers[i]
	}
	return ""
}

func normalize(p aiProblem, topic string, requested problem.Tier) problem.Problem {
	difficulty := requested
	if tier, ok := problem.ParseTier(p.Difficulty); ok {
		difficulty = tier
	}
	if p.Topic != "" {
		topic = p.Topic
	}
	return problem.Problem{
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		Difficulty:  difficulty,
		Topic:       topic,
		Solutions:   p.Solutions,
	}
}

type generatorRequest struct {
	Topic        string         `json:"topic"`
	Difficulties []problem.Tier `json:"difficulties"`
}

type aiProblem struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Difficulty  string            `json:"difficulty"`
	Topic       string            `json:"topic"`
	Solutions   map[string]string `json:"solutions"`
}

type generatorResponse struct {
	Problems []aiProblem `json:"problems"`
}
