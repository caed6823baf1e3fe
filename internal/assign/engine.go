package assign

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/metrics"
	"github.com/gokatarajesh/challenger/internal/problem"
)

// CatalogSource returns the full rated catalog.
type CatalogSource interface {
	FetchAll(ctx context.Context) ([]problem.CatalogProblem, error)
}

// GenerativeSource produces one structured problem per requested tier, in order.
type GenerativeSource interface {
	Generate(ctx context.Context, topic string, tiers []problem.Tier) ([]problem.Problem, error)
}

// Rand is the random source used for uniform picks.
type Rand interface {
	IntN(n int) int
}

// Request describes one round to assign problems for.
type Request struct {
	Topic   string
	Mode    problem.Mode
	Players []problem.Player
}

// Engine maps a roster to one problem per player.
type Engine struct {
	catalog   CatalogSource
	generator GenerativeSource
	tables    problem.Tables
	rng       Rand
	logger    zerolog.Logger
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Tables problem.Tables
	Rand   Rand
}

func NewEngine(catalog CatalogSource, generator GenerativeSource, opts Options, logger zerolog.Logger) *Engine {
	tables := opts.Tables
	if tables.Bands == nil {
		tables.Bands = problem.DefaultBands()
	}
	if tables.TopicTags == nil {
		tables.TopicTags = problem.DefaultTopicTags()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &Engine{
		catalog:   catalog,
		generator: generator,
		tables:    tables,
		rng:       rng,
		logger:    logger.With().Str("component", "assign_engine").Logger(),
	}
}

// Tables exposes the filtering tables in use.
func (e *Engine) Tables() problem.Tables {
	return e.tables
}

// Assign returns exactly len(req.Players) problems, position-correlated to the roster, or an error.
func (e *Engine) Assign(ctx context.Context, req Request) ([]problem.Problem, error) {
	mode := req.Mode
	if mode == "" {
		mode = problem.ModeCatalog
	}

	var (
		problems []problem.Problem
		err      error
	)
	switch mode {
	case problem.ModeGenerative:
		problems, err = e.assignGenerative(ctx, req)
	default:
		problems, err = e.assignCatalog(ctx, req)
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.Generation.WithLabelValues(string(mode), result).Inc()

	if err != nil {
		e.logger.Warn().Err(err).Str("mode", string(mode)).Str("topic", req.Topic).Int("players", len(req.Players)).Msg("assignment failed")
		return nil, err
	}
	return problems, nil
}

func (e *Engine) assignGenerative(ctx context.Context, req Request) ([]problem.Problem, error) {
	if e.generator == nil {
		return nil, fmt.Errorf("%w: generative source not configured", problem.ErrSourceUnavailable)
	}
	tiers := make([]problem.Tier, len(req.Players))
	for i, p := range req.Players {
		tiers[i] = p.Tier
	}

	problems, err := e.generator.Generate(ctx, req.Topic, tiers)
	if err != nil {
		return nil, err
	}
	if len(problems) != len(req.Players) {
		return nil, fmt.Errorf("%w: requested %d got %d", problem.ErrCountMismatch, len(req.Players), len(problems))
	}
	return problems, nil
}

func (e *Engine) assignCatalog(ctx context.Context, req Request) ([]problem.Problem, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog source not configured", problem.ErrSourceUnavailable)
	}
	all, err := e.catalog.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	tags := e.tables.TagSet(req.Topic)
	consumed := make(map[string]struct{}, len(req.Players))
	out := make([]problem.Problem, 0, len(req.Players))

	for i, player := range req.Players {
		picked, ok := e.pick(all, player.Tier, tags, consumed)
		if !ok {
			return nil, fmt.Errorf("%w: no candidate left for player %d (%s)", problem.ErrCatalogExhausted, i, player.Tier)
		}
		consumed[picked.Title] = struct{}{}
		out = append(out, problem.Problem{
			Title:      picked.Title,
			Difficulty: player.Tier,
			Topic:      req.Topic,
			URL:        picked.URL,
		})
	}
	return out, nil
}

// pick walks the relaxation ladder: band+topic, then band only, then anything unconsumed.
func (e *Engine) pick(all []problem.CatalogProblem, tier problem.Tier, tags map[string]struct{}, consumed map[string]struct{}) (problem.CatalogProblem, bool) {
	band, hasBand := e.tables.Bands[tier]

	ladder := []func(problem.CatalogProblem) bool{
		func(p problem.CatalogProblem) bool { return hasBand && band.Contains(p.Rating) && p.HasAnyTag(tags) },
		func(p problem.CatalogProblem) bool { return hasBand && band.Contains(p.Rating) },
		func(problem.CatalogProblem) bool { return true },
	}

	for _, match := range ladder {
		candidates := filter(all, consumed, match)
		if len(candidates) > 0 {
			return candidates[e.rng.IntN(len(candidates))], true
		}
	}
	return problem.CatalogProblem{}, false
}

func filter(all []problem.CatalogProblem, consumed map[string]struct{}, match func(problem.CatalogProblem) bool) []problem.CatalogProblem {
	var out []problem.CatalogProblem
	for _, p := range all {
		if _, used := consumed[p.Title]; used {
			continue
		}
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}
