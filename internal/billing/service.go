package billing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/profile"
)

type eventStore interface {
	Record(ctx context.Context, provider, eventID, eventType string, userID uuid.UUID) (bool, error)
	Forget(ctx context.Context, provider, eventID string) error
}

type planSetter interface {
	SetPlan(ctx context.Context, userID uuid.UUID, plan profile.Plan, provider, reference string) (profile.Profile, error)
}

// Outcome describes what a delivery did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Secrets holds the webhook signing secret per provider. Empty disables the provider.
type Secrets struct {
	Stripe       string
	Paddle       string
	LemonSqueezy string
	Tolerance    time.Duration
}

// Verifiers builds the verifier set for every configured provider.
func (s Secrets) Verifiers() map[string]Verifier {
	out := map[string]Verifier{}
	if s.Stripe != "" {
		out[ProviderStripe] = StripeVerifier{Secret: s.Stripe, Tolerance: s.Tolerance}
	}
	if s.Paddle != "" {
		out[ProviderPaddle] = PaddleVerifier{Secret: s.Paddle, Tolerance: s.Tolerance}
	}
	if s.LemonSqueezy != "" {
		out[ProviderLemonSqueezy] = LemonSqueezyVerifier{Secret: s.LemonSqueezy}
	}
	return out
}

// Service applies verified payment events to user plans.
type Service struct {
	verifiers map[string]Verifier
	events    eventStore
	plans     planSetter
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(verifiers map[string]Verifier, events eventStore, plans planSetter, logger zerolog.Logger) *Service {
	return &Service{
		verifiers: verifiers,
		events:    events,
		plans:     plans,
		now:       time.Now,
		logger:    logger.With().Str("component", "billing").Logger(),
	}
}

// Handle verifies, parses and applies one delivery. Each (provider, event id) applies at most once.
func (s *Service) Handle(ctx context.Context, provider string, header http.Header, body []byte) (Outcome, error) {
	verifier, ok := s.verifiers[provider]
	if !ok {
		if isKnown(provider) {
			return "", fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
		}
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err := verifier.Verify(header, body, s.now()); err != nil {
		return "", err
	}

	ev, err := Parse(provider, body)
	if err != nil {
		return "", err
	}
	log := s.logger.With().Str("provider", provider).Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()
	if ev.Action == ActionNone {
		log.Debug().Msg("billing event ignored")
		return OutcomeIgnored, nil
	}

	fresh, err := s.events.Record(ctx, provider, ev.ID, string(ev.Action), ev.UserID)
	if err != nil {
		return "", fmt.Errorf("record event: %w", err)
	}
	if !fresh {
		log.Info().Msg("duplicate billing event")
		return OutcomeDuplicate, nil
	}

	plan := profile.PlanPro
	if ev.Action == ActionCancel {
		plan = profile.PlanFree
	}
	if _, err := s.plans.SetPlan(ctx, ev.UserID, plan, provider, ev.Reference); err != nil {
		// Let the provider's retry reach us again.
		if ferr := s.events.Forget(context.WithoutCancel(ctx), provider, ev.ID); ferr != nil {
			log.Error().Err(ferr).Msg("forget billing event failed")
		}
		return "", fmt.Errorf("set plan: %w", err)
	}
	log.Info().Str("user_id", ev.UserID.String()).Str("plan", string(plan)).Msg("billing event applied")
	return OutcomeApplied, nil
}

func isKnown(provider string) bool {
	switch provider {
	case ProviderStripe, ProviderPaddle, ProviderLemonSqueezy:
		return true
	}
	return false
}
