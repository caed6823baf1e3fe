package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrUnknownProvider       = errors.New("unknown billing provider")
	ErrProviderNotConfigured = errors.New("billing provider not configured")
	ErrMalformedEvent        = errors.New("malformed webhook event")
)

// Provider names as they appear in the webhook path.
const (
	ProviderStripe       = "stripe"
	ProviderPaddle       = "paddle"
	ProviderLemonSqueezy = "lemonsqueezy"
)

// Action is the plan change an event asks for.
type Action string

const (
	ActionNone     Action = ""
	ActionActivate Action = "activate"
	ActionCancel   Action = "cancel"
)

// Event is a provider notification normalized to a plan change.
type Event struct {
	Provider  string
	ID        string
	Type      string
	Action    Action
	UserID    uuid.UUID
	Reference string
}

// Parse normalizes a verified body for the named provider.
func Parse(provider string, body []byte) (Event, error) {
	switch provider {
	case ProviderStripe:
		return parseStripe(body)
	case ProviderPaddle:
		return parsePaddle(body)
	case ProviderLemonSqueezy:
		return parseLemonSqueezy(body)
	default:
		return Event{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

var stripeActions = map[string]Action{
	"checkout.session.completed":    ActionActivate,
	"invoice.paid":                  ActionActivate,
	"customer.subscription.deleted": ActionCancel,
}

func parseStripe(body []byte) (Event, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID                string            `json:"id"`
				ClientReferenceID string            `json:"client_reference_id"`
				Subscription      string            `json:"subscription"`
				Metadata          map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.ID == "" {
		return Event{}, fmt.Errorf("%w: stripe", ErrMalformedEvent)
	}
	obj := raw.Data.Object
	ref := obj.Subscription
	if ref == "" {
		ref = obj.ID
	}
	return build(ProviderStripe, raw.ID, raw.Type, stripeActions[raw.Type], ref,
		obj.ClientReferenceID, obj.Metadata["user_id"])
}

var paddleActions = map[string]Action{
	"subscription.activated": ActionActivate,
	"subscription.resumed":   ActionActivate,
	"transaction.completed":  ActionActivate,
	"subscription.canceled":  ActionCancel,
	"subscription.paused":    ActionCancel,
}

func parsePaddle(body []byte) (Event, error) {
	var raw struct {
		EventID   string `json:"event_id"`
		EventType string `json:"event_type"`
		Data      struct {
			ID         string                 `json:"id"`
			CustomData map[string]interface{} `json:"custom_data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.EventID == "" {
		return Event{}, fmt.Errorf("%w: paddle", ErrMalformedEvent)
	}
	return build(ProviderPaddle, raw.EventID, raw.EventType, paddleActions[raw.EventType], raw.Data.ID,
		stringField(raw.Data.CustomData, "user_id"))
}

var lemonActions = map[string]Action{
	"order_created":         ActionActivate,
	"subscription_created":  ActionActivate,
	"subscription_resumed":  ActionActivate,
	"subscription_unpaused": ActionActivate,
	"subscription_expired":  ActionCancel,
	"subscription_paused":   ActionCancel,
}

func parseLemonSqueezy(body []byte) (Event, error) {
	var raw struct {
		Meta struct {
			EventName  string                 `json:"event_name"`
			CustomData map[string]interface{} `json:"custom_data"`
		} `json:"meta"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Meta.EventName == "" {
		return Event{}, fmt.Errorf("%w: lemonsqueezy", ErrMalformedEvent)
	}
	// Deliveries carry no event id; the body digest identifies a delivery.
	sum := sha256.Sum256(body)
	return build(ProviderLemonSqueezy, hex.EncodeToString(sum[:]), raw.Meta.EventName, lemonActions[raw.Meta.EventName],
		raw.Data.ID, stringField(raw.Meta.CustomData, "user_id"))
}

// build resolves the first parseable user id candidate. Plan-changing events must name a user.
func build(provider, id, eventType string, action Action, reference string, userCandidates ...string) (Event, error) {
	ev := Event{Provider: provider, ID: id, Type: eventType, Action: action, Reference: reference}
	for _, c := range userCandidates {
		if u, err := uuid.Parse(c); err == nil {
			ev.UserID = u
			break
		}
	}
	if ev.Action != ActionNone && ev.UserID == uuid.Nil {
		return ev, fmt.Errorf("%w: %s %s has no user id", ErrMalformedEvent, provider, eventType)
	}
	return ev, nil
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}
