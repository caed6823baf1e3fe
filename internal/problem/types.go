package problem

import "strings"

// Tier is a named skill level assigned to a player for a round.
type Tier string

// Skill tiers, easiest first.
const (
	TierRookie  Tier = "Rookie"
	TierAdept   Tier = "Adept"
	TierVeteran Tier = "Veteran"
	TierMaster  Tier = "Master"
)

// Tiers lists every tier in ascending order.
var Tiers = []Tier{TierRookie, TierAdept, TierVeteran, TierMaster}

// ParseTier resolves a tier name case-insensitively.
func ParseTier(s string) (Tier, bool) {
	for _, t := range Tiers {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// Mode selects where a round's problems come from.
type Mode string

const (
	ModeCatalog    Mode = "catalog"
	ModeGenerative Mode = "generative"
)

// ParseMode resolves a mode name; empty input means catalog.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeCatalog):
		return ModeCatalog, true
	case string(ModeGenerative), "ai":
		return ModeGenerative, true
	}
	return "", false
}

// Problem is a coding problem handed to a player. The title is unique within a session.
type Problem struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Difficulty  Tier              `json:"difficulty"`
	Topic       string            `json:"topic"`
	URL         string            `json:"url,omitempty"`
	Solutions   map[string]string `json:"solutions,omitempty"`
}

// CatalogProblem is a raw entry from the rated external catalog.
type CatalogProblem struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Rating int      `json:"rating"`
	Tags   []string `json:"tags"`
	URL    string   `json:"url"`
}

// HasAnyTag reports whether the problem carries at least one of the given tags.
func (p CatalogProblem) HasAnyTag(tags map[string]struct{}) bool {
	for _, t := range p.Tags {
		if _, ok := tags[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

// Player is one participant of a round.
type Player struct {
	Handle string `json:"handle"`
	Tier   Tier   `json:"tier"`
	Color  string `json:"color"`
}
