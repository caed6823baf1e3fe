package problem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Band is an inclusive catalog rating range.
type Band struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether rating falls inside the band.
func (b Band) Contains(rating int) bool {
	return rating >= b.Min && rating <= b.Max
}

// DefaultBands maps each tier to its catalog rating band.
func DefaultBands() map[Tier]Band {
	return map[Tier]Band{
		TierRookie:  {Min: 800, Max: 1200},
		TierAdept:   {Min: 1201, Max: 1600},
		TierVeteran: {Min: 1601, Max: 2200},
		TierMaster:  {Min: 2201, Max: 3500},
	}
}

// DefaultTopicTags maps the selectable topics to catalog tags.
func DefaultTopicTags() map[string][]string {
	return map[string][]string{
		"Algorithms":      {"dp", "greedy", "brute force", "sortings", "binary search", "constructive algorithms", "two pointers"},
		"Data Structures": {"data structures", "trees", "dsu", "hashing"},
		"Math":            {"math", "number theory", "combinatorics", "geometry", "probabilities"},
		"Strings":         {"strings", "string suffix structures", "hashing"},
		"Graphs":          {"graphs", "dfs and similar", "shortest paths", "trees", "graph matchings"},
	}
}

// Tables bundles the tier bands and topic tags used for catalog filtering.
type Tables struct {
	Bands     map[Tier]Band
	TopicTags map[string][]string
}

// DefaultTables returns the built-in tables.
func DefaultTables() Tables {
	return Tables{Bands: DefaultBands(), TopicTags: DefaultTopicTags()}
}

// Topics returns the known topic names sorted alphabetically.
func (t Tables) Topics() []string {
	topics := make([]string, 0, len(t.TopicTags))
	for name := range t.TopicTags {
		topics = append(topics, name)
	}
	sort.Strings(topics)
	return topics
}

// TagSet returns the lower-cased tag set for a topic. Unknown topics use their own name as the only tag.
func (t Tables) TagSet(topic string) map[string]struct{} {
	set := make(map[string]struct{})
	for name, tags := range t.TopicTags {
		if strings.EqualFold(name, topic) {
			for _, tag := range tags {
				set[strings.ToLower(tag)] = struct{}{}
			}
			return set
		}
	}
	set[strings.ToLower(strings.TrimSpace(topic))] = struct{}{}
	return set
}

// ParseBands reads "Tier:min-max" pairs, e.g. map{"Rookie": "800-1200"}.
func ParseBands(raw map[string]string) (map[Tier]Band, error) {
	if len(raw) == 0 {
		return DefaultBands(), nil
	}
	bands := make(map[Tier]Band, len(raw))
	for name, rng := range raw {
		tier, ok := ParseTier(name)
		if !ok {
			return nil, fmt.Errorf("unknown tier %q", name)
		}
		lo, hi, found := strings.Cut(rng, "-")
		if !found {
			return nil, fmt.Errorf("tier %s: band %q must be min-max", name, rng)
		}
		minVal, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("tier %s: %w", name, err)
		}
		maxVal, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("tier %s: %w", name, err)
		}
		if minVal > maxVal {
			return nil, fmt.Errorf("tier %s: min %d above max %d", name, minVal, maxVal)
		}
		bands[tier] = Band{Min: minVal, Max: maxVal}
	}
	return bands, nil
}

// ParseTopicTags reads "Topic=tag|tag" pairs, e.g. map{"Algorithms": "dp|greedy"}.
func ParseTopicTags(raw map[string]string) (map[string][]string, error) {
	if len(raw) == 0 {
		return DefaultTopicTags(), nil
	}
	out := make(map[string][]string, len(raw))
	for topic, joined := range raw {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return nil, fmt.Errorf("empty topic name")
		}
		var tags []string
		for _, tag := range strings.Split(joined, "|") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		if len(tags) == 0 {
			return nil, fmt.Errorf("topic %s has no tags", topic)
		}
		out[topic] = tags
	}
	return out, nil
}
