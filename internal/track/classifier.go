package track

import (
	"fmt"
	"strings"

	"github.com/nhle/track-notifier/internal/model"
)

// Policy decides what Classify returns when no rule matches.
type Policy string

const (
	// PolicyDrop yields no track; the announcement is not dispatched.
	PolicyDrop Policy = "drop"

	// PolicyGeneral yields the general track.
	PolicyGeneral Policy = "general"
)

// ParsePolicy validates a policy name.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case PolicyDrop, PolicyGeneral:
		return p, nil
	default:
		return "", fmt.Errorf("unknown classifier policy %q", name)
	}
}

// Classifier assigns exactly one track to an announcement text.
type Classifier struct {
	catalog *Catalog
	policy  Policy
}

// NewClassifier builds a classifier over catalog. PolicyGeneral requires
// the catalog to contain the general track.
func NewClassifier(catalog *Catalog, policy Policy) (*Classifier, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if policy == PolicyGeneral && !catalog.Contains(model.TrackGeneral) {
		return nil, fmt.Errorf(
			"policy %q requires catalog %q to contain the %q track",
			policy, catalog.Name(), model.TrackGeneral,
		)
	}
	return &Classifier{catalog: catalog, policy: policy}, nil
}

// Catalog returns the catalog the classifier was built over.
func (c *Classifier) Catalog() *Catalog { return c.catalog }

// Policy returns the no-match policy.
func (c *Classifier) Policy() Policy { return c.policy }

// Classify returns the first track, in rule order, having a keyword that
// occurs anywhere in the lowercased text. When nothing matches the
// result depends on the policy: PolicyDrop returns ok=false.
func (c *Classifier) Classify(text string) (t model.Track, ok bool) {
	lowered := strings.ToLower(text)
	for _, rule := range c.catalog.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				return rule.Track, true
			}
		}
	}

	if c.policy == PolicyGeneral {
		return model.TrackGeneral, true
	}
	return "", false
}
