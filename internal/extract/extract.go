// Package extract pulls the deadline and HTTP endpoints out of an
// announcement text.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nhle/track-notifier/internal/model"
)

// NotSpecified is the deadline reported when the text has none.
const NotSpecified = "Not specified"

// EndpointPolicy decides for which tracks endpoints are scanned.
type EndpointPolicy string

const (
	// EndpointsBackendOnly scans endpoints only for the backend track.
	EndpointsBackendOnly EndpointPolicy = "backend_only"

	// EndpointsAlways scans endpoints for every track.
	EndpointsAlways EndpointPolicy = "always"
)

// ParseEndpointPolicy validates a policy name.
func ParseEndpointPolicy(name string) (EndpointPolicy, error) {
	switch p := EndpointPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case EndpointsBackendOnly, EndpointsAlways:
		return p, nil
	case "":
		return EndpointsBackendOnly, nil
	default:
		return "", fmt.Errorf("unknown endpoint policy %q", name)
	}
}

// deadlinePattern matches a deadline label, optional chained label words
// ("due date", "submission deadline") and an optional separator, capturing
// the remainder of the line.
var deadlinePattern = regexp.MustCompile(
	`(?i)\b(?:deadline|due|submission)\b(?:[ \t]+(?:deadline|date|due)\b)*[ \t]*[:\-–—]?[ \t]*([^\r\n]*)`,
)

// endpointPattern matches an upper-case HTTP verb followed by a path token.
var endpointPattern = regexp.MustCompile(`\b(GET|POST|PUT|PATCH|DELETE)\s+(\S+)`)

// trailingPunct is stripped from endpoint paths so sentence punctuation
// and inline-code markers do not end up in the path.
const trailingPunct = ".,;:!?)]}`'\""

// Result holds the structured fields extracted from an announcement.
type Result struct {
	Deadline string

	// Endpoints is nil when scanning did not happen and empty when it
	// happened but found nothing.
	Endpoints []string

	// EndpointsScanned distinguishes "not applicable" from "none listed".
	EndpointsScanned bool
}

// Extractor applies an endpoint policy on top of the text scanners.
type Extractor struct {
	policy EndpointPolicy
}

// New returns an Extractor using policy.
func New(policy EndpointPolicy) *Extractor {
	if policy == "" {
		policy = EndpointsBackendOnly
	}
	return &Extractor{policy: policy}
}

// Policy returns the endpoint policy.
func (e *Extractor) Policy() EndpointPolicy { return e.policy }

// Extract returns the deadline and, when the policy allows it for t,
// the endpoints listed in text.
func (e *Extractor) Extract(text string, t model.Track) Result {
	res := Result{Deadline: Deadline(text)}
	if e.policy == EndpointsAlways || t == model.TrackBackend {
		res.Endpoints = Endpoints(text)
		res.EndpointsScanned = true
	}
	return res
}

// Deadline returns the text following the first deadline label, up to the
// end of its line. It returns NotSpecified when there is no label or the
// label is followed by nothing.
func Deadline(text string) string {
	m := deadlinePattern.FindStringSubmatch(text)
	if m == nil {
		return NotSpecified
	}
	value := strings.TrimSpace(m[1])
	if value == "" {
		return NotSpecified
	}
	return value
}

// Endpoints returns every "VERB /path" occurrence in text order,
// repeats included. The result is non-nil.
func Endpoints(text string) []string {
	matches := endpointPattern.FindAllStringSubmatch(text, -1)

	endpoints := make([]string, 0, len(matches))
	for _, m := range matches {
		path := strings.TrimRight(m[2], trailingPunct)
		if path == "" {
			continue
		}
		endpoints = append(endpoints, m[1]+" "+path)
	}
	return endpoints
}
