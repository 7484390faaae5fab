package summary

import (
	"strings"

	"github.com/nhle/track-notifier/internal/model"
)

// Placeholders rendered in the endpoints section.
const (
	NoEndpointsListed = "No endpoints listed"
	NotApplicable     = "Not applicable for this track"
)

// Document is the five-section summary delivered to subscribers.
type Document struct {
	Track    model.Track
	Title    string
	Summary  string
	Deadline string

	// Endpoints is only meaningful when EndpointsScanned is true.
	Endpoints        []string
	EndpointsScanned bool

	Deliverables []string
}

// EndpointsSection returns the endpoint lines, or a single placeholder
// line when there are none to show.
func (d Document) EndpointsSection() []string {
	if !d.EndpointsScanned {
		return []string{NotApplicable}
	}
	if len(d.Endpoints) == 0 {
		return []string{NoEndpointsListed}
	}
	return d.Endpoints
}

// Text renders the document in chat markup, sections in fixed order:
// title, summary, deadline, endpoints, deliverables.
func (d Document) Text() string {
	var sb strings.Builder

	sb.WriteString("*" + d.Title + "*\n\n")

	sb.WriteString("*Summary:*\n")
	sb.WriteString(d.Summary)
	sb.WriteString("\n\n")

	sb.WriteString("*Deadline:* ")
	sb.WriteString(d.Deadline)
	sb.WriteString("\n\n")

	sb.WriteString("*Key Endpoints:*\n")
	if d.EndpointsScanned && len(d.Endpoints) > 0 {
		for _, ep := range d.Endpoints {
			sb.WriteString("- `" + ep + "`\n")
		}
	} else {
		sb.WriteString("_" + d.EndpointsSection()[0] + "_\n")
	}
	sb.WriteString("\n")

	sb.WriteString("*Core Deliverables:*\n")
	for _, item := range d.Deliverables {
		sb.WriteString("- " + item + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// PlainText renders the document without chat markup, for email.
func (d Document) PlainText() string {
	var sb strings.Builder

	sb.WriteString(d.Title + "\n\n")
	sb.WriteString("Summary:\n" + d.Summary + "\n\n")
	sb.WriteString("Deadline: " + d.Deadline + "\n\n")

	sb.WriteString("Key Endpoints:\n")
	for _, line := range d.EndpointsSection() {
		sb.WriteString("- " + line + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("Core Deliverables:\n")
	for _, item := range d.Deliverables {
		sb.WriteString("- " + item + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
