// Package track holds the closed track catalogs, the keyword classifier
// and the per-track deliverables checklists.
package track

import (
	"fmt"
	"strings"

	"github.com/nhle/track-notifier/internal/model"
)

// Rule selects Track when any of Keywords occurs in the lowercased text.
type Rule struct {
	Track    model.Track
	Keywords []string
}

// Catalog is a closed set of tracks together with the keyword rules that
// select them and the deliverables expected for each. The classifier,
// the deliverables lookup and the registration options are all derived
// from one Catalog value so they cannot drift apart.
type Catalog struct {
	name         string
	rules        []Rule
	options      []model.Track
	labels       map[model.Track]string
	deliverables map[model.Track][]string
}

// Catalog names accepted by ParseCatalog.
const (
	CatalogExtended = "extended"
	CatalogLegacy   = "legacy"
)

// generalChecklist applies to the general track and to any track without
// its own entry.
var generalChecklist = []string{
	"Implement required API or logic",
	"Ensure validation & persistence",
	"Provide clear README and instructions",
}

var (
	backendChecklist = []string{
		"Implement the required endpoints and business logic",
		"Validate input and persist data correctly",
		"Document setup, endpoints and sample requests in the README",
		"Deploy and share the live base URL",
	}
	frontendChecklist = []string{
		"Build the required pages and components",
		"Match the provided design and ensure responsiveness",
		"Integrate with the given API where required",
		"Host the app and share the live URL and repository",
	}
	designChecklist = []string{
		"Produce wireframes and high-fidelity screens in Figma",
		"Apply a consistent design system for type, colour and spacing",
		"Build a clickable prototype of the main flow",
		"Share the Figma link with view access",
	}
	devopsChecklist = []string{
		"Provision and configure the required infrastructure",
		"Automate deployment with a CI/CD pipeline",
		"Configure the web server, TLS and monitoring as specified",
		"Document the setup and share access details",
	}
)

var extended = newCatalog(CatalogExtended,
	[]Rule{
		{Track: "backend", Keywords: []string{"backend", "back-end", "api", "endpoint", "server", "database"}},
		{Track: "mobile", Keywords: []string{"mobile", "android", "ios app", "flutter", "react native", "kotlin", "swiftui"}},
		{Track: "frontend", Keywords: []string{"frontend", "front-end", "react", "vue", "angular", "design system", "css"}},
		{Track: "uiux", Keywords: []string{"ui/ux", "ui-ux", "ux", "figma", "wireframe", "prototype", "designer"}},
		{Track: "devops", Keywords: []string{"devops", "dev ops", "nginx", "docker", "kubernetes", "ci/cd", "terraform", "infrastructure", "blue/green"}},
		{Track: "data", Keywords: []string{"data analysis", "data science", "dataset", "analytics", "machine learning", "pandas"}},
	},
	[]model.Track{"frontend", "uiux", "backend", "mobile", "devops", "data", model.TrackGeneral},
	map[model.Track]string{
		"backend":          "Backend",
		"frontend":         "Frontend",
		"uiux":             "UI/UX",
		"mobile":           "Mobile",
		"devops":           "DevOps",
		"data":             "Data",
		model.TrackGeneral: "General",
	},
	map[model.Track][]string{
		"backend":  backendChecklist,
		"frontend": frontendChecklist,
		"uiux":     designChecklist,
		"mobile": {
			"Build the required screens and navigation",
			"Handle loading, error and empty states",
			"Test on a device or emulator and record a demo",
			"Share the repository and build link",
		},
		"devops": devopsChecklist,
		"data": {
			"Clean and explore the provided dataset",
			"Answer the stated questions with analysis and visuals",
			"Summarize findings and recommendations",
			"Share the notebook or dashboard link",
		},
	},
)

var legacy = newCatalog(CatalogLegacy,
	[]Rule{
		{Track: "backend", Keywords: []string{"backend", "backend wizards", "server", "api", "stage 0 backend", "profile endpoint"}},
		{Track: "frontend", Keywords: []string{"frontend", "ui", "react", "vue", "stage 1 frontend"}},
		{Track: "design", Keywords: []string{"design", "ui/ux", "ui-ux", "designers", "graphics", "ux"}},
		{Track: "devops", Keywords: []string{"devops", "nginx", "blue/green", "infrastructure"}},
		{Track: "marketing", Keywords: []string{"sales", "marketing"}},
		{Track: "video", Keywords: []string{"video", "editing", "video editing"}},
		{Track: "pm", Keywords: []string{"pm", "product", "project manager"}},
		{Track: "no-code", Keywords: []string{"no-code", "no code", "automation"}},
	},
	[]model.Track{"backend", "frontend", "design", "devops", "marketing", "video", "pm", "no-code"},
	map[model.Track]string{
		"backend":   "Backend",
		"frontend":  "Frontend",
		"design":    "Design",
		"devops":    "DevOps",
		"marketing": "Marketing",
		"video":     "Video",
		"pm":        "PM",
		"no-code":   "No-Code",
	},
	map[model.Track][]string{
		"backend":  backendChecklist,
		"frontend": frontendChecklist,
		"design":   designChecklist,
		"devops":   devopsChecklist,
		"marketing": {
			"Research the target audience and channels",
			"Prepare the requested campaign or sales assets",
			"Define metrics for measuring results",
			"Submit the deliverables through the provided form",
		},
		"video": {
			"Script and storyboard the video",
			"Edit to the required length and format",
			"Add captions, music and branding where required",
			"Upload and share the video link",
		},
		"pm": {
			"Write the product requirements or project plan",
			"Define milestones, scope and success metrics",
			"Identify risks and stakeholders",
			"Share the document link with comment access",
		},
		"no-code": {
			"Build the workflow or app with the specified no-code tool",
			"Connect the required integrations and automations",
			"Test the flow end to end",
			"Share the live link and a short walkthrough",
		},
	},
)

func newCatalog(
	name string,
	rules []Rule,
	options []model.Track,
	labels map[model.Track]string,
	deliverables map[model.Track][]string,
) *Catalog {
	return &Catalog{
		name:         name,
		rules:        rules,
		options:      options,
		labels:       labels,
		deliverables: deliverables,
	}
}

// Extended returns the catalog with a general fallback track.
func Extended() *Catalog { return extended }

// Legacy returns the original eight-track catalog without a general track.
func Legacy() *Catalog { return legacy }

// ParseCatalog returns the catalog registered under name.
func ParseCatalog(name string) (*Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CatalogExtended, "":
		return extended, nil
	case CatalogLegacy:
		return legacy, nil
	default:
		return nil, fmt.Errorf("unknown track catalog %q", name)
	}
}

// Name returns the catalog identifier.
func (c *Catalog) Name() string { return c.name }

// Rules returns the keyword rules in priority order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Tracks returns the registrable tracks in display order.
func (c *Catalog) Tracks() []model.Track {
	out := make([]model.Track, len(c.options))
	copy(out, c.options)
	return out
}

// Contains reports whether t is a member of the catalog.
func (c *Catalog) Contains(t model.Track) bool {
	_, ok := c.labels[t]
	return ok
}

// Label returns the display name of t, or t itself when unknown.
func (c *Catalog) Label(t model.Track) string {
	if label, ok := c.labels[t]; ok {
		return label
	}
	return string(t)
}

// Deliverables returns the checklist for t. Tracks without an entry,
// including unknown ones, get the general checklist.
func (c *Catalog) Deliverables(t model.Track) []string {
	items, ok := c.deliverables[t]
	if !ok {
		items = generalChecklist
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}

// Normalize deduplicates tracks and orders them as the catalog lists
// them. It returns the tracks that are not part of the catalog as the
// second value.
func (c *Catalog) Normalize(tracks []model.Track) (known []model.Track, unknown []model.Track) {
	seen := make(map[model.Track]bool, len(tracks))
	for _, t := range tracks {
		t = model.Track(strings.ToLower(strings.TrimSpace(string(t))))
		if seen[t] {
			continue
		}
		seen[t] = true
		if !c.Contains(t) {
			unknown = append(unknown, t)
		}
	}
	for _, t := range c.options {
		if seen[t] {
			known = append(known, t)
		}
	}
	return known, unknown
}
