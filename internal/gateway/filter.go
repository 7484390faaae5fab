package gateway

import "strings"

// DefaultSignals mark a channel message as a task announcement.
var DefaultSignals = []string{"@channel", "<!channel>", "task", "stage"}

// Filter decides which inbound messages are announcements.
type Filter struct {
	signals []string
}

// NewFilter returns a Filter matching any of signals, case-insensitively.
// An empty list selects DefaultSignals.
func NewFilter(signals []string) *Filter {
	if len(signals) == 0 {
		signals = DefaultSignals
	}
	lowered := make([]string, 0, len(signals))
	for _, s := range signals {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			lowered = append(lowered, s)
		}
	}
	return &Filter{signals: lowered}
}

// IsAnnouncement reports whether text contains any signal.
func (f *Filter) IsAnnouncement(text string) bool {
	lower := strings.ToLower(text)
	for _, s := range f.signals {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// IsUserMessage reports whether a message was posted directly by a user.
// Edits, joins, bot posts and other subtyped messages are not.
func IsUserMessage(subtype, botID string) bool {
	return subtype == "" && botID == ""
}
