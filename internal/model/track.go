package model

// Track identifies a skill track from the active catalog
// (e.g., "backend", "frontend", "general").
type Track string

// Tracks that carry behaviour beyond catalog membership.
const (
	TrackBackend Track = "backend"
	TrackGeneral Track = "general"
)

// String returns the raw track identifier.
func (t Track) String() string {
	return string(t)
}

// TrackSet is an unordered collection of tracks used as a dispatch target.
type TrackSet map[Track]struct{}

// NewTrackSet builds a TrackSet from the given tracks.
func NewTrackSet(tracks ...Track) TrackSet {
	set := make(TrackSet, len(tracks))
	for _, t := range tracks {
		set[t] = struct{}{}
	}
	return set
}

// Has reports whether t is a member of the set.
func (s TrackSet) Has(t Track) bool {
	_, ok := s[t]
	return ok
}

// Intersects reports whether any of tracks is a member of the set.
func (s TrackSet) Intersects(tracks []Track) bool {
	for _, t := range tracks {
		if s.Has(t) {
			return true
		}
	}
	return false
}
