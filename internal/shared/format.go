package shared

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MarshalJSON marshals data to JSON, optionally pretty-printed with two-space indentation.
func MarshalJSON(data any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatDuration renders a millisecond duration as "m:ss".
func FormatDuration(ms int) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// NormalizeTrackKey builds a case-insensitive "title|artist" key for track
// matching. Runs of whitespace collapse so formatting differences between
// services do not split cache entries.
func NormalizeTrackKey(title, artist string) string {
	normalize := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return normalize(title) + "|" + normalize(artist)
}

// Slugify lowercases a display name into a filesystem-safe base filename.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "playlist"
	}
	return slug
}
