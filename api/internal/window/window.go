// Package window classifies a local timestamp into one of four fixed
// day segments used for dose scheduling.
package window

import (
	"strings"
	"time"
)

type Segment string

const (
	Morning   Segment = "morning"   // [06:00, 12:00)
	Afternoon Segment = "afternoon" // [12:00, 16:00)
	Evening   Segment = "evening"   // [16:00, 22:00)
	Night     Segment = "night"     // [22:00, 06:00), wraps midnight
)

// Classify maps the hour of t to its segment. The caller supplies an
// already-localized timestamp; no timezone conversion happens here.
func Classify(t time.Time) Segment {
	h := t.Hour()
	switch {
	case h >= 6 && h < 12:
		return Morning
	case h >= 12 && h < 16:
		return Afternoon
	case h >= 16 && h < 22:
		return Evening
	default:
		return Night
	}
}

// Normalize lower-cases and trims a free-text segment token so that
// model output like " Morning" compares equal to the fixed labels.
// Unknown tokens pass through unchanged apart from folding.
func Normalize(s string) Segment {
	return Segment(strings.ToLower(strings.TrimSpace(s)))
}
