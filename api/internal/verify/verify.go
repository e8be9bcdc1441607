// Package verify holds the regimen gates. Both checks are pure reads
// over already-fetched data and return plain booleans; translating a
// failed gate into a user-visible rejection is the pipeline's job.
package verify

import (
	"strings"

	"med-match/api/internal/store"
	"med-match/api/internal/window"
)

// Schedule maps a case-folded medicine name to the segments it is
// prescribed for.
type Schedule map[string][]window.Segment

// BuildSchedule flattens each entry's comma-separated time string into
// discrete segment tokens. A medicine uploaded twice accumulates the
// union of its windows.
func BuildSchedule(entries []store.PrescriptionEntry) Schedule {
	s := make(Schedule, len(entries))
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.MedicineName))
		if name == "" {
			continue
		}
		for _, tok := range strings.Split(e.TimeOfDay, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				s[name] = append(s[name], window.Normalize(tok))
			}
		}
		// Keep the medicine visible even when no window was given.
		if _, ok := s[name]; !ok {
			s[name] = nil
		}
	}
	return s
}

// IsPrescribed reports whether the medicine appears in the schedule and
// the dose's segment is one of its prescribed windows. Medicine names
// compare case-insensitively; segments compare exactly.
func (s Schedule) IsPrescribed(medicineName string, seg window.Segment) bool {
	times, ok := s[strings.ToLower(strings.TrimSpace(medicineName))]
	if !ok {
		return false
	}
	for _, t := range times {
		if t == seg {
			return true
		}
	}
	return false
}

// Windows returns the prescribed segments for a medicine, or nil when
// the medicine is not in the schedule. Used for the wrong-time advisory
// in rejection messages.
func (s Schedule) Windows(medicineName string) []window.Segment {
	return s[strings.ToLower(strings.TrimSpace(medicineName))]
}

// AlreadyTaken reports whether the candidate's (day, time_of_day,
// medicine_name) tuple is present in the given history slice. The check
// has no side effects; calling it twice with the same unwritten
// candidate yields the same answer.
func AlreadyTaken(history []store.DoseEvent, candidate store.DoseEvent) bool {
	name := strings.ToLower(candidate.MedicineName)
	for _, ev := range history {
		if ev.Day == candidate.Day &&
			ev.TimeOfDay == candidate.TimeOfDay &&
			strings.ToLower(ev.MedicineName) == name {
			return true
		}
	}
	return false
}
