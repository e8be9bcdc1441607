package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"med-match/api/internal/store"
	"med-match/api/internal/window"
)

func entry(name, times string) store.PrescriptionEntry {
	return store.PrescriptionEntry{UserID: 123, MedicineName: name, TimeOfDay: times}
}

func TestBuildSchedule_FlattensCommaString(t *testing.T) {
	s := BuildSchedule([]store.PrescriptionEntry{
		entry("Aspirin", "morning, night"),
		entry("Metformin", "Afternoon"),
	})

	assert.Equal(t, []window.Segment{window.Morning, window.Night}, s["aspirin"])
	assert.Equal(t, []window.Segment{window.Afternoon}, s["metformin"])
}

func TestIsPrescribed(t *testing.T) {
	s := BuildSchedule([]store.PrescriptionEntry{entry("Aspirin", "morning, night")})

	assert.True(t, s.IsPrescribed("aspirin", window.Morning))
	assert.True(t, s.IsPrescribed("ASPIRIN", window.Night), "name comparison is case-insensitive")
	assert.False(t, s.IsPrescribed("aspirin", window.Afternoon), "wrong window")
	assert.False(t, s.IsPrescribed("ibuprofen", window.Morning), "not in schedule")
}

func TestIsPrescribed_NoWindowGiven(t *testing.T) {
	s := BuildSchedule([]store.PrescriptionEntry{entry("Aspirin", "")})

	// The medicine is known but matches no concrete segment.
	assert.NotNil(t, s)
	_, known := s["aspirin"]
	assert.True(t, known)
	assert.False(t, s.IsPrescribed("aspirin", window.Morning))
}

func TestWindows(t *testing.T) {
	s := BuildSchedule([]store.PrescriptionEntry{entry("Aspirin", "morning, night")})
	assert.Equal(t, []window.Segment{window.Morning, window.Night}, s.Windows("Aspirin"))
	assert.Nil(t, s.Windows("ibuprofen"))
}

func TestAlreadyTaken(t *testing.T) {
	history := []store.DoseEvent{{
		UserID:       123,
		MedicineName: "aspirin",
		Day:          "2025-06-20",
		TimeOfDay:    window.Morning,
	}}

	candidate := store.DoseEvent{
		UserID:       123,
		MedicineName: "Aspirin",
		Day:          "2025-06-20",
		TimeOfDay:    window.Morning,
	}
	assert.True(t, AlreadyTaken(history, candidate))
	// Pure read: asking twice gives the same answer.
	assert.True(t, AlreadyTaken(history, candidate))

	candidate.TimeOfDay = window.Evening
	assert.False(t, AlreadyTaken(history, candidate), "different window is not a duplicate")

	candidate.TimeOfDay = window.Morning
	candidate.Day = "2025-06-21"
	assert.False(t, AlreadyTaken(history, candidate), "different day is not a duplicate")
}
