package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDose_WellFormed(t *testing.T) {
	d, err := ParseDose("Aspirin, 2, 200mg")
	require.NoError(t, err)
	assert.Equal(t, "aspirin", d.Name)
	assert.Equal(t, "2", d.Pills)
	assert.Equal(t, "200mg", d.Dosage)
}

func TestParseDose_FieldCountMismatch(t *testing.T) {
	for _, text := range []string{
		"Aspirin, 2",
		"Aspirin, 2, 200mg, extra",
		"",
		"just prose without commas",
	} {
		_, err := ParseDose(text)
		var merr *MalformedError
		require.True(t, errors.As(err, &merr), "input %q", text)
		assert.Equal(t, text, merr.Raw)
	}
}

func TestParseDose_NonNumericFieldsBecomeUnknown(t *testing.T) {
	d, err := ParseDose("Ibuprofen, several, not stated")
	require.NoError(t, err)
	assert.Equal(t, "ibuprofen", d.Name)
	assert.Equal(t, Unknown, d.Pills)
	assert.Equal(t, Unknown, d.Dosage)
}

func TestParsePrescription_SkipsBadLines(t *testing.T) {
	text := "Metformin, 500mg, 2, morning and night\nbadline\nLisinopril, 10mg, 1, morning"
	meds := ParsePrescription(text)
	require.Len(t, meds, 2)

	assert.Equal(t, "metformin", meds[0].Name)
	assert.Equal(t, "500mg", meds[0].Dosage)
	assert.Equal(t, 2, meds[0].TimesPerDay)
	assert.Equal(t, []string{"morning", "night"}, meds[0].TimesOfDay)

	assert.Equal(t, "lisinopril", meds[1].Name)
	assert.Equal(t, []string{"morning"}, meds[1].TimesOfDay)
}

func TestParsePrescription_NormalizesNameCase(t *testing.T) {
	// The same medicine spelled differently across lines must come out
	// as one spelling, or distinct-name counts treat it as two medicines.
	meds := ParsePrescription("Metformin, 500mg, 2, morning\nMETFORMIN, 500mg, 2, night")
	require.Len(t, meds, 2)
	assert.Equal(t, "metformin", meds[0].Name)
	assert.Equal(t, "metformin", meds[1].Name)
}

func TestParsePrescription_BadFrequencyDefaultsToZero(t *testing.T) {
	meds := ParsePrescription("Metformin, 500mg, twice, morning")
	require.Len(t, meds, 1)
	assert.Equal(t, 0, meds[0].TimesPerDay)
}

func TestParsePrescription_EmptyInput(t *testing.T) {
	assert.Empty(t, ParsePrescription(""))
	assert.Empty(t, ParsePrescription("\n\n"))
}

func TestSplitScan(t *testing.T) {
	resp := "---\nExtracted Text:\nTylenol Extra Strength 500mg\nTake 2 daily\n\nVisible Pills Count:\n4"
	s := SplitScan(resp)
	assert.Equal(t, "Tylenol Extra Strength 500mg\nTake 2 daily", s.Text)
	assert.Equal(t, "4", s.Pills)
}

func TestSplitScan_MissingAnchors(t *testing.T) {
	s := SplitScan("the model rambled instead of following the format")
	assert.Equal(t, "", s.Text)
	assert.Equal(t, Unknown, s.Pills)

	s = SplitScan("Extracted Text:\nsome label text")
	assert.Equal(t, "some label text", s.Text)
	assert.Equal(t, Unknown, s.Pills)

	s = SplitScan("Visible Pills Count:\nnot a number")
	assert.Equal(t, Unknown, s.Pills)
}
