// Package extract turns free-text model output into typed medication
// records. Model output has no hard format contract, so every parser
// here is defensive: fields that fail to parse are defaulted where the
// record is still useful, and only structurally broken dose lines are
// reported as malformed.
package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Unknown is the placeholder kept for numeric fields the model did not
// produce in a parseable form. Partial information beats a failed record.
const Unknown = "unknown"

// MalformedError reports model output that could not be shaped into the
// required record. Raw carries the original text for logging.
type MalformedError struct {
	Reason string
	Raw    string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed model output: %s", e.Reason)
}

// Dose is one structured medication intake extracted from a label photo.
type Dose struct {
	Name   string // lower-cased medication name
	Pills  string // visible pill count, or "unknown"
	Dosage string // total dosage text (e.g. "200mg"), or "unknown"
}

// Prescription is one medication line extracted from a prescription photo.
type Prescription struct {
	Name        string // lower-cased medication name
	Dosage      string
	TimesPerDay int
	TimesOfDay  []string
}

// ParseDose parses the single "name, pills, dosage" line the second
// model call returns. Anything other than exactly three comma fields is
// malformed; numeric fields that do not parse are kept as "unknown".
func ParseDose(text string) (Dose, error) {
	line := strings.TrimSpace(text)
	if line == "" {
		return Dose{}, &MalformedError{Reason: "empty response", Raw: text}
	}
	parts := splitFields(line)
	if len(parts) != 3 {
		return Dose{}, &MalformedError{
			Reason: fmt.Sprintf("expected 3 comma-separated fields, got %d", len(parts)),
			Raw:    text,
		}
	}
	return Dose{
		Name:   strings.ToLower(parts[0]),
		Pills:  numericOrUnknown(parts[1]),
		Dosage: dosageOrUnknown(parts[2]),
	}, nil
}

// ParsePrescription parses the multi-line prescription response.
// Extraction is best-effort across candidate medications: a line that
// does not split into exactly 4 fields is skipped, a frequency that is
// not an integer defaults to 0. One bad line never invalidates the rest.
// Names are lower-cased like ParseDose does, so the same medicine
// spelled differently across uploads stays one medicine.
func ParsePrescription(text string) []Prescription {
	var meds []Prescription
	for _, line := range strings.Split(text, "\n") {
		parts := splitFields(line)
		if len(parts) != 4 {
			continue
		}
		freq, err := strconv.Atoi(parts[2])
		if err != nil {
			freq = 0
		}
		meds = append(meds, Prescription{
			Name:        strings.ToLower(parts[0]),
			Dosage:      parts[1],
			TimesPerDay: freq,
			TimesOfDay:  splitTimes(parts[3]),
		})
	}
	return meds
}

// Scan is the two labeled sections of the combined OCR response.
type Scan struct {
	Text  string // everything under "Extracted Text:"
	Pills string // the number under "Visible Pills Count:", or "unknown"
}

const (
	anchorText  = "Extracted Text:"
	anchorPills = "Visible Pills Count:"
)

// SplitScan locates the two labeled sections inside the first model
// response. A missing anchor yields the empty/"unknown" default rather
// than an error; the caller decides whether an empty scan is usable.
func SplitScan(text string) Scan {
	s := Scan{Pills: Unknown}

	ti := strings.Index(text, anchorText)
	pi := strings.Index(text, anchorPills)

	if ti >= 0 {
		body := text[ti+len(anchorText):]
		if pi > ti {
			body = text[ti+len(anchorText) : pi]
		}
		s.Text = strings.TrimSpace(body)
	}
	if pi >= 0 {
		rest := strings.TrimSpace(text[pi+len(anchorPills):])
		if n := leadingDigits(rest); n != "" {
			s.Pills = n
		}
	}
	return s
}

func splitFields(line string) []string {
	raw := strings.Split(strings.TrimSpace(line), ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// splitTimes flattens "morning and night" into discrete tokens.
func splitTimes(s string) []string {
	var out []string
	for _, t := range strings.Split(s, "and") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func numericOrUnknown(s string) string {
	if _, err := strconv.Atoi(s); err != nil {
		return Unknown
	}
	return s
}

// dosageOrUnknown keeps unit-bearing values like "400mg" but collapses
// prose the model sometimes substitutes ("not stated") to "unknown".
func dosageOrUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	if strings.EqualFold(s, Unknown) {
		return Unknown
	}
	// Accept anything that starts with a digit; the unit suffix stays as-is.
	if s[0] >= '0' && s[0] <= '9' {
		return s
	}
	return Unknown
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
