package ocr

import "fmt"

// LabelScanPrompt asks the model for the raw label text plus a count of
// the pills physically visible in the photo, in two anchored sections
// that extract.SplitScan can locate.
const LabelScanPrompt = `Extract all the text from this image as accurately as possible.

Then, separately:

1. Count only the number of pills that are physically visible and outside of the bottle or packaging. Do not use numbers written on the label or packaging to estimate this. Only count what is actually visible in the image.

2. Clearly separate the extracted text and the visual pill count. Format the output like this:

---
Extracted Text:
[text here]

Visible Pills Count:
[number]`

// DoseStructurePrompt asks the model to collapse the scanned label into
// the single comma-separated line extract.ParseDose expects.
func DoseStructurePrompt(ocrText, visiblePills string) string {
	return fmt.Sprintf(`You will be given:
- Text extracted from a medication label
- The number of pills physically counted outside the bottle

Your task is to extract:
1. The name of the medication (from text)
2. The number of visible pills (from pill count)
3. The total dosage (number of pills x dosage per pill)

Rules:
- Use only the provided pill count. Do not estimate from the label.
- If dosage per pill is not in the text, use 'unknown' for total dosage.
- Format: medication_name, number_of_pills, total_dosage_in_mg

Extracted Text:
%s

Visible Pill Count: %s`, ocrText, visiblePills)
}

// PrescriptionScanPrompt asks for a full read of a prescription photo.
const PrescriptionScanPrompt = `Step 1: Extract all the text from this image of a prescription as accurately as possible. This includes medication names, dosages, instructions, and any additional labels or printed notes.

Step 2: From the extracted text, identify the following details for each medication:
- Medication name
- Dosage (e.g., 500mg)
- Frequency per day (e.g., 2 times a day)
- Specific times of day to take it (e.g., morning, afternoon, night)`

// PrescriptionStructurePrompt asks the model to rewrite the scanned
// prescription as one 4-field line per medication, the shape
// extract.ParsePrescription is tolerant of.
func PrescriptionStructurePrompt(scanned string) string {
	return `Given the medication prescription information, return one line per medication in this format:
[Medication_name], [dosage], [frequency_per_day], [times_of_day]
Join multiple times of day with the word "and". If times_of_day is unavailable, write Anytime.

Medication Prescription:
` + scanned
}

// InteractionPrompt asks for a strict yes/no safety verdict for one
// pair of medicines.
func InteractionPrompt(existing, candidate string) string {
	return fmt.Sprintf("I am currently taking %s. If I now take %s, is it safe to take them together? Only respond with 'yes' or 'no'. No other text.", existing, candidate)
}
