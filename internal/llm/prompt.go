package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

const maxPromptText = 6000

// BuildTranscriptionPrompt asks for a faithful transcription of the attached roster image.
func BuildTranscriptionPrompt() string {
	parts := []string{
		"You are transcribing a photographed or screenshotted work roster. Return ONLY JSON.",
		"Do not interpret shifts yet; copy what is visible.",
		`Shape: {"isRoster": bool, "contentType": one of ` + strings.Join(constants.ContentTypesAsStrings(), "|") + `, "layoutDescription": string, "headers": [string], "rows": [[string]], "rawText": string, "uncertainCells": [{"location": string, "readValue": string, "alternativeValue": string, "reason": string}], "metadata": {"title": string, "hasMultiplePeople": bool, "potentialNames": [string], "dateRange": string, "language": string}}.`,
		"For tables keep every column: use an empty string for an empty cell so columns stay aligned.",
		"rawText is the full visible text in reading order.",
		"List every reading you are not sure about in uncertainCells with the most likely alternative. Never guess silently.",
		"potentialNames lists every person name that owns shifts in the document.",
		"If the image is not a work schedule, return {\"isRoster\": false, \"rawText\": \"\"}.",
	}
	return strings.Join(parts, "\n")
}

// BuildAnalysisPrompt asks which clarifications are needed before extraction.
func BuildAnalysisPrompt(c *entity.ExtractedContent) string {
	var b strings.Builder
	b.WriteString("You are preparing to extract ONE person's shifts from a transcribed roster. Return ONLY JSON.\n")
	b.WriteString(`Shape: {"needsClarification": bool, "questions": [{"id": string, "type": "single_select"|"text", "question": string, "options": [{"label": string, "value": string, "description": string}], "required": bool}], "preAnalysis": {"detectedPerson": string, "dateFormat": string, "timeFormat": string, "shiftPatterns": [string]}}` + "\n")
	b.WriteString("Rules:\n")
	b.WriteString("- If several people appear, ask id \"" + constants.QuestionPersonSelect + "\" (single_select) with one option per person.\n")
	b.WriteString("- For every uncertain cell ask id \"" + constants.DataClarifyPrefix + "<n>\" (n from 1) offering both readings.\n")
	b.WriteString("- Ask \"" + constants.QuestionDateFormat + "\" only if day/month order cannot be inferred.\n")
	b.WriteString("- Ask nothing you can answer from the content; set needsClarification false when questions is empty.\n\n")
	writeContent(&b, c)
	return b.String()
}

// Confirmation is a caller's answer to an uncertain-cell question.
type Confirmation struct {
	Location string
	Original string
	Value    string
}

// ExtractionInput carries everything the extraction prompt needs.
type ExtractionInput struct {
	Content        *entity.ExtractedContent
	Confirmations  []Confirmation
	Clarifications []string
	PreAnalysis    *entity.PreAnalysis
	ReferenceDate  time.Time
	AssumedYear    int
	TextOnly       bool
}

// BuildExtractionPrompt asks for the final shift list. With TextOnly set only rawText is sent.
func BuildExtractionPrompt(in ExtractionInput) string {
	var b strings.Builder
	b.WriteString("Extract the work shifts of ONE person from this roster. Return ONLY JSON.\n")
	b.WriteString(`Shape: {"shifts": [{"date": string, "startTime": string, "endTime": string, "location": string, "jobName": string, "rawDateText": string, "rawTimeText": string, "note": string}], "identifiedPerson": {"nameFound": string, "location": string, "matchType": string, "confidence": number}}` + "\n")
	b.WriteString("Rules:\n")
	b.WriteString("- date as YYYY-MM-DD when you can; otherwise copy the visible text. Always copy the visible date into rawDateText.\n")
	b.WriteString("- Slash dates are day/month. Bare weekdays (\"Mon\") may be left as the weekday name.\n")
	fmt.Fprintf(&b, "- Reference date %s; assume year %d when none is shown.\n", in.ReferenceDate.Format(time.DateOnly), in.AssumedYear)
	b.WriteString("- startTime/endTime as 24-hour HH:MM. Omit a time that is not shown. Copy the visible time into rawTimeText.\n")
	b.WriteString("- Days off, leave and blank cells are not shifts.\n")

	if len(in.Confirmations) > 0 {
		b.WriteString("\nConfirmed readings (these override the transcription):\n")
		for _, c := range in.Confirmations {
			fmt.Fprintf(&b, "- %s: %q (transcribed as %q)\n", orDash(c.Location), c.Value, c.Original)
		}
	}
	if len(in.Clarifications) > 0 {
		b.WriteString("\nCaller clarifications:\n")
		for _, c := range in.Clarifications {
			b.WriteString("- " + c + "\n")
		}
	}
	if pa := in.PreAnalysis; !pa.IsEmpty() {
		if bs, err := json.Marshal(pa); err == nil {
			b.WriteString("\nPre-analysis: " + string(bs) + "\n")
		}
	}
	b.WriteString("\n")
	if in.TextOnly {
		b.WriteString("Roster text:\n")
		b.WriteString(truncate(in.Content.RawText))
		b.WriteString("\n")
		return b.String()
	}
	writeContent(&b, in.Content)
	return b.String()
}

func writeContent(b *strings.Builder, c *entity.ExtractedContent) {
	if c == nil {
		return
	}
	fmt.Fprintf(b, "Content type: %s\n", c.ContentType)
	if c.LayoutDescription != "" {
		b.WriteString("Layout: " + c.LayoutDescription + "\n")
	}
	if c.Metadata.Title != "" {
		b.WriteString("Title: " + c.Metadata.Title + "\n")
	}
	if c.Metadata.DateRange != "" {
		b.WriteString("Date range: " + c.Metadata.DateRange + "\n")
	}
	if names := c.UniqueNames(); len(names) > 0 {
		b.WriteString("People: " + strings.Join(names, ", ") + "\n")
	}
	if len(c.Rows) > 0 {
		b.WriteString("Grid:\n")
		if len(c.Headers) > 0 {
			b.WriteString("| " + strings.Join(c.Headers, " | ") + " |\n")
		}
		for _, r := range c.Rows {
			b.WriteString("| " + strings.Join(r, " | ") + " |\n")
		}
	}
	if len(c.UncertainCells) > 0 {
		b.WriteString("Uncertain readings:\n")
		for i, u := range c.UncertainCells {
			fmt.Fprintf(b, "%d. %s read %q", i+1, orDash(u.Location), u.ReadValue)
			if u.AlternativeValue != "" {
				fmt.Fprintf(b, " or %q", u.AlternativeValue)
			}
			if u.Reason != "" {
				b.WriteString(" (" + u.Reason + ")")
			}
			b.WriteString("\n")
		}
	}
	if c.RawText != "" {
		b.WriteString("Raw text:\n")
		b.WriteString(truncate(c.RawText))
		b.WriteString("\n")
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxPromptText {
		return s
	}
	cut := maxPromptText
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + "\n…(truncated)"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
