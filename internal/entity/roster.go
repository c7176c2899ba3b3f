package entity

import "github.com/joseph-ayodele/roster-scan/constants"

// ExtractedContent is the transcription of a roster image (first stage output).
// When Rows is present every row has len(Headers) cells; "" marks an empty cell.
type ExtractedContent struct {
	ContentType       constants.ContentType `json:"contentType"`
	LayoutDescription string                `json:"layoutDescription,omitempty"`
	Headers           []string              `json:"headers,omitempty"`
	Rows              [][]string            `json:"rows,omitempty"`
	RawText           string                `json:"rawText"`
	UncertainCells    []UncertainCell       `json:"uncertainCells"`
	Metadata          ContentMetadata       `json:"metadata"`
}

// ContentMetadata carries document-level hints from the transcription.
type ContentMetadata struct {
	Title             string   `json:"title,omitempty"`
	HasMultiplePeople *bool    `json:"hasMultiplePeople,omitempty"`
	PotentialNames    []string `json:"potentialNames"`
	DateRange         string   `json:"dateRange,omitempty"`
	Language          string   `json:"language,omitempty"`
}

// UncertainCell is a single reading the transcriber is not confident about.
type UncertainCell struct {
	Location         string `json:"location"`
	ReadValue        string `json:"readValue"`
	AlternativeValue string `json:"alternativeValue,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// PreAnalysis is best-effort context forwarded to the extraction prompt.
type PreAnalysis struct {
	DetectedPerson string   `json:"detectedPerson,omitempty"`
	DateFormat     string   `json:"dateFormat,omitempty"`
	TimeFormat     string   `json:"timeFormat,omitempty"`
	ShiftPatterns  []string `json:"shiftPatterns,omitempty"`
}

// IsEmpty reports whether the analysis carries no information.
func (p *PreAnalysis) IsEmpty() bool {
	return p == nil || (p.DetectedPerson == "" && p.DateFormat == "" && p.TimeFormat == "" && len(p.ShiftPatterns) == 0)
}

// PadRows pads headers and rows with empty cells to the widest row so the grid is rectangular.
func (c *ExtractedContent) PadRows() {
	width := len(c.Headers)
	for _, r := range c.Rows {
		width = max(width, len(r))
	}
	if len(c.Headers) > 0 {
		c.Headers = padCells(c.Headers, width)
	}
	for i := range c.Rows {
		c.Rows[i] = padCells(c.Rows[i], width)
	}
}

func padCells(cells []string, width int) []string {
	if len(cells) >= width {
		return cells
	}
	padded := make([]string, width)
	copy(padded, cells)
	return padded
}

// UniqueNames returns the potential names with blanks and case-insensitive duplicates removed.
func (c *ExtractedContent) UniqueNames() []string {
	seen := make(map[string]struct{}, len(c.Metadata.PotentialNames))
	out := make([]string, 0, len(c.Metadata.PotentialNames))
	for _, n := range c.Metadata.PotentialNames {
		key := foldKey(n)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
