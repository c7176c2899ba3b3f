package entity

// AIExtractedShift is a raw, untrusted shift as returned by the model.
type AIExtractedShift struct {
	Date        string `json:"date"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Location    string `json:"location,omitempty"`
	JobName     string `json:"jobName,omitempty"`
	RawDateText string `json:"rawDateText,omitempty"`
	RawTimeText string `json:"rawTimeText,omitempty"`
	Note        string `json:"note,omitempty"`
}

// ValidatedShift has Date in YYYY-MM-DD and times in 24-hour HH:MM or nil.
type ValidatedShift struct {
	Date        string  `json:"date"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
	Location    string  `json:"location,omitempty"`
	JobName     string  `json:"jobName,omitempty"`
	RawDateText string  `json:"rawDateText,omitempty"`
	RawTimeText string  `json:"rawTimeText,omitempty"`
	Note        string  `json:"note,omitempty"`
}

// Raw converts a validated shift back to the untrusted shape.
func (v ValidatedShift) Raw() AIExtractedShift {
	return AIExtractedShift{
		Date:        v.Date,
		StartTime:   deref(v.StartTime),
		EndTime:     deref(v.EndTime),
		Location:    v.Location,
		JobName:     v.JobName,
		RawDateText: v.RawDateText,
		RawTimeText: v.RawTimeText,
		Note:        v.Note,
	}
}

// Label is the roster job label, preferring the job name over the location.
func (v ValidatedShift) Label() string {
	if v.JobName != "" {
		return v.JobName
	}
	return v.Location
}

// ParsedShift is the final, user-facing shift record.
type ParsedShift struct {
	ID            string   `json:"id"`
	Date          string   `json:"date"`
	StartTime     *string  `json:"startTime"`
	EndTime       *string  `json:"endTime"`
	TotalHours    float64  `json:"totalHours"`
	RosterJobName string   `json:"rosterJobName"`
	MappedJobID   *string  `json:"mappedJobId,omitempty"`
	Confidence    float64  `json:"confidence"`
	Selected      bool     `json:"selected"`
	Note          string   `json:"note,omitempty"`
	RawDateText   string   `json:"rawDateText,omitempty"`
	RawTimeText   string   `json:"rawTimeText,omitempty"`
}

// IdentifiedPerson is a best-effort attribution of whose shifts were extracted.
type IdentifiedPerson struct {
	NameFound  string  `json:"nameFound"`
	Location   string  `json:"location,omitempty"`
	MatchType  string  `json:"matchType,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ProcessResult is the orchestrator's external contract for extraction.
type ProcessResult struct {
	Success          bool              `json:"success"`
	Shifts           []ParsedShift     `json:"shifts"`
	IdentifiedPerson *IdentifiedPerson `json:"identifiedPerson,omitempty"`
	Error            string            `json:"error,omitempty"`
	ErrorType        string            `json:"errorType,omitempty"`
	OCRData          *ExtractedContent `json:"ocrData,omitempty"`
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
