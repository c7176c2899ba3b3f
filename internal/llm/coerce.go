package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/normalize"
)

// ErrMalformed marks a model response that could not be read as the expected payload.
var ErrMalformed = errors.New("malformed model payload")

// Transcription is the decoded first-stage payload.
type Transcription struct {
	Content   entity.ExtractedContent
	NotRoster bool
}

// Analysis is the decoded clarification payload.
type Analysis struct {
	Questions          []entity.SmartQuestion
	PreAnalysis        *entity.PreAnalysis
	NeedsClarification bool
}

// Extraction is the decoded shift payload.
type Extraction struct {
	Shifts []entity.AIExtractedShift
	Person *entity.IdentifiedPerson
}

// decode runs the shared fence-strip, schema gate and generic decode.
func decode(text, name string, schema map[string]any) (any, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := ValidateJSONAgainstSchema(name, schema, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}

// ParseTranscription reads a transcription response. Headers and rows are padded with empty
// cells to a common width.
func ParseTranscription(text string) (*Transcription, error) {
	v, err := decode(text, "transcription.json", TranscriptionSchema())
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)

	out := &Transcription{}
	if b := asBool(m["isRoster"]); b != nil && !*b {
		out.NotRoster = true
	}

	c := &out.Content
	c.ContentType, _ = constants.CanonicalContentType(asString(m["contentType"]))
	c.LayoutDescription = asString(m["layoutDescription"])
	c.Headers = asStrings(m["headers"])
	c.RawText = normalize.CleanRawText(asString(m["rawText"]))

	if rows, ok := m["rows"].([]any); ok {
		for _, r := range rows {
			c.Rows = append(c.Rows, asCells(r))
		}
		c.PadRows()
	}

	c.UncertainCells = []entity.UncertainCell{}
	if cells, ok := m["uncertainCells"].([]any); ok {
		for _, item := range cells {
			cm, ok := item.(map[string]any)
			if !ok {
				continue
			}
			cell := entity.UncertainCell{
				Location:         asString(cm["location"]),
				ReadValue:        asString(cm["readValue"]),
				AlternativeValue: asString(cm["alternativeValue"]),
				Reason:           asString(cm["reason"]),
			}
			if cell.ReadValue == "" && cell.AlternativeValue == "" {
				continue
			}
			c.UncertainCells = append(c.UncertainCells, cell)
		}
	}

	meta, _ := m["metadata"].(map[string]any)
	c.Metadata = entity.ContentMetadata{
		Title:             asString(meta["title"]),
		HasMultiplePeople: asBool(meta["hasMultiplePeople"]),
		PotentialNames:    nonEmpty(asStrings(meta["potentialNames"])),
		DateRange:         asString(meta["dateRange"]),
		Language:          asString(meta["language"]),
	}
	return out, nil
}

// ParseAnalysis reads a clarification response.
func ParseAnalysis(text string) (*Analysis, error) {
	v, err := decode(text, "analysis.json", AnalysisSchema())
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)

	out := &Analysis{Questions: []entity.SmartQuestion{}}
	if items, ok := m["questions"].([]any); ok {
		for i, item := range items {
			qm, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if q, ok := coerceQuestion(qm, i); ok {
				out.Questions = append(out.Questions, q)
			}
		}
	}
	if b := asBool(m["needsClarification"]); b != nil {
		out.NeedsClarification = *b
	} else {
		out.NeedsClarification = len(out.Questions) > 0
	}
	if pm, ok := m["preAnalysis"].(map[string]any); ok {
		pa := &entity.PreAnalysis{
			DetectedPerson: asString(pm["detectedPerson"]),
			DateFormat:     asString(pm["dateFormat"]),
			TimeFormat:     asString(pm["timeFormat"]),
			ShiftPatterns:  nonEmpty(asStrings(pm["shiftPatterns"])),
		}
		if !pa.IsEmpty() {
			out.PreAnalysis = pa
		}
	}
	return out, nil
}

func coerceQuestion(qm map[string]any, idx int) (entity.SmartQuestion, bool) {
	q := entity.SmartQuestion{
		ID:       asString(qm["id"]),
		Question: asString(qm["question"]),
		Required: true,
	}
	if q.Question == "" {
		return q, false
	}
	if q.ID == "" {
		q.ID = "question_" + strconv.Itoa(idx+1)
	}
	if b := asBool(qm["required"]); b != nil {
		q.Required = *b
	}
	if opts, ok := qm["options"].([]any); ok {
		for _, o := range opts {
			switch ov := o.(type) {
			case map[string]any:
				opt := entity.QuestionOption{
					Label:       asString(ov["label"]),
					Value:       asString(ov["value"]),
					Description: asString(ov["description"]),
				}
				if opt.Value == "" {
					opt.Value = opt.Label
				}
				if opt.Label == "" {
					opt.Label = opt.Value
				}
				if opt.Value != "" {
					q.Options = append(q.Options, opt)
				}
			default:
				if s := asString(ov); s != "" {
					q.Options = append(q.Options, entity.QuestionOption{Label: s, Value: s})
				}
			}
		}
	}
	switch constants.QuestionType(asString(qm["type"])) {
	case constants.QuestionText:
		q.Type = constants.QuestionText
	case constants.QuestionSingleSelect:
		q.Type = constants.QuestionSingleSelect
	default:
		q.Type = constants.QuestionText
		if len(q.Options) > 0 {
			q.Type = constants.QuestionSingleSelect
		}
	}
	if q.Type == constants.QuestionSingleSelect && len(q.Options) == 0 {
		q.Type = constants.QuestionText
	}
	return q, true
}

// ParseExtraction reads a shift extraction response.
func ParseExtraction(text string) (*Extraction, error) {
	v, err := decode(text, "extraction.json", ExtractionSchema())
	if err != nil {
		return nil, err
	}

	var items []any
	out := &Extraction{Shifts: []entity.AIExtractedShift{}}
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		items, _ = t["shifts"].([]any)
		if pm, ok := t["identifiedPerson"].(map[string]any); ok {
			p := &entity.IdentifiedPerson{
				NameFound:  asString(pm["nameFound"]),
				Location:   asString(pm["location"]),
				MatchType:  asString(pm["matchType"]),
				Confidence: clamp01(asFloat(pm["confidence"])),
			}
			if p.NameFound != "" {
				out.Person = p
			}
		}
	}

	for _, item := range items {
		sm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out.Shifts = append(out.Shifts, entity.AIExtractedShift{
			Date:        asString(sm["date"]),
			StartTime:   asString(sm["startTime"]),
			EndTime:     asString(sm["endTime"]),
			Location:    asString(sm["location"]),
			JobName:     asString(sm["jobName"]),
			RawDateText: asString(sm["rawDateText"]),
			RawTimeText: asString(sm["rawTimeText"]),
			Note:        asString(sm["note"]),
		})
	}
	return out, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asBool(v any) *bool {
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes":
			b = true
		case "false", "no":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func asStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, asString(item))
	}
	return out
}

// asCells keeps empty cells so column alignment survives.
func asCells(v any) []string {
	if s, ok := v.([]any); ok {
		return asStrings(s)
	}
	return nil
}


func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
