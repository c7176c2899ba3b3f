// Package classify decides whether a transcription needs a clarification round.
package classify

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/normalize"
)

// structuralHeaders name grid columns that carry layout rather than a person.
var structuralHeaders = map[string]struct{}{
	"date": {}, "dates": {}, "day": {}, "days": {}, "weekday": {}, "week": {},
	"notes": {}, "note": {}, "remarks": {}, "comments": {}, "comment": {},
	"time": {}, "hours": {}, "total": {}, "month": {},
	"날짜": {}, "요일": {}, "비고": {}, "주": {},
	"日付": {}, "曜日": {}, "備考": {},
}

// IsSimple reports whether content can go straight to extraction.
func IsSimple(c *entity.ExtractedContent) bool {
	if c == nil {
		return false
	}
	if len(c.UncertainCells) > 0 {
		return false
	}
	switch c.ContentType {
	case constants.ContentText, constants.ContentEmail:
		return true
	}
	if hp := c.Metadata.HasMultiplePeople; hp != nil && !*hp {
		return true
	}
	if len(c.UniqueNames()) <= 1 {
		return true
	}
	if c.ContentType == constants.ContentTable && len(c.Headers) > 0 {
		return PersonColumns(c.Headers) <= 1
	}
	return false
}

// PersonColumns counts headers that are not structural keywords.
func PersonColumns(headers []string) int {
	n := 0
	for _, h := range headers {
		key := strings.ToLower(normalize.NormalizeText(h))
		if key == "" {
			continue
		}
		if _, ok := structuralHeaders[key]; ok {
			continue
		}
		n++
	}
	return n
}

var (
	slashDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}\b`)
	meridiemRe  = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*[ap]\.?m\b`)
	clockRe     = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	rangeRe     = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:[ap]m)?\s*[-–~]\s*\d{1,2}(?::\d{2})?\s*(?:[ap]m)?`)
)

// LocalPreAnalysis builds a best-effort PreAnalysis without a model call.
func LocalPreAnalysis(c *entity.ExtractedContent) *entity.PreAnalysis {
	if c == nil {
		return nil
	}
	pa := &entity.PreAnalysis{}
	if names := c.UniqueNames(); len(names) == 1 {
		pa.DetectedPerson = names[0]
	}
	text := normalize.NormalizeText(c.RawText)
	if slashDateRe.MatchString(text) {
		pa.DateFormat = "DD/MM"
	}
	switch {
	case meridiemRe.MatchString(text):
		pa.TimeFormat = "12h"
	case clockRe.MatchString(text):
		pa.TimeFormat = "24h"
	}
	seen := map[string]struct{}{}
	for _, m := range rangeRe.FindAllString(text, 5) {
		m = strings.TrimSpace(m)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		pa.ShiftPatterns = append(pa.ShiftPatterns, m)
	}
	return pa
}
