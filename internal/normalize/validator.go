package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

// Result is the outcome of validating a batch of raw shifts. Errors name dropped shifts;
// Warnings name recoverable problems on kept ones.
type Result struct {
	ValidShifts []entity.ValidatedShift
	Errors      []string
	Warnings    []string
}

// ValidateShifts normalizes every raw shift. A shift without a resolvable date is dropped;
// an unparseable time becomes nil. Original text is kept in RawDateText/RawTimeText.
func ValidateShifts(raw []entity.AIExtractedShift, assumedYear int) Result {
	res := Result{ValidShifts: make([]entity.ValidatedShift, 0, len(raw))}

	for i, in := range raw {
		date, err := NormalizeDate(in.Date, assumedYear)
		if err != nil && in.RawDateText != "" {
			fallback, ferr := NormalizeDate(in.RawDateText, assumedYear)
			if ferr == nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("shift %d: date %q unreadable, used raw text %q", i, in.Date, in.RawDateText))
				date, err = fallback, nil
			}
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("shift %d: %v", i, err))
			continue
		}

		out := entity.ValidatedShift{
			Date:        date,
			Location:    NormalizeText(in.Location),
			JobName:     NormalizeText(in.JobName),
			RawDateText: in.RawDateText,
			RawTimeText: in.RawTimeText,
			Note:        strings.TrimSpace(in.Note),
		}
		if out.RawDateText == "" && strings.TrimSpace(in.Date) != date {
			out.RawDateText = strings.TrimSpace(in.Date)
		}

		out.StartTime = optionalTime(in.StartTime, "start", i, &res)
		out.EndTime = optionalTime(in.EndTime, "end", i, &res)
		if out.RawTimeText == "" && timeChanged(in, out) {
			out.RawTimeText = rawTimeRange(in)
		}

		res.ValidShifts = append(res.ValidShifts, out)
	}
	return res
}

// Revalidate converts validated shifts back to raw form and validates them again.
func Revalidate(shifts []entity.ValidatedShift, assumedYear int) Result {
	raw := make([]entity.AIExtractedShift, len(shifts))
	for i, s := range shifts {
		raw[i] = s.Raw()
	}
	return ValidateShifts(raw, assumedYear)
}

func optionalTime(value, field string, idx int, res *Result) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, err := NormalizeTime(value)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("shift %d: %s time dropped: %v", idx, field, err))
		return nil
	}
	return &t
}

func timeChanged(in entity.AIExtractedShift, out entity.ValidatedShift) bool {
	return strings.TrimSpace(in.StartTime) != deref(out.StartTime) || strings.TrimSpace(in.EndTime) != deref(out.EndTime)
}

func rawTimeRange(in entity.AIExtractedShift) string {
	start, end := strings.TrimSpace(in.StartTime), strings.TrimSpace(in.EndTime)
	switch {
	case start != "" && end != "":
		return start + "-" + end
	case start != "":
		return start
	default:
		return end
	}
}

// ShiftHours returns the length of a start/end pair in hours, wrapping past midnight.
// Missing times give zero.
func ShiftHours(start, end *string) float64 {
	if start == nil || end == nil {
		return 0
	}
	s, err1 := time.Parse("15:04", *start)
	e, err2 := time.Parse("15:04", *end)
	if err1 != nil || err2 != nil {
		return 0
	}
	d := e.Sub(s)
	if d < 0 {
		d += 24 * time.Hour
	}
	hours := d.Hours()
	return float64(int(hours*100+0.5)) / 100
}

// ReferenceYear picks the year for dates that carry none: a 4-digit year in dateRange,
// otherwise the reference date's year.
func ReferenceYear(dateRange string, ref time.Time) int {
	if m := yearInText.FindString(NormalizeText(dateRange)); m != "" {
		return atoi(m)
	}
	return ref.Year()
}

// ResolveWeekdayDates replaces bare weekday labels with the next matching date on or after ref.
func ResolveWeekdayDates(raw []entity.AIExtractedShift, ref time.Time) []entity.AIExtractedShift {
	out := make([]entity.AIExtractedShift, len(raw))
	for i, s := range raw {
		label := s.Date
		if strings.TrimSpace(label) == "" {
			label = s.RawDateText
		}
		if date, ok := ResolveWeekday(label, ref); ok {
			if s.RawDateText == "" {
				s.RawDateText = strings.TrimSpace(label)
			}
			s.Date = date
		}
		out[i] = s
	}
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
