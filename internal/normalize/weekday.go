package normalize

import (
	"strings"
	"time"
)

var weekdayLabels = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "weds": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,

	"일요일": time.Sunday, "월요일": time.Monday, "화요일": time.Tuesday, "수요일": time.Wednesday,
	"목요일": time.Thursday, "금요일": time.Friday, "토요일": time.Saturday,
	"日曜日": time.Sunday, "月曜日": time.Monday, "火曜日": time.Tuesday, "水曜日": time.Wednesday,
	"木曜日": time.Thursday, "金曜日": time.Friday, "土曜日": time.Saturday,
}

// ParseWeekday recognizes a bare weekday label such as "Mon", "Tuesday" or "월요일".
func ParseWeekday(label string) (time.Weekday, bool) {
	s := strings.TrimSuffix(strings.ToLower(NormalizeText(label)), ".")
	wd, ok := weekdayLabels[s]
	return wd, ok
}

// ResolveWeekday returns the YYYY-MM-DD of the next occurrence of label on or after ref.
func ResolveWeekday(label string, ref time.Time) (string, bool) {
	wd, ok := ParseWeekday(label)
	if !ok {
		return "", false
	}
	offset := (int(wd) - int(ref.Weekday()) + 7) % 7
	return ref.AddDate(0, 0, offset).Format(time.DateOnly), true
}
