package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyTime        = errors.New("empty time")
	ErrUnrecognizedTime = errors.New("unrecognized time format")
	ErrInvalidTime      = errors.New("time out of range")
)

var (
	clockRe      = regexp.MustCompile(`^(\d{1,2})[:.h](\d{2})(?::\d{2})?$`)
	meridiemRe   = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?\s*(a\.?m\.?|p\.?m\.?|a|p)$`)
	militaryRe   = regexp.MustCompile(`^\d{3,4}$`)
	koreanTimeRe = regexp.MustCompile(`^(오전|오후)?\s*(\d{1,2})\s*시(?:\s*(\d{1,2})\s*분|\s*(반))?$`)
	japanTimeRe  = regexp.MustCompile(`^(午前|午後)?\s*(\d{1,2})\s*時(?:\s*(\d{1,2})\s*分|\s*(半))?$`)
	keywordTimes = map[string]string{"noon": "12:00", "midday": "12:00", "midnight": "00:00", "정오": "12:00", "자정": "00:00"}
)

// NormalizeTime converts a loosely formatted time into 24-hour HH:MM.
func NormalizeTime(text string) (string, error) {
	s := prepare(text)
	if s == "" {
		return "", ErrEmptyTime
	}

	if m := clockRe.FindStringSubmatch(s); m != nil {
		return clock(atoi(m[1]), atoi(m[2]), text)
	}
	if m := meridiemRe.FindStringSubmatch(s); m != nil {
		minute := 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		return twelveHour(atoi(m[1]), minute, strings.HasPrefix(m[3], "p"), text)
	}
	if militaryRe.MatchString(s) {
		padded := strings.Repeat("0", 4-len(s)) + s
		return clock(atoi(padded[:2]), atoi(padded[2:]), text)
	}
	if v, ok := keywordTimes[s]; ok {
		return v, nil
	}
	if m := koreanTimeRe.FindStringSubmatch(s); m != nil {
		return localeTime(m, "오후", "오전", text)
	}
	if m := japanTimeRe.FindStringSubmatch(s); m != nil {
		return localeTime(m, "午後", "午前", text)
	}

	return "", fmt.Errorf("%w: %q", ErrUnrecognizedTime, text)
}

// localeTime handles "<meridiem>? H<hour-mark> (M<minute-mark>|half)?" captures.
func localeTime(m []string, pm, am, text string) (string, error) {
	hour := atoi(m[2])
	minute := 0
	switch {
	case m[3] != "":
		minute = atoi(m[3])
	case m[4] != "":
		minute = 30
	}
	switch m[1] {
	case pm:
		return twelveHour(hour, minute, true, text)
	case am:
		return twelveHour(hour, minute, false, text)
	}
	return clock(hour, minute, text)
}

func twelveHour(hour, minute int, pm bool, text string) (string, error) {
	if hour < 1 || hour > 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, text)
	}
	hour %= 12
	if pm {
		hour += 12
	}
	return clock(hour, minute, text)
}

func clock(hour, minute int, text string) (string, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, text)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}
