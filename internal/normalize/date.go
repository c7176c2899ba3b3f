package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	ErrEmptyDate        = errors.New("empty date")
	ErrUnrecognizedDate = errors.New("unrecognized date format")
	ErrInvalidDate      = errors.New("invalid calendar date")
)

const (
	monthPattern   = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`
	weekdayPattern = `(?:mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(?:day|nesday|sday|urday|rsday)?\.?`
	ordinal        = `(?:st|nd|rd|th)?`
)

var (
	isoDateRe          = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	leadingWeekdayRe   = regexp.MustCompile(`^` + weekdayPattern + `,?\s+`)
	dayMonthYearRe     = regexp.MustCompile(`^(\d{1,2})` + ordinal + `\s+(?:of\s+)?` + monthPattern + `,?\s+(\d{4})$`)
	dayMonthRe         = regexp.MustCompile(`^(\d{1,2})` + ordinal + `\s+(?:of\s+)?` + monthPattern + `$`)
	monthDayRe         = regexp.MustCompile(`^` + monthPattern + `\s+(\d{1,2})` + ordinal + `(?:,?\s+(\d{4}))?$`)
	dayDashMonthRe     = regexp.MustCompile(`^(\d{1,2})[-\s]` + monthPattern + `(?:[-\s](\d{2}|\d{4}))?$`)
	monthDashDayRe     = regexp.MustCompile(`^` + monthPattern + `-(\d{1,2})(?:-(\d{2}|\d{4}))?$`)
	slashDayMonthRe    = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})$`)
	slashDayMonthYrRe  = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})[/.](\d{4}|\d{2})$`)
	slashYearMonthDay  = regexp.MustCompile(`^(\d{4})[/.](\d{1,2})[/.](\d{1,2})$`)
	koreanDateRe       = regexp.MustCompile(`^(?:(\d{4})\s*년\s*)?(\d{1,2})\s*월\s*(\d{1,2})\s*일`)
	japaneseDateRe     = regexp.MustCompile(`^(?:(\d{4})\s*年\s*)?(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
	yearInText         = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	monthNumbersByStem = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
)

// IsValidCalendarDate reports whether y-m-d exists, rejecting overflow such as 30 February.
func IsValidCalendarDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}

// NormalizeDate converts a loosely formatted date into YYYY-MM-DD. Inputs without a year
// use assumedYear. Slash forms are read day first.
func NormalizeDate(text string, assumedYear int) (string, error) {
	s := prepare(text)
	if s == "" {
		return "", ErrEmptyDate
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return build(atoi(m[1]), atoi(m[2]), atoi(m[3]), text)
	}

	if stripped := leadingWeekdayRe.ReplaceAllString(s, ""); stripped != "" {
		s = stripped
	}

	if m := dayMonthYearRe.FindStringSubmatch(s); m != nil {
		return build(atoi(m[3]), monthNumber(m[2]), atoi(m[1]), text)
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		return build(assumedYear, monthNumber(m[2]), atoi(m[1]), text)
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		return build(yearOr(m[3], assumedYear), monthNumber(m[1]), atoi(m[2]), text)
	}
	if m := dayDashMonthRe.FindStringSubmatch(s); m != nil {
		return build(yearOr(m[3], assumedYear), monthNumber(m[2]), atoi(m[1]), text)
	}
	if m := monthDashDayRe.FindStringSubmatch(s); m != nil {
		return build(yearOr(m[3], assumedYear), monthNumber(m[1]), atoi(m[2]), text)
	}
	if m := slashDayMonthRe.FindStringSubmatch(s); m != nil {
		return dayFirst(assumedYear, atoi(m[1]), atoi(m[2]), text)
	}
	if m := slashDayMonthYrRe.FindStringSubmatch(s); m != nil {
		return dayFirst(yearOr(m[3], assumedYear), atoi(m[1]), atoi(m[2]), text)
	}
	if m := slashYearMonthDay.FindStringSubmatch(s); m != nil {
		return build(atoi(m[1]), atoi(m[2]), atoi(m[3]), text)
	}
	if m := koreanDateRe.FindStringSubmatch(s); m != nil {
		return build(yearOr(m[1], assumedYear), atoi(m[2]), atoi(m[3]), text)
	}
	if m := japaneseDateRe.FindStringSubmatch(s); m != nil {
		return build(yearOr(m[1], assumedYear), atoi(m[2]), atoi(m[3]), text)
	}

	return "", fmt.Errorf("%w: %q", ErrUnrecognizedDate, text)
}

// dayFirst reads a/b as day/month, falling back to month/day only when day/month is impossible.
func dayFirst(year, a, b int, text string) (string, error) {
	if IsValidCalendarDate(year, b, a) {
		return format(year, b, a), nil
	}
	if IsValidCalendarDate(year, a, b) {
		return format(year, a, b), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, text)
}

func build(y, m, d int, text string) (string, error) {
	if !IsValidCalendarDate(y, m, d) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}
	return format(y, m, d), nil
}

func format(y, m, d int) string {
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func monthNumber(name string) int {
	if len(name) < 3 {
		return 0
	}
	return monthNumbersByStem[name[:3]]
}

func yearOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	y := atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
