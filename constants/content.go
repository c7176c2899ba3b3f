package constants

import (
	"strings"
)

type ContentType string

const (
	ContentTable    ContentType = "table"
	ContentCalendar ContentType = "calendar"
	ContentList     ContentType = "list"
	ContentEmail    ContentType = "email"
	ContentText     ContentType = "text"
	ContentMixed    ContentType = "mixed"
)

var allContentTypes = []ContentType{
	ContentTable,
	ContentCalendar,
	ContentList,
	ContentEmail,
	ContentText,
	ContentMixed,
}

func ContentTypesAsStrings() []string {
	result := make([]string, len(allContentTypes))
	for i, ct := range allContentTypes {
		result[i] = string(ct)
	}
	return result
}

// CanonicalContentType maps a model-supplied label onto the enum. Unknown labels become mixed.
func CanonicalContentType(input string) (ContentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return ContentMixed, false
	}

	synonyms := map[string]ContentType{
		"grid":        ContentTable,
		"spreadsheet": ContentTable,
		"schedule":    ContentTable,
		"month":       ContentCalendar,
		"monthly":     ContentCalendar,
		"bullets":     ContentList,
		"message":     ContentEmail,
		"sms":         ContentEmail,
		"chat":        ContentEmail,
		"free_text":   ContentText,
		"plain":       ContentText,
	}
	if ct, ok := synonyms[normalized]; ok {
		return ct, true
	}
	for _, ct := range allContentTypes {
		if normalized == string(ct) {
			return ct, true
		}
	}
	return ContentMixed, false
}

// QuestionType is the input widget a smart question expects.
type QuestionType string

const (
	QuestionSingleSelect QuestionType = "single_select"
	QuestionText         QuestionType = "text"
)

// Question identifiers. Ids starting with DataClarifyPrefix confirm an uncertain reading.
const (
	QuestionPersonSelect = "person_select"
	QuestionDateFormat   = "date_format"
	QuestionTimeFormat   = "time_format"
	DataClarifyPrefix    = "data_clarify_"
)

// IsDataClarify reports whether a question id refers to an uncertain-cell confirmation.
func IsDataClarify(id string) bool {
	return strings.HasPrefix(id, DataClarifyPrefix)
}
