package entity

import "github.com/joseph-ayodele/roster-scan/constants"

// SmartQuestion is a clarification request surfaced to the caller between stages.
type SmartQuestion struct {
	ID       string                 `json:"id"`
	Type     constants.QuestionType `json:"type"`
	Question string                 `json:"question"`
	Options  []QuestionOption       `json:"options,omitempty"`
	Required bool                   `json:"required"`
}

type QuestionOption struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// QuestionAnswer is supplied by the caller before extraction.
type QuestionAnswer struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

// QuestionsResult is the outcome of the transcription + disambiguation round.
type QuestionsResult struct {
	Success          bool              `json:"success"`
	Questions        []SmartQuestion   `json:"questions"`
	OCRData          *ExtractedContent `json:"ocrData,omitempty"`
	SkipToExtraction bool              `json:"skipToExtraction,omitempty"`
	PreAnalysis      *PreAnalysis      `json:"preAnalysis,omitempty"`
	Error            string            `json:"error,omitempty"`
	ErrorType        string            `json:"errorType,omitempty"`
}
