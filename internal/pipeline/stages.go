// Package pipeline sequences transcription, clarification and extraction of a roster image.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
)

// Invoker is the model call the stages depend on.
type Invoker interface {
	Invoke(ctx context.Context, stage string, parts []llm.Part) (string, error)
}

// TranscribeStage reads the roster image into an ExtractedContent.
type TranscribeStage struct {
	Invoker Invoker
	Logger  *slog.Logger
}

func NewTranscribeStage(inv Invoker, logger *slog.Logger) *TranscribeStage {
	return &TranscribeStage{Invoker: inv, Logger: common.LoggerOr(logger)}
}

// Run returns llm.ErrMalformed (wrapped) when the response is not a transcription payload.
// Model failures are returned as *llm.ModelError.
func (s *TranscribeStage) Run(ctx context.Context, image []byte, mimeType string) (*llm.Transcription, error) {
	start := time.Now()
	text, err := s.Invoker.Invoke(ctx, "transcribe", []llm.Part{
		llm.TextPart(llm.BuildTranscriptionPrompt()),
		llm.ImagePart(image, mimeType),
	})
	if err != nil {
		return nil, err
	}
	tr, err := llm.ParseTranscription(text)
	if err != nil {
		s.Logger.Warn("pipeline.transcribe.parse_failed",
			"request_id", common.RequestIDFromContext(ctx), "response_bytes", len(text), "error", err)
		return nil, fmt.Errorf("transcription: %w", err)
	}
	s.Logger.Info("pipeline.transcribe.ok",
		"request_id", common.RequestIDFromContext(ctx),
		"content_type", tr.Content.ContentType,
		"rows", len(tr.Content.Rows),
		"uncertain_cells", len(tr.Content.UncertainCells),
		"names", len(tr.Content.Metadata.PotentialNames),
		"not_roster", tr.NotRoster,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return tr, nil
}

// AnalyzeStage asks which clarifications are needed.
type AnalyzeStage struct {
	Invoker Invoker
	Logger  *slog.Logger
}

func NewAnalyzeStage(inv Invoker, logger *slog.Logger) *AnalyzeStage {
	return &AnalyzeStage{Invoker: inv, Logger: common.LoggerOr(logger)}
}

func (s *AnalyzeStage) Run(ctx context.Context, c *entity.ExtractedContent) (*llm.Analysis, error) {
	start := time.Now()
	text, err := s.Invoker.Invoke(ctx, "analyze", []llm.Part{llm.TextPart(llm.BuildAnalysisPrompt(c))})
	if err != nil {
		return nil, err
	}
	a, err := llm.ParseAnalysis(text)
	if err != nil {
		s.Logger.Warn("pipeline.analyze.parse_failed",
			"request_id", common.RequestIDFromContext(ctx), "response_bytes", len(text), "error", err)
		return nil, fmt.Errorf("analysis: %w", err)
	}
	s.Logger.Info("pipeline.analyze.ok",
		"request_id", common.RequestIDFromContext(ctx),
		"questions", len(a.Questions),
		"needs_clarification", a.NeedsClarification,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return a, nil
}

// ExtractStage produces raw shifts from a transcription plus answers.
type ExtractStage struct {
	Invoker Invoker
	Logger  *slog.Logger
}

func NewExtractStage(inv Invoker, logger *slog.Logger) *ExtractStage {
	return &ExtractStage{Invoker: inv, Logger: common.LoggerOr(logger)}
}

func (s *ExtractStage) Run(ctx context.Context, in llm.ExtractionInput) (*llm.Extraction, error) {
	start := time.Now()
	stage := "extract"
	if in.TextOnly {
		stage = "extract_text"
	}
	text, err := s.Invoker.Invoke(ctx, stage, []llm.Part{llm.TextPart(llm.BuildExtractionPrompt(in))})
	if err != nil {
		return nil, err
	}
	ex, err := llm.ParseExtraction(text)
	if err != nil {
		s.Logger.Warn("pipeline.extract.parse_failed",
			"request_id", common.RequestIDFromContext(ctx), "stage", stage, "response_bytes", len(text), "error", err)
		return nil, fmt.Errorf("extraction: %w", err)
	}
	s.Logger.Info("pipeline.extract.ok",
		"request_id", common.RequestIDFromContext(ctx),
		"stage", stage,
		"raw_shifts", len(ex.Shifts),
		"person_found", ex.Person != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ex, nil
}
