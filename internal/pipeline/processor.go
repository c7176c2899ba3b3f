package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/classify"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/jobs"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
	"github.com/joseph-ayodele/roster-scan/internal/normalize"
)

const (
	baselineConfidence  = 0.95
	missingTimePenalty  = 0.25
	missingLabelPenalty = 0.10
	// minFallbackText is the raw text length below which a text-only retry is pointless.
	minFallbackText = 20
)

// FilterInput is the second-round request: a prior transcription plus the caller's answers.
type FilterInput struct {
	Content    *entity.ExtractedContent
	Answers    []entity.QuestionAnswer
	JobConfigs []entity.JobConfig
	JobAliases []entity.JobAlias
	Identifier string
	// PreAnalysis from the questions round; derived locally from Content when nil.
	PreAnalysis *entity.PreAnalysis
}

// LegacyInput runs transcription and extraction in one request.
type LegacyInput struct {
	Image      []byte
	MIMEType   string
	JobConfigs []entity.JobConfig
	JobAliases []entity.JobAlias
	Identifier string
}

// Processor coordinates transcription, optional clarification and extraction.
type Processor struct {
	logger     *slog.Logger
	transcribe *TranscribeStage
	analyze    *AnalyzeStage
	extract    *ExtractStage
	now        func() time.Time
	prepare    ImagePreparer
}

// ImagePreparer rewrites an upload before transcription, e.g. HEIC to PNG.
type ImagePreparer interface {
	Prepare(ctx context.Context, data []byte, mimeType string) ([]byte, string, error)
}

func NewProcessor(logger *slog.Logger, transcribe *TranscribeStage, analyze *AnalyzeStage, extract *ExtractStage) *Processor {
	return &Processor{
		logger:     common.LoggerOr(logger),
		transcribe: transcribe,
		analyze:    analyze,
		extract:    extract,
		now:        time.Now,
	}
}

// NewProcessorFromInvoker wires all three stages to one invoker.
func NewProcessorFromInvoker(inv Invoker, logger *slog.Logger) *Processor {
	return NewProcessor(logger, NewTranscribeStage(inv, logger), NewAnalyzeStage(inv, logger), NewExtractStage(inv, logger))
}

// WithClock overrides the reference clock used for weekday and year inference.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// WithImagePreparer installs a hook applied to every image before transcription.
func (p *Processor) WithImagePreparer(ip ImagePreparer) *Processor {
	p.prepare = ip
	return p
}

func (p *Processor) prepareImage(ctx context.Context, image []byte, mimeType string) ([]byte, string, error) {
	if p.prepare == nil {
		return image, mimeType, nil
	}
	out, mt, err := p.prepare.Prepare(ctx, image, mimeType)
	if err != nil {
		if common.ErrorTypeOf(err) == constants.ErrUnknown {
			return nil, "", common.NewAppError(constants.ErrInvalidInput, "image could not be prepared", err)
		}
		return nil, "", err
	}
	return out, mt, nil
}

// Questions transcribes the image and decides which clarifications the caller must answer.
// Business outcomes come back in the result; model failures are returned as errors.
func (p *Processor) Questions(ctx context.Context, image []byte, mimeType string) (*entity.QuestionsResult, error) {
	rid := common.RequestIDFromContext(ctx)

	image, mimeType, err := p.prepareImage(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}
	tr, err := p.transcribe.Run(ctx, image, mimeType)
	if err != nil {
		if errors.Is(err, llm.ErrMalformed) {
			return &entity.QuestionsResult{
				Questions: []entity.SmartQuestion{},
				Error:     "could not read the roster image",
				ErrorType: string(constants.ErrOCRFailed),
			}, nil
		}
		return nil, err
	}
	content := &tr.Content
	if tr.NotRoster {
		p.logger.Info("pipeline.questions.not_roster", "request_id", rid)
		return &entity.QuestionsResult{
			Questions: []entity.SmartQuestion{},
			OCRData:   content,
			Error:     "no roster detected in the image",
			ErrorType: string(constants.ErrNoShifts),
		}, nil
	}

	if classify.IsSimple(content) {
		p.logger.Info("pipeline.questions.skip", "request_id", rid, "reason", "simple")
		return &entity.QuestionsResult{
			Success:          true,
			Questions:        []entity.SmartQuestion{},
			OCRData:          content,
			SkipToExtraction: true,
			PreAnalysis:      classify.LocalPreAnalysis(content),
		}, nil
	}

	analysis, err := p.analyze.Run(ctx, content)
	if err != nil {
		if !errors.Is(err, llm.ErrMalformed) {
			return nil, err
		}
		questions := fallbackQuestions(content)
		if len(questions) == 0 {
			return &entity.QuestionsResult{
				Questions: []entity.SmartQuestion{},
				OCRData:   content,
				Error:     "could not prepare clarification questions",
				ErrorType: string(constants.ErrParse),
			}, nil
		}
		p.logger.Warn("pipeline.questions.fallback", "request_id", rid, "questions", len(questions))
		return &entity.QuestionsResult{
			Success:     true,
			Questions:   questions,
			OCRData:     content,
			PreAnalysis: classify.LocalPreAnalysis(content),
		}, nil
	}

	modelQuestions := analysis.Questions
	if !analysis.NeedsClarification {
		modelQuestions = nil
	}
	questions := reconcileQuestions(modelQuestions, content.UncertainCells)
	pre := analysis.PreAnalysis
	if pre == nil {
		pre = classify.LocalPreAnalysis(content)
	}

	p.logger.Info("pipeline.questions.ok", "request_id", rid, "questions", len(questions))
	return &entity.QuestionsResult{
		Success:          true,
		Questions:        questions,
		OCRData:          content,
		SkipToExtraction: len(questions) == 0,
		PreAnalysis:      pre,
	}, nil
}

// Filter extracts, validates and resolves shifts from a prior transcription and the answers.
func (p *Processor) Filter(ctx context.Context, in FilterInput) (*entity.ProcessResult, error) {
	pre := in.PreAnalysis
	if pre == nil && in.Content != nil {
		pre = classify.LocalPreAnalysis(in.Content)
	}
	return p.filter(ctx, in, pre)
}

func (p *Processor) filter(ctx context.Context, in FilterInput, pre *entity.PreAnalysis) (*entity.ProcessResult, error) {
	rid := common.RequestIDFromContext(ctx)
	if in.Content == nil {
		return nil, common.InvalidInputError("ocrData is required")
	}

	confirmations, clarifications, person := splitAnswers(in.Answers, in.Content)
	if id := strings.TrimSpace(in.Identifier); id != "" {
		clarifications = append(clarifications, "The person to extract is identified by: "+id)
		if person == "" {
			person = id
		}
	}
	content := applyConfirmations(in.Content, confirmations)

	now := p.now()
	input := llm.ExtractionInput{
		Content:        content,
		Confirmations:  confirmations,
		Clarifications: clarifications,
		PreAnalysis:    pre,
		ReferenceDate:  now,
		AssumedYear:    normalize.ReferenceYear(content.Metadata.DateRange, now),
	}

	ex, err := p.extract.Run(ctx, input)
	if err != nil {
		if errors.Is(err, llm.ErrMalformed) {
			return &entity.ProcessResult{
				Shifts:    []entity.ParsedShift{},
				Error:     "could not read the extracted shifts",
				ErrorType: string(constants.ErrParse),
				OCRData:   in.Content,
			}, nil
		}
		return nil, err
	}
	valid := p.validate(ctx, ex.Shifts, confirmations, input)

	if len(valid) == 0 && len(strings.TrimSpace(content.RawText)) >= minFallbackText {
		p.logger.Info("pipeline.extract.text_fallback", "request_id", rid)
		input.TextOnly = true
		fb, err := p.extract.Run(ctx, input)
		switch {
		case err == nil:
			ex = fb
			valid = p.validate(ctx, fb.Shifts, confirmations, input)
		case !errors.Is(err, llm.ErrMalformed):
			return nil, err
		}
	}

	if len(valid) == 0 {
		p.logger.Info("pipeline.extract.no_shifts", "request_id", rid)
		return &entity.ProcessResult{
			Shifts:    []entity.ParsedShift{},
			Error:     "no shifts could be extracted from the roster",
			ErrorType: string(constants.ErrNoShifts),
			OCRData:   in.Content,
		}, nil
	}

	shifts := make([]entity.ParsedShift, 0, len(valid))
	for _, v := range valid {
		shifts = append(shifts, p.toParsed(v, in.JobAliases, in.JobConfigs))
	}
	sort.SliceStable(shifts, func(i, j int) bool {
		if shifts[i].Date != shifts[j].Date {
			return shifts[i].Date < shifts[j].Date
		}
		return deref(shifts[i].StartTime) < deref(shifts[j].StartTime)
	})

	result := &entity.ProcessResult{
		Success:          true,
		Shifts:           shifts,
		IdentifiedPerson: ex.Person,
		OCRData:          in.Content,
	}
	if result.IdentifiedPerson == nil && person != "" {
		result.IdentifiedPerson = &entity.IdentifiedPerson{NameFound: person, MatchType: "answer", Confidence: 1}
	}
	p.logger.Info("pipeline.filter.ok", "request_id", rid, "shifts", len(shifts))
	return result, nil
}

// Process is the single-request path: transcription then extraction with no answers.
func (p *Processor) Process(ctx context.Context, in LegacyInput) (*entity.ProcessResult, error) {
	image, mimeType, err := p.prepareImage(ctx, in.Image, in.MIMEType)
	if err != nil {
		return nil, err
	}
	tr, err := p.transcribe.Run(ctx, image, mimeType)
	if err != nil {
		if errors.Is(err, llm.ErrMalformed) {
			return &entity.ProcessResult{
				Shifts:    []entity.ParsedShift{},
				Error:     "could not read the roster image",
				ErrorType: string(constants.ErrOCRFailed),
			}, nil
		}
		return nil, err
	}
	if tr.NotRoster {
		return &entity.ProcessResult{
			Shifts:    []entity.ParsedShift{},
			Error:     "no roster detected in the image",
			ErrorType: string(constants.ErrNoShifts),
			OCRData:   &tr.Content,
		}, nil
	}
	return p.filter(ctx, FilterInput{
		Content:    &tr.Content,
		JobConfigs: in.JobConfigs,
		JobAliases: in.JobAliases,
		Identifier: in.Identifier,
	}, classify.LocalPreAnalysis(&tr.Content))
}

func (p *Processor) validate(ctx context.Context, raw []entity.AIExtractedShift, confs []llm.Confirmation, in llm.ExtractionInput) []entity.ValidatedShift {
	shifts := normalize.ResolveWeekdayDates(raw, in.ReferenceDate)
	confirmLabels(shifts, confs)
	res := normalize.ValidateShifts(shifts, in.AssumedYear)
	if len(res.Errors) > 0 || len(res.Warnings) > 0 {
		p.logger.Info("pipeline.validate.issues",
			"request_id", common.RequestIDFromContext(ctx),
			"dropped", len(res.Errors), "warnings", len(res.Warnings),
			"errors_detail", res.Errors, "warnings_detail", res.Warnings,
		)
	}
	return res.ValidShifts
}

func (p *Processor) toParsed(v entity.ValidatedShift, aliases []entity.JobAlias, configs []entity.JobConfig) entity.ParsedShift {
	label := v.Label()
	out := entity.ParsedShift{
		ID:            uuid.NewString(),
		Date:          v.Date,
		StartTime:     v.StartTime,
		EndTime:       v.EndTime,
		TotalHours:    normalize.ShiftHours(v.StartTime, v.EndTime),
		RosterJobName: label,
		Confidence:    confidence(v, len(configs) > 0),
		Selected:      true,
		Note:          v.Note,
		RawDateText:   v.RawDateText,
		RawTimeText:   v.RawTimeText,
	}
	if id, ok := jobs.Resolve(label, aliases, configs); ok {
		out.MappedJobID = &id
	}
	return out
}

// confidence scores field completeness. A missing label only counts when there are jobs to map it to.
func confidence(v entity.ValidatedShift, hasJobs bool) float64 {
	c := baselineConfidence
	if v.StartTime == nil || v.EndTime == nil {
		c -= missingTimePenalty
	}
	if hasJobs && v.Label() == "" {
		c -= missingLabelPenalty
	}
	return max(0, min(1, c))
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
