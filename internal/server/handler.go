package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/pipeline"
)

// scanRequest is the single endpoint's body. An absent phase selects the legacy path.
type scanRequest struct {
	Phase       string                   `json:"phase"`
	ImageBase64 string                   `json:"imageBase64"`
	MimeType    string                   `json:"mimeType"`
	OCRData     *entity.ExtractedContent `json:"ocrData"`
	PreAnalysis *entity.PreAnalysis      `json:"preAnalysis"`
	Answers     []entity.QuestionAnswer  `json:"answers"`
	JobConfigs  []entity.JobConfig       `json:"jobConfigs"`
	JobAliases  []entity.JobAlias        `json:"jobAliases"`
	Identifier  string                   `json:"identifier"`
}

type quotaFields struct {
	ScansUsed int `json:"scansUsed"`
	ScanLimit int `json:"scanLimit"`
}

type questionsResponse struct {
	*entity.QuestionsResult
	quotaFields
	RequestID        string `json:"requestId"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

type processResponse struct {
	*entity.ProcessResult
	*quotaFields
	RequestID        string `json:"requestId"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

const maxIdentifierLen = 200

func (s *Server) handleScan(c *gin.Context) {
	// base64 inflates by 4/3; leave room for the rest of the body
	limit := int64(s.cfg.MaxImageBytes)*4/3 + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, s.logger, payloadTooLarge(s.cfg.MaxImageBytes))
			return
		}
		writeError(c, s.logger, common.InvalidInputErrorf("invalid JSON body: %v", err))
		return
	}

	phase, ok := constants.ParsePhase(req.Phase)
	if !ok {
		writeError(c, s.logger, common.InvalidInputErrorf("unknown phase %q", req.Phase))
		return
	}
	user, _ := common.UserFromContext(c.Request.Context())

	switch phase {
	case constants.PhaseQuestions:
		s.handleQuestions(c, user, req)
	case constants.PhaseFilter:
		s.handleFilter(c, user, req)
	default:
		s.handleLegacy(c, user, req)
	}
}

func (s *Server) handleQuestions(c *gin.Context, user entity.User, req scanRequest) {
	image, mimeType, err := s.decodeImage(req.ImageBase64, req.MimeType)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	quota, err := s.governor.Check(c.Request.Context(), user.ID)
	if err != nil {
		writeErrorWithQuota(c, s.logger, err, quota)
		return
	}

	res, err := runWithin(c.Request.Context(), s.cfg.RequestTimeout, func(ctx context.Context) (*entity.QuestionsResult, error) {
		return s.scanner.Questions(ctx, image, mimeType)
	})
	if err != nil {
		s.recordAudit(c, user, constants.PhaseQuestions, false, errorTypeOf(err), 0, 0)
		writeError(c, s.logger, err)
		return
	}
	quota = s.recordScan(c, user, quota)
	s.recordAudit(c, user, constants.PhaseQuestions, res.Success, res.ErrorType, 0, len(res.Questions))

	c.JSON(http.StatusOK, questionsResponse{
		QuestionsResult:  res,
		quotaFields:      quotaFields{ScansUsed: quota.ScansUsedThisPeriod, ScanLimit: quota.ScanLimit},
		RequestID:        requestIDFrom(c),
		ProcessingTimeMs: elapsedMs(c),
	})
}

func (s *Server) handleFilter(c *gin.Context, user entity.User, req scanRequest) {
	v := common.NewValidator().
		Check(req.OCRData != nil, "ocrData", "is required").
		Field("identifier", req.Identifier, common.MaxLength(maxIdentifierLen))
	for i, a := range req.Answers {
		v.Field(fmt.Sprintf("answers[%d].questionId", i), a.QuestionID, common.Required)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		writeError(c, s.logger, err)
		return
	}
	// client-held transcriptions may come back ragged
	req.OCRData.PadRows()

	res, err := runWithin(c.Request.Context(), s.cfg.RequestTimeout, func(ctx context.Context) (*entity.ProcessResult, error) {
		return s.scanner.Filter(ctx, pipeline.FilterInput{
			Content:     req.OCRData,
			Answers:     req.Answers,
			JobConfigs:  req.JobConfigs,
			JobAliases:  req.JobAliases,
			Identifier:  req.Identifier,
			PreAnalysis: req.PreAnalysis,
		})
	})
	if err != nil {
		s.recordAudit(c, user, constants.PhaseFilter, false, errorTypeOf(err), 0, 0)
		writeError(c, s.logger, err)
		return
	}
	s.recordAudit(c, user, constants.PhaseFilter, res.Success, res.ErrorType, len(res.Shifts), 0)

	c.JSON(http.StatusOK, processResponse{
		ProcessResult:    res,
		RequestID:        requestIDFrom(c),
		ProcessingTimeMs: elapsedMs(c),
	})
}

func (s *Server) handleLegacy(c *gin.Context, user entity.User, req scanRequest) {
	v := common.NewValidator().Field("identifier", req.Identifier, common.MaxLength(maxIdentifierLen))
	if err := common.ValidateAndReturnError(v); err != nil {
		writeError(c, s.logger, err)
		return
	}
	image, mimeType, err := s.decodeImage(req.ImageBase64, req.MimeType)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	quota, err := s.governor.Check(c.Request.Context(), user.ID)
	if err != nil {
		writeErrorWithQuota(c, s.logger, err, quota)
		return
	}

	res, err := runWithin(c.Request.Context(), s.cfg.RequestTimeout, func(ctx context.Context) (*entity.ProcessResult, error) {
		return s.scanner.Process(ctx, pipeline.LegacyInput{
			Image:      image,
			MIMEType:   mimeType,
			JobConfigs: req.JobConfigs,
			JobAliases: req.JobAliases,
			Identifier: req.Identifier,
		})
	})
	if err != nil {
		s.recordAudit(c, user, constants.PhaseLegacy, false, errorTypeOf(err), 0, 0)
		writeError(c, s.logger, err)
		return
	}
	quota = s.recordScan(c, user, quota)
	s.recordAudit(c, user, constants.PhaseLegacy, res.Success, res.ErrorType, len(res.Shifts), 0)

	c.JSON(http.StatusOK, processResponse{
		ProcessResult:    res,
		quotaFields:      &quotaFields{ScansUsed: quota.ScansUsedThisPeriod, ScanLimit: quota.ScanLimit},
		RequestID:        requestIDFrom(c),
		ProcessingTimeMs: elapsedMs(c),
	})
}

// recordScan counts the scan. A store failure is logged and the pre-scan quota plus one is reported.
func (s *Server) recordScan(c *gin.Context, user entity.User, before *entity.UsageQuota) *entity.UsageQuota {
	q, err := s.governor.Record(c.Request.Context(), user.ID)
	if err != nil {
		s.logger.Error("usage.record_failed", "request_id", requestIDFrom(c), "user_id", user.ID, "error", err)
		fallback := *before
		fallback.ScansUsedThisPeriod++
		return &fallback
	}
	return q
}

// recordAudit appends an audit record before the response is written. Failures are only logged.
func (s *Server) recordAudit(c *gin.Context, user entity.User, phase constants.ScanPhase, success bool, errType string, shifts, questions int) {
	if s.audit == nil {
		return
	}
	// the request context may already be past its deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
	defer cancel()
	rec := &entity.AuditRecord{
		UserID:       user.ID,
		RequestID:    requestIDFrom(c),
		Phase:        string(phase),
		Success:      success,
		ErrorType:    errType,
		ShiftCount:   shifts,
		QuestionCnt:  questions,
		ProcessingMs: elapsedMs(c),
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		s.logger.Warn("audit.append_failed", "request_id", rec.RequestID, "phase", rec.Phase, "error", err)
	}
}

func errorTypeOf(err error) string {
	_, t := errorStatus(err)
	return string(t)
}

func payloadTooLarge(limit int) error {
	return common.NewAppError(constants.ErrInvalidInput,
		fmt.Sprintf("image exceeds %d bytes", limit), errPayloadTooLarge)
}

// decodeImage accepts raw base64 or a data URL. The MIME type comes from the data URL, then the
// explicit mimeType field, then content sniffing.
func (s *Server) decodeImage(encoded, declared string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, "", common.InvalidInputError("imageBase64 is required")
	}
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", common.InvalidInputError("imageBase64 is not a valid data URL")
		}
		if mt := constants.NormalizeMIME(meta); mt != "" {
			declared = mt
		}
		encoded = payload
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > s.cfg.MaxImageBytes+3 {
		return nil, "", payloadTooLarge(s.cfg.MaxImageBytes)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, "", common.InvalidInputError("imageBase64 is not valid base64")
		}
	}
	if len(data) == 0 {
		return nil, "", common.InvalidInputError("imageBase64 is empty")
	}
	if len(data) > s.cfg.MaxImageBytes {
		return nil, "", payloadTooLarge(s.cfg.MaxImageBytes)
	}

	mimeType := constants.NormalizeMIME(declared)
	if !constants.IsAllowedImage(mimeType) {
		mimeType = constants.NormalizeMIME(http.DetectContentType(data))
	}
	if !constants.IsAllowedImage(mimeType) {
		return nil, "", common.InvalidInputErrorf("unsupported image type %q", mimeType)
	}
	return data, mimeType, nil
}

// runWithin runs fn under the overall request budget. If the budget expires first the caller
// gets context.DeadlineExceeded and fn's result is discarded when it eventually returns.
func runWithin[T any](parent context.Context, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if budget <= 0 {
		return fn(parent)
	}
	ctx, cancel := context.WithTimeout(parent, budget)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("scan budget %s: %w", budget, ctx.Err())
	}
}
