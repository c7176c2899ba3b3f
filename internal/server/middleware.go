package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/auth"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxStartKey     = "request_start"
	ctxRequestIDKey = "request_id"
	maxRequestIDLen = 128
)

// requestIDMiddleware reuses the caller's X-Request-ID or mints one, and stamps the start time.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxStartKey, time.Now())
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, reqID)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), reqID))
		c.Header(requestIDHeader, reqID)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(ctxRequestIDKey)
}

func elapsedMs(c *gin.Context) int64 {
	start, ok := c.Get(ctxStartKey)
	if !ok {
		return 0
	}
	return time.Since(start.(time.Time)).Milliseconds()
}

// recoveryMiddleware turns a panic into a 500 JSON response.
func recoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("http.panic",
					"panic", rec,
					"stack", string(debug.Stack()),
					"request_id", requestIDFrom(c),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				)
				writeFailure(c, http.StatusInternalServerError, constants.ErrUnknown, "internal error", nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}

func accessLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http.request.done",
			"request_id", requestIDFrom(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"client_ip", c.ClientIP(),
			"elapsed_ms", elapsedMs(c),
			"response_bytes", c.Writer.Size(),
		)
	}
}

// corsMiddleware enforces the origin policy and answers preflight requests.
func corsMiddleware(policy OriginPolicy, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !OriginAllowed(origin, policy) {
			logger.Warn("http.origin_rejected", "request_id", requestIDFrom(c), "origin", origin)
			writeError(c, logger, common.NewAppError(constants.ErrAuth, "origin not allowed", common.ErrForbidden))
			c.Abort()
			return
		}
		if origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID")
			h.Set("Access-Control-Max-Age", "600")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// authMiddleware resolves the bearer token to a user and stores it in the request context.
func authMiddleware(v auth.Verifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			writeError(c, logger, auth.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}
		user, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			writeError(c, logger, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(common.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func rateLimitMiddleware(l *callerLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.ClientIP()
		if user, ok := common.UserFromContext(c.Request.Context()); ok {
			caller = user.ID
		}
		if !l.Allow(caller) {
			logger.Info("http.rate_limited", "request_id", requestIDFrom(c), "caller", caller)
			writeFailure(c, http.StatusTooManyRequests, constants.ErrLimitExceeded, "too many requests", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

type failureResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error"`
	ErrorType        string `json:"errorType"`
	RequestID        string `json:"requestId"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	ScansUsed        *int   `json:"scansUsed,omitempty"`
	ScanLimit        *int   `json:"scanLimit,omitempty"`
}

func writeFailure(c *gin.Context, status int, errType constants.ErrorType, message string, quota *entity.UsageQuota) {
	resp := failureResponse{
		Error:            message,
		ErrorType:        string(errType),
		RequestID:        requestIDFrom(c),
		ProcessingTimeMs: elapsedMs(c),
	}
	if quota != nil {
		resp.ScansUsed, resp.ScanLimit = &quota.ScansUsedThisPeriod, &quota.ScanLimit
	}
	c.JSON(status, resp)
}

// writeError maps err through errorStatus, logs it and writes the JSON failure.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	writeErrorWithQuota(c, logger, err, nil)
}

func writeErrorWithQuota(c *gin.Context, logger *slog.Logger, err error, quota *entity.UsageQuota) {
	status, errType := errorStatus(err)
	attrs := []any{
		"request_id", requestIDFrom(c),
		"status", status,
		"error_type", errType,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("http.request.failed", attrs...)
	} else {
		logger.Warn("http.request.rejected", attrs...)
	}
	writeFailure(c, status, errType, publicMessage(err, status), quota)
}
