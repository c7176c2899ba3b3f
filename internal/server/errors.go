package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
)

var errPayloadTooLarge = errors.New("payload too large")

// errorStatus maps a failure onto the HTTP status and error type returned to the caller.
func errorStatus(err error) (int, constants.ErrorType) {
	var me *llm.ModelError
	if errors.As(err, &me) {
		t := me.ErrorType()
		if t == constants.ErrTimeout {
			return http.StatusGatewayTimeout, t
		}
		return http.StatusBadGateway, t
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, constants.ErrTimeout
	}

	var appErr *common.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, errPayloadTooLarge):
			return http.StatusRequestEntityTooLarge, constants.ErrInvalidInput
		case errors.Is(err, common.ErrForbidden):
			return http.StatusForbidden, constants.ErrAuth
		}
		switch appErr.Code {
		case constants.ErrAuth:
			return http.StatusUnauthorized, appErr.Code
		case constants.ErrInvalidInput:
			return http.StatusBadRequest, appErr.Code
		case constants.ErrLimitExceeded:
			return http.StatusTooManyRequests, appErr.Code
		case constants.ErrTimeout:
			return http.StatusGatewayTimeout, appErr.Code
		case constants.ErrNetwork:
			return http.StatusBadGateway, appErr.Code
		}
		return http.StatusInternalServerError, appErr.Code
	}
	return http.StatusInternalServerError, constants.ErrUnknown
}

// publicMessage is the caller-facing text for err. Internal causes are not exposed.
func publicMessage(err error, status int) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		return appErr.Message
	}
	var me *llm.ModelError
	if errors.As(err, &me) {
		switch me.ErrorType() {
		case constants.ErrTimeout:
			return "the extraction service timed out"
		case constants.ErrConfig:
			return "the extraction service is misconfigured"
		case constants.ErrAuth:
			return "the extraction service rejected our credentials"
		case constants.ErrNetwork:
			return "the extraction service is unavailable"
		}
		return "the extraction service failed"
	}
	if status == http.StatusGatewayTimeout {
		return "request timed out"
	}
	return "internal error"
}
