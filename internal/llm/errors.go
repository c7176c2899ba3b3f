package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/roster-scan/constants"
)

// ModelError is the typed failure of a model call. Status 0 means the request never got an
// HTTP answer (transport failure or deadline).
type ModelError struct {
	Status  int
	Model   string
	Message string
	Details string
	Timeout bool
}

func (e *ModelError) Error() string {
	var b strings.Builder
	b.WriteString("model")
	if e.Model != "" {
		b.WriteString(" " + e.Model)
	}
	if e.Timeout {
		b.WriteString(": timeout")
	} else if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// IsNotFound reports whether the provider rejected the model identifier itself.
func (e *ModelError) IsNotFound() bool {
	if e.Status == http.StatusNotFound {
		return true
	}
	if e.Status != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "model") && (strings.Contains(msg, "not found") || strings.Contains(msg, "not supported") || strings.Contains(msg, "does not exist"))
}

// ErrorType maps the failure onto the public taxonomy.
func (e *ModelError) ErrorType() constants.ErrorType {
	switch {
	case e.Timeout:
		return constants.ErrTimeout
	case e.IsNotFound():
		return constants.ErrConfig
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return constants.ErrAuth
	case e.Status >= 500, e.Status == 0:
		return constants.ErrNetwork
	default:
		return constants.ErrUnknown
	}
}

// AsModelError normalizes any backend failure into a *ModelError for model.
func AsModelError(err error, model string) *ModelError {
	if err == nil {
		return nil
	}
	var me *ModelError
	if errors.As(err, &me) {
		if me.Model == "" {
			me.Model = model
		}
		return me
	}
	out := &ModelError{Model: model, Message: err.Error()}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		out.Timeout = true
	}
	return out
}
