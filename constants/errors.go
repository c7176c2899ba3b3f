package constants

// ErrorType is the externally visible failure taxonomy.
type ErrorType string

const (
	ErrAuth             ErrorType = "auth"
	ErrConfig           ErrorType = "config"
	ErrInvalidInput     ErrorType = "invalid_input"
	ErrLimitExceeded    ErrorType = "limit_exceeded"
	ErrNetwork          ErrorType = "network"
	ErrTimeout          ErrorType = "timeout"
	ErrParse            ErrorType = "parse_error"
	ErrOCRFailed        ErrorType = "ocr_failed"
	ErrNoShifts         ErrorType = "no_shifts"
	ErrExtractionFailed ErrorType = "extraction_failed"
	ErrUnknown          ErrorType = "unknown"
)
