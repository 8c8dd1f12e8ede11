package scan

import "errors"

// Code classifies a scan failure so callers can branch on the cause
// without string matching.
type Code string

const (
	CodeAuthRequired      Code = "AUTH_REQUIRED"
	CodeFileRead          Code = "FILE_READ_ERROR"
	CodeUpload            Code = "UPLOAD_ERROR"
	CodeSessionExpired    Code = "SESSION_EXPIRED"
	CodeFunction          Code = "FUNCTION_ERROR"
	CodeEmptyResponse     Code = "EMPTY_RESPONSE"
	CodeSearch            Code = "SEARCH_ERROR"
	CodeScanInProgress    Code = "SCAN_IN_PROGRESS"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
)

// Error is the typed failure surfaced by the scan pipeline.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a typed scan error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// IsCode reports whether err is a scan error with the given code.
func IsCode(err error, code Code) bool {
	var scanErr *Error
	if errors.As(err, &scanErr) {
		return scanErr.Code == code
	}
	return false
}
