package verify

import "fmt"

const (
	ErrorCodeStatusMismatch   = "verify.status_mismatch"
	ErrorCodeRedirectMismatch = "verify.redirect_mismatch"
	ErrorCodeBodyMismatch     = "verify.body_mismatch"
	ErrorCodeRequestFailed    = "verify.request_failed"
	ErrorCodeOutputMissing    = "verify.output_missing"
)

// CheckError is a verification failure with a stable error code.
type CheckError struct {
	Code    string
	Message string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func checkErrorf(code, format string, args ...any) *CheckError {
	return &CheckError{Code: code, Message: fmt.Sprintf(format, args...)}
}
