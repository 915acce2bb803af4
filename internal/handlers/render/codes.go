package render

// Machine-readable error codes clients are expected to switch on
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeSubmissionFailed    = "SUBMISSION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeInternalError       = "INTERNAL_ERROR"
)
