package domain

// Stable machine-readable error kinds surfaced to API callers alongside a
// human-readable message. Callers key retry decisions off the kind: only
// internal_error is retryable.
const (
	KindValidation = "validation_error"
	KindConflict   = "conflict_error"
	KindNotFound   = "not_found"
	KindAuth       = "auth_error"
	KindInternal   = "internal_error"
)

// Error is a domain error carrying a stable kind and a caller-facing message.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// ValidationError reports malformed or missing input.
func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// ConflictError reports a uniqueness or state conflict.
func ConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NotFoundError reports an unknown account or request id.
func NotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// AuthError reports a credential mismatch.
func AuthError(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}
