package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrTimeout         = fmt.Errorf("operation timed out")
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrProviderError   = fmt.Errorf("provider error")
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrToolNotFound    = fmt.Errorf("tool not found")
	ErrPlayerNotFound  = fmt.Errorf("player not found")
	ErrTeamNotFound    = fmt.Errorf("team not found")
	ErrRunFinished     = fmt.Errorf("task run already finished")
)

// CommunicationError is a protocol-level failure from a gateway: backend
// unreachable, malformed response, or a non-success status. StatusCode is
// the backend HTTP status, or 0 when the request never completed
// (connection failure, timeout).
type CommunicationError struct {
	Message    string
	StatusCode int
	Err        error // underlying sentinel, if classified
}

func (e *CommunicationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("communication error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("communication error: %s", e.Message)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// NewCommunicationError creates a CommunicationError classified by status code.
func NewCommunicationError(statusCode int, message string) *CommunicationError {
	return &CommunicationError{
		Message:    message,
		StatusCode: statusCode,
		Err:        sentinelForStatus(statusCode),
	}
}

// sentinelForStatus maps an HTTP status to a category sentinel so that
// errors.Is works across the gateway boundary.
func sentinelForStatus(statusCode int) error {
	switch {
	case statusCode == 429:
		return ErrRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrAuthInvalid
	case statusCode >= 500:
		return ErrProviderError
	case statusCode == 0:
		return ErrTimeout
	default:
		return nil
	}
}

// IsCommunicationError reports whether err is (or wraps) a CommunicationError.
func IsCommunicationError(err error) bool {
	var ce *CommunicationError
	return errors.As(err, &ce)
}

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g. "SessionManager.Load")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error. Returns nil if err is nil,
// enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeRateLimit       ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid     ErrorCode = "AUTH_INVALID"
	CodeProviderError   ErrorCode = "PROVIDER_ERROR"
	CodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	CodeToolNotFound    ErrorCode = "TOOL_NOT_FOUND"
	CodePlayerNotFound  ErrorCode = "PLAYER_NOT_FOUND"
	CodeTeamNotFound    ErrorCode = "TEAM_NOT_FOUND"
	CodeRunFinished     ErrorCode = "RUN_FINISHED"
	CodeCommunication   ErrorCode = "COMMUNICATION"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:        CodeNotFound,
	ErrInvalidInput:    CodeInvalidInput,
	ErrTimeout:         CodeTimeout,
	ErrRateLimit:       CodeRateLimit,
	ErrAuthInvalid:     CodeAuthInvalid,
	ErrProviderError:   CodeProviderError,
	ErrSessionNotFound: CodeSessionNotFound,
	ErrToolNotFound:    CodeToolNotFound,
	ErrPlayerNotFound:  CodePlayerNotFound,
	ErrTeamNotFound:    CodeTeamNotFound,
	ErrRunFinished:     CodeRunFinished,
}

// ErrorCodeOf returns the machine-parseable code for the given error.
// CommunicationErrors resolve to their classified sentinel's code when one
// exists, otherwise CodeCommunication.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	if IsCommunicationError(err) {
		return CodeCommunication
	}

	return CodeUnknown
}
