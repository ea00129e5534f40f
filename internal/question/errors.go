package question

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation failed")

// Validation error codes.
const (
	CodeEmptyTopic        = "empty_topic"
	CodeTopicTooLong      = "topic_too_long"
	CodeDisallowedContent = "disallowed_content"
	CodeInvalidDifficulty = "invalid_difficulty"
	CodeInvalidCount      = "invalid_count"
)

// ValidationError describes a rejected generation input.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FailureKind classifies a failed completion call.
type FailureKind string

const (
	FailureAuth        FailureKind = "auth"
	FailureRateLimited FailureKind = "rate_limited"
	FailureUnavailable FailureKind = "service_unavailable"
	FailureNetwork     FailureKind = "network"
	FailureMalformed   FailureKind = "malformed_upstream"
)

// Sentinels for errors.Is against a *CompletionError.
var (
	ErrAuth        = errors.New("completion service rejected credentials")
	ErrRateLimited = errors.New("completion service rate limited")
	ErrUnavailable = errors.New("completion service unavailable")
	ErrNetwork     = errors.New("completion service unreachable")
	ErrMalformed   = errors.New("completion service returned malformed response")
)

var sentinelByKind = map[FailureKind]error{
	FailureAuth:        ErrAuth,
	FailureRateLimited: ErrRateLimited,
	FailureUnavailable: ErrUnavailable,
	FailureNetwork:     ErrNetwork,
	FailureMalformed:   ErrMalformed,
}

// CompletionError is returned by a Completer and surfaced unchanged by Service.
type CompletionError struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *CompletionError) Error() string {
	msg := string(e.Kind)
	if sentinel, ok := sentinelByKind[e.Kind]; ok {
		msg = sentinel.Error()
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Is(target error) bool {
	return sentinelByKind[e.Kind] == target
}

// Category collapses the kind into the user-facing buckets:
// auth, rate_limited, network or unknown.
func (e *CompletionError) Category() string {
	switch e.Kind {
	case FailureAuth:
		return "auth"
	case FailureRateLimited:
		return "rate_limited"
	case FailureNetwork, FailureUnavailable:
		return "network"
	default:
		return "unknown"
	}
}

// NewCompletionError builds a *CompletionError of the given kind.
func NewCompletionError(kind FailureKind, status int, err error) *CompletionError {
	return &CompletionError{Kind: kind, StatusCode: status, Err: err}
}
