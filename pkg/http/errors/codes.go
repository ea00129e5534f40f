package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeUnknownFlow      = "unknown_flow"

	// Session errors
	ErrCodeSessionNotFound  = "session_not_found"
	ErrCodeSessionCompleted = "session_completed"
	ErrCodeAnswerRejected   = "answer_rejected"
	ErrCodeNotAnswered      = "not_answered"

	// Upstream completion errors
	ErrCodeUpstreamAuth      = "upstream_auth_failed"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeUpstreamDown      = "upstream_unavailable"
	ErrCodeUpstreamTimeout   = "upstream_timeout"
	ErrCodeUpstreamMalformed = "upstream_malformed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
	ErrCodeUnknownWindow          = "unknown_leaderboard_window"
)
