package server

import (
	"errors"
	"net/http"

	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/session"
	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
)

// classifyError maps a domain error to an HTTP status and error code.
func classifyError(err error) (int, string) {
	var verr *question.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, httperrors.ErrCodeValidationFailed
	}

	var cerr *question.CompletionError
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case question.FailureAuth:
			return http.StatusBadGateway, httperrors.ErrCodeUpstreamAuth
		case question.FailureRateLimited:
			return http.StatusTooManyRequests, httperrors.ErrCodeRateLimited
		case question.FailureUnavailable:
			return http.StatusServiceUnavailable, httperrors.ErrCodeUpstreamDown
		case question.FailureNetwork:
			return http.StatusGatewayTimeout, httperrors.ErrCodeUpstreamTimeout
		default:
			return http.StatusBadGateway, httperrors.ErrCodeUpstreamMalformed
		}
	}

	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, httperrors.ErrCodeSessionNotFound
	case errors.Is(err, session.ErrCompleted):
		return http.StatusConflict, httperrors.ErrCodeSessionCompleted
	case errors.Is(err, session.ErrIdentityRequired):
		return http.StatusUnauthorized, httperrors.ErrCodeAuthenticationRequired
	case errors.Is(err, session.ErrUnknownFlow):
		return http.StatusBadRequest, httperrors.ErrCodeUnknownFlow
	}
	return http.StatusInternalServerError, httperrors.ErrCodeInternalError
}

// respondDomainError writes the standard response for a domain error.
// Internal errors get a generic message.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)

	var verr *question.ValidationError
	if errors.As(err, &verr) {
		httperrors.RespondJSON(w, status, httperrors.ErrorResponse{
			Error:   code,
			Message: verr.Message,
			Field:   verr.Field,
			Details: map[string]any{"reason": verr.Code},
		})
		return
	}

	message := err.Error()
	var cerr *question.CompletionError
	if errors.As(err, &cerr) {
		httperrors.RespondErrorWithDetails(w, status, code, "question generation failed", map[string]any{
			"category": cerr.Category(),
		})
		return
	}
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	httperrors.RespondError(w, status, code, message)
}
