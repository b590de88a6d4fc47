// Package apierr maps service errors onto HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
	aiService "github.com/zhouzirui/z-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/z-chat/backend/internal/service/chat"
	"github.com/zhouzirui/z-chat/backend/pkg/utils"
)

// Status picks the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, aiService.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, aiService.ErrEmptyInput),
		errors.Is(err, aiService.ErrUnknownModel),
		errors.Is(err, aiService.ErrInvalidTemperature),
		errors.Is(err, chat.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, aiService.ErrCompletionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error payload. UpstreamStatus is set when the completion
// endpoint answered with a non-2xx status.
type Body struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

// NewBody builds the payload for err.
func NewBody(err error) Body {
	body := Body{Error: err.Error()}
	var statusErr *aiService.StatusError
	if errors.As(err, &statusErr) {
		body.UpstreamStatus = statusErr.StatusCode
	}
	return body
}

// Respond writes err as JSON with the matching status.
func Respond(w http.ResponseWriter, err error) {
	utils.RespondJSON(w, Status(err), NewBody(err))
}
