package stream

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-chat/backend/internal/handler/apierr"
	aiService "github.com/zhouzirui/z-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/z-chat/backend/internal/service/chat"
	"github.com/zhouzirui/z-chat/backend/pkg/utils"
)

// Handler runs a conversation turn and reports its progress via Server-Sent Events.
type Handler struct {
	aiService *aiService.Service
	chatSvc   *chatService.Service
}

// New creates a new stream handler
func New(aiSvc *aiService.Service, chatSvc *chatService.Service) *Handler {
	return &Handler{
		aiService: aiSvc,
		chatSvc:   chatSvc,
	}
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// StreamResponse represents one SSE event payload
type StreamResponse struct {
	Event          string `json:"event"`
	Role           string `json:"role,omitempty"`
	Content        string `json:"content,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	Finished       bool   `json:"finished,omitempty"`
	Error          string `json:"error,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	query := r.URL.Query()

	if h.aiService == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
		return
	}

	userMessage := query.Get("message")
	if strings.TrimSpace(userMessage) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	params := aiService.Params{Model: query.Get("model")}
	if raw := query.Get("temperature"); raw != "" {
		temperature, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid temperature query parameter")
			return
		}
		params.Temperature = &temperature
	}
	if _, _, err := h.aiService.ResolveParams(params); err != nil {
		apierr.Respond(w, err)
		return
	}

	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		apierr.Respond(w, err)
		return
	}

	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The start event doubles as the in-progress indicator while the
	// completion call blocks.
	sse.Send("start", StreamResponse{Event: "start", SessionID: sessionID})

	reply, err := h.aiService.Converse(ctx, sessionID, userMessage, params)
	if err != nil {
		log.Printf("[stream] turn failed for session=%s: %v", sessionID, err)
		body := apierr.NewBody(err)
		sse.Send("error", StreamResponse{
			Event:          "error",
			SessionID:      sessionID,
			Error:          body.Error,
			UpstreamStatus: body.UpstreamStatus,
		})
	} else {
		sse.Send("message", StreamResponse{
			Event:     "message",
			SessionID: sessionID,
			Role:      string(reply.Role),
			Content:   reply.Content,
		})
	}

	sse.Send("end", StreamResponse{Event: "end", SessionID: sessionID, Finished: true})
	log.Printf("[stream] completed turn for session=%s", sessionID)
}
