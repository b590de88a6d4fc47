package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-chat/backend/internal/handler/apierr"
	aiService "github.com/zhouzirui/z-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/z-chat/backend/internal/service/chat"
)

const (
	defaultReadTimeout = 60 * time.Second
	writeTimeout       = 10 * time.Second
)

// Handler WebSocket聊天处理器
type Handler struct {
	aiSvc    *aiService.Service
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader

	// readTimeout bounds the wait for the next client frame; pingInterval
	// stays below it so pongs keep an idle connection alive.
	readTimeout  time.Duration
	pingInterval time.Duration
}

// New 创建WebSocket处理器
func New(aiSvc *aiService.Service, chatSvc *chatService.Service) *Handler {
	return &Handler{
		aiSvc:   aiSvc,
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout:  defaultReadTimeout,
		pingInterval: defaultReadTimeout * 9 / 10,
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// inboundMessage is a client frame. A "message" frame carries its text and
// optional per-turn settings inline; the other kinds put their payload in Data.
type inboundMessage struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"sessionId"`
	Text        string          `json:"text"`
	Model       string          `json:"model"`
	Temperature *float64        `json:"temperature"`
	Data        json.RawMessage `json:"data"`
	Timestamp   int64           `json:"timestamp"`
}

// TextMessage 用户输入
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage 更新连接级的模型与温度设置
type ConfigMessage struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	sessionID string
	params    aiService.Params
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		apierr.Respond(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	go pingLoop(ctx, conn, h.pingInterval)

	state := &connectionState{sessionID: sessionID}
	h.send(conn, sessionID, "connected", nil)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, sessionID, "session mismatch", 0)
			continue
		}

		h.handleMessage(ctx, conn, state, &msg)

		// A completion can block longer than readTimeout while pongs go unread.
		_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "message":
		params := applyConfig(state.params, ConfigMessage{Model: msg.Model, Temperature: msg.Temperature})
		h.runTurn(ctx, conn, state.sessionID, msg.Text, params)
	case "text":
		h.handleText(ctx, conn, state, msg.Data)
	case "config":
		h.handleConfig(conn, state, msg.Data)
	case "clear":
		if err := h.chatSvc.Reset(ctx, state.sessionID); err != nil {
			h.sendError(conn, state.sessionID, err.Error(), 0)
			return
		}
		h.send(conn, state.sessionID, "cleared", nil)
	case "history":
		messages, err := h.chatSvc.LoadTranscript(ctx, state.sessionID)
		if err != nil {
			h.sendError(conn, state.sessionID, err.Error(), 0)
			return
		}
		h.send(conn, state.sessionID, "history", messages)
	default:
		h.sendError(conn, state.sessionID, "unsupported message type: "+msg.Type, 0)
	}
}

func (h *Handler) handleText(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, state.sessionID, "invalid text payload", 0)
		return
	}

	h.runTurn(ctx, conn, state.sessionID, text.Text, state.params)
}

func (h *Handler) runTurn(ctx context.Context, conn *websocket.Conn, sessionID, text string, params aiService.Params) {
	h.send(conn, sessionID, "thinking", nil)

	reply, err := h.aiSvc.Converse(ctx, sessionID, text, params)
	if err != nil {
		body := apierr.NewBody(err)
		h.sendError(conn, sessionID, body.Error, body.UpstreamStatus)
		return
	}
	h.send(conn, sessionID, "message", reply)
}

func (h *Handler) handleConfig(conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, state.sessionID, "invalid config payload", 0)
		return
	}

	next := applyConfig(state.params, cfg)
	modelID, temperature, err := h.aiSvc.ResolveParams(next)
	if err != nil {
		h.sendError(conn, state.sessionID, err.Error(), 0)
		return
	}
	state.params = next

	log.Printf("[websocket] config applied session=%s model=%s temperature=%.2f", state.sessionID, modelID, temperature)
	h.send(conn, state.sessionID, "config", map[string]any{
		"model":       modelID,
		"temperature": temperature,
	})
}

func applyConfig(params aiService.Params, cfg ConfigMessage) aiService.Params {
	if cfg.Model != "" {
		params.Model = cfg.Model
	}
	if cfg.Temperature != nil {
		t := *cfg.Temperature
		params.Temperature = &t
	}
	return params
}

func (h *Handler) send(conn *websocket.Conn, sessionID, kind string, data interface{}) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", kind, err)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, sessionID, message string, upstreamStatus int) {
	data := map[string]any{"message": message}
	if upstreamStatus != 0 {
		data["upstreamStatus"] = upstreamStatus
	}
	h.send(conn, sessionID, "error", data)
}

// pingLoop 定期发送ping消息；WriteControl 可与 WriteJSON 并发调用
func pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
