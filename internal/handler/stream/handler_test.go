package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-chat/backend/internal/model/catalog"
	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
	aiservice "github.com/zhouzirui/z-chat/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-chat/backend/internal/service/chat"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, []chat.Message, string, float64) (string, error) {
	return s.reply, s.err
}

func setup(completer aiservice.Completer) (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService("")
	chatModel := aiservice.NewChatModel(completer, catalog.DefaultModelID, 0.7)
	aiSvc := aiservice.NewService(chatModel, catalog.NewMemoryStore(catalog.Seed()), chatSvc, 0.7)

	r := chi.NewRouter()
	New(aiSvc, chatSvc).RegisterRoutes(r)
	return r, chatSvc
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func streamPath(sessionID string, params url.Values) string {
	return "/stream/" + sessionID + "?" + params.Encode()
}

func TestStreamSuccessEvents(t *testing.T) {
	r, chatSvc := setup(stubCompleter{reply: "Hi there!"})
	session, _ := chatSvc.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, streamPath(session.ID, url.Values{
		"message":     {"Hello"},
		"temperature": {"0.7"},
	}), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	events := readEvents(t, resp.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}
	if events[0].Event != "start" || events[1].Event != "message" || events[2].Event != "end" {
		t.Fatalf("unexpected event order %+v", events)
	}
	if events[1].Content != "Hi there!" || events[1].Role != "assistant" {
		t.Fatalf("unexpected message event %+v", events[1])
	}

	history, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
	if len(history) != 2 {
		t.Fatalf("expected user and assistant turns, got %+v", history)
	}
}

func TestStreamErrorEvent(t *testing.T) {
	r, chatSvc := setup(stubCompleter{err: &aiservice.StatusError{StatusCode: 401, Body: "invalid key"}})
	session, _ := chatSvc.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, streamPath(session.ID, url.Values{"message": {"Hello"}}), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	events := readEvents(t, resp.Body.String())
	if len(events) != 3 || events[1].Event != "error" {
		t.Fatalf("expected start/error/end, got %+v", events)
	}
	if events[1].UpstreamStatus != 401 || !strings.Contains(events[1].Error, "401") {
		t.Fatalf("error event lacks status detail: %+v", events[1])
	}

	history, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
	if len(history) != 1 || history[0].Role != chat.RoleUser {
		t.Fatalf("expected only the user turn, got %+v", history)
	}
}

func TestStreamRejectsBadRequests(t *testing.T) {
	r, chatSvc := setup(stubCompleter{reply: "x"})
	session, _ := chatSvc.CreateSession(context.Background())

	cases := []struct {
		path string
		want int
	}{
		{streamPath(session.ID, url.Values{}), http.StatusBadRequest},
		{streamPath(session.ID, url.Values{"message": {"hi"}, "temperature": {"hot"}}), http.StatusBadRequest},
		{streamPath(session.ID, url.Values{"message": {"hi"}, "temperature": {"2"}}), http.StatusBadRequest},
		{streamPath(session.ID, url.Values{"message": {"hi"}, "model": {"x/y"}}), http.StatusBadRequest},
		{streamPath("missing", url.Values{"message": {"hi"}}), http.StatusNotFound},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.want, resp.Code)
		}
	}
}
