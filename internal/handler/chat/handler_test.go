package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/skillup-labs/skillup/backend/internal/identity"
	convomodel "github.com/skillup-labs/skillup/backend/internal/model/convo"
	convoservice "github.com/skillup-labs/skillup/backend/internal/service/convo"
	"github.com/skillup-labs/skillup/backend/internal/service/reply"
	"github.com/skillup-labs/skillup/backend/internal/store"
)

type stubReplier struct {
	reply string
	err   error
}

func (r *stubReplier) Generate(context.Context, []convomodel.Turn) (convomodel.Turn, error) {
	if r.err != nil {
		return convomodel.Turn{}, r.err
	}
	return convomodel.Turn{Role: convomodel.RoleAssistant, Content: r.reply}, nil
}

func setupRouter(replier convoservice.Replier, resolver identity.Resolver) (*chi.Mux, *convoservice.Service) {
	convoSvc := convoservice.NewService(store.NewMemory(), replier, resolver, zerolog.Nop())
	handler := New(convoSvc, zerolog.Nop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, convoSvc
}

func authedResolver() identity.Resolver {
	return identity.StaticResolver{User: identity.User{ID: "user-1"}}
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter(&stubReplier{reply: "hi"}, authedResolver())

	resp := postJSON(r, "/chat/session", nil)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var body struct {
		Session convomodel.Session `json:"session"`
		Turns   []convomodel.Turn  `json:"turns"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Session.ID == "" {
		t.Fatal("missing session id")
	}
	if len(body.Turns) != 1 || body.Turns[0].Role != convomodel.RoleAssistant {
		t.Fatalf("expected greeting turn, got %+v", body.Turns)
	}
}

func TestGetTurns(t *testing.T) {
	r, svc := setupRouter(&stubReplier{reply: "hi"}, authedResolver())
	session, _ := svc.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/chat/"+session.ID+"/turns", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestGetTurnsUnknownSession(t *testing.T) {
	r, _ := setupRouter(&stubReplier{reply: "hi"}, authedResolver())

	req := httptest.NewRequest(http.MethodGet, "/chat/missing/turns", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessage(t *testing.T) {
	r, svc := setupRouter(&stubReplier{reply: "we offer three courses"}, authedResolver())
	session, _ := svc.CreateSession(context.Background())

	resp := postJSON(r, "/chat/"+session.ID+"/message", map[string]string{"content": "what courses?"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		User      convomodel.Turn `json:"user"`
		Assistant convomodel.Turn `json:"assistant"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.User.Content != "what courses?" {
		t.Fatalf("unexpected user turn: %+v", body.User)
	}
	if body.Assistant.Content != "we offer three courses" {
		t.Fatalf("unexpected assistant turn: %+v", body.Assistant)
	}
}

func TestSendMessageEmpty(t *testing.T) {
	r, svc := setupRouter(&stubReplier{reply: "hi"}, authedResolver())
	session, _ := svc.CreateSession(context.Background())

	resp := postJSON(r, "/chat/"+session.ID+"/message", map[string]string{"content": "   "})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	r, _ := setupRouter(&stubReplier{reply: "hi"}, authedResolver())

	resp := postJSON(r, "/chat/missing/message", map[string]string{"content": "hello"})

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessageUnauthenticated(t *testing.T) {
	r, svc := setupRouter(&stubReplier{reply: "hi"}, identity.StaticResolver{})
	session, _ := svc.CreateSession(context.Background())

	resp := postJSON(r, "/chat/"+session.ID+"/message", map[string]string{"content": "hello"})

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestSendMessageQuotaExceeded(t *testing.T) {
	r, svc := setupRouter(&stubReplier{err: reply.ErrQuotaExceeded}, authedResolver())
	session, _ := svc.CreateSession(context.Background())

	resp := postJSON(r, "/chat/"+session.ID+"/message", map[string]string{"content": "hello"})

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
}
