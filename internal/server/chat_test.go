package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/practisage/medassist/config"
	"github.com/practisage/medassist/internal/chat"
)

type stubCompleter struct {
	chunks []chat.ChatCompletionChunk
	resp   *chat.ChatCompletionResponse
}

func (s *stubCompleter) Complete(ctx context.Context, req chat.ChatCompletionRequest) (*chat.ChatCompletionResponse, error) {
	return s.resp, nil
}

func (s *stubCompleter) Stream(ctx context.Context, req chat.ChatCompletionRequest) (<-chan chat.ChatCompletionChunk, <-chan error) {
	out := make(chan chat.ChatCompletionChunk)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		for _, c := range s.chunks {
			out <- c
		}
	}()
	return out, errCh
}

func testChunk(content, role, finish string) chat.ChatCompletionChunk {
	return chat.ChatCompletionChunk{
		ID:     "chunk-id",
		Object: "chat.completion.chunk",
		Model:  "agent",
		Choices: []chat.ChunkChoice{{
			Delta:        chat.ChunkDelta{Role: role, Content: content},
			FinishReason: finish,
		}},
	}
}

func newTestServer(h *ChatHandler) *echo.Echo {
	e := newEcho(&config.Config{})
	h.Register(e.Group("/v1"))
	return e
}

func TestCompletions_StreamWireFormat(t *testing.T) {
	h := &ChatHandler{Service: &stubCompleter{chunks: []chat.ChatCompletionChunk{
		testChunk("Check ", "assistant", ""),
		testChunk("the ", "", ""),
		testChunk("schedule.", "", ""),
		testChunk("", "", "stop"),
	}}}
	e := newTestServer(h)

	body := `{"model":"agent","messages":[{"role":"user","content":"hi"}],"stream":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}

	var events []string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "data: ") {
			events = append(events, strings.TrimPrefix(line, "data: "))
		}
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 data events, got %d: %v", len(events), events)
	}
	if events[4] != "[DONE]" {
		t.Fatalf("expected [DONE] sentinel last, got %q", events[4])
	}
	var first chat.ChatCompletionChunk
	if err := json.Unmarshal([]byte(events[0]), &first); err != nil {
		t.Fatalf("first event is not a chunk: %v", err)
	}
	if first.Choices[0].Delta.Role != "assistant" {
		t.Fatalf("expected role on first chunk, got %q", first.Choices[0].Delta.Role)
	}
	var last chat.ChatCompletionChunk
	if err := json.Unmarshal([]byte(events[3]), &last); err != nil {
		t.Fatalf("terminal event is not a chunk: %v", err)
	}
	if last.Choices[0].FinishReason != "stop" {
		t.Fatalf("expected finish_reason stop on terminal chunk, got %q", last.Choices[0].FinishReason)
	}
}

func TestCompletions_NonStreaming(t *testing.T) {
	h := &ChatHandler{Service: &stubCompleter{resp: &chat.ChatCompletionResponse{
		ID:     "resp-id",
		Object: "chat.completion",
		Model:  "agent",
		Choices: []chat.ChatCompletionChoice{{
			Message:      chat.ChatMessage{Role: "assistant", Content: "hello"},
			FinishReason: "stop",
		}},
	}}}
	e := newTestServer(h)

	body := `{"model":"agent","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp chat.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Choices[0].Message.Content != "hello" {
		t.Fatalf("unexpected content: %q", resp.Choices[0].Message.Content)
	}
}

func TestCompletions_EmptyMessagesRejected(t *testing.T) {
	e := newTestServer(&ChatHandler{Service: &stubCompleter{}})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"agent","messages":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestModels_ListAndGet(t *testing.T) {
	e := newTestServer(&ChatHandler{Service: &stubCompleter{}})

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list ModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 1 || list.Data[0].ID != "agent" {
		t.Fatalf("unexpected model list: %+v", list)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/models/agent", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/models/gpt-99", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWithAPIKey(t *testing.T) {
	e := newEcho(&config.Config{})
	g := e.Group("/v1")
	g.Use(withAPIKey("secret-key"))
	g.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with right key, got %d", rec.Code)
	}
}

func TestWithAuth_JWT(t *testing.T) {
	secret := []byte("test-secret")
	e := newEcho(&config.Config{})
	e.GET("/me", withAuth(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"user_id": c.Get("user_id").(string)})
	}, secret))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	tok, err := SignJWT("user-42", secret, time.Hour)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "user-42") {
		t.Fatalf("expected subject in response, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}
