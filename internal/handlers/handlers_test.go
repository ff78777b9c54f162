package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"gemchat-backend/internal/models"
	"gemchat-backend/internal/services"
)

type stubGenerator struct {
	resp     *genai.GenerateContentResponse
	err      error
	calls    int
	contents []*genai.Content
}

func (s *stubGenerator) GenerateReply(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	s.calls++
	s.contents = contents
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func replyWith(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) models.Envelope {
	t.Helper()
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env models.Envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

func postJSON(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ─── Generate Text ───

func TestGenerateText_Success(t *testing.T) {
	gen := &stubGenerator{resp: replyWith("hi there")}
	h := NewGenerateHandler(gen, zap.NewNop())

	rr := httptest.NewRecorder()
	h.GenerateText(rr, postJSON("/generate-text", `{"prompt":"hello"}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "hi there", env.Data)

	require.Equal(t, 1, gen.calls)
	assert.Equal(t, []*genai.Content{{Role: "user", Parts: []genai.Part{genai.Text("hello")}}}, gen.contents)
}

func TestGenerateText_InvalidPrompt(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing prompt", `{}`},
		{"empty body", ``},
		{"null prompt", `{"prompt":null}`},
		{"numeric prompt", `{"prompt":42}`},
		{"array prompt", `{"prompt":["hi"]}`},
		{"empty prompt", `{"prompt":""}`},
		{"malformed json", `{"prompt":`},
		{"array body", `["hello"]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &stubGenerator{resp: replyWith("unused")}
			h := NewGenerateHandler(gen, zap.NewNop())

			rr := httptest.NewRecorder()
			h.GenerateText(rr, postJSON("/generate-text", tc.body))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			env := decodeEnvelope(t, rr)
			assert.False(t, env.Success)
			assert.Nil(t, env.Data)
			assert.NotEmpty(t, env.Message)
			assert.Zero(t, gen.calls, "upstream must not be called for invalid input")
		})
	}
}

func TestGenerateText_FormPost(t *testing.T) {
	t.Run("urlencoded", func(t *testing.T) {
		gen := &stubGenerator{resp: replyWith("ok")}
		h := NewGenerateHandler(gen, zap.NewNop())

		form := url.Values{"prompt": {"hello"}}
		req := httptest.NewRequest(http.MethodPost, "/generate-text", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := httptest.NewRecorder()
		h.GenerateText(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("multipart", func(t *testing.T) {
		gen := &stubGenerator{resp: replyWith("ok")}
		h := NewGenerateHandler(gen, zap.NewNop())

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("prompt", "hello"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/generate-text", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rr := httptest.NewRecorder()
		h.GenerateText(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []genai.Part{genai.Text("hello")}, gen.contents[0].Parts)
	})

	t.Run("form without prompt", func(t *testing.T) {
		gen := &stubGenerator{resp: replyWith("ok")}
		h := NewGenerateHandler(gen, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/generate-text", strings.NewReader("other=1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := httptest.NewRecorder()
		h.GenerateText(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Zero(t, gen.calls)
	})
}

func TestGenerateText_UpstreamFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"api message relayed", &services.UpstreamError{Err: &googleapi.Error{Code: 429, Message: "Resource has been exhausted"}}, "Resource has been exhausted"},
		{"generic upstream", &services.UpstreamError{Err: errors.New("connection reset")}, services.GenericUpstreamMessage},
		{"unexpected error", errors.New("no contents to send"), services.GenericUpstreamMessage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &stubGenerator{err: tc.err}
			h := NewGenerateHandler(gen, zap.NewNop())

			rr := httptest.NewRecorder()
			h.GenerateText(rr, postJSON("/generate-text", `{"prompt":"hello"}`))

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			env := decodeEnvelope(t, rr)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Message)
			assert.Nil(t, env.Data)
		})
	}
}

// ─── Chat ───

func TestChat_Success(t *testing.T) {
	gen := &stubGenerator{resp: replyWith("  halo juga  ")}
	h := NewChatHandler(gen, zap.NewNop())

	rr := httptest.NewRecorder()
	h.Chat(rr, postJSON("/api/chat", `{"conversation":[
		{"role":"user","text":"hi"},
		{"role":"model","text":"hello"},
		{"role":"user","text":"apa kabar?"}
	]}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "halo juga", env.Data)

	require.Equal(t, 1, gen.calls)
	require.Len(t, gen.contents, 3)
	assert.Equal(t, "user", gen.contents[0].Role)
	assert.Equal(t, "model", gen.contents[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("apa kabar?")}, gen.contents[2].Parts)
}

func TestChat_SingleTurnReshaped(t *testing.T) {
	gen := &stubGenerator{resp: replyWith("hey")}
	h := NewChatHandler(gen, zap.NewNop())

	rr := httptest.NewRecorder()
	h.Chat(rr, postJSON("/api/chat", `{"conversation":[{"role":"user","text":"hi"}]}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []*genai.Content{{Role: "user", Parts: []genai.Part{genai.Text("hi")}}}, gen.contents)
}

func TestChat_EmptyExtractionIsSuccess(t *testing.T) {
	gen := &stubGenerator{resp: &genai.GenerateContentResponse{}}
	h := NewChatHandler(gen, zap.NewNop())

	rr := httptest.NewRecorder()
	h.Chat(rr, postJSON("/api/chat", `{"conversation":[{"role":"user","text":"hi"}]}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "", env.Data)
}

func TestChat_InvalidConversation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing field", `{}`, "conversation must be an array"},
		{"not an array", `{"conversation":"hi"}`, "conversation must be an array"},
		{"empty", `{"conversation":[]}`, "conversation must not be empty"},
		{"admin role", `{"conversation":[{"role":"admin","text":"hi"}]}`, "conversation messages must be valid"},
		{"extra field", `{"conversation":[{"role":"user","text":"hi","id":1}]}`, "conversation messages must be valid"},
		{"null element", `{"conversation":[null]}`, "conversation messages must be valid"},
		{"malformed json", `{"conversation":[`, invalidBodyMsg},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &stubGenerator{resp: replyWith("unused")}
			h := NewChatHandler(gen, zap.NewNop())

			rr := httptest.NewRecorder()
			h.Chat(rr, postJSON("/api/chat", tc.body))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			env := decodeEnvelope(t, rr)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Message)
			assert.Nil(t, env.Data)
			assert.Zero(t, gen.calls, "upstream must not be called for invalid input")
		})
	}
}

func TestChat_UpstreamFailure(t *testing.T) {
	gen := &stubGenerator{err: &services.UpstreamError{Err: context.DeadlineExceeded}}
	h := NewChatHandler(gen, zap.NewNop())

	rr := httptest.NewRecorder()
	h.Chat(rr, postJSON("/api/chat", `{"conversation":[{"role":"user","text":"hi"}]}`))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.False(t, env.Success)
	assert.Equal(t, "The model took too long to respond, please try again.", env.Message)
}

func TestChat_BlockedReplyIsEmptySuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer upstream.Close()

	gemini, err := services.NewGeminiService("test-key", "gemini-2.5-flash", "reply in Indonesian", 1, 5*time.Second,
		zap.NewNop(), option.WithEndpoint(upstream.URL))
	require.NoError(t, err)
	defer gemini.Close()

	h := NewChatHandler(gemini, zap.NewNop())

	rr := httptest.NewRecorder()
	h.Chat(rr, postJSON("/api/chat", `{"conversation":[{"role":"user","text":"hi"},{"role":"model","text":"hello"}]}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "", env.Data)
}
