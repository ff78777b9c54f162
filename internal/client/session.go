// Package client talks to the chat endpoint on behalf of a single user. A
// Session holds the transcript in memory and replays all of it on every
// Send, mirroring the browser widget.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"gemchat-backend/internal/models"
)

const DefaultTimeout = 20 * time.Second

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already being sent")
	ErrTimeout      = errors.New("timed out waiting for the server")
	ErrNoResponse   = errors.New("no response received")
)

// HTTPError is returned for non-2xx answers.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string { return e.Message }

type Option func(*Session)

func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.httpClient = c }
}

type Session struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration

	mu           sync.Mutex
	inFlight     bool
	conversation models.Conversation
}

// NewSession returns a session posting to baseURL + "/api/chat".
func NewSession(baseURL string, opts ...Option) *Session {
	s := &Session{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/chat",
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conversation returns a copy of the transcript.
func (s *Session) Conversation() models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(models.Conversation(nil), s.conversation...)
}

// Send appends a user turn, posts the whole transcript and, when the server
// answers with text, appends the model turn. Only one Send may be
// outstanding; overlapping calls fail with ErrBusy.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.inFlight = true
	s.conversation = append(s.conversation, models.Turn{Role: models.RoleUser, Text: text})
	payload := append(models.Conversation(nil), s.conversation...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.post(ctx, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrNoResponse
	}

	s.mu.Lock()
	s.conversation = append(s.conversation, models.Turn{Role: models.RoleModel, Text: reply})
	s.mu.Unlock()

	return reply, nil
}

func (s *Session) post(ctx context.Context, conv models.Conversation) (string, error) {
	body, err := json.Marshal(map[string]any{"conversation": conv})
	if err != nil {
		return "", fmt.Errorf("encode conversation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var env models.Envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(env.Message)
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("request failed with status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return "", &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}

	text, _ := env.Data.(string)
	return text, nil
}
