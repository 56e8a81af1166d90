// Package chat tracks a client-side conversation: the ordered message history
// and the in-flight flag the UI renders. History is never persisted.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is one conversation entry.
type Message struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// bridgeResponse is the body shape of the REST bridge.
type bridgeResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Session is the chat state holder. At most one request is in flight at a
// time; SendMessage calls while busy are ignored.
type Session struct {
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Logger

	mu       sync.Mutex
	history  []Message
	inFlight bool
}

// NewSession targets the given bridge endpoint (e.g.
// "http://localhost:8080/api/agent"). A nil client falls back to
// http.DefaultClient.
func NewSession(endpoint string, httpClient *http.Client, logger *logrus.Logger) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Session{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
	}
}

// SendMessage appends the user message, forwards it to the bridge, and
// appends the agent's reply. Blank input and calls while a request is in
// flight are ignored. On failure the user entry stays but no agent reply is
// appended; the error is returned for display. The in-flight flag is cleared
// unconditionally.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil
	}
	s.inFlight = true
	s.history = append(s.history, Message{Text: text, Sender: SenderUser})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	reply, err := s.post(ctx, text)
	if err != nil {
		s.logger.Warnf("Message delivery failed: %v", err)
		return err
	}

	s.mu.Lock()
	s.history = append(s.history, Message{Text: reply, Sender: SenderAgent})
	s.mu.Unlock()

	return nil
}

func (s *Session) post(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"userMessage": text})
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: send request: %w", err)
	}
	defer resp.Body.Close()

	var body bridgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}

	// Callers branch on body shape, not HTTP status.
	if body.Error != "" {
		return "", fmt.Errorf("chat: agent error: %s", body.Error)
	}
	if body.Response == "" {
		return "", fmt.Errorf("chat: empty response from agent")
	}

	return body.Response, nil
}

// History returns a copy of the conversation in arrival order.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// InFlight reports whether a request is currently outstanding.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
