package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// fakeBridge answers POST /api/agent the way the server does.
func fakeBridge(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func respondWith(t *testing.T, w http.ResponseWriter, status int, payload map[string]string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func TestSendMessage_AppendsBothEntries(t *testing.T) {
	server := fakeBridge(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is my wallet address?", req["userMessage"])
		respondWith(t, w, http.StatusOK, map[string]string{"response": "Your address is 0x1111."})
	})

	session := NewSession(server.URL, nil, testLogger())

	err := session.SendMessage(context.Background(), "What is my wallet address?")
	require.NoError(t, err)

	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, Message{Text: "What is my wallet address?", Sender: SenderUser}, history[0])
	assert.Equal(t, Message{Text: "Your address is 0x1111.", Sender: SenderAgent}, history[1])
	assert.False(t, session.InFlight())
}

func TestSendMessage_UserEntryVisibleBeforeReply(t *testing.T) {
	release := make(chan struct{})
	server := fakeBridge(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		respondWith(t, w, http.StatusOK, map[string]string{"response": "done"})
	})

	session := NewSession(server.URL, nil, testLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, session.SendMessage(context.Background(), "slow question"))
	}()

	// The user entry must land in the history while the request is still
	// outstanding.
	require.Eventually(t, func() bool {
		history := session.History()
		return len(history) == 1 && history[0].Sender == SenderUser
	}, time.Second, 5*time.Millisecond)
	assert.True(t, session.InFlight())

	close(release)
	wg.Wait()

	assert.Len(t, session.History(), 2)
	assert.False(t, session.InFlight())
}

func TestSendMessage_IgnoresBlankInput(t *testing.T) {
	session := NewSession("http://unused.invalid", nil, testLogger())

	require.NoError(t, session.SendMessage(context.Background(), ""))
	require.NoError(t, session.SendMessage(context.Background(), "   \n\t"))

	assert.Empty(t, session.History())
}

func TestSendMessage_IgnoresWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	var requests int
	var mu sync.Mutex

	server := fakeBridge(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		<-release
		respondWith(t, w, http.StatusOK, map[string]string{"response": "done"})
	})

	session := NewSession(server.URL, nil, testLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, session.SendMessage(context.Background(), "first"))
	}()

	require.Eventually(t, session.InFlight, time.Second, 5*time.Millisecond)

	// Second send while busy is dropped without error.
	require.NoError(t, session.SendMessage(context.Background(), "second"))

	close(release)
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 1, requests)
	mu.Unlock()

	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Text)
}

func TestSendMessage_ErrorBodyShape(t *testing.T) {
	server := fakeBridge(t, func(w http.ResponseWriter, r *http.Request) {
		// Status is 200 but the body carries an error. Callers branch on shape.
		respondWith(t, w, http.StatusOK, map[string]string{"error": "failed to process message"})
	})

	session := NewSession(server.URL, nil, testLogger())

	err := session.SendMessage(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process message")

	history := session.History()
	require.Len(t, history, 1, "only the user entry should remain")
	assert.Equal(t, SenderUser, history[0].Sender)
	assert.False(t, session.InFlight())
}

func TestSendMessage_NetworkFailure(t *testing.T) {
	server := fakeBridge(t, func(w http.ResponseWriter, r *http.Request) {})
	endpoint := server.URL
	server.Close()

	session := NewSession(endpoint, nil, testLogger())

	err := session.SendMessage(context.Background(), "hi")
	require.Error(t, err)
	assert.Len(t, session.History(), 1)
	assert.False(t, session.InFlight(), "flag must clear even on failure")
}
