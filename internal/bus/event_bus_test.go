package bus

import (
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

func collect(events *[]Event, mu *sync.Mutex) EventHandler {
	return func(event Event) {
		mu.Lock()
		*events = append(*events, event)
		mu.Unlock()
	}
}

func TestEventBus_PublishAndSubscribe(t *testing.T) {
	eb := NewEventBus(testLogger())
	defer eb.Stop()

	var mu sync.Mutex
	var received []Event
	eb.Subscribe(EventToolCall, collect(&received, &mu))

	eb.PublishToolCall("turn-1", "get_wallet_balance", 120, false)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventToolCall, received[0].Type)
	assert.Equal(t, "turn-1", received[0].Payload["turnId"])
	assert.Equal(t, "get_wallet_balance", received[0].Payload["tool"])
	assert.Equal(t, false, received[0].Payload["failed"])
}

func TestEventBus_SubscribeAll(t *testing.T) {
	eb := NewEventBus(testLogger())
	defer eb.Stop()

	var mu sync.Mutex
	var received []Event
	eb.SubscribeAll(collect(&received, &mu))

	eb.PublishAgentTurn("turn-1", 2)
	eb.PublishAgentError("turn-2", "boom")
	eb.PublishAsync(EventLog, map[string]interface{}{"message": "hello"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestEventBus_UnsubscribedTypeIsIgnored(t *testing.T) {
	eb := NewEventBus(testLogger())
	defer eb.Stop()

	var mu sync.Mutex
	var received []Event
	eb.Subscribe(EventAgentTurn, collect(&received, &mu))

	eb.PublishToolCall("turn-1", "tool", 1, false)
	eb.PublishAgentTurn("turn-1", 1)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventAgentTurn, received[0].Type)
}

func TestEventBus_PanickingHandlerDoesNotKillBus(t *testing.T) {
	eb := NewEventBus(testLogger())
	defer eb.Stop()

	eb.Subscribe(EventAgentError, func(Event) {
		panic("handler bug")
	})

	var mu sync.Mutex
	var received []Event
	eb.Subscribe(EventAgentError, collect(&received, &mu))

	eb.PublishAgentError("turn-1", "first")
	eb.PublishAgentError("turn-2", "second")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, 5*time.Millisecond)
}
