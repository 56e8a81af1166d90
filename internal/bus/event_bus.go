package bus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventAgentTurn  EventType = "agentTurn"
	EventToolCall   EventType = "toolCall"
	EventAgentError EventType = "agentError"
	EventLog        EventType = "log"
)

var allEventTypes = []EventType{
	EventAgentTurn,
	EventToolCall,
	EventAgentError,
	EventLog,
}

type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

type EventHandler func(event Event)

// EventBus fans agent lifecycle events out to subscribers (the websocket
// gateway, primarily). Publishing never blocks the caller.
type EventBus struct {
	mu        sync.RWMutex
	handlers  map[EventType][]EventHandler
	logger    *logrus.Logger
	eventChan chan Event
	stopChan  chan struct{}
}

func NewEventBus(logger *logrus.Logger) *EventBus {
	eb := &EventBus{
		handlers:  make(map[EventType][]EventHandler),
		logger:    logger,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	go eb.processEvents()

	return eb
}

func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debugf("Handler subscribed to event type: %s", eventType)
}

func (eb *EventBus) SubscribeAll(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, eventType := range allEventTypes {
		eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	}

	eb.logger.Debug("Handler subscribed to all event types")
}

func (eb *EventBus) Publish(event Event) {
	select {
	case eb.eventChan <- event:
	default:
		eb.logger.Warnf("Event channel full, dropping event: %s", event.Type)
	}
}

func (eb *EventBus) PublishAsync(eventType EventType, payload map[string]interface{}) {
	go func() {
		eb.Publish(Event{
			Type:    eventType,
			Payload: payload,
		})
	}()
}

func (eb *EventBus) processEvents() {
	for {
		select {
		case event := <-eb.eventChan:
			eb.handleEvent(event)
		case <-eb.stopChan:
			eb.logger.Info("EventBus stopped")
			return
		}
	}
}

func (eb *EventBus) handleEvent(event Event) {
	eb.mu.RLock()
	handlers := eb.handlers[event.Type]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		// Run each handler in a goroutine to prevent blocking
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Errorf("Panic in event handler for %s: %v", event.Type, r)
				}
			}()
			h(event)
		}(handler)
	}
}

func (eb *EventBus) Stop() {
	close(eb.stopChan)
}

// PublishToolCall publishes a tool execution event.
func (eb *EventBus) PublishToolCall(turnID, tool string, durationMs int64, failed bool) {
	eb.PublishAsync(EventToolCall, map[string]interface{}{
		"turnId":     turnID,
		"tool":       tool,
		"durationMs": durationMs,
		"failed":     failed,
	})
}

// PublishAgentTurn publishes a completed conversation turn.
func (eb *EventBus) PublishAgentTurn(turnID string, toolCalls int) {
	eb.PublishAsync(EventAgentTurn, map[string]interface{}{
		"turnId":    turnID,
		"toolCalls": toolCalls,
	})
}

// PublishAgentError publishes a failed conversation turn.
func (eb *EventBus) PublishAgentError(turnID, message string) {
	eb.PublishAsync(EventAgentError, map[string]interface{}{
		"turnId":  turnID,
		"message": message,
	})
}
