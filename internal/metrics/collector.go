// Package metrics exposes Prometheus metrics for the agent bridge. The
// collector listens on the event bus, so the agent itself stays unaware of
// the metrics pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/bus"
)

// Collector owns the process registry and the agent-level metrics.
type Collector struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	network  string

	turnsTotal      *prometheus.CounterVec
	toolCallsTotal  *prometheus.CounterVec
	toolCallSeconds *prometheus.HistogramVec
	buildInfo       *prometheus.GaugeVec

	mu           sync.Mutex
	remoteWriter *RemoteWriter
}

// NewCollector registers the agent metrics on a fresh registry.
func NewCollector(logger *logrus.Logger, network string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		logger:   logger,
		registry: registry,
		network:  network,

		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_turns_total",
			Help: "Conversation turns processed, by outcome",
		}, []string{"network", "outcome"}),

		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_tool_calls_total",
			Help: "Tool calls executed by the reasoning loop, by outcome",
		}, []string{"network", "tool", "outcome"}),

		toolCallSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agent_tool_call_duration_seconds",
			Help:    "Tool execution latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"network", "tool"}),

		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agent_info",
			Help: "Agent target network, always 1",
		}, []string{"network"}),
	}

	registry.MustRegister(
		c.turnsTotal,
		c.toolCallsTotal,
		c.toolCallSeconds,
		c.buildInfo,
	)
	c.buildInfo.WithLabelValues(network).Set(1)

	return c
}

// Attach subscribes the collector to the agent lifecycle events.
func (c *Collector) Attach(eventBus *bus.EventBus) {
	eventBus.Subscribe(bus.EventAgentTurn, func(event bus.Event) {
		c.turnsTotal.WithLabelValues(c.network, "ok").Inc()
	})
	eventBus.Subscribe(bus.EventAgentError, func(event bus.Event) {
		c.turnsTotal.WithLabelValues(c.network, "error").Inc()
	})
	eventBus.Subscribe(bus.EventToolCall, func(event bus.Event) {
		tool, _ := event.Payload["tool"].(string)
		if tool == "" {
			tool = "unknown"
		}

		outcome := "ok"
		if failed, _ := event.Payload["failed"].(bool); failed {
			outcome = "error"
		}
		c.toolCallsTotal.WithLabelValues(c.network, tool, outcome).Inc()

		if ms, ok := event.Payload["durationMs"].(int64); ok {
			c.toolCallSeconds.WithLabelValues(c.network, tool).Observe(float64(ms) / 1000)
		}
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for the remote writer.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StartRemoteWriter begins pushing the registry to a Prometheus remote-write
// endpoint. Calling it twice is a no-op.
func (c *Collector) StartRemoteWriter(url string, interval time.Duration, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remoteWriter != nil {
		c.logger.Warn("Remote writer already started")
		return nil
	}

	writer, err := NewRemoteWriter(c.logger, url, c.registry, interval, username, password)
	if err != nil {
		return err
	}

	c.remoteWriter = writer
	c.remoteWriter.Start()
	c.logger.Infof("Pushing metrics to %s every %s", url, interval)
	return nil
}

// StopRemoteWriter stops the push loop if one is running.
func (c *Collector) StopRemoteWriter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remoteWriter != nil {
		c.remoteWriter.Stop()
		c.remoteWriter = nil
	}
}
