package agent

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/bus"
	"github.com/Aliserag/flow-agentkit-starter/internal/config"
)

// Service owns the process-wide agent. Construction is lazy and coalesced:
// concurrent first calls block on one bootstrap instead of racing, and a
// successful bootstrap is memoized for the process lifetime. A failed
// bootstrap is not memoized, so a later request can retry.
type Service struct {
	logger  *logrus.Logger
	builder func(ctx context.Context) (*Agent, error)

	mu    sync.Mutex
	agent *Agent
}

// NewService wires the default bootstrap as the builder.
func NewService(cfg *config.AppConfig, eventBus *bus.EventBus, logger *logrus.Logger) *Service {
	return &Service{
		logger: logger,
		builder: func(ctx context.Context) (*Agent, error) {
			return Bootstrap(ctx, cfg, eventBus, logger)
		},
	}
}

// NewServiceWithBuilder is used by tests to observe construction.
func NewServiceWithBuilder(builder func(ctx context.Context) (*Agent, error), logger *logrus.Logger) *Service {
	return &Service{logger: logger, builder: builder}
}

// Agent returns the singleton agent, constructing it on first use.
func (s *Service) Agent(ctx context.Context) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent != nil {
		return s.agent, nil
	}

	agent, err := s.builder(ctx)
	if err != nil {
		s.logger.Errorf("Agent initialization failed: %v", err)
		return nil, err
	}

	s.agent = agent
	return agent, nil
}

// Respond obtains the agent (constructing it on first use) and runs one turn.
func (s *Service) Respond(ctx context.Context, userMessage string) (string, error) {
	agent, err := s.Agent(ctx)
	if err != nil {
		return "", err
	}
	return agent.Respond(ctx, userMessage)
}

// Close releases the agent's resources if it was ever constructed.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent != nil {
		s.agent.Close()
		s.agent = nil
	}
}
