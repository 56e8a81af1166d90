// Package agent composes the wallet provider, the fixed action-provider set,
// and the LLM reasoning loop into a single conversation-turn executor.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/actions"
	"github.com/Aliserag/flow-agentkit-starter/internal/bus"
	"github.com/Aliserag/flow-agentkit-starter/internal/config"
	"github.com/Aliserag/flow-agentkit-starter/internal/wallet"
)

// Distinct initialization failure kinds. Each wraps the original cause so
// callers can both classify the failure site and inspect what went wrong.
var (
	ErrWalletInit  = errors.New("agent: wallet provider initialization failed")
	ErrActionsInit = errors.New("agent: action provider initialization failed")
	ErrLLMInit     = errors.New("agent: llm client initialization failed")
)

// maxToolRounds caps how many tool-call cycles a single turn may run.
const maxToolRounds = 8

// Agent holds exactly one wallet provider and a non-empty ordered action set.
// It is constructed once and reused across requests; it keeps no conversation
// state, so every call is an independent single turn.
type Agent struct {
	wallet   wallet.Provider
	registry *actions.Registry
	llm      *openai.Client
	cfg      config.LLMConfig
	network  config.NetworkConfig
	eventBus *bus.EventBus
	logger   *logrus.Logger
}

// New assembles an agent from already-constructed dependencies.
func New(cfg *config.AppConfig, provider wallet.Provider, registry *actions.Registry, eventBus *bus.EventBus, logger *logrus.Logger) (*Agent, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrLLMInit)
	}

	clientConfig := openai.DefaultConfig(cfg.LLM.APIKey)
	if cfg.LLM.BaseURL != "" {
		clientConfig.BaseURL = cfg.LLM.BaseURL
	}

	return &Agent{
		wallet:   provider,
		registry: registry,
		llm:      openai.NewClientWithConfig(clientConfig),
		cfg:      cfg.LLM,
		network:  cfg.Network,
		eventBus: eventBus,
		logger:   logger,
	}, nil
}

// Bootstrap builds the wallet provider, the action registry, and the agent.
// The managed provider is appended only when its credentials are configured.
func Bootstrap(ctx context.Context, cfg *config.AppConfig, eventBus *bus.EventBus, logger *logrus.Logger) (*Agent, error) {
	provider, err := wallet.Select(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWalletInit, err)
	}

	registry, err := buildRegistry(cfg, provider, logger)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("%w: %w", ErrActionsInit, err)
	}

	agent, err := New(cfg, provider, registry, eventBus, logger)
	if err != nil {
		provider.Close()
		return nil, err
	}

	logger.Infof("Agent bootstrapped with providers: %v", registry.ProviderNames())
	return agent, nil
}

func buildRegistry(cfg *config.AppConfig, provider wallet.Provider, logger *logrus.Logger) (*actions.Registry, error) {
	erc20, err := actions.NewERC20Actions(provider, cfg.Network, logger)
	if err != nil {
		return nil, err
	}

	set := []actions.Provider{
		actions.NewWalletActions(provider, cfg.Network, logger),
		actions.NewBalanceActions(provider, cfg.Network, logger),
		erc20,
	}

	if cfg.Managed.Enabled() {
		set = append(set, actions.NewManagedActions(cfg.Managed, provider.Address(), http.DefaultClient, logger))
	} else {
		logger.Debug("Managed action provider disabled: credentials not configured")
	}

	return actions.NewRegistry(logger, set...)
}

// Wallet exposes the agent's wallet provider.
func (a *Agent) Wallet() wallet.Provider {
	return a.wallet
}

// Close releases the agent's chain connections.
func (a *Agent) Close() {
	if a.wallet != nil {
		a.wallet.Close()
	}
}

// Respond executes exactly one conversation turn: it forwards userMessage to
// the reasoning loop, runs any tool calls the model requests, and returns the
// final textual reply. The whole turn is bounded by the configured timeout.
func (a *Agent) Respond(ctx context.Context, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()

	turnID := uuid.NewString()
	toolCalls := 0

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: a.systemPrompt(),
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userMessage,
		},
	}

	tools := a.registry.Tools()

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       a.cfg.Model,
			Messages:    messages,
			MaxTokens:   a.cfg.MaxTokens,
			Temperature: a.cfg.Temperature,
			Tools:       tools,
			ToolChoice:  "auto",
		})
		if err != nil {
			a.publishError(turnID, err)
			return "", fmt.Errorf("agent: chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			a.publishError(turnID, errors.New("no choices"))
			return "", fmt.Errorf("agent: no response from model")
		}

		choice := resp.Choices[0]
		if len(choice.Message.ToolCalls) == 0 {
			if a.eventBus != nil {
				a.eventBus.PublishAgentTurn(turnID, toolCalls)
			}
			return choice.Message.Content, nil
		}

		messages = append(messages, choice.Message)

		for _, call := range choice.Message.ToolCalls {
			toolCalls++
			result := a.runTool(ctx, turnID, call)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	a.publishError(turnID, errors.New("tool loop did not converge"))
	return "", fmt.Errorf("agent: exceeded %d tool rounds without a final answer", maxToolRounds)
}

func (a *Agent) runTool(ctx context.Context, turnID string, call openai.ToolCall) string {
	start := time.Now()

	a.logger.Infof("Executing tool %s", call.Function.Name)
	result, err := a.registry.Execute(ctx, call.Function.Name, call.Function.Arguments)
	duration := time.Since(start)

	if a.eventBus != nil {
		a.eventBus.PublishToolCall(turnID, call.Function.Name, duration.Milliseconds(), err != nil)
	}

	if err != nil {
		a.logger.Warnf("Tool %s failed: %v", call.Function.Name, err)
		return fmt.Sprintf("error: %v", err)
	}
	return result
}

func (a *Agent) publishError(turnID string, err error) {
	if a.eventBus != nil {
		a.eventBus.PublishAgentError(turnID, err.Error())
	}
}

func (a *Agent) systemPrompt() string {
	return fmt.Sprintf(
		"You are an on-chain agent operating on %s (chain id %d). "+
			"Your wallet address is %s and the native currency is %s. "+
			"Use the available tools to read balances and move funds when the user asks. "+
			"Each request is a single turn: you have no memory of earlier messages. "+
			"Answer concisely and include transaction links when you send funds.",
		a.network.Name, a.network.ChainID, a.wallet.Address().Hex(), a.network.Currency.Symbol)
}
