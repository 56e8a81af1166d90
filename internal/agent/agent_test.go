package agent

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliserag/flow-agentkit-starter/internal/actions"
	"github.com/Aliserag/flow-agentkit-starter/internal/config"
)

type fakeWallet struct {
	address common.Address
	closed  bool
}

func (w *fakeWallet) Address() common.Address { return w.address }
func (w *fakeWallet) ChainID() *big.Int       { return big.NewInt(545) }
func (w *fakeWallet) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (w *fakeWallet) SendNative(ctx context.Context, to common.Address, amountWei *big.Int) (common.Hash, error) {
	return common.Hash{}, nil
}
func (w *fakeWallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return nil, nil
}
func (w *fakeWallet) Backend() bind.ContractBackend { return nil }
func (w *fakeWallet) Close()                        { w.closed = true }

type fakeActionProvider struct {
	executed *int32
}

func (p *fakeActionProvider) Name() string { return "fake" }
func (p *fakeActionProvider) Actions() []actions.Action {
	return []actions.Action{{
		Name:        "get_address",
		Description: "Returns the wallet address",
		Schema:      map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			atomic.AddInt32(p.executed, 1)
			return "0x1111", nil
		},
	}}
}

// fakeOpenAI serves scripted chat-completion responses in order.
func fakeOpenAI(t *testing.T, responses []openai.ChatCompletionResponse) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		require.LessOrEqual(t, int(n), len(responses), "unexpected extra completion request")

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(responses[n-1]))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestAgent(t *testing.T, baseURL string, registry *actions.Registry) *Agent {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.BaseURL = baseURL + "/v1"

	agent, err := New(cfg, &fakeWallet{address: common.HexToAddress("0x1111")}, registry, nil, testLogger())
	require.NoError(t, err)
	return agent
}

func assistantReply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			},
		}},
	}
}

func toolCallReply(name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   "call_1",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      name,
						Arguments: args,
					},
				}},
			},
		}},
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := New(cfg, &fakeWallet{}, nil, nil, testLogger())
	assert.ErrorIs(t, err, ErrLLMInit)
}

func TestRespond_PlainAnswer(t *testing.T) {
	var executed int32
	registry, err := actions.NewRegistry(testLogger(), &fakeActionProvider{executed: &executed})
	require.NoError(t, err)

	server, calls := fakeOpenAI(t, []openai.ChatCompletionResponse{
		assistantReply("Hello! How can I help?"),
	})

	agent := newTestAgent(t, server.URL, registry)

	reply, err := agent.Respond(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&executed))
}

func TestRespond_RunsToolLoop(t *testing.T) {
	var executed int32
	registry, err := actions.NewRegistry(testLogger(), &fakeActionProvider{executed: &executed})
	require.NoError(t, err)

	server, calls := fakeOpenAI(t, []openai.ChatCompletionResponse{
		toolCallReply("get_address", "{}"),
		assistantReply("Your wallet address is 0x1111."),
	})

	agent := newTestAgent(t, server.URL, registry)

	reply, err := agent.Respond(context.Background(), "what is my wallet address?")
	require.NoError(t, err)
	assert.Equal(t, "Your wallet address is 0x1111.", reply)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&executed))
}

func TestRespond_ToolFailureIsReportedToModel(t *testing.T) {
	var executed int32
	registry, err := actions.NewRegistry(testLogger(), &fakeActionProvider{executed: &executed})
	require.NoError(t, err)

	// Invalid arguments fail schema or dispatch, but the turn still completes:
	// the error text goes back to the model as the tool result.
	server, _ := fakeOpenAI(t, []openai.ChatCompletionResponse{
		toolCallReply("no_such_tool", "{}"),
		assistantReply("I could not look that up."),
	})

	agent := newTestAgent(t, server.URL, registry)

	reply, err := agent.Respond(context.Background(), "do something odd")
	require.NoError(t, err)
	assert.Equal(t, "I could not look that up.", reply)
	assert.Equal(t, int32(0), atomic.LoadInt32(&executed))
}

func TestRespond_BoundsToolRounds(t *testing.T) {
	var executed int32
	registry, err := actions.NewRegistry(testLogger(), &fakeActionProvider{executed: &executed})
	require.NoError(t, err)

	responses := make([]openai.ChatCompletionResponse, maxToolRounds)
	for i := range responses {
		responses[i] = toolCallReply("get_address", "{}")
	}

	server, calls := fakeOpenAI(t, responses)
	agent := newTestAgent(t, server.URL, registry)

	_, err = agent.Respond(context.Background(), "loop forever")
	require.Error(t, err)
	assert.Equal(t, int32(maxToolRounds), atomic.LoadInt32(calls))
}
