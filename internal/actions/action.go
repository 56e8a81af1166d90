// Package actions defines the self-describing capability units exposed to the
// agent. Each action carries a JSON-schema parameter contract that is
// validated before execution; provider sets are fixed at bootstrap time.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

// Action is a single invokable capability.
type Action struct {
	Name        string
	Description string
	// Schema is a JSON-schema object describing the parameters.
	Schema map[string]interface{}
	// Execute runs the action and returns a textual result for the LLM.
	Execute func(ctx context.Context, params map[string]interface{}) (string, error)
}

// Provider is a named, immutable bundle of actions.
type Provider interface {
	Name() string
	Actions() []Action
}

// Registry holds the ordered, fixed set of action providers assembled at
// bootstrap and dispatches tool calls to them.
type Registry struct {
	providers []Provider
	actions   map[string]Action
	order     []string
	logger    *logrus.Logger
}

// NewRegistry flattens the providers into a name-indexed action set. The set
// must be non-empty and action names must be unique across providers.
func NewRegistry(logger *logrus.Logger, providers ...Provider) (*Registry, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("actions: at least one provider is required")
	}

	r := &Registry{
		providers: providers,
		actions:   make(map[string]Action),
		logger:    logger,
	}

	for _, p := range providers {
		for _, a := range p.Actions() {
			if a.Name == "" {
				return nil, fmt.Errorf("actions: provider %s declares an unnamed action", p.Name())
			}
			if _, exists := r.actions[a.Name]; exists {
				return nil, fmt.Errorf("actions: duplicate action name %q", a.Name)
			}
			r.actions[a.Name] = a
			r.order = append(r.order, a.Name)
		}
		logger.Infof("Registered action provider %s (%d actions)", p.Name(), len(p.Actions()))
	}

	if len(r.actions) == 0 {
		return nil, fmt.Errorf("actions: providers declared no actions")
	}

	return r, nil
}

// ProviderNames returns the providers in registration order.
func (r *Registry) ProviderNames() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// Execute validates rawArgs against the action's schema and runs it.
func (r *Registry) Execute(ctx context.Context, name string, rawArgs string) (string, error) {
	action, exists := r.actions[name]
	if !exists {
		return "", fmt.Errorf("actions: unknown action %q", name)
	}

	if strings.TrimSpace(rawArgs) == "" {
		rawArgs = "{}"
	}

	var params map[string]interface{}
	if err := json.Unmarshal([]byte(rawArgs), &params); err != nil {
		return "", fmt.Errorf("actions: parse arguments for %s: %w", name, err)
	}

	if action.Schema != nil {
		result, err := gojsonschema.Validate(
			gojsonschema.NewGoLoader(action.Schema),
			gojsonschema.NewGoLoader(params),
		)
		if err != nil {
			return "", fmt.Errorf("actions: validate arguments for %s: %w", name, err)
		}
		if !result.Valid() {
			var problems []string
			for _, desc := range result.Errors() {
				problems = append(problems, desc.String())
			}
			return "", fmt.Errorf("actions: invalid arguments for %s: %s", name, strings.Join(problems, "; "))
		}
	}

	r.logger.Debugf("Executing action %s", name)
	return action.Execute(ctx, params)
}

// Tools exports the action set as OpenAI function-calling tools, preserving
// registration order.
func (r *Registry) Tools() []openai.Tool {
	tools := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		a := r.actions[name]
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        a.Name,
				Description: a.Description,
				Parameters:  a.Schema,
			},
		})
	}
	return tools
}
