// Package reasoner backs the guided planner's Decider with an external
// chat-completion provider. The model only proposes plans; it never
// invokes anything itself.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	plannerx "github.com/fixwell/shop-agent/agent/planner"
	promptx "github.com/fixwell/shop-agent/agent/prompt"
)

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	Model   string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: reasoner api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: reasoner model is required", contractx.ErrValidation)
	}
	return nil
}

// Enabled reports whether a reasoner is configured at all. The guided
// planner is optional; without a key the runtime serves the
// deterministic planners only.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Reasoner proposes plans via chat completion. It satisfies
// planner.Decider.
type Reasoner struct {
	client openai.Client
	model  string
}

func New(cfg Config) (*Reasoner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return &Reasoner{
		client: openai.NewClient(opts...),
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

func (r *Reasoner) Propose(ctx context.Context, goal contractx.PlanGoal, tools []contractx.ToolSpec) ([]plannerx.Step, error) {
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(promptx.Planner()),
			openai.UserMessage(buildPrompt(goal, tools)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	steps, err := parseSteps(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func buildPrompt(goal contractx.PlanGoal, tools []contractx.ToolSpec) string {
	var b strings.Builder
	b.WriteString("Goal: ")
	b.WriteString(goal.Text)
	b.WriteString("\n\n")

	if len(goal.Context) > 0 {
		if ctxJSON, err := json.Marshal(goal.Context); err == nil {
			b.WriteString("Known context values (pass them as inputs where relevant):\n")
			b.Write(ctxJSON)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("Tool catalog:\n")
	for _, spec := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", spec.Name, spec.Description)
		fmt.Fprintf(&b, "  input schema: %s\n", string(spec.InputSchema))
	}
	return b.String()
}

func parseSteps(content string) ([]plannerx.Step, error) {
	trimmed := stripCodeFence(strings.TrimSpace(content))

	var steps []plannerx.Step
	if err := json.Unmarshal([]byte(trimmed), &steps); err != nil {
		return nil, fmt.Errorf("parse proposed steps: %w", err)
	}
	for i, step := range steps {
		if strings.TrimSpace(step.Tool) == "" {
			return nil, fmt.Errorf("proposed step %d has no tool name", i+1)
		}
	}
	return steps, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// drop a language tag like "json" on the fence line
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
