package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	contractx "github.com/fixwell/shop-agent/agent/contract"
)

// Definition is the immutable contract of one tool: registered at process
// start, looked up by name for the process lifetime. Execute receives
// input already validated against InputSchema and must return a value
// that validates against OutputSchema. Tool bodies enforce only domain
// invariants (existence, tenancy, uniqueness), never shape.
type Definition struct {
	Name         string
	Description  string
	InputSchema  string
	OutputSchema string
	Execute      func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error)
}

type compiledTool struct {
	def    Definition
	input  *jsonschema.Schema
	output *jsonschema.Schema
}

// Registry is the name-addressed tool catalog with a single validated
// dispatch chokepoint. Register everything at startup; Invoke is safe
// for concurrent use afterwards.
type Registry struct {
	tools map[string]compiledTool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]compiledTool)}
}

// Register compiles both schemas and adds the tool. A malformed schema or
// duplicate name is a programming error and fails immediately.
func (r *Registry) Register(def Definition) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is required", contractx.ErrValidation)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: tool %q already registered", contractx.ErrValidation, name)
	}
	if def.Execute == nil {
		return fmt.Errorf("%w: tool %q has no execute function", contractx.ErrValidation, name)
	}

	input, err := compileSchema(name+"/input", def.InputSchema)
	if err != nil {
		return err
	}
	output, err := compileSchema(name+"/output", def.OutputSchema)
	if err != nil {
		return err
	}

	r.tools[name] = compiledTool{def: def, input: input, output: output}
	return nil
}

func (r *Registry) MustRegister(defs ...Definition) *Registry {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Invoke validates rawInput, dispatches, then validates the output.
// Every failure mode maps onto one contract error: ErrUnknownTool,
// ErrInvalidInput (planner bug or bad caller payload), ErrToolExecution
// (domain failure inside the tool body), ErrInvalidOutput (tool
// implementation bug, never presented as a user error).
func (r *Registry) Invoke(ctx context.Context, name string, rawInput map[string]any, tc contractx.ToolContext) (map[string]any, error) {
	entry, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownTool, name)
	}

	if err := validate(entry.input, rawInput); err != nil {
		return nil, fmt.Errorf("%w: tool=%s: %v", contractx.ErrInvalidInput, name, err)
	}

	output, err := entry.def.Execute(ctx, rawInput, tc)
	if err != nil {
		log.Debug().Str("tool", name).Err(err).Msg("tool execution failed")
		return nil, fmt.Errorf("%w: tool=%s: %v", contractx.ErrToolExecution, name, err)
	}

	if err := validate(entry.output, output); err != nil {
		return nil, fmt.Errorf("%w: tool=%s: %v", contractx.ErrInvalidOutput, name, err)
	}

	return output, nil
}

// Specs lists the registered tools in name order, for plan proposers.
func (r *Registry) Specs() []contractx.ToolSpec {
	specs := make([]contractx.ToolSpec, 0, len(r.tools))
	for _, entry := range r.tools {
		specs = append(specs, contractx.ToolSpec{
			Name:        entry.def.Name,
			Description: entry.def.Description,
			InputSchema: json.RawMessage(entry.def.InputSchema),
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

func compileSchema(id, raw string) (*jsonschema.Schema, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: schema for %s is empty", contractx.ErrValidation, id)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://shop-agent.schemas.local/tools/%s.schema.json", id)
	if err := c.AddResource(schemaURL, strings.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: load schema for %s: %v", contractx.ErrValidation, id, err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("%w: compile schema for %s: %v", contractx.ErrValidation, id, err)
	}
	return compiled, nil
}

// validate round-trips the value through JSON before validation. Tool
// outputs are built in Go with typed values; the trail persists them as
// JSON, so the JSON rendering is the form worth asserting on.
func validate(schema *jsonschema.Schema, value map[string]any) error {
	if value == nil {
		value = map[string]any{}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal for validation: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("unmarshal for validation: %w", err)
	}
	return schema.Validate(decoded)
}
