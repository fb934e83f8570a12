package models

// ExecutionContext is the per-run mutable state threaded through every
// handler call: the immutable trigger payload, named variables, and the
// accumulated per-node outputs.
//
// A context belongs to exactly one run and nodes within a run execute
// sequentially, so no locking is performed here. Concurrent runs each get
// their own context.
type ExecutionContext struct {
	ExecutionID string
	WorkflowID  string
	Depth       int // sub-workflow nesting depth, 0 for top-level runs

	triggerData map[string]any
	variables   map[string]any
	nodeOutputs map[string]map[string]any
}

// NewExecutionContext creates the state for one run. seedVars are the
// workflow-level variable defaults; the map is copied.
func NewExecutionContext(executionID, workflowID string, triggerData, seedVars map[string]any) *ExecutionContext {
	variables := make(map[string]any, len(seedVars))
	for k, v := range seedVars {
		variables[k] = v
	}

	if triggerData == nil {
		triggerData = map[string]any{}
	}

	return &ExecutionContext{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		triggerData: triggerData,
		variables:   variables,
		nodeOutputs: make(map[string]map[string]any),
	}
}

// TriggerData returns the immutable trigger payload of the run.
func (c *ExecutionContext) TriggerData() map[string]any {
	return c.triggerData
}

// GetVariable returns the named variable or def when unset.
func (c *ExecutionContext) GetVariable(name string, def any) any {
	if v, ok := c.variables[name]; ok {
		return v
	}

	return def
}

// SetVariable stores a variable; this is the only mutation path for
// cross-node data.
func (c *ExecutionContext) SetVariable(name string, value any) {
	c.variables[name] = value
}

// UnsetVariable removes a variable binding.
func (c *ExecutionContext) UnsetVariable(name string) {
	delete(c.variables, name)
}

// HasVariable reports whether the named variable is set.
func (c *ExecutionContext) HasVariable(name string) bool {
	_, ok := c.variables[name]

	return ok
}

// Variables returns a copy of the current variable bindings.
func (c *ExecutionContext) Variables() map[string]any {
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}

	return out
}

// SetNodeOutput records the output of a node visit. Written once per visit
// by the executor.
func (c *ExecutionContext) SetNodeOutput(nodeID string, output map[string]any) {
	c.nodeOutputs[nodeID] = output
}

// GetNodeOutput returns the output already produced by a node earlier in the
// same run, or def.
func (c *ExecutionContext) GetNodeOutput(nodeID string, def map[string]any) map[string]any {
	if out, ok := c.nodeOutputs[nodeID]; ok {
		return out
	}

	return def
}

// NodeOutputs returns a copy of all outputs produced so far.
func (c *ExecutionContext) NodeOutputs() map[string]map[string]any {
	out := make(map[string]map[string]any, len(c.nodeOutputs))
	for k, v := range c.nodeOutputs {
		out[k] = v
	}

	return out
}

// Snapshot builds the result_data payload persisted on completion.
func (c *ExecutionContext) Snapshot() map[string]any {
	outputs := make(map[string]any, len(c.nodeOutputs))
	for k, v := range c.nodeOutputs {
		outputs[k] = v
	}

	return map[string]any{
		"variables":    c.Variables(),
		"node_outputs": outputs,
	}
}
