package reconcile

import (
	"github.com/huandu/go-clone"
)

const (
	// TaskToolName is the delegation tool an agent uses to hand work to a
	// sub-agent.
	TaskToolName = "task"
	// SubagentTypeArg names the delegation target inside the task args.
	SubagentTypeArg = "subagent_type"
)

// SubAgent is the view model for one delegated task: the task tool call
// projected onto the sub-agent that ran it.
type SubAgent struct {
	ID     string
	Name   string
	Input  map[string]any
	Output string
	Status ToolCallStatus
}

// DeriveSubAgents filters tool calls down to task delegations with a named
// target. Pure projection over the correlator's output; the returned Input
// maps are copies, so callers can mutate them freely.
func DeriveSubAgents(calls []*ToolCall) []SubAgent {
	var agents []SubAgent
	for _, call := range calls {
		if call == nil || call.Name != TaskToolName {
			continue
		}
		target, _ := call.Args[SubagentTypeArg].(string)
		if target == "" {
			continue
		}
		input, _ := clone.Clone(call.Args).(map[string]any)
		agents = append(agents, SubAgent{
			ID:     call.ID,
			Name:   target,
			Input:  input,
			Output: call.Result,
			Status: call.Status,
		})
	}
	return agents
}
