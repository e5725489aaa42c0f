// Package agent runs the tool-calling loop behind the grocery assistant.
//
// One call to ProcessUserInput is one turn. The model is asked to think; if it
// requests tools they are dispatched through the registry and their results are
// appended to the turn's scratchpad before the model is asked again. The turn
// ends with the first reply that carries no tool calls, or with
// ErrIterationLimit once MaxIterations cycles have been spent.
//
// # States
//
// A turn moves through the following states, reported to OnStateChange:
//
//   - StateThinking: the model is being called
//   - StateToolCallRequested: the reply asked for one or more tools
//   - StateToolExecuting: the requested tools are running
//   - StateFinalAnswer: the reply is the answer for the user
//   - StateIterationLimitReached: the turn gave up
//
// # Tool failures
//
// A tool that rejects its arguments or fails does not end the turn. Its error
// is fed back to the model as the tool result, prefixed with "Error: ", so the
// model can correct the call or explain the problem.
//
// # Usage
//
//	a, err := agent.New(cfg, client, registry, agent.ToolVerbosityInfo)
//	if err != nil {
//	    // handle error
//	}
//	answer, err := a.ProcessUserInput(ctx, "Add apples to my list", history.Messages(), agent.ProcessCallbacks{})
//
// The agent keeps no state between turns. The caller owns the conversation
// history and decides what to record; agent/terminal records a turn only when
// it succeeds.
package agent
