// Package agent contains the worker pipeline that answers a turn: one stage
// worker per WorkflowStage, a presentation worker that writes the reply the
// user sees, and a coordinator that routes between them.
//
//  1. BaseAgent: name, hierarchy and run bookkeeping shared by every agent
//  2. ModelAgent: model call loop with tool execution and streaming
//  3. CoordinatorAgent: stage routing and the turn's final event
//
// Agents never mutate session state. Tools record EventActions on the
// function response event and the dispatcher applies them as it observes the
// stream. One agent tree serves every session of a user, so agents keep no
// per-turn state on the struct.
package agent
