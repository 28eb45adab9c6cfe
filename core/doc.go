// Package core provides the domain types and collaborator interfaces shared by
// the creo orchestration engine. It defines:
//
//   - WorkflowStage, the closed set of business workflow stages
//   - SessionMemory, the per-conversation state bundle (shared fields plus
//     isolated per-worker scratch space)
//   - Events emitted by the worker pipeline and the structured actions they carry
//   - RunContext / ToolContext used by agents and tools while producing events
//   - Boundary contracts for the pipeline, identity, persistence and transport
//
// Concrete implementations (registry, dispatcher, stores, transports, agents)
// live in sibling packages and depend on these small interfaces.
package core
