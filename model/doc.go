// Package model defines the provider-agnostic abstractions for driving
// language models from agents.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Normalize tool call representation (ToolDefinition, core.FunctionCall)
//   - Map provider overload signals onto core.ErrUpstreamOverloaded (Classify)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (model/anthropic, model/openai) implement Model so agents stay
// decoupled from vendor SDKs.
package model
