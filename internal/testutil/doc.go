// Package testutil contains builders and fakes shared by package tests:
// EventBuilder for worker events, MemoryBuilder for pre-populated sessions,
// ScriptedPipeline for deterministic worker output and RecordingTransport
// for asserting what reached the client. Not for production use.
package testutil
