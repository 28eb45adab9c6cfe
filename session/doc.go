// Package session holds the Session Registry: the only component allowed to
// create or destroy a user's WorkerContext and the SessionMemory instances it
// owns.
//
// One user maps to exactly one WorkerContext, bound to one pipeline instance
// produced by the registry's PipelineFactory. Different users never block
// each other beyond the brief map lookups guarded by the registry lock.
//
// The registry is an explicit object injected into call sites; there is no
// process-wide instance.
package session
