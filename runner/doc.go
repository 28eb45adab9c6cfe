// Package runner executes a root agent for one turn and exposes its output
// as the event stream the dispatcher consumes. A Runner satisfies
// core.Pipeline; the session registry binds one Runner per user.
//
// The runner applies no side effects. Event actions pass through untouched
// and are applied by the dispatcher as it observes them.
package runner
