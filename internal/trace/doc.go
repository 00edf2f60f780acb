// Package trace provides structured event tracing for azupgrade.
//
// Events describe the lifecycle of the PowerShell session (start, invoke,
// restart, stop), per-file analysis requests and LSP traffic. They help
// explain why a file ended up with no diagnostics or why a session was
// restarted.
//
// # Usage
//
//	azupgrade plan --trace=- --trace-level=detail script.ps1
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event immediately (file or stderr)
//   - RingTracer: keeps the last N events in memory for dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Levels are off, error, info, detail and debug. Scopes from coarse to
// fine are command, session, request and io; a level lets through the
// scopes at or above its granularity.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeSession, "pwsh.start", 0)
//	defer span.End("")
package trace
