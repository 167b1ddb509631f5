package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// These levels control WHAT categories of output are shown, not just log
// severity. A silent run still prints per-record progress and the final
// summary; verbosity adds the machinery underneath.
const (
	VerbosityUser  = 0 // No flags: results, summary, and errors only
	VerbosityInfo  = 1 // -v: + progress, startup, per-record outcomes
	VerbosityDebug = 2 // -vv: + HTTP calls, rate-limit waits, page fetches
	VerbosityTrace = 3 // -vvv: + request/response bodies
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels
//
// Mapping:
//
//	0 (none)  -> WarnLevel  (errors and warnings only)
//	1 (-v)    -> InfoLevel  (+ informational messages)
//	2+ (-vv)  -> DebugLevel (+ debug messages; body dumps gate on -vvv)
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch verbosity {
	case VerbosityUser:
		return zapcore.WarnLevel
	case VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults OutputCategory = iota // Run summary, command output
	OutputErrors                        // Errors with hints

	// Level 1 (-v) - Informational
	OutputProgress // Per-record status lines
	OutputStartup  // Config summary, registry validation

	// Level 2 (-vv) - Detailed
	OutputHTTPCalls // External HTTP requests made
	OutputRateWaits // Backoff sleeps and wait hints
	OutputPages     // Individual page fetches

	// Level 3 (-vvv) - Full dump
	OutputRequestBody  // Full HTTP request bodies
	OutputResponseBody // Full HTTP response bodies
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults: VerbosityUser,
	OutputErrors:  VerbosityUser,

	OutputProgress: VerbosityInfo,
	OutputStartup:  VerbosityInfo,

	OutputHTTPCalls: VerbosityDebug,
	OutputRateWaits: VerbosityDebug,
	OutputPages:     VerbosityDebug,

	OutputRequestBody:  VerbosityTrace,
	OutputResponseBody: VerbosityTrace,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityTrace
	}
	return verbosity >= minLevel
}

// ShouldLogBodies returns true for verbosity >= 3 (-vvv).
// Use this before dumping full request or response payloads.
func ShouldLogBodies(verbosity int) bool {
	return verbosity >= VerbosityTrace
}

// LevelName returns a human-readable name for verbosity level
func LevelName(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "User"
	case VerbosityInfo:
		return "Info (-v)"
	case VerbosityDebug:
		return "Debug (-vv)"
	default:
		return "Trace (-vvv)"
	}
}
