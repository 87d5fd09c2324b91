// Package cfg holds the kernel's configuration surface: the fixed-size
// limits the kernel treats as constants, plus the ambient logging and metrics
// knobs the shell binary exposes as flags.
package cfg

// Logging severities, ordered from most to least verbose.
const (
	Trace   string = "TRACE"
	Debug   string = "DEBUG"
	Info    string = "INFO"
	Warning string = "WARNING"
	Error   string = "ERROR"
	Off     string = "OFF"
)

// Log output formats.
const (
	FormatText string = "text"
	FormatJSON string = "json"
)

// SystemOpenMaxMultiplier is the factor by which the system-wide open-file
// table is larger than any single process's file descriptor table
// (SYSTEM_OPEN_MAX = 10 x OPEN_MAX).
const SystemOpenMaxMultiplier = 10

// Defaults for the kernel's fixed-size limits.
const (
	DefaultOpenMax  = 64
	DefaultProcMax  = 100
	DefaultPathMax  = 1024
	DefaultArgMax   = 64
	DefaultSMPCores = 4
)

// DefaultConsoleLatencyMS is the default artificial delay applied to
// console reads and writes; zero disables it.
const DefaultConsoleLatencyMS = 0
