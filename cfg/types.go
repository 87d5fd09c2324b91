package cfg

import (
	"fmt"
	"slices"
	"strconv"
)

// FileMode is the datatype for config params such as default-file-mode and
// default-dir-mode, which accept a base-8 value (e.g. "0644").
type FileMode uint32

func (m *FileMode) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 8, 32)
	if err != nil {
		return fmt.Errorf("invalid file mode %q: %w", text, err)
	}
	*m = FileMode(v)
	return nil
}

func (m FileMode) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(m), 8)), nil
}

// LogSeverity is one of the values in cfg's logging-level constants.
type LogSeverity string

var validSeverities = []string{Trace, Debug, Info, Warning, Error, Off}

func (s *LogSeverity) UnmarshalText(text []byte) error {
	v := LogSeverity(text)
	if !slices.Contains(validSeverities, string(v)) {
		return fmt.Errorf("invalid log severity %q, must be one of %v", text, validSeverities)
	}
	*s = v
	return nil
}

// LogFormat is one of "text" or "json".
type LogFormat string

func (f *LogFormat) UnmarshalText(text []byte) error {
	v := LogFormat(text)
	if v != FormatText && v != FormatJSON {
		return fmt.Errorf("invalid log format %q, must be %q or %q", text, FormatText, FormatJSON)
	}
	*f = v
	return nil
}
