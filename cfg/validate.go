package cfg

import (
	"fmt"
	"slices"
)

// Validate rejects configurations that would make the kernel's invariants
// impossible to uphold (OPEN_MAX, PROC_MAX, etc. are always
// assumed to be large enough to hold the console descriptors and the
// kernel process).
func Validate(c *Config) error {
	if c.Kernel.OpenMax < 3 {
		return fmt.Errorf("kernel.open-max must be >= 3 (descriptors 0,1,2 are reserved for the console), got %d", c.Kernel.OpenMax)
	}
	if c.Kernel.ProcMax < 1 {
		return fmt.Errorf("kernel.proc-max must be >= 1, got %d", c.Kernel.ProcMax)
	}
	if c.Kernel.PathMax < 1 {
		return fmt.Errorf("kernel.path-max must be >= 1, got %d", c.Kernel.PathMax)
	}
	if c.Kernel.ArgMax < 1 {
		return fmt.Errorf("kernel.arg-max must be >= 1, got %d", c.Kernel.ArgMax)
	}
	if c.Kernel.SMPCores < 1 {
		return fmt.Errorf("kernel.smp-cores must be >= 1, got %d", c.Kernel.SMPCores)
	}

	if !slices.Contains(validSeverities, c.Logging.Severity) {
		return fmt.Errorf("logging.severity %q must be one of %v", c.Logging.Severity, validSeverities)
	}
	if c.Logging.Format != FormatText && c.Logging.Format != FormatJSON {
		return fmt.Errorf("logging.format %q must be %q or %q", c.Logging.Format, FormatText, FormatJSON)
	}

	if c.FileSystem.DefaultFileMode&^0777 != 0 {
		return fmt.Errorf("file-system.default-file-mode %o has bits outside 0777", c.FileSystem.DefaultFileMode)
	}
	if c.FileSystem.DefaultDirMode&^0777 != 0 {
		return fmt.Errorf("file-system.default-dir-mode %o has bits outside 0777", c.FileSystem.DefaultDirMode)
	}

	return nil
}
