package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration object for a kernel boot, assembled by
// cmd/root.go from flags and an optional config file via viper, the same
// way cmd/root.go assembles the running configuration.
type Config struct {
	Kernel     KernelConfig     `mapstructure:"kernel"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	FileSystem FileSystemConfig `mapstructure:"file-system"`
}

// KernelConfig holds the kernel's fixed-size resource limits.
type KernelConfig struct {
	OpenMax          int `mapstructure:"open-max"`
	ProcMax          int `mapstructure:"proc-max"`
	PathMax          int `mapstructure:"path-max"`
	ArgMax           int `mapstructure:"arg-max"`
	SMPCores         int `mapstructure:"smp-cores"`
	ConsoleLatencyMS int `mapstructure:"console-latency-ms"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	Severity  string          `mapstructure:"severity"`
	Format    string          `mapstructure:"format"`
	FilePath  string          `mapstructure:"file-path"`
	LogRotate LogRotateConfig `mapstructure:"log-rotate"`
}

// LogRotateConfig mirrors lumberjack.Logger's tunables.
type LogRotateConfig struct {
	MaxFileSizeMB   int  `mapstructure:"max-file-size-mb"`
	BackupFileCount int  `mapstructure:"backup-file-count"`
	Compress        bool `mapstructure:"compress"`
}

// MetricsConfig controls internal/kmetrics's Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for the /metrics endpoint. Empty disables it.
	Addr string `mapstructure:"addr"`
}

// FileSystemConfig holds default permission bits for new files and
// directories. Validate checks them; the in-memory VFS does not read
// them and keeps no permission bits on its vnodes.
type FileSystemConfig struct {
	DefaultFileMode FileMode `mapstructure:"default-file-mode"`
	DefaultDirMode  FileMode `mapstructure:"default-dir-mode"`
}

// BindFlags registers every config knob as a pflag and binds it into viper,
// following a one-flag, one-viper-key, one-default pattern for each
// viper.BindPFlag call per field.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.IntP("open-max", "", DefaultOpenMax, "Per-process file descriptor table size (OPEN_MAX).")
	if err := viper.BindPFlag("kernel.open-max", flagSet.Lookup("open-max")); err != nil {
		return err
	}

	flagSet.IntP("proc-max", "", DefaultProcMax, "Process table capacity (PROC_MAX).")
	if err := viper.BindPFlag("kernel.proc-max", flagSet.Lookup("proc-max")); err != nil {
		return err
	}

	flagSet.IntP("path-max", "", DefaultPathMax, "Maximum pathname length copied in from user space (PATH_MAX).")
	if err := viper.BindPFlag("kernel.path-max", flagSet.Lookup("path-max")); err != nil {
		return err
	}

	flagSet.IntP("arg-max", "", DefaultArgMax, "Maximum argv length accepted by execv (ARG_MAX).")
	if err := viper.BindPFlag("kernel.arg-max", flagSet.Lookup("arg-max")); err != nil {
		return err
	}

	flagSet.IntP("smp-cores", "", DefaultSMPCores, "Number of process threads the scheduler may run concurrently.")
	if err := viper.BindPFlag("kernel.smp-cores", flagSet.Lookup("smp-cores")); err != nil {
		return err
	}

	flagSet.IntP("console-latency-ms", "", DefaultConsoleLatencyMS, "Artificial delay applied to console reads and writes, simulating a slow physical device. Zero disables it.")
	if err := viper.BindPFlag("kernel.console-latency-ms", flagSet.Lookup("console-latency-ms")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", Info, "Minimum severity logged: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err := viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", FormatText, "Log line format: text or json.")
	if err := viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Write logs to this file instead of stderr, with rotation.")
	if err := viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.StringP("metrics-addr", "", "", "Listen address for the Prometheus /metrics endpoint. Empty disables it.")
	if err := viper.BindPFlag("metrics.addr", flagSet.Lookup("metrics-addr")); err != nil {
		return err
	}

	flagSet.StringP("default-file-mode", "", "0644", "Octal permission bits for newly created files.")
	if err := viper.BindPFlag("file-system.default-file-mode", flagSet.Lookup("default-file-mode")); err != nil {
		return err
	}

	flagSet.StringP("default-dir-mode", "", "0755", "Octal permission bits for newly created directories.")
	if err := viper.BindPFlag("file-system.default-dir-mode", flagSet.Lookup("default-dir-mode")); err != nil {
		return err
	}

	return nil
}
