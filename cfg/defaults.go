package cfg

// Default returns the configuration used when no flags or config file
// override it, following the same shape as the rest of the config tree but
// covering the whole Config tree.
func Default() Config {
	return Config{
		Kernel: KernelConfig{
			OpenMax:          DefaultOpenMax,
			ProcMax:          DefaultProcMax,
			PathMax:          DefaultPathMax,
			ArgMax:           DefaultArgMax,
			SMPCores:         DefaultSMPCores,
			ConsoleLatencyMS: DefaultConsoleLatencyMS,
		},
		Logging: LoggingConfig{
			Severity: Info,
			Format:   FormatText,
			LogRotate: LogRotateConfig{
				MaxFileSizeMB:   512,
				BackupFileCount: 10,
				Compress:        true,
			},
		},
		FileSystem: FileSystemConfig{
			DefaultFileMode: 0644,
			DefaultDirMode:  0755,
		},
	}
}
