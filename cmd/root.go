// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gokernel/kernel/cfg"
	"github.com/gokernel/kernel/internal/kmetrics"
	"github.com/gokernel/kernel/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	// RunConfig is the fully assembled configuration for this boot,
	// populated by viper from flags and an optional config file before
	// rootCmd.RunE ever runs.
	RunConfig = cfg.Default()
)

var rootCmd = &cobra.Command{
	Use:   "gokernel",
	Short: "Boot an in-process OS161-style process/file/syscall kernel and drop into its shell",
	Long: `gokernel boots a simulated kernel — a process table, per-process and
system-wide file tables, an in-memory filesystem, and the file and
process system calls that sit on top of them — and then hands control
to an interactive shell that issues those syscalls directly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.Validate(&RunConfig); err != nil {
			return err
		}
		return runKernel(RunConfig)
	},
}

// Execute runs the root command, exiting the process non-zero on any
// boot or shell error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file overriding the default flags")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = decodeConfig()
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = decodeConfig()
}

func decodeConfig() error {
	return viper.Unmarshal(&RunConfig, viper.DecodeHook(cfg.DecodeHook()))
}

func runKernel(c cfg.Config) error {
	if err := logger.Init(c.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.Infof("booting kernel: open-max=%d proc-max=%d path-max=%d arg-max=%d", c.Kernel.OpenMax, c.Kernel.ProcMax, c.Kernel.PathMax, c.Kernel.ArgMax)

	var metrics kmetrics.Handle = kmetrics.NewNoop()
	if c.Metrics.Addr != "" {
		var shutdown kmetrics.ShutdownFunc
		var err error
		metrics, shutdown, err = kmetrics.Setup(c.Metrics.Addr)
		if err != nil {
			return fmt.Errorf("starting metrics endpoint: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warnf("metrics shutdown: %v", err)
			}
		}()
		logger.Infof("metrics listening on %s", c.Metrics.Addr)
	}

	return RunShell(c, metrics, os.Stdin, os.Stdout, os.Stderr)
}
