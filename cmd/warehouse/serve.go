// Copyright 2025 Blink Labs Software
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

package main

import (
	"fmt"

	"github.com/blinklabs-io/warehouse/internal/config"
	"github.com/blinklabs-io/warehouse/internal/node"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	bindAddr    string
	apiPort     uint
	metricsPort uint
	dev         bool
}

// apply layers flags the user actually set over the loaded config
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("bind") {
		cfg.BindAddr = f.bindAddr
	}
	if flags.Changed("api-port") {
		cfg.ApiPort = f.apiPort
	}
	if flags.Changed("metrics-port") {
		cfg.MetricsPort = f.metricsPort
	}
	if f.dev {
		cfg.RunMode = config.RunModeDev
	}
}

func serveRun(cfg *config.Config) error {
	logger := commonRun()
	if err := node.Run(cfg, logger); err != nil {
		logger.Error(err.Error(), "component", programName)
		return err
	}
	return nil
}

func serveCommand() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the warehouse API service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if !cfg.RunMode.Valid() {
				return fmt.Errorf("invalid run mode %q", cfg.RunMode)
			}
			return serveRun(cfg)
		},
	}
	cmd.Flags().StringVar(&flags.bindAddr, "bind", "", "address to listen on")
	cmd.Flags().UintVar(&flags.apiPort, "api-port", 0, "operation API port")
	cmd.Flags().UintVar(&flags.metricsPort, "metrics-port", 0, "metrics and pprof port")
	cmd.Flags().BoolVar(&flags.dev, "dev", false, "also serve the devnet admin API")
	return cmd
}
