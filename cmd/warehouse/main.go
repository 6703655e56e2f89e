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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/blinklabs-io/warehouse/database/plugin"
	"github.com/blinklabs-io/warehouse/internal/config"
	"github.com/blinklabs-io/warehouse/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	programName = "warehouse"
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	addSource := false
	if globalFlags.debug {
		level = slog.LevelDebug
		addSource = true
	}
	return slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     level,
		}),
	)
}

func commonRun() *slog.Logger {
	// Configure logger
	logger := newLogger(os.Stdout, slog.LevelInfo)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err := maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		// If we hit this, something really wrong happened
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

// cliLogger is used by one-shot commands, which keep stdout for their result
func cliLogger(cmd *cobra.Command) *slog.Logger {
	return newLogger(cmd.ErrOrStderr(), slog.LevelWarn)
}

// pluginCatalog renders the registered plugins of one type
func pluginCatalog(buf *strings.Builder, title string, pluginType plugin.PluginType) {
	buf.WriteString(title + ":\n")
	for _, p := range plugin.GetPlugins(pluginType) {
		fmt.Fprintf(buf, "  %s: %s\n", p.Name, p.Description)
	}
}

// requestedPluginLists handles "-b list" and "-m list"
func requestedPluginLists(blobPlugin, metadataPlugin string) string {
	var sections []string
	if blobPlugin == "list" {
		var buf strings.Builder
		pluginCatalog(&buf, "Available blob plugins", plugin.PluginTypeBlob)
		sections = append(sections, buf.String())
	}
	if metadataPlugin == "list" {
		var buf strings.Builder
		pluginCatalog(&buf, "Available metadata plugins", plugin.PluginTypeMetadata)
		sections = append(sections, buf.String())
	}
	return strings.Join(sections, "\n")
}

func listAllPlugins() string {
	var buf strings.Builder
	buf.WriteString("Available plugins:\n\n")
	pluginCatalog(&buf, "Blob Storage Plugins", plugin.PluginTypeBlob)
	buf.WriteString("\n")
	pluginCatalog(&buf, "Metadata Storage Plugins", plugin.PluginTypeMetadata)
	return buf.String()
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all available plugins",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), listAllPlugins())
		},
	}
}

func versionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"%s %s\n",
				programName,
				version.GetVersionString(),
			)
		},
	}
	return cmd
}

// configFromCommand returns the config loaded by the root command
func configFromCommand(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	return cfg, nil
}

func newRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Collateralized pledge warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return serveRun(cfg)
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().
		StringP("blob", "b", config.DefaultBlobPlugin, "blob store plugin to use, 'list' to show available")
	rootCmd.PersistentFlags().
		StringP("metadata", "m", config.DefaultMetadataPlugin, "metadata store plugin to use, 'list' to show available")
	rootCmd.PersistentFlags().
		String("data-dir", "", "database directory, overrides the configured databasePath")

	// Add plugin-specific flags
	if err := plugin.PopulateCmdlineOptions(rootCmd.PersistentFlags()); err != nil {
		return nil, fmt.Errorf("adding plugin flags: %w", err)
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Handle plugin listing before config loading
		blobPlugin, _ := cmd.Root().PersistentFlags().GetString("blob")
		metadataPlugin, _ := cmd.Root().PersistentFlags().GetString("metadata")

		if output := requestedPluginLists(blobPlugin, metadataPlugin); output != "" {
			fmt.Fprint(cmd.OutOrStdout(), output)
			os.Exit(0)
		}

		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with command line flags
		if blobPlugin != config.DefaultBlobPlugin {
			cfg.BlobPlugin = blobPlugin
		}
		if metadataPlugin != config.DefaultMetadataPlugin {
			cfg.MetadataPlugin = metadataPlugin
		}
		if dataDir, _ := cmd.Root().PersistentFlags().GetString("data-dir"); dataDir != "" {
			cfg.DatabasePath = dataDir
		}

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(instantiateCommand())
	rootCmd.AddCommand(pledgeCommand())
	rootCmd.AddCommand(approvePledgeCommand())
	rootCmd.AddCommand(paydownCommand())
	rootCmd.AddCommand(approvePaydownCommand())
	rootCmd.AddCommand(executeCommand())
	rootCmd.AddCommand(queryCommand())
	rootCmd.AddCommand(devnetCommand())
	rootCmd.AddCommand(listCommand())
	rootCmd.AddCommand(versionCommand())
	return rootCmd, nil
}

func main() {
	rootCmd, err := newRootCommand()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Execute cobra command
	if err := rootCmd.Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}
