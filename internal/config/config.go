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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/warehouse/database"
	"github.com/blinklabs-io/warehouse/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "warehouse.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultContractAddress = "warehouse1contract"
	DefaultBlobPlugin      = database.DefaultBlobPlugin
	DefaultMetadataPlugin  = database.DefaultMetadataPlugin
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// RunMode represents the operational mode of the warehouse service
type RunMode string

const (
	RunModeServe RunMode = "serve" // Operation API only (default)
	RunModeDev   RunMode = "dev"   // Also exposes the devnet admin API
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeDev, "":
		return true
	default:
		return false
	}
}

// IsDevMode returns true if the devnet admin API is enabled
func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

type tempConfig struct {
	Config   *Config         `yaml:"config,omitempty"`
	Database *databaseConfig `yaml:"database,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	DatabasePath    string  `yaml:"databasePath"    split_words:"true"`
	BlobPlugin      string  `yaml:"blobPlugin"      envconfig:"WAREHOUSE_DATABASE_BLOB_PLUGIN"`
	MetadataPlugin  string  `yaml:"metadataPlugin"  envconfig:"WAREHOUSE_DATABASE_METADATA_PLUGIN"`
	ContractAddress string  `yaml:"contractAddress" split_words:"true"`
	BindAddr        string  `yaml:"bindAddr"        split_words:"true"`
	ShutdownTimeout string  `yaml:"shutdownTimeout" split_words:"true"`
	RunMode         RunMode `yaml:"runMode"         envconfig:"WAREHOUSE_RUN_MODE"`
	ApiPort         uint    `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint    `yaml:"metricsPort"     split_words:"true"`
	Tracing         bool    `yaml:"tracing"`
	TracingStdout   bool    `yaml:"tracingStdout"   split_words:"true"`
}

// ShutdownTimeoutDuration parses ShutdownTimeout, falling back to the default
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.ShutdownTimeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultShutdownTimeout)
	return d
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:    ".warehouse",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		ContractAddress: DefaultContractAddress,
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		RunMode:         RunModeServe,
		ApiPort:         8080,
		MetricsPort:     12799,
	}
}

// findConfigFile looks in ~/.warehouse/warehouse.yaml then /etc/warehouse/warehouse.yaml
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".warehouse", "warehouse.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/warehouse/warehouse.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// pluginSection splits a database.blob or database.metadata section into the
// selected plugin name and per-plugin option maps
func pluginSection(section string, raw map[string]any) (string, map[string]map[string]any) {
	var name string
	if pluginVal, ok := raw["plugin"].(string); ok {
		name = pluginVal
	}
	ret := make(map[string]map[string]any)
	for k, v := range raw {
		if k == "plugin" {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			tmp := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					tmp[keyStr] = vv
				}
			}
			ret[k] = tmp
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				section,
				k,
				v,
			)
		}
	}
	return name, ret
}

// LoadConfig builds the configuration from defaults, the YAML file and the
// environment, in that order of precedence
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			if err := yaml.Unmarshal(configBytes, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		pluginConfig := make(map[string]map[string]map[string]any)
		if tempCfg.Database != nil {
			if tempCfg.Database.Blob != nil {
				name, opts := pluginSection("blob", tempCfg.Database.Blob)
				if name != "" {
					cfg.BlobPlugin = name
				}
				pluginConfig["blob"] = opts
			}
			if tempCfg.Database.Metadata != nil {
				name, opts := pluginSection("metadata", tempCfg.Database.Metadata)
				if name != "" {
					cfg.MetadataPlugin = name
				}
				pluginConfig["metadata"] = opts
			}
		}
		if len(pluginConfig) > 0 {
			if err := plugin.ProcessConfig(pluginConfig); err != nil {
				return nil, fmt.Errorf(
					"error processing plugin config: %w",
					err,
				)
			}
		}
	}
	// Process environment variables
	if err := envconfig.Process("warehouse", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if !cfg.RunMode.Valid() {
		return nil, fmt.Errorf(
			"invalid runMode: %q (must be 'serve' or 'dev')",
			cfg.RunMode,
		)
	}
	if cfg.RunMode == "" {
		cfg.RunMode = RunModeServe
	}
	if cfg.ContractAddress == "" {
		return nil, errors.New("contractAddress must not be empty")
	}
	return cfg, nil
}
