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

package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

const envVarPrefix = "WAREHOUSE_DATABASE_"

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

// Runtime carries the process-level settings a plugin instance is created
// with. An empty DataDir asks local plugins to keep their data in memory
type Runtime struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
}

type PluginEntry struct {
	NewFromOptionsFunc func(Runtime) Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.RWMutex
)

// Register adds a plugin entry. It is normally called from a plugin package init()
func Register(pluginEntry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered entries for a plugin type
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	ret := []PluginEntry{}
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	return ret
}

// GetPlugin creates a new instance of the named plugin from its current options
func GetPlugin(pluginType PluginType, pluginName string, rt Runtime) Plugin {
	pluginEntriesMutex.RLock()
	var newFunc func(Runtime) Plugin
	for _, p := range pluginEntries {
		if p.Type == pluginType && p.Name == pluginName {
			newFunc = p.NewFromOptionsFunc
			break
		}
	}
	pluginEntriesMutex.RUnlock()
	if newFunc == nil {
		return nil
	}
	return newFunc(rt)
}

func (o PluginOption) flagName(pluginType PluginType, pluginName string) string {
	return fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(pluginType),
		pluginName,
		o.Name,
	)
}

func (o PluginOption) envName(pluginType PluginType, pluginName string) string {
	ret := envVarPrefix + fmt.Sprintf(
		"%s_%s_%s",
		PluginTypeName(pluginType),
		pluginName,
		o.Name,
	)
	return strings.ToUpper(strings.ReplaceAll(ret, "-", "_"))
}

// PopulateCmdlineOptions adds a flag for every plugin option to the flag set
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			name := opt.flagName(p.Type, p.Name)
			switch opt.Type {
			case PluginOptionTypeString:
				dest, ok := opt.Dest.(*string)
				if !ok {
					return fmt.Errorf("invalid destination type for option %s", name)
				}
				def, _ := opt.DefaultValue.(string)
				fs.StringVar(dest, name, def, opt.Description)
			case PluginOptionTypeBool:
				dest, ok := opt.Dest.(*bool)
				if !ok {
					return fmt.Errorf("invalid destination type for option %s", name)
				}
				def, _ := opt.DefaultValue.(bool)
				fs.BoolVar(dest, name, def, opt.Description)
			case PluginOptionTypeInt:
				dest, ok := opt.Dest.(*int)
				if !ok {
					return fmt.Errorf("invalid destination type for option %s", name)
				}
				def, _ := opt.DefaultValue.(int)
				fs.IntVar(dest, name, def, opt.Description)
			case PluginOptionTypeUint:
				dest, ok := opt.Dest.(*uint64)
				if !ok {
					return fmt.Errorf("invalid destination type for option %s", name)
				}
				def, _ := opt.DefaultValue.(uint64)
				fs.Uint64Var(dest, name, def, opt.Description)
			default:
				return fmt.Errorf("unknown plugin option type %d for option %s", opt.Type, name)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin options from the environment, for example
// WAREHOUSE_DATABASE_BLOB_BADGER_DATA_DIR
func ProcessEnvVars() error {
	pluginEntriesMutex.RLock()
	entries := make([]PluginEntry, len(pluginEntries))
	copy(entries, pluginEntries)
	pluginEntriesMutex.RUnlock()
	for _, p := range entries {
		for _, opt := range p.Options {
			val, ok := os.LookupEnv(opt.envName(p.Type, p.Name))
			if !ok {
				continue
			}
			if err := opt.setFromString(val); err != nil {
				return fmt.Errorf(
					"%s plugin '%s' option '%s': %w",
					PluginTypeName(p.Type),
					p.Name,
					opt.Name,
					err,
				)
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin options from a parsed config file. The map is
// keyed by plugin type name, then plugin name, then option name.
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for typeName, plugins := range pluginConfig {
		var pluginType PluginType
		switch typeName {
		case "blob":
			pluginType = PluginTypeBlob
		case "metadata":
			pluginType = PluginTypeMetadata
		default:
			return fmt.Errorf("unknown plugin type: %s", typeName)
		}
		for pluginName, options := range plugins {
			for optName, optVal := range options {
				if err := SetPluginOption(pluginType, pluginName, optName, optVal); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
