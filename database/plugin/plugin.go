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
	"errors"
	"fmt"
	"strconv"
)

type Plugin interface {
	Start() error
	Stop() error
}

// ErrorPlugin is a plugin that always returns an error on Start()
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

// NewErrorPlugin creates a new error plugin that returns the given error on Start()
func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

var ErrPluginOptionNotFound = errors.New("plugin option not found")

// StartPlugin gets a plugin from the registry and starts it
func StartPlugin(
	pluginType PluginType,
	pluginName string,
	rt Runtime,
) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName, rt)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}

// SetPluginOption sets the value of a named option for a plugin entry. It must
// be called before the plugin is instantiated.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, p := range pluginEntries {
		if p.Type != pluginType || p.Name != pluginName {
			continue
		}
		for _, opt := range p.Options {
			if opt.Name != optionName {
				continue
			}
			return opt.set(value)
		}
		return fmt.Errorf(
			"%w: %s plugin '%s' has no option '%s'",
			ErrPluginOptionNotFound,
			PluginTypeName(pluginType),
			pluginName,
			optionName,
		)
	}
	return fmt.Errorf(
		"%s plugin '%s' not found",
		PluginTypeName(pluginType),
		pluginName,
	)
}

func (o PluginOption) set(value any) error {
	if o.Dest == nil {
		return fmt.Errorf("nil destination for option %s", o.Name)
	}
	switch o.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid type for option %s: expected string", o.Name)
		}
		dest, ok := o.Dest.(*string)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination for option %s: expected *string", o.Name)
		}
		*dest = v
	case PluginOptionTypeBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("invalid type for option %s: expected bool", o.Name)
		}
		dest, ok := o.Dest.(*bool)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination for option %s: expected *bool", o.Name)
		}
		*dest = v
	case PluginOptionTypeInt:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("invalid type for option %s: expected int", o.Name)
		}
		dest, ok := o.Dest.(*int)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination for option %s: expected *int", o.Name)
		}
		*dest = v
	case PluginOptionTypeUint:
		dest, ok := o.Dest.(*uint64)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination for option %s: expected *uint64", o.Name)
		}
		// YAML decodes plain numbers as int
		switch tv := value.(type) {
		case uint64:
			*dest = tv
		case int:
			if tv < 0 {
				return fmt.Errorf("invalid value for option %s: negative int", o.Name)
			}
			*dest = uint64(tv)
		default:
			return fmt.Errorf("invalid type for option %s: expected uint64 or int", o.Name)
		}
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", o.Type, o.Name)
	}
	return nil
}

func (o PluginOption) setFromString(val string) error {
	switch o.Type {
	case PluginOptionTypeString:
		return o.set(val)
	case PluginOptionTypeBool:
		v, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		return o.set(v)
	case PluginOptionTypeInt:
		v, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		return o.set(v)
	case PluginOptionTypeUint:
		v, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return err
		}
		return o.set(v)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", o.Type, o.Name)
	}
}
