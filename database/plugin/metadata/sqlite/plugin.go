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

package sqlite

import (
	"sync"
	"time"

	"github.com/blinklabs-io/warehouse/database/plugin"
)

var cmdline = struct {
	sync.RWMutex
	vacuumHours uint64
	busyMillis  uint64
}{
	vacuumHours: uint64(DefaultVacuumInterval / time.Hour),
	busyMillis:  uint64(DefaultBusyTimeout / time.Millisecond),
}

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "vacuum-interval",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "hours between VACUUM runs (0 disables)",
					DefaultValue: cmdline.vacuumHours,
					Dest:         &cmdline.vacuumHours,
				},
				{
					Name:         "busy-timeout",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "milliseconds to wait on a locked database",
					DefaultValue: cmdline.busyMillis,
					Dest:         &cmdline.busyMillis,
				},
			},
		},
	)
}

func NewFromCmdlineOptions(rt plugin.Runtime) plugin.Plugin {
	cmdline.RLock()
	cfg := Config{
		DataDir:        rt.DataDir,
		Logger:         rt.Logger,
		PromRegistry:   rt.PromRegistry,
		VacuumInterval: time.Duration(cmdline.vacuumHours) * time.Hour,       //nolint:gosec
		BusyTimeout:    time.Duration(cmdline.busyMillis) * time.Millisecond, //nolint:gosec
	}
	cmdline.RUnlock()
	p, err := NewWithConfig(cfg)
	if err != nil {
		// Start() reports the error
		return plugin.NewErrorPlugin(err)
	}
	return p
}
