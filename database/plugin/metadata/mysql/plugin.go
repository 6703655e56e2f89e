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

package mysql

import (
	"github.com/blinklabs-io/warehouse/database/plugin"
	"github.com/blinklabs-io/warehouse/database/plugin/metadata/internal/gormstore"
)

var cmdlineOptions gormstore.ServerFlags

// Register plugin
func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "mysql",
			Description:        "MySQL relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: cmdlineOptions.Options(
				"MySQL",
				defaultServer,
				"MySQL TLS mode (true, false, skip-verify, preferred)",
			),
		},
	)
}

func NewFromCmdlineOptions(rt plugin.Runtime) plugin.Plugin {
	p, err := NewWithOptions(
		WithServer(cmdlineOptions.Server()),
		WithLogger(rt.Logger),
		WithPromRegistry(rt.PromRegistry),
	)
	if err != nil {
		// Return a plugin that defers the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
