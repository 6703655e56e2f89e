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

package postgres

import (
	"testing"

	"github.com/blinklabs-io/warehouse/database/plugin"
	"github.com/blinklabs-io/warehouse/database/plugin/metadata/internal/gormstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	db, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", db.server.Host)
	assert.Equal(t, uint(5432), db.server.Port)
	assert.Equal(t, "warehouse", db.server.Database)
	assert.Equal(
		t,
		"host=localhost user=postgres password= dbname=warehouse port=5432 sslmode=disable TimeZone=UTC",
		db.connString(),
	)
	// Close before Start is a no-op
	assert.NoError(t, db.Close())
}

func TestDSNOverridesOptions(t *testing.T) {
	db, err := NewWithOptions(WithServer(gormstore.Server{
		Host: "db.internal",
		DSN:  "  postgres://u:p@db:5432/warehouse  ",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/warehouse", db.connString())
}

func TestPluginRegistered(t *testing.T) {
	found := false
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeMetadata) {
		if entry.Name == "postgres" {
			found = true
		}
	}
	assert.True(t, found)
	p := plugin.GetPlugin(plugin.PluginTypeMetadata, "postgres", plugin.Runtime{})
	_, ok := p.(*MetadataStorePostgres)
	assert.True(t, ok)
}
