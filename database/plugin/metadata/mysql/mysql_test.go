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
	"testing"

	"github.com/blinklabs-io/warehouse/database/plugin/metadata/internal/gormstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnString(t *testing.T) {
	db, err := NewWithOptions(WithServer(gormstore.Server{
		Host:     "db.internal",
		User:     "warehouse",
		Password: "secret",
	}))
	require.NoError(t, err)
	dsn := db.connString()
	assert.Contains(t, dsn, "warehouse:secret@tcp(db.internal:3306)/warehouse")
	assert.Contains(t, dsn, "parseTime=true")
	assert.NoError(t, db.Close())
}

func TestDSNOverridesOptions(t *testing.T) {
	db, err := NewWithOptions(WithServer(gormstore.Server{DSN: " u:p@tcp(h:3306)/x "}))
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(h:3306)/x", db.connString())
}
