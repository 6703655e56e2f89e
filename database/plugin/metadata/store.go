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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/warehouse/database/models"
	"github.com/blinklabs-io/warehouse/database/plugin"
	"github.com/blinklabs-io/warehouse/database/types"
	"gorm.io/gorm"
)

// MetadataStore holds the relational pledge index and transition history
type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Pledges
	SetPledge(models.Pledge, types.Txn) error
	GetPledge(string, types.Txn) (*models.Pledge, error)
	GetPledges(
		string, // status, empty for all
		types.Txn,
	) ([]models.Pledge, error)
	AddPledgeTransition(models.PledgeTransition, types.Txn) error
	GetPledgeTransitions(string, types.Txn) ([]models.PledgeTransition, error)
}

// New returns the started metadata plugin selected by name
func New(pluginName string, rt plugin.Runtime) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName, rt)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
