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

package badger

import (
	"sync"
	"time"

	"github.com/blinklabs-io/warehouse/database/plugin"
)

// pluginFlags backs the badger command line and config file options
type pluginFlags struct {
	sync.RWMutex
	blockCacheSize uint64
	indexCacheSize uint64
	memTableSize   uint64
	gcSeconds      uint64
}

var flags = newPluginFlags()

func newPluginFlags() *pluginFlags {
	def := DefaultTuning()
	return &pluginFlags{
		blockCacheSize: def.BlockCacheSize,
		indexCacheSize: def.IndexCacheSize,
		memTableSize:   def.MemTableSize,
		gcSeconds:      uint64(def.GcInterval / time.Second),
	}
}

func (f *pluginFlags) options() []plugin.PluginOption {
	def := DefaultTuning()
	return []plugin.PluginOption{
		{
			Name:         "block-cache-size",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "block cache size in bytes",
			DefaultValue: def.BlockCacheSize,
			Dest:         &f.blockCacheSize,
		},
		{
			Name:         "index-cache-size",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "index cache size in bytes",
			DefaultValue: def.IndexCacheSize,
			Dest:         &f.indexCacheSize,
		},
		{
			Name:         "memtable-size",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "memtable size in bytes",
			DefaultValue: def.MemTableSize,
			Dest:         &f.memTableSize,
		},
		{
			Name:         "gc-interval",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "seconds between value log GC runs (0 disables)",
			DefaultValue: uint64(def.GcInterval / time.Second),
			Dest:         &f.gcSeconds,
		},
	}
}

func (f *pluginFlags) tuning() Tuning {
	f.RLock()
	defer f.RUnlock()
	t := DefaultTuning()
	t.BlockCacheSize = f.blockCacheSize
	t.IndexCacheSize = f.indexCacheSize
	t.MemTableSize = f.memTableSize
	t.GcInterval = time.Duration(f.gcSeconds) * time.Second //nolint:gosec
	return t
}

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB local key-value store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            flags.options(),
		},
	)
}

func NewFromCmdlineOptions(rt plugin.Runtime) plugin.Plugin {
	p, err := New(
		WithLogger(rt.Logger),
		WithPromRegistry(rt.PromRegistry),
		WithDataDir(rt.DataDir),
		WithTuning(flags.tuning()),
	)
	if err != nil {
		// Start() reports the error
		return plugin.NewErrorPlugin(err)
	}
	return p
}
