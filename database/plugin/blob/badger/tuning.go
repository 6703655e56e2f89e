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
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

// Tuning holds the badger sizing knobs. Contract state is small, so the
// defaults sit far below badger's own
type Tuning struct {
	BlockCacheSize   uint64
	IndexCacheSize   uint64
	ValueLogFileSize uint64
	MemTableSize     uint64
	ValueThreshold   uint64
	// GcInterval of zero disables value log GC
	GcInterval time.Duration
}

func DefaultTuning() Tuning {
	return Tuning{
		BlockCacheSize:   64 << 20,
		IndexCacheSize:   32 << 20,
		ValueLogFileSize: 64 << 20,
		MemTableSize:     16 << 20,
		ValueThreshold:   1 << 10,
		GcInterval:       5 * time.Minute,
	}
}

// apply maps the tuning onto badger options for an on-disk store
func (t Tuning) apply(opts badger.Options) badger.Options {
	//nolint:gosec
	return opts.
		WithBlockCacheSize(int64(t.BlockCacheSize)).
		WithIndexCacheSize(int64(t.IndexCacheSize)).
		WithValueLogFileSize(int64(t.ValueLogFileSize)).
		WithMemTableSize(int64(t.MemTableSize)).
		WithValueThreshold(int64(t.ValueThreshold)).
		WithCompression(options.Snappy)
}

type BlobStoreBadgerOptionFunc func(*BlobStoreBadger)

func WithLogger(logger *slog.Logger) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.promRegistry = registry
	}
}

// WithDataDir sets where the store lives on disk. An empty value keeps
// everything in memory
func WithDataDir(dataDir string) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.dataDir = dataDir
	}
}

// WithTuning replaces the whole tuning block
func WithTuning(t Tuning) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.tuning = t
	}
}

// WithGcInterval overrides only the GC interval. Zero disables GC
func WithGcInterval(interval time.Duration) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.tuning.GcInterval = interval
	}
}
