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

package types_test

import (
	"testing"

	"github.com/blinklabs-io/warehouse/database/types"
	"github.com/stretchr/testify/assert"
)

func TestPledgeKey(t *testing.T) {
	assert.Equal(t, []byte("pledges/abc"), types.PledgeKey("abc"))
}

func TestDevnetKey(t *testing.T) {
	assert.Equal(
		t,
		[]byte("devnet/marker/m1/access"),
		types.DevnetKey("marker", "m1", "access"),
	)
	assert.Equal(t, []byte("devnet/"), types.DevnetKey())
	// Separators inside a segment stay inside it
	assert.NotEqual(
		t,
		types.DevnetKey("nft", "a", "b/c"),
		types.DevnetKey("nft", "a/b", "c"),
	)
	assert.Equal(
		t,
		[]byte("devnet/nft/a%2Fb/c"),
		types.DevnetKey("nft", "a/b", "c"),
	)
	assert.NotEqual(
		t,
		types.DevnetKey("nft", "a%2Fb"),
		types.DevnetKey("nft", "a/b"),
	)
}

func TestTimestampEncoding(t *testing.T) {
	for _, ts := range []int64{0, 1, 1700000000123, -5} {
		buf := types.EncodeTimestamp(ts)
		assert.Len(t, buf, 8)
		got, err := types.DecodeTimestamp(buf)
		assert.NoError(t, err)
		assert.Equal(t, ts, got)
	}
	_, err := types.DecodeTimestamp([]byte{1, 2, 3})
	assert.ErrorContains(t, err, "expected 8 bytes, got 3")
}
