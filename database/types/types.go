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

package types

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Txn is the handle a store hands out for a unit of work. The database
// layer pairs one blob Txn with one metadata Txn
type Txn interface {
	Commit() error
	Rollback() error
}

var (
	ErrBlobKeyNotFound = errors.New("blob key not found")
	ErrTxnWrongType    = errors.New("invalid transaction type")
	ErrNilTxn          = errors.New("nil transaction")
	ErrReadOnlyTxn     = errors.New("read-only transaction")
)

// timestampSize is the width of an encoded commit timestamp
const timestampSize = 8

// EncodeTimestamp renders a commit timestamp as 8 big-endian bytes
func EncodeTimestamp(ts int64) []byte {
	buf := make([]byte, timestampSize)
	binary.BigEndian.PutUint64(buf, uint64(ts)) //nolint:gosec
	return buf
}

// DecodeTimestamp is the inverse of EncodeTimestamp
func DecodeTimestamp(buf []byte) (int64, error) {
	if len(buf) != timestampSize {
		return 0, fmt.Errorf(
			"commit timestamp: expected %d bytes, got %d",
			timestampSize,
			len(buf),
		)
	}
	return int64(binary.BigEndian.Uint64(buf)), nil //nolint:gosec
}
