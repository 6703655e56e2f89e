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

package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/warehouse/database/types"
)

// CommitTimestampError means the two stores disagree on the last commit,
// so some unit of work only reached one of them
type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: %d (metadata) != %d (blob)",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

// LastCommit reports when the last unit of work was committed. The zero
// time means nothing has been committed yet
func (d *Database) LastCommit() (time.Time, error) {
	ts, err := d.commitTimestamp()
	if err != nil || ts == 0 {
		return time.Time{}, err
	}
	return time.UnixMilli(ts).UTC(), nil
}

// commitTimestamp reads both stores and returns their shared timestamp
func (d *Database) commitTimestamp() (int64, error) {
	meta, err := d.Metadata().GetCommitTimestamp()
	if err != nil {
		return 0, fmt.Errorf("read metadata commit timestamp: %w", err)
	}
	blob, err := d.Blob().GetCommitTimestamp()
	switch {
	case errors.Is(err, types.ErrBlobKeyNotFound):
		blob = 0
	case err != nil:
		return 0, fmt.Errorf("read blob commit timestamp: %w", err)
	}
	if meta != blob {
		return 0, CommitTimestampError{
			MetadataTimestamp: meta,
			BlobTimestamp:     blob,
		}
	}
	return meta, nil
}

func (d *Database) checkCommitTimestamp() error {
	last, err := d.LastCommit()
	if err != nil {
		return err
	}
	if !last.IsZero() {
		d.logger.Debug(
			"stores agree on last commit",
			"component", "database",
			"last_commit", last,
		)
	}
	return nil
}

// stampCommit writes the same timestamp into both halves of txn
func (d *Database) stampCommit(txn *Txn, ts int64) error {
	return errors.Join(
		d.Metadata().SetCommitTimestamp(ts, txn.Metadata()),
		d.Blob().SetCommitTimestamp(ts, txn.Blob()),
	)
}
