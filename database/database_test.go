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

package database_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/warehouse/database"
	"github.com/blinklabs-io/warehouse/pledge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func testPledge(status pledge.Status) pledge.Pledge {
	return pledge.Pledge{
		Amount:          pledge.NewCoin("usettle", 100),
		MarkerAddress:   "marker-a",
		OriginatorNftID: pledge.TokenID("contract", "marker-a", pledge.RoleOriginator),
		Status:          status,
	}
}

func TestTxnDoCommitsBothStores(t *testing.T) {
	db := newTestDatabase(t)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetPledge("p1", testPledge(pledge.StatusPledged), txn); err != nil {
			return err
		}
		return db.AddPledgeTransition(pledge.Transition{
			PledgeID:  "p1",
			Operation: pledge.OperationPledge,
			Sender:    "originator",
			To:        pledge.StatusPledged,
			Time:      time.Unix(1700000000, 0),
		}, txn)
	})
	require.NoError(t, err)

	got, err := db.GetPledge("p1", nil)
	require.NoError(t, err)
	assert.Equal(t, pledge.StatusPledged, got.Status)
	assert.True(t, got.Amount.Equal(pledge.NewCoin("usettle", 100)))

	entries, err := db.GetPledges(0, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].ID)

	history, err := db.GetPledgeTransitions("p1", nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, pledge.OperationPledge, history[0].Operation)
	assert.Equal(t, pledge.Status(0), history[0].From)
	assert.Equal(t, pledge.StatusPledged, history[0].To)
}

func TestTxnDoRollsBackOnError(t *testing.T) {
	db := newTestDatabase(t)
	errTest := errors.New("test failure")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetPledge("p1", testPledge(pledge.StatusPledged), txn); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)

	exists, err := db.PledgeExists("p1", nil)
	require.NoError(t, err)
	assert.False(t, exists)
	entries, err := db.GetPledges(0, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(false)
	defer txn.Release()
	err := db.SetConfiguration(pledge.Configuration{Denom: "usettle", NftClassID: "wsc"}, txn)
	require.Error(t, err)
}

func TestGetPledgesByStatus(t *testing.T) {
	db := newTestDatabase(t)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		for id, status := range map[string]pledge.Status{
			"b": pledge.StatusPledged,
			"a": pledge.StatusPledged,
			"c": pledge.StatusApproved,
		} {
			if err := db.SetPledge(id, testPledge(status), txn); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	pledged, err := db.GetPledges(pledge.StatusPledged, nil)
	require.NoError(t, err)
	require.Len(t, pledged, 2)
	assert.Equal(t, "a", pledged[0].ID)
	assert.Equal(t, "b", pledged[1].ID)

	approved, err := db.GetPledges(pledge.StatusApproved, nil)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "c", approved[0].ID)
}

func TestLedgerErrorMapping(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	defer txn.Release()
	ledger := db.Ledger(txn)

	_, err := ledger.Configuration()
	require.ErrorIs(t, err, pledge.ErrNotInstantiated)
	_, err = ledger.ContractInfo()
	require.ErrorIs(t, err, pledge.ErrNotInstantiated)
	_, err = ledger.Pledge("missing")
	require.ErrorIs(t, err, pledge.ErrPledgeNotFound)
	ok, err := ledger.HasPledge("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	config := pledge.Configuration{Denom: "usettle", NftClassID: "wsc"}
	require.NoError(t, ledger.SetConfiguration(config))
	got, err := ledger.Configuration()
	require.NoError(t, err)
	assert.Equal(t, config, *got)

	info := pledge.ContractVersion{Contract: "warehouse", Version: "test"}
	require.NoError(t, ledger.SetContractInfo(info))
	gotInfo, err := ledger.ContractInfo()
	require.NoError(t, err)
	assert.Equal(t, info, *gotInfo)
}

func TestLedgerInfrastructureError(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Rollback())
	// The transaction is finished, so every store call fails
	_, err := db.Ledger(txn).Pledge("p1")
	var infraErr *pledge.InfrastructureError
	require.ErrorAs(t, err, &infraErr)
	assert.Equal(t, "load pledge", infraErr.Op)
}

func TestCommitTimestampPersisted(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetConfiguration(pledge.Configuration{Denom: "usettle", NftClassID: "wsc"}, txn)
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	config, err := db.GetConfiguration(nil)
	require.NoError(t, err)
	assert.Equal(t, "usettle", config.Denom)
	require.NoError(t, db.Close())
}

func TestCommitTimestampMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetPledge("p1", testPledge(pledge.StatusPledged), txn)
	})
	require.NoError(t, err)
	// Simulate a unit that only reached the blob store
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(1, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.NotNil(t, db)
	defer db.Close() //nolint:errcheck
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{BlobPlugin: "missing"})
	require.Error(t, err)
	_, err = database.New(&database.Config{MetadataPlugin: "missing"})
	require.Error(t, err)
}

func TestTxnMetricsAndClock(t *testing.T) {
	reg := prometheus.NewRegistry()
	stamp := time.UnixMilli(1700000000123)
	db, err := database.New(&database.Config{
		PromRegistry: reg,
		Clock:        func() time.Time { return stamp },
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetPledge("p1", testPledge(pledge.StatusPledged), txn)
	}))
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return errors.New("boom")
	})
	require.Error(t, err)
	// Read-only transactions are not counted
	txn := db.Transaction(false)
	txn.Release()

	ts, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, stamp.UnixMilli(), ts)
	last, err := db.LastCommit()
	require.NoError(t, err)
	assert.True(t, stamp.Equal(last))

	expected := `
# HELP warehouse_database_txns_total Read-write database transactions by outcome
# TYPE warehouse_database_txns_total counter
warehouse_database_txns_total{result="committed"} 1
warehouse_database_txns_total{result="rolled_back"} 1
`
	require.NoError(t, testutil.GatherAndCompare(
		reg,
		strings.NewReader(expected),
		"warehouse_database_txns_total",
	))
}

func TestLastCommitEmpty(t *testing.T) {
	db := newTestDatabase(t)
	last, err := db.LastCommit()
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestTxnDoAfterFinish(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(*database.Txn) error { return nil }))
	err := txn.Do(func(*database.Txn) error { return nil })
	require.ErrorIs(t, err, database.ErrTxnFinished)
}
