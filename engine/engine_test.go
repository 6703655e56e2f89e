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

package engine_test

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/warehouse/engine"
	"github.com/blinklabs-io/warehouse/gateway"
	"github.com/blinklabs-io/warehouse/pledge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testContract = "contract1"
	testMarker   = "markerA"
	testClass    = "wsc"
	testDenom    = "usettle"
	testOrig     = "originator"
	testLender   = "lender"
)

type memStore struct {
	info        *pledge.ContractVersion
	config      *pledge.Configuration
	pledges     map[string]pledge.Pledge
	transitions []pledge.Transition
	writes      int
	err         error
}

func newMemStore() *memStore {
	return &memStore{pledges: make(map[string]pledge.Pledge)}
}

func (s *memStore) ContractInfo() (*pledge.ContractVersion, error) {
	if s.info == nil {
		return nil, pledge.ErrNotInstantiated
	}
	tmp := *s.info
	return &tmp, nil
}

func (s *memStore) SetContractInfo(v pledge.ContractVersion) error {
	s.writes++
	s.info = &v
	return nil
}

func (s *memStore) Configuration() (*pledge.Configuration, error) {
	if s.err != nil {
		return nil, pledge.NewInfrastructureError("load configuration", s.err)
	}
	if s.config == nil {
		return nil, pledge.ErrNotInstantiated
	}
	tmp := *s.config
	return &tmp, nil
}

func (s *memStore) SetConfiguration(c pledge.Configuration) error {
	s.writes++
	s.config = &c
	return nil
}

func (s *memStore) Pledge(id string) (*pledge.Pledge, error) {
	p, ok := s.pledges[id]
	if !ok {
		return nil, pledge.ErrPledgeNotFound
	}
	return &p, nil
}

func (s *memStore) HasPledge(id string) (bool, error) {
	_, ok := s.pledges[id]
	return ok, nil
}

func (s *memStore) SetPledge(id string, p pledge.Pledge) error {
	s.writes++
	s.pledges[id] = p
	return nil
}

func (s *memStore) RecordTransition(t pledge.Transition) error {
	s.writes++
	s.transitions = append(s.transitions, t)
	return nil
}

func (s *memStore) Pledges(status pledge.Status) ([]pledge.Entry, error) {
	ret := []pledge.Entry{}
	for _, id := range slices.Sorted(maps.Keys(s.pledges)) {
		p := s.pledges[id]
		if status != 0 && p.Status != status {
			continue
		}
		ret = append(ret, pledge.Entry{ID: id, Pledge: p})
	}
	return ret, nil
}

func (s *memStore) History(id string) ([]pledge.Transition, error) {
	ret := []pledge.Transition{}
	for _, t := range s.transitions {
		if t.PledgeID == id {
			ret = append(ret, t)
		}
	}
	return ret, nil
}

// chain is a minimal marker and token oracle that applies emitted messages
type chain struct {
	grants   map[string][]gateway.AccessGrant
	holdings map[string][]gateway.Balance
	owners   map[string]string
	classes  map[string]bool
}

func newChain() *chain {
	return &chain{
		grants: map[string][]gateway.AccessGrant{
			testMarker: {
				{
					Address:     testContract,
					Permissions: []gateway.Access{gateway.AccessMint, gateway.AccessWithdraw},
				},
			},
		},
		holdings: map[string][]gateway.Balance{
			testMarker: {
				{Address: testMarker, Coins: []pledge.Coin{pledge.NewCoin("markerA", 1)}},
			},
		},
		owners:  make(map[string]string),
		classes: make(map[string]bool),
	}
}

func (c *chain) MarkerAccess(addr string) ([]gateway.AccessGrant, error) {
	return c.grants[addr], nil
}

func (c *chain) MarkerHolding(addr string) ([]gateway.Balance, error) {
	return c.holdings[addr], nil
}

func (c *chain) NftOwner(classID string, tokenID string) (string, error) {
	return c.owners[classID+"/"+tokenID], nil
}

func (c *chain) NftClassExists(classID string) (bool, error) {
	return c.classes[classID], nil
}

func (c *chain) deliver(resp *pledge.Response) {
	for _, m := range resp.Messages {
		switch v := m.(type) {
		case pledge.MsgCreateAssetClass:
			c.classes[v.ClassID] = true
		case pledge.MsgCreateAsset:
			c.owners[v.ClassID+"/"+v.ID] = v.FromAddress
		case pledge.MsgSend:
			c.owners[v.ClassID+"/"+v.ID] = v.Receiver
		case pledge.MsgBurnAsset:
			delete(c.owners, v.ClassID+"/"+v.ID)
		}
	}
}

// addMarker registers another marker the contract may pledge
func (c *chain) addMarker(addr string) {
	c.grants[addr] = c.grants[testMarker]
	c.holdings[addr] = []gateway.Balance{
		{Address: addr, Coins: []pledge.Coin{pledge.NewCoin(addr, 1)}},
	}
}

type fixture struct {
	store  *memStore
	chain  *chain
	engine *engine.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newMemStore(),
		chain: newChain(),
	}
	f.engine = engine.New(engine.Config{
		Store:   f.store,
		Gateway: gateway.New(f.chain, f.chain),
		Env: engine.Env{
			ContractAddress: testContract,
			Time:            time.Unix(1700000000, 0).UTC(),
		},
		Version: "v0.1.0",
	})
	return f
}

func (f *fixture) instantiate(t *testing.T) {
	t.Helper()
	resp, err := f.engine.Instantiate(engine.Info{Sender: "admin"}, testDenom, testClass)
	require.NoError(t, err)
	f.chain.deliver(resp)
}

func (f *fixture) pledge(t *testing.T, id string) {
	t.Helper()
	f.pledgeOn(t, id, testMarker)
}

func (f *fixture) pledgeOn(t *testing.T, id string, marker string) {
	t.Helper()
	resp, err := f.engine.Pledge(
		engine.Info{Sender: testOrig, Funds: []pledge.Coin{pledge.NewCoin(testDenom, 1)}},
		id,
		pledge.NewCoin(testDenom, 100),
		marker,
	)
	require.NoError(t, err)
	f.chain.deliver(resp)
}

func (f *fixture) approve(t *testing.T, id string) {
	t.Helper()
	resp, err := f.engine.ApprovePledge(
		engine.Info{Sender: testLender, Funds: []pledge.Coin{pledge.NewCoin(testDenom, 100)}},
		id,
	)
	require.NoError(t, err)
	f.chain.deliver(resp)
}

func TestInstantiate(t *testing.T) {
	f := newFixture(t)
	resp, err := f.engine.Instantiate(engine.Info{Sender: "admin"}, testDenom, testClass)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(
		t,
		pledge.MsgCreateAssetClass{
			ClassID:     testClass,
			Name:        "WSC",
			Symbol:      "WSC",
			Description: pledge.AssetClassDescription,
			FromAddress: testContract,
		},
		resp.Messages[0],
	)
	method, _ := resp.Attribute("method")
	assert.Equal(t, "instantiate", method)
	cfg, err := f.engine.QueryConfig()
	require.NoError(t, err)
	assert.Equal(t, pledge.Configuration{Denom: testDenom, NftClassID: testClass}, *cfg)
	info, err := f.engine.QueryContractInfo()
	require.NoError(t, err)
	assert.Equal(t, pledge.ContractName, info.Contract)
	assert.Equal(t, "v0.1.0", info.Version)
}

func TestInstantiateTwice(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	writes := f.store.writes
	_, err := f.engine.Instantiate(engine.Info{}, "other", testClass)
	require.ErrorIs(t, err, pledge.ErrNftClassInUse)
	_, err = f.engine.Instantiate(engine.Info{}, "other", "other-class")
	require.ErrorIs(t, err, pledge.ErrAlreadyInstantiated)
	assert.Equal(t, writes, f.store.writes)
	cfg, err := f.engine.QueryConfig()
	require.NoError(t, err)
	assert.Equal(t, testDenom, cfg.Denom)
}

func TestInstantiateInvalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Instantiate(engine.Info{}, "", testClass)
	require.ErrorIs(t, err, pledge.ErrInvalidRequest)
	_, err = f.engine.Instantiate(engine.Info{}, testDenom, "")
	require.ErrorIs(t, err, pledge.ErrInvalidRequest)
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)

	resp, err := f.engine.Pledge(
		engine.Info{Sender: testOrig, Funds: []pledge.Coin{pledge.NewCoin(testDenom, 1)}},
		"p1",
		pledge.NewCoin(testDenom, 100),
		testMarker,
	)
	require.NoError(t, err)
	origToken := "contract1.markerA.ORIGINATOR"
	assert.Equal(
		t,
		[]pledge.Message{
			pledge.MsgCreateAsset{ClassID: testClass, ID: origToken, FromAddress: testContract},
			pledge.MsgSend{ClassID: testClass, ID: origToken, Sender: testContract, Receiver: testOrig},
		},
		resp.Messages,
	)
	amount, _ := resp.Attribute("amount")
	assert.Equal(t, "100usettle", amount)
	f.chain.deliver(resp)

	f.approve(t, "p1")
	p, err := f.engine.QueryPledge("p1")
	require.NoError(t, err)
	assert.Equal(t, pledge.StatusApproved, p.Status)
	assert.Equal(t, "contract1.markerA.LENDER", p.LenderNftID)
	assert.Equal(t, testLender, f.chain.owners[testClass+"/contract1.markerA.LENDER"])

	resp, err = f.engine.Paydown(engine.Info{Sender: testOrig}, "p1")
	require.NoError(t, err)
	assert.Empty(t, resp.Messages)

	resp, err = f.engine.ApprovePaydown(engine.Info{Sender: testLender}, "p1")
	require.NoError(t, err)
	assert.Equal(
		t,
		[]pledge.Message{
			pledge.MsgBurnAsset{ClassID: testClass, ID: origToken, FromAddress: testContract},
			pledge.MsgBurnAsset{ClassID: testClass, ID: "contract1.markerA.LENDER", FromAddress: testContract},
		},
		resp.Messages,
	)
	p, err = f.engine.QueryPledge("p1")
	require.NoError(t, err)
	assert.Equal(t, pledge.StatusPaydownApproved, p.Status)

	history, err := f.engine.PledgeHistory("p1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, pledge.OperationPledge, history[0].Operation)
	assert.Equal(t, pledge.Status(0), history[0].From)
	assert.Equal(t, pledge.StatusPaydownRequested, history[3].From)
	assert.Equal(t, pledge.StatusPaydownApproved, history[3].To)
	assert.Equal(t, testLender, history[3].Sender)
}

func TestPledgeRejections(t *testing.T) {
	testDefs := []struct {
		name   string
		setup  func(*fixture)
		id     string
		amount pledge.Coin
		funds  []pledge.Coin
		err    error
	}{
		{
			name:   "empty id",
			amount: pledge.NewCoin(testDenom, 100),
			funds:  []pledge.Coin{pledge.NewCoin(testDenom, 1)},
			err:    pledge.ErrInvalidRequest,
		},
		{
			name:   "wrong amount denom",
			id:     "p1",
			amount: pledge.NewCoin("other", 100),
			funds:  []pledge.Coin{pledge.NewCoin(testDenom, 1)},
			err:    pledge.ErrInvalidFunds,
		},
		{
			name:   "zero amount",
			id:     "p1",
			amount: pledge.NewCoin(testDenom, 0),
			funds:  []pledge.Coin{pledge.NewCoin(testDenom, 1)},
			err:    pledge.ErrInvalidFunds,
		},
		{
			name:   "no funds",
			id:     "p1",
			amount: pledge.NewCoin(testDenom, 100),
			err:    pledge.ErrInvalidFunds,
		},
		{
			name: "admin grant",
			setup: func(f *fixture) {
				f.chain.grants[testMarker][0].Permissions = append(
					f.chain.grants[testMarker][0].Permissions,
					gateway.AccessAdmin,
				)
			},
			id:     "p1",
			amount: pledge.NewCoin(testDenom, 100),
			funds:  []pledge.Coin{pledge.NewCoin(testDenom, 1)},
			err:    pledge.ErrInvalidCustodialPermissions,
		},
		{
			name: "no grant",
			setup: func(f *fixture) {
				delete(f.chain.grants, testMarker)
			},
			id:     "p1",
			amount: pledge.NewCoin(testDenom, 100),
			funds:  []pledge.Coin{pledge.NewCoin(testDenom, 1)},
			err:    pledge.ErrInvalidCustodialPermissions,
		},
		{
			name: "other holder",
			setup: func(f *fixture) {
				f.chain.holdings[testMarker] = append(
					f.chain.holdings[testMarker],
					gateway.Balance{Address: "someone"},
				)
			},
			id:     "p1",
			amount: pledge.NewCoin(testDenom, 100),
			funds:  []pledge.Coin{pledge.NewCoin(testDenom, 1)},
			err:    pledge.ErrInvalidCustodialHolding,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			f := newFixture(t)
			f.instantiate(t)
			if testDef.setup != nil {
				testDef.setup(f)
			}
			writes := f.store.writes
			resp, err := f.engine.Pledge(
				engine.Info{Sender: testOrig, Funds: testDef.funds},
				testDef.id,
				testDef.amount,
				testMarker,
			)
			require.ErrorIs(t, err, testDef.err)
			assert.Nil(t, resp)
			assert.Equal(t, writes, f.store.writes)
			_, err = f.engine.QueryPledge("p1")
			require.ErrorIs(t, err, pledge.ErrPledgeNotFound)
		})
	}
}

func TestPledgeBeforeInstantiate(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Pledge(
		engine.Info{Sender: testOrig, Funds: []pledge.Coin{pledge.NewCoin(testDenom, 1)}},
		"p1",
		pledge.NewCoin(testDenom, 100),
		testMarker,
	)
	require.ErrorIs(t, err, pledge.ErrNotInstantiated)
}

func TestPledgeIDReuse(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	f.pledge(t, "p1")
	_, err := f.engine.Pledge(
		engine.Info{Sender: "intruder", Funds: []pledge.Coin{pledge.NewCoin(testDenom, 1)}},
		"p1",
		pledge.NewCoin(testDenom, 5),
		testMarker,
	)
	require.ErrorIs(t, err, pledge.ErrPledgeExists)
	p, err := f.engine.QueryPledge("p1")
	require.NoError(t, err)
	assert.Equal(t, "100", p.Amount.Amount.String())
}

func TestApprovePledgeFundsExactness(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	f.pledge(t, "p1")
	for _, funds := range [][]pledge.Coin{
		nil,
		{pledge.NewCoin(testDenom, 99)},
		{pledge.NewCoin(testDenom, 101)},
		{pledge.NewCoin("other", 100)},
		{pledge.NewCoin(testDenom, 50), pledge.NewCoin(testDenom, 50)},
	} {
		_, err := f.engine.ApprovePledge(engine.Info{Sender: testLender, Funds: funds}, "p1")
		require.ErrorIs(t, err, pledge.ErrInvalidFunds)
	}
	p, err := f.engine.QueryPledge("p1")
	require.NoError(t, err)
	assert.Equal(t, pledge.StatusPledged, p.Status)
	assert.Empty(t, p.LenderNftID)
}

func TestApprovePledgeTwice(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	f.pledge(t, "p1")
	f.approve(t, "p1")
	_, err := f.engine.ApprovePledge(
		engine.Info{Sender: "other", Funds: []pledge.Coin{pledge.NewCoin(testDenom, 100)}},
		"p1",
	)
	require.ErrorIs(t, err, pledge.ErrInvalidPledgeStatus)
	assert.Equal(t, testLender, f.chain.owners[testClass+"/contract1.markerA.LENDER"])
}

func TestTransitionsUnknownPledge(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	_, err := f.engine.ApprovePledge(
		engine.Info{Sender: testLender, Funds: []pledge.Coin{pledge.NewCoin(testDenom, 100)}},
		"missing",
	)
	require.ErrorIs(t, err, pledge.ErrPledgeNotFound)
	_, err = f.engine.Paydown(engine.Info{Sender: testOrig}, "missing")
	require.ErrorIs(t, err, pledge.ErrPledgeNotFound)
	_, err = f.engine.ApprovePaydown(engine.Info{Sender: testLender}, "missing")
	require.ErrorIs(t, err, pledge.ErrPledgeNotFound)
	_, err = f.engine.PledgeHistory("missing")
	require.ErrorIs(t, err, pledge.ErrPledgeNotFound)
}

func TestPaydownOwnership(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	f.pledge(t, "p1")

	// Status is checked before ownership
	_, err := f.engine.Paydown(engine.Info{Sender: "stranger"}, "p1")
	require.ErrorIs(t, err, pledge.ErrInvalidPledgeStatus)

	f.approve(t, "p1")
	_, err = f.engine.Paydown(engine.Info{Sender: testLender}, "p1")
	require.ErrorIs(t, err, pledge.ErrUnauthorized)

	// A transferred right-token carries the right to request paydown
	f.chain.owners[testClass+"/contract1.markerA.ORIGINATOR"] = "buyer"
	_, err = f.engine.Paydown(engine.Info{Sender: testOrig}, "p1")
	require.ErrorIs(t, err, pledge.ErrUnauthorized)
	_, err = f.engine.Paydown(engine.Info{Sender: "buyer"}, "p1")
	require.NoError(t, err)
}

func TestApprovePaydownOwnership(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	f.pledge(t, "p1")
	f.approve(t, "p1")

	_, err := f.engine.ApprovePaydown(engine.Info{Sender: testLender}, "p1")
	require.ErrorIs(t, err, pledge.ErrInvalidPledgeStatus)

	_, err = f.engine.Paydown(engine.Info{Sender: testOrig}, "p1")
	require.NoError(t, err)
	_, err = f.engine.ApprovePaydown(engine.Info{Sender: testOrig}, "p1")
	require.ErrorIs(t, err, pledge.ErrUnauthorized)

	p, err := f.engine.QueryPledge("p1")
	require.NoError(t, err)
	assert.Equal(t, pledge.StatusPaydownRequested, p.Status)

	_, err = f.engine.ApprovePaydown(engine.Info{Sender: testLender}, "p1")
	require.NoError(t, err)
	_, err = f.engine.ApprovePaydown(engine.Info{Sender: testLender}, "p1")
	require.ErrorIs(t, err, pledge.ErrInvalidPledgeStatus)
}

func TestListPledges(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ListPledges(0)
	require.ErrorIs(t, err, pledge.ErrNotInstantiated)
	f.instantiate(t)
	f.chain.addMarker("markerB")
	f.pledge(t, "p2")
	f.pledgeOn(t, "p1", "markerB")
	f.approve(t, "p2")

	all, err := f.engine.ListPledges(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID)
	assert.Equal(t, "p2", all[1].ID)

	approved, err := f.engine.ListPledges(pledge.StatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "p2", approved[0].ID)
}

func TestStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	f.store.err = errors.New("disk on fire")
	_, err := f.engine.Paydown(engine.Info{Sender: testOrig}, "p1")
	var infraErr *pledge.InfrastructureError
	require.ErrorAs(t, err, &infraErr)
	assert.Equal(t, "infrastructure", engine.Result(err))
}

func TestPledgeMarkerInUse(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	f.pledge(t, "p1")
	writes := f.store.writes
	_, err := f.engine.Pledge(
		engine.Info{Sender: "intruder", Funds: []pledge.Coin{pledge.NewCoin(testDenom, 1)}},
		"p2",
		pledge.NewCoin(testDenom, 100),
		testMarker,
	)
	require.ErrorIs(t, err, pledge.ErrCustodialAccountInUse)
	assert.Equal(t, "custodial_account_in_use", engine.Result(err))
	assert.Equal(t, writes, f.store.writes)
	_, err = f.engine.QueryPledge("p2")
	require.ErrorIs(t, err, pledge.ErrPledgeNotFound)

	// Settling p1 burns its tokens and frees the marker
	f.approve(t, "p1")
	resp, err := f.engine.Paydown(engine.Info{Sender: testOrig}, "p1")
	require.NoError(t, err)
	f.chain.deliver(resp)
	resp, err = f.engine.ApprovePaydown(engine.Info{Sender: testLender}, "p1")
	require.NoError(t, err)
	f.chain.deliver(resp)
	f.pledge(t, "p2")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := engine.NewMetrics(reg)
	m.Observe(pledge.OperationInstantiate, nil)
	m.Observe(pledge.OperationPledge, nil)
	m.Observe(pledge.OperationPaydown, fmt.Errorf("%w: p1", pledge.ErrInvalidPledgeStatus))
	m.Observe(pledge.OperationPledge, pledge.NewInfrastructureError("commit unit", errors.New("disk")))

	expected := `
# HELP warehouse_engine_operations_total Pledge lifecycle operations by result
# TYPE warehouse_engine_operations_total counter
warehouse_engine_operations_total{operation="instantiate",result="success"} 1
warehouse_engine_operations_total{operation="paydown",result="invalid_status"} 1
warehouse_engine_operations_total{operation="pledge",result="infrastructure"} 1
warehouse_engine_operations_total{operation="pledge",result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(
		reg,
		strings.NewReader(expected),
		"warehouse_engine_operations_total",
	))
}

func TestNilMetrics(t *testing.T) {
	var m *engine.Metrics
	assert.NotPanics(t, func() {
		m.Observe(pledge.OperationPledge, nil)
	})
	assert.Nil(t, engine.NewMetrics(nil))
}
