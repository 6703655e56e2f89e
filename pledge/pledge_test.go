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

package pledge_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/blinklabs-io/warehouse/pledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoin(t *testing.T) {
	testDefs := []struct {
		input       string
		expected    pledge.Coin
		expectError bool
	}{
		{input: "100usettle", expected: pledge.NewCoin("usettle", 100)},
		{input: " 5nhash ", expected: pledge.NewCoin("nhash", 5)},
		{input: "usettle", expectError: true},
		{input: "100", expectError: true},
		{input: "-1usettle", expectError: true},
	}
	for _, testDef := range testDefs {
		coin, err := pledge.ParseCoin(testDef.input)
		if testDef.expectError {
			assert.Error(t, err, "input %q", testDef.input)
			continue
		}
		require.NoError(t, err, "input %q", testDef.input)
		assert.True(
			t,
			coin.Equal(testDef.expected),
			"input %q: got %s, expected %s",
			testDef.input,
			coin,
			testDef.expected,
		)
	}
}

func TestParseCoinsEmpty(t *testing.T) {
	coins, err := pledge.ParseCoins("")
	require.NoError(t, err)
	assert.Empty(t, coins)
	coins, err = pledge.ParseCoins("1usettle,2nhash")
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "2nhash", coins[1].String())
}

func TestCoinJSON(t *testing.T) {
	coin := pledge.NewCoin("usettle", 100)
	data, err := json.Marshal(coin)
	require.NoError(t, err)
	assert.JSONEq(t, `{"denom":"usettle","amount":"100"}`, string(data))

	var decoded pledge.Coin
	require.Error(t, json.Unmarshal([]byte(`{"denom":"usettle","amount":100}`), &decoded))
	// Amounts larger than uint64 survive
	big := `{"denom":"usettle","amount":"340282366920938463463374607431768211455"}`
	require.NoError(t, json.Unmarshal([]byte(big), &decoded))
	assert.Equal(t, "340282366920938463463374607431768211455usettle", decoded.String())
}

func TestAmountZeroValue(t *testing.T) {
	var a pledge.Amount
	assert.Equal(t, "0", a.String())
	assert.Equal(t, 0, a.Sign())
	assert.True(t, a.Equal(pledge.NewAmount(0)))
	assert.False(t, a.Equal(pledge.NewAmount(1)))
}

func TestStatusForwardOnly(t *testing.T) {
	order := []pledge.Status{
		pledge.StatusPledged,
		pledge.StatusApproved,
		pledge.StatusPaydownRequested,
		pledge.StatusPaydownApproved,
	}
	for i, from := range order {
		for j, to := range order {
			assert.Equal(
				t,
				j == i+1,
				from.CanAdvanceTo(to),
				"%s -> %s",
				from,
				to,
			)
		}
	}
	assert.False(t, pledge.Status(0).CanAdvanceTo(pledge.StatusPledged))
}

func TestPledgeAdvance(t *testing.T) {
	p := pledge.Pledge{Status: pledge.StatusPledged}
	require.NoError(t, p.Advance(pledge.StatusApproved))
	err := p.Advance(pledge.StatusPaydownApproved)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pledge.ErrInvalidPledgeStatus))
	assert.Equal(t, pledge.StatusApproved, p.Status)
	err = p.Advance(pledge.StatusPledged)
	assert.ErrorIs(t, err, pledge.ErrInvalidPledgeStatus)
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(pledge.StatusPaydownRequested)
	require.NoError(t, err)
	assert.Equal(t, `"paydown_requested"`, string(data))
	var s pledge.Status
	require.NoError(t, json.Unmarshal([]byte(`"approved"`), &s))
	assert.Equal(t, pledge.StatusApproved, s)
	assert.Error(t, json.Unmarshal([]byte(`"settled"`), &s))
	_, err = json.Marshal(pledge.Status(9))
	assert.Error(t, err)
}

func TestTokenID(t *testing.T) {
	assert.Equal(
		t,
		"contract1.marker1.ORIGINATOR",
		pledge.TokenID("contract1", "marker1", pledge.RoleOriginator),
	)
	assert.Equal(
		t,
		pledge.TokenID("c", "m", pledge.RoleLender),
		pledge.TokenID("c", "m", pledge.RoleLender),
	)
	assert.NotEqual(
		t,
		pledge.TokenID("c", "m", pledge.RoleLender),
		pledge.TokenID("c", "m", pledge.RoleOriginator),
	)
}

func TestResponseJSONRoundTrip(t *testing.T) {
	resp := &pledge.Response{}
	resp.AddMessage(
		pledge.MsgCreateAsset{ClassID: "cls", ID: "tok", FromAddress: "c"},
		pledge.MsgSend{ClassID: "cls", ID: "tok", Sender: "c", Receiver: "alice"},
	).AddAttribute("method", "pledge")
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded pledge.Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, resp.Messages, decoded.Messages)
	method, ok := decoded.Attribute("method")
	assert.True(t, ok)
	assert.Equal(t, "pledge", method)
}

func TestInfrastructureErrorUnwrap(t *testing.T) {
	inner := errors.New("disk on fire")
	err := pledge.NewInfrastructureError("load pledge", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "load pledge: disk on fire", err.Error())
}
