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

package pledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

var coinRegex = regexp.MustCompile(`^([0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]{1,127})$`)

// Coin is a quantity of a single denom. The amount is an arbitrary precision
// unsigned integer and is serialized as a decimal string.
type Coin struct {
	Denom  string `json:"denom"`
	Amount Amount `json:"amount"`
}

func NewCoin(denom string, amount uint64) Coin {
	return Coin{
		Denom:  denom,
		Amount: NewAmount(amount),
	}
}

// ParseCoin parses a coin in the "100usettle" form
func ParseCoin(s string) (Coin, error) {
	matches := coinRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return Coin{}, fmt.Errorf("invalid coin: %q", s)
	}
	amount, err := ParseAmount(matches[1])
	if err != nil {
		return Coin{}, err
	}
	return Coin{Denom: matches[2], Amount: amount}, nil
}

// ParseCoins parses a comma-separated list of coins. An empty string yields no coins
func ParseCoins(s string) ([]Coin, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	ret := []Coin{}
	for part := range strings.SplitSeq(s, ",") {
		coin, err := ParseCoin(part)
		if err != nil {
			return nil, err
		}
		ret = append(ret, coin)
	}
	return ret, nil
}

func (c Coin) Equal(other Coin) bool {
	return c.Denom == other.Denom && c.Amount.Equal(other.Amount)
}

func (c Coin) IsPositive() bool {
	return c.Amount.Sign() > 0
}

func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// Amount wraps big.Int with decimal string JSON encoding
//
//nolint:recvcheck
type Amount struct {
	*big.Int
}

func NewAmount(v uint64) Amount {
	return Amount{new(big.Int).SetUint64(v)}
}

func ParseAmount(s string) (Amount, error) {
	tmp, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount: %q", s)
	}
	if tmp.Sign() < 0 {
		return Amount{}, errors.New("amount must not be negative")
	}
	return Amount{tmp}, nil
}

func (a Amount) Sign() int {
	if a.Int == nil {
		return 0
	}
	return a.Int.Sign()
}

func (a Amount) Equal(other Amount) bool {
	if a.Int == nil || other.Int == nil {
		return a.Sign() == 0 && other.Sign() == 0
	}
	return a.Cmp(other.Int) == 0
}

func (a Amount) String() string {
	if a.Int == nil {
		return "0"
	}
	return a.Int.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	tmp, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}
