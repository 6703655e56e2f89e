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

// Package devnet provides local chain services for running the warehouse
// without a live chain. Marker grants and holdings, NFT classes and NFT
// ownership are kept in the blob store under the devnet/ prefix, so they
// commit and roll back together with the contract state.
package devnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/warehouse/database"
	"github.com/blinklabs-io/warehouse/database/types"
	"github.com/blinklabs-io/warehouse/gateway"
	"github.com/blinklabs-io/warehouse/pledge"
)

var (
	ErrClassExists    = errors.New("nft class already exists")
	ErrClassNotFound  = errors.New("nft class not found")
	ErrTokenExists    = errors.New("nft already exists")
	ErrTokenNotFound  = errors.New("nft not found")
	ErrNotTokenOwner  = errors.New("sender does not own nft")
	ErrNotClassOwner  = errors.New("sender does not own nft class")
	ErrUnknownMessage = errors.New("unsupported message type")
)

// Class is a registered NFT class
type Class struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
}

// Token is a minted NFT
type Token struct {
	ClassID string `json:"class_id"`
	ID      string `json:"id"`
	Owner   string `json:"owner"`
}

func markerAccessKey(markerAddr string) []byte {
	return types.DevnetKey("marker", markerAddr, "access")
}

func markerHoldingKey(markerAddr string) []byte {
	return types.DevnetKey("marker", markerAddr, "holding")
}

func classKey(classID string) []byte {
	return types.DevnetKey("class", classID)
}

func tokenKey(classID string, tokenID string) []byte {
	return types.DevnetKey("nft", classID, tokenID)
}

// Session is the view of the local chain from within one database
// transaction. It answers gateway queries and applies emitted messages
type Session struct {
	db     *database.Database
	txn    *database.Txn
	logger *slog.Logger
}

func NewSession(db *database.Database, txn *database.Txn) *Session {
	s := &Session{
		db:     db,
		txn:    txn,
		logger: db.Logger(),
	}
	if s.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s
}

// get decodes the value at key into dest. It reports false if the key is missing
func (s *Session) get(key []byte, dest any) (bool, error) {
	val, err := s.db.Blob().Get(s.txn.Blob(), key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Session) set(key []byte, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Blob().Set(s.txn.Blob(), key, data)
}

// MarkerAccess implements gateway.MarkerQuerier
func (s *Session) MarkerAccess(markerAddr string) ([]gateway.AccessGrant, error) {
	var ret []gateway.AccessGrant
	if _, err := s.get(markerAccessKey(markerAddr), &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// MarkerHolding implements gateway.MarkerQuerier
func (s *Session) MarkerHolding(markerAddr string) ([]gateway.Balance, error) {
	var ret []gateway.Balance
	if _, err := s.get(markerHoldingKey(markerAddr), &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// NftOwner implements gateway.NftQuerier. A token that does not exist has no owner
func (s *Session) NftOwner(classID string, tokenID string) (string, error) {
	token, err := s.Token(classID, tokenID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", nil
		}
		return "", err
	}
	return token.Owner, nil
}

// NftClassExists implements gateway.NftQuerier
func (s *Session) NftClassExists(classID string) (bool, error) {
	_, err := s.Class(classID)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Session) Class(classID string) (*Class, error) {
	var ret Class
	ok, err := s.get(classKey(classID), &ret)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, classID)
	}
	return &ret, nil
}

func (s *Session) Token(classID string, tokenID string) (*Token, error) {
	var ret Token
	ok, err := s.get(tokenKey(classID, tokenID), &ret)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrTokenNotFound, classID, tokenID)
	}
	return &ret, nil
}

// Tokens returns the tokens of a class in ID order
func (s *Session) Tokens(classID string) ([]Token, error) {
	keys, err := s.db.Blob().Keys(s.txn.Blob(), tokenKey(classID, ""))
	if err != nil {
		return nil, err
	}
	ret := make([]Token, 0, len(keys))
	for _, key := range keys {
		var token Token
		if _, err := s.get(key, &token); err != nil {
			return nil, err
		}
		ret = append(ret, token)
	}
	return ret, nil
}

// Deliver applies emitted messages in order. The first failure stops
// delivery and the caller is expected to roll back the transaction
func (s *Session) Deliver(msgs []pledge.Message) error {
	for i, m := range msgs {
		if err := s.apply(m); err != nil {
			return fmt.Errorf("deliver message %d (%s): %w", i, m.Type(), err)
		}
		s.logger.Debug(
			"delivered message",
			"component", "devnet",
			"type", string(m.Type()),
		)
	}
	return nil
}

func (s *Session) apply(m pledge.Message) error {
	switch v := m.(type) {
	case pledge.MsgCreateAssetClass:
		return s.createClass(v)
	case pledge.MsgCreateAsset:
		return s.createToken(v)
	case pledge.MsgSend:
		return s.TransferToken(v.ClassID, v.ID, v.Sender, v.Receiver)
	case pledge.MsgBurnAsset:
		return s.burnToken(v)
	}
	return fmt.Errorf("%w: %T", ErrUnknownMessage, m)
}

func (s *Session) createClass(m pledge.MsgCreateAssetClass) error {
	exists, err := s.NftClassExists(m.ClassID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrClassExists, m.ClassID)
	}
	return s.set(classKey(m.ClassID), Class{
		ID:          m.ClassID,
		Name:        m.Name,
		Symbol:      m.Symbol,
		Description: m.Description,
		Owner:       m.FromAddress,
	})
}

func (s *Session) createToken(m pledge.MsgCreateAsset) error {
	class, err := s.Class(m.ClassID)
	if err != nil {
		return err
	}
	if class.Owner != m.FromAddress {
		return fmt.Errorf("%w: %s", ErrNotClassOwner, m.FromAddress)
	}
	if _, err := s.Token(m.ClassID, m.ID); err == nil {
		return fmt.Errorf("%w: %s/%s", ErrTokenExists, m.ClassID, m.ID)
	} else if !errors.Is(err, ErrTokenNotFound) {
		return err
	}
	return s.set(tokenKey(m.ClassID, m.ID), Token{
		ClassID: m.ClassID,
		ID:      m.ID,
		Owner:   m.FromAddress,
	})
}

// burnToken removes a token. Only the class owner may burn
func (s *Session) burnToken(m pledge.MsgBurnAsset) error {
	class, err := s.Class(m.ClassID)
	if err != nil {
		return err
	}
	if class.Owner != m.FromAddress {
		return fmt.Errorf("%w: %s", ErrNotClassOwner, m.FromAddress)
	}
	if _, err := s.Token(m.ClassID, m.ID); err != nil {
		return err
	}
	return s.db.Blob().Delete(s.txn.Blob(), tokenKey(m.ClassID, m.ID))
}
