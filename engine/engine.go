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

// Package engine implements the pledge lifecycle state machine. An Engine
// runs one unit of work: it reads and writes through a Store bound to a
// single transaction and checks external facts through a gateway.Gateway.
// Every precondition is checked before the first write.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/warehouse/gateway"
	"github.com/blinklabs-io/warehouse/pledge"
)

// Env describes the contract the engine acts as
type Env struct {
	// Time is the timestamp recorded on pledge history entries
	Time            time.Time
	ContractAddress string
}

// Info describes the caller of an operation
type Info struct {
	Sender string
	Funds  []pledge.Coin
}

// Store is the pledge ledger as seen from one unit of work. Implementations
// report missing records with pledge.ErrNotInstantiated and
// pledge.ErrPledgeNotFound
type Store interface {
	ContractInfo() (*pledge.ContractVersion, error)
	SetContractInfo(pledge.ContractVersion) error
	Configuration() (*pledge.Configuration, error)
	SetConfiguration(pledge.Configuration) error
	Pledge(id string) (*pledge.Pledge, error)
	HasPledge(id string) (bool, error)
	SetPledge(id string, p pledge.Pledge) error
	RecordTransition(pledge.Transition) error
	// Pledges lists pledges in ID order. A zero status lists all of them
	Pledges(status pledge.Status) ([]pledge.Entry, error)
	History(id string) ([]pledge.Transition, error)
}

type Config struct {
	Store   Store
	Gateway *gateway.Gateway
	Logger  *slog.Logger
	Env     Env
	// Version is recorded in the contract info at instantiation
	Version string
}

type Engine struct {
	store   Store
	gateway *gateway.Gateway
	logger  *slog.Logger
	env     Env
	version string
}

func New(cfg Config) *Engine {
	e := &Engine{
		store:   cfg.Store,
		gateway: cfg.Gateway,
		logger:  cfg.Logger,
		env:     cfg.Env,
		version: cfg.Version,
	}
	if e.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if e.version == "" {
		e.version = "devel"
	}
	return e
}

// finish logs a rejected operation. Success is only known once the caller
// has committed the unit, so it is reported there
func (e *Engine) finish(op pledge.Operation, id string, err error) {
	if err == nil {
		return
	}
	e.logger.Debug(
		"operation rejected",
		"component", "engine",
		"operation", string(op),
		"id", id,
		"error", err,
	)
}

// loadPledge fetches a pledge and requires it to be in status
func (e *Engine) loadPledge(id string, status pledge.Status) (*pledge.Pledge, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: pledge id is required", pledge.ErrInvalidRequest)
	}
	p, err := e.store.Pledge(id)
	if err != nil {
		return nil, err
	}
	if p.Status != status {
		return nil, fmt.Errorf(
			"%w: pledge %s is %s, expected %s",
			pledge.ErrInvalidPledgeStatus,
			id,
			p.Status,
			status,
		)
	}
	return p, nil
}

// advance moves p to next, saves it and records the transition
func (e *Engine) advance(
	op pledge.Operation,
	info Info,
	id string,
	p *pledge.Pledge,
	next pledge.Status,
) error {
	from := p.Status
	if err := p.Advance(next); err != nil {
		return err
	}
	if err := e.store.SetPledge(id, *p); err != nil {
		return err
	}
	return e.store.RecordTransition(pledge.Transition{
		Time:      e.env.Time,
		PledgeID:  id,
		Operation: op,
		Sender:    info.Sender,
		From:      from,
		To:        next,
	})
}

// Instantiate stores the contract configuration and creates the right-token class
func (e *Engine) Instantiate(
	info Info,
	denom string,
	nftClassID string,
) (resp *pledge.Response, err error) {
	defer func() { e.finish(pledge.OperationInstantiate, nftClassID, err) }()
	if denom == "" || nftClassID == "" {
		return nil, fmt.Errorf(
			"%w: denom and nft_class_id are required",
			pledge.ErrInvalidRequest,
		)
	}
	if err := e.gateway.CheckClassAvailable(nftClassID); err != nil {
		return nil, err
	}
	if _, err := e.store.Configuration(); err == nil {
		return nil, pledge.ErrAlreadyInstantiated
	} else if !errors.Is(err, pledge.ErrNotInstantiated) {
		return nil, err
	}
	if err := e.store.SetContractInfo(pledge.ContractVersion{
		Contract: pledge.ContractName,
		Version:  e.version,
	}); err != nil {
		return nil, err
	}
	if err := e.store.SetConfiguration(pledge.Configuration{
		Denom:      denom,
		NftClassID: nftClassID,
	}); err != nil {
		return nil, err
	}
	resp = &pledge.Response{}
	resp.AddMessage(pledge.MsgCreateAssetClass{
		ClassID:     nftClassID,
		Name:        pledge.AssetClassName,
		Symbol:      pledge.AssetClassSymbol,
		Description: pledge.AssetClassDescription,
		FromAddress: e.env.ContractAddress,
	}).
		AddAttribute("method", string(pledge.OperationInstantiate)).
		AddAttribute("denom", denom).
		AddAttribute("nft_class_id", nftClassID)
	return resp, nil
}

// Pledge commits a custodial account as collateral and issues the
// originator right-token to the caller
func (e *Engine) Pledge(
	info Info,
	id string,
	amount pledge.Coin,
	markerAddr string,
) (resp *pledge.Response, err error) {
	defer func() { e.finish(pledge.OperationPledge, id, err) }()
	cfg, err := e.store.Configuration()
	if err != nil {
		return nil, err
	}
	if id == "" || markerAddr == "" {
		return nil, fmt.Errorf(
			"%w: id and marker_addr are required",
			pledge.ErrInvalidRequest,
		)
	}
	exists, err := e.store.HasPledge(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", pledge.ErrPledgeExists, id)
	}
	if amount.Denom != cfg.Denom || !amount.IsPositive() {
		return nil, fmt.Errorf(
			"%w: pledge amount must be a positive quantity of %s",
			pledge.ErrInvalidFunds,
			cfg.Denom,
		)
	}
	if err := e.gateway.CheckFunds(info.Funds, cfg.Denom, nil); err != nil {
		return nil, err
	}
	if err := e.gateway.CheckCustodialAccess(markerAddr, e.env.ContractAddress); err != nil {
		return nil, err
	}
	if err := e.gateway.CheckSoleHolder(markerAddr); err != nil {
		return nil, err
	}
	tokenID := pledge.TokenID(e.env.ContractAddress, markerAddr, pledge.RoleOriginator)
	if err := e.gateway.CheckTokenUnissued(cfg.NftClassID, tokenID); err != nil {
		return nil, err
	}
	p := pledge.Pledge{
		Amount:          amount,
		MarkerAddress:   markerAddr,
		OriginatorNftID: tokenID,
		Status:          pledge.StatusPledged,
	}
	if err := e.store.SetPledge(id, p); err != nil {
		return nil, err
	}
	if err := e.store.RecordTransition(pledge.Transition{
		Time:      e.env.Time,
		PledgeID:  id,
		Operation: pledge.OperationPledge,
		Sender:    info.Sender,
		To:        pledge.StatusPledged,
	}); err != nil {
		return nil, err
	}
	resp = &pledge.Response{}
	resp.AddMessage(e.mintAndSend(cfg.NftClassID, tokenID, info.Sender)...).
		AddAttribute("method", string(pledge.OperationPledge)).
		AddAttribute("id", id).
		AddAttribute("amount", amount.String())
	return resp, nil
}

// ApprovePledge funds a pledge and issues the lender right-token to the caller
func (e *Engine) ApprovePledge(
	info Info,
	id string,
) (resp *pledge.Response, err error) {
	defer func() { e.finish(pledge.OperationApprovePledge, id, err) }()
	cfg, err := e.store.Configuration()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPledge(id, pledge.StatusPledged)
	if err != nil {
		return nil, err
	}
	if err := e.gateway.CheckFunds(info.Funds, p.Amount.Denom, &p.Amount); err != nil {
		return nil, err
	}
	tokenID := pledge.TokenID(e.env.ContractAddress, p.MarkerAddress, pledge.RoleLender)
	p.LenderNftID = tokenID
	if err := e.advance(pledge.OperationApprovePledge, info, id, p, pledge.StatusApproved); err != nil {
		return nil, err
	}
	resp = &pledge.Response{}
	resp.AddMessage(e.mintAndSend(cfg.NftClassID, tokenID, info.Sender)...).
		AddAttribute("method", string(pledge.OperationApprovePledge)).
		AddAttribute("id", id)
	return resp, nil
}

// Paydown records the originator's request to settle an approved pledge
func (e *Engine) Paydown(
	info Info,
	id string,
) (resp *pledge.Response, err error) {
	defer func() { e.finish(pledge.OperationPaydown, id, err) }()
	cfg, err := e.store.Configuration()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPledge(id, pledge.StatusApproved)
	if err != nil {
		return nil, err
	}
	if err := e.gateway.CheckTokenOwner(cfg.NftClassID, p.OriginatorNftID, info.Sender); err != nil {
		return nil, err
	}
	if err := e.advance(pledge.OperationPaydown, info, id, p, pledge.StatusPaydownRequested); err != nil {
		return nil, err
	}
	resp = &pledge.Response{}
	resp.AddAttribute("method", string(pledge.OperationPaydown)).
		AddAttribute("id", id)
	return resp, nil
}

// ApprovePaydown settles a requested paydown and retires both right-tokens
func (e *Engine) ApprovePaydown(
	info Info,
	id string,
) (resp *pledge.Response, err error) {
	defer func() { e.finish(pledge.OperationApprovePaydown, id, err) }()
	cfg, err := e.store.Configuration()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPledge(id, pledge.StatusPaydownRequested)
	if err != nil {
		return nil, err
	}
	if err := e.gateway.CheckTokenOwner(cfg.NftClassID, p.LenderNftID, info.Sender); err != nil {
		return nil, err
	}
	if err := e.advance(pledge.OperationApprovePaydown, info, id, p, pledge.StatusPaydownApproved); err != nil {
		return nil, err
	}
	resp = &pledge.Response{}
	resp.AddMessage(
		pledge.MsgBurnAsset{
			ClassID:     cfg.NftClassID,
			ID:          p.OriginatorNftID,
			FromAddress: e.env.ContractAddress,
		},
		pledge.MsgBurnAsset{
			ClassID:     cfg.NftClassID,
			ID:          p.LenderNftID,
			FromAddress: e.env.ContractAddress,
		},
	).
		AddAttribute("method", string(pledge.OperationApprovePaydown)).
		AddAttribute("id", id)
	return resp, nil
}

// mintAndSend issues a right-token to the contract and transfers it to receiver
func (e *Engine) mintAndSend(classID, tokenID, receiver string) []pledge.Message {
	return []pledge.Message{
		pledge.MsgCreateAsset{
			ClassID:     classID,
			ID:          tokenID,
			FromAddress: e.env.ContractAddress,
		},
		pledge.MsgSend{
			ClassID:  classID,
			ID:       tokenID,
			Sender:   e.env.ContractAddress,
			Receiver: receiver,
		},
	}
}
