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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/blinklabs-io/warehouse"
	"github.com/blinklabs-io/warehouse/engine"
	"github.com/blinklabs-io/warehouse/internal/version"
	"github.com/blinklabs-io/warehouse/msg"
	"github.com/blinklabs-io/warehouse/pledge"
	"github.com/spf13/cobra"
)

// withHost opens the configured database for the duration of fn. The
// database must not be in use by a running service
func withHost(cmd *cobra.Command, fn func(*warehouse.Host) error) (err error) {
	cfg, err := configFromCommand(cmd)
	if err != nil {
		return err
	}
	h, err := warehouse.New(
		warehouse.NewConfig(
			warehouse.WithLogger(cliLogger(cmd)),
			warehouse.WithDatabasePath(cfg.DatabasePath),
			warehouse.WithBlobPlugin(cfg.BlobPlugin),
			warehouse.WithMetadataPlugin(cfg.MetadataPlugin),
			warehouse.WithContractAddress(cfg.ContractAddress),
			warehouse.WithVersion(version.ContractVersion()),
		),
	)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, h.Close())
	}()
	return fn(h)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type senderFlags struct {
	sender string
	funds  string
}

func (f *senderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sender, "sender", "", "address sending the message")
	cmd.Flags().StringVar(&f.funds, "funds", "", "coins sent with the message, e.g. 100usettle")
	_ = cmd.MarkFlagRequired("sender")
}

func (f *senderFlags) info() (engine.Info, error) {
	funds, err := pledge.ParseCoins(f.funds)
	if err != nil {
		return engine.Info{}, fmt.Errorf("invalid funds: %w", err)
	}
	return engine.Info{Sender: f.sender, Funds: funds}, nil
}

func runExecute(cmd *cobra.Command, flags *senderFlags, m *msg.ExecuteMsg) error {
	info, err := flags.info()
	if err != nil {
		return err
	}
	return withHost(cmd, func(h *warehouse.Host) error {
		resp, err := h.Execute(cmd.Context(), info, m)
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	})
}

func instantiateCommand() *cobra.Command {
	var flags senderFlags
	var m msg.InstantiateMsg
	cmd := &cobra.Command{
		Use:   "instantiate",
		Short: "Configure the contract and create the right-token class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := flags.info()
			if err != nil {
				return err
			}
			return withHost(cmd, func(h *warehouse.Host) error {
				resp, err := h.Instantiate(cmd.Context(), info, &m)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&m.Denom, "denom", "", "denom pledges are made in")
	cmd.Flags().StringVar(&m.NftClassID, "nft-class-id", "", "class of the right tokens")
	_ = cmd.MarkFlagRequired("denom")
	_ = cmd.MarkFlagRequired("nft-class-id")
	return cmd
}

func pledgeCommand() *cobra.Command {
	var flags senderFlags
	var id, amount, marker string
	cmd := &cobra.Command{
		Use:   "pledge",
		Short: "Pledge a marker's holding as collateral",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coin, err := pledge.ParseCoin(amount)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			return runExecute(cmd, &flags, &msg.ExecuteMsg{
				Pledge: &msg.PledgeMsg{
					ID:         id,
					Amount:     coin,
					MarkerAddr: marker,
				},
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "pledge id")
	cmd.Flags().StringVar(&amount, "amount", "", "pledged amount, e.g. 100usettle")
	cmd.Flags().StringVar(&marker, "marker", "", "marker address holding the collateral")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("marker")
	return cmd
}

// pledgeRefCommand builds a command taking the pledge id as its argument
func pledgeRefCommand(
	use string,
	short string,
	build func(*msg.PledgeRef) *msg.ExecuteMsg,
) *cobra.Command {
	var flags senderFlags
	cmd := &cobra.Command{
		Use:   use + " <pledge-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, &flags, build(&msg.PledgeRef{PledgeID: args[0]}))
		},
	}
	flags.register(cmd)
	return cmd
}

func approvePledgeCommand() *cobra.Command {
	return pledgeRefCommand(
		"approve-pledge",
		"Fund a pledge and receive the lender token",
		func(ref *msg.PledgeRef) *msg.ExecuteMsg {
			return &msg.ExecuteMsg{ApprovePledge: ref}
		},
	)
}

func paydownCommand() *cobra.Command {
	return pledgeRefCommand(
		"paydown",
		"Request paydown of a pledge as the originator token owner",
		func(ref *msg.PledgeRef) *msg.ExecuteMsg {
			return &msg.ExecuteMsg{Paydown: ref}
		},
	)
}

func approvePaydownCommand() *cobra.Command {
	return pledgeRefCommand(
		"approve-paydown",
		"Approve a requested paydown as the lender token owner",
		func(ref *msg.PledgeRef) *msg.ExecuteMsg {
			return &msg.ExecuteMsg{ApprovePaydown: ref}
		},
	)
}

// readMessage returns the message argument, reading stdin when it is "-"
func readMessage(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}

func executeCommand() *cobra.Command {
	var flags senderFlags
	cmd := &cobra.Command{
		Use:   "execute <json|->",
		Short: "Run a raw execute message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readMessage(cmd, args[0])
			if err != nil {
				return err
			}
			m, err := msg.ParseExecuteMsg(data)
			if err != nil {
				return err
			}
			return runExecute(cmd, &flags, m)
		},
	}
	flags.register(cmd)
	return cmd
}
