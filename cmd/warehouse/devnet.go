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
	"fmt"
	"strings"

	"github.com/blinklabs-io/warehouse"
	"github.com/blinklabs-io/warehouse/gateway"
	"github.com/blinklabs-io/warehouse/internal/devnet"
	"github.com/blinklabs-io/warehouse/pledge"
	"github.com/spf13/cobra"
)

func parsePermissions(args []string) ([]gateway.Access, error) {
	ret := make([]gateway.Access, 0, len(args))
	for _, arg := range args {
		for name := range strings.SplitSeq(arg, ",") {
			if name == "" {
				continue
			}
			access, err := gateway.ParseAccess(name)
			if err != nil {
				return nil, err
			}
			ret = append(ret, access)
		}
	}
	return ret, nil
}

// parseBalances parses holder balances in the form address=100usettle,5nhash
func parseBalances(args []string) ([]gateway.Balance, error) {
	ret := make([]gateway.Balance, 0, len(args))
	for _, arg := range args {
		address, coins, ok := strings.Cut(arg, "=")
		if !ok || address == "" {
			return nil, fmt.Errorf("invalid balance %q, expected address=coins", arg)
		}
		parsed, err := pledge.ParseCoins(coins)
		if err != nil {
			return nil, err
		}
		ret = append(ret, gateway.Balance{Address: address, Coins: parsed})
	}
	return ret, nil
}

func devnetUpdate(cmd *cobra.Command, fn func(*devnet.Session) error) error {
	return withHost(cmd, func(h *warehouse.Host) error {
		return devnet.Update(cmd.Context(), h, fn)
	})
}

func devnetView(cmd *cobra.Command, fn func(*devnet.Session) (any, error)) error {
	return withHost(cmd, func(h *warehouse.Host) error {
		var ret any
		err := devnet.View(cmd.Context(), h, func(s *devnet.Session) error {
			var err error
			ret, err = fn(s)
			return err
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, ret)
	})
}

func devnetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devnet",
		Short: "Inspect and seed the local chain services",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "grant <marker> <address> [permission...]",
			Short: "Set the marker permissions of an address",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				permissions, err := parsePermissions(args[2:])
				if err != nil {
					return err
				}
				return devnetUpdate(cmd, func(s *devnet.Session) error {
					return s.GrantAccess(args[0], gateway.AccessGrant{
						Address:     args[1],
						Permissions: permissions,
					})
				})
			},
		},
		&cobra.Command{
			Use:   "revoke <marker> <address>",
			Short: "Remove the marker permissions of an address",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return devnetUpdate(cmd, func(s *devnet.Session) error {
					return s.RevokeAccess(args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "holding <marker> [address=coins...]",
			Short: "Replace the holders of a marker's supply",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				balances, err := parseBalances(args[1:])
				if err != nil {
					return err
				}
				return devnetUpdate(cmd, func(s *devnet.Session) error {
					return s.SetHolding(args[0], balances)
				})
			},
		},
		&cobra.Command{
			Use:   "transfer <class> <token> <sender> <receiver>",
			Short: "Transfer a right token",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return devnetUpdate(cmd, func(s *devnet.Session) error {
					return s.TransferToken(args[0], args[1], args[2], args[3])
				})
			},
		},
		&cobra.Command{
			Use:   "marker <marker>",
			Short: "Show the grants and holding of a marker",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return devnetView(cmd, func(s *devnet.Session) (any, error) {
					return s.Marker(args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "tokens <class>",
			Short: "List the tokens of a class",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return devnetView(cmd, func(s *devnet.Session) (any, error) {
					return s.Tokens(args[0])
				})
			},
		},
	)
	return cmd
}
