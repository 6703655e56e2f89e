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
	"github.com/blinklabs-io/warehouse"
	"github.com/blinklabs-io/warehouse/msg"
	"github.com/spf13/cobra"
)

func runQuery(cmd *cobra.Command, m *msg.QueryMsg) error {
	return withHost(cmd, func(h *warehouse.Host) error {
		ret, err := h.Query(cmd.Context(), m)
		if err != nil {
			return err
		}
		return printJSON(cmd, ret)
	})
}

func queryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <json|->",
		Short: "Query contract state",
		Long: "Query contract state with a raw query message, or with one of the " +
			"subcommands",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readMessage(cmd, args[0])
			if err != nil {
				return err
			}
			m, err := msg.ParseQueryMsg(data)
			if err != nil {
				return err
			}
			return runQuery(cmd, m)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "pledge <id>",
			Short: "Show a pledge",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuery(cmd, &msg.QueryMsg{Pledge: &msg.PledgeQuery{ID: args[0]}})
			},
		},
		&cobra.Command{
			Use:   "history <id>",
			Short: "Show the transitions of a pledge",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuery(cmd, &msg.QueryMsg{History: &msg.PledgeQuery{ID: args[0]}})
			},
		},
		&cobra.Command{
			Use:   "config",
			Short: "Show the contract configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runQuery(cmd, &msg.QueryMsg{Config: &msg.Empty{}})
			},
		},
		&cobra.Command{
			Use:   "contract-info",
			Short: "Show the contract name and version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runQuery(cmd, &msg.QueryMsg{ContractInfo: &msg.Empty{}})
			},
		},
		pledgesQueryCommand(),
	)
	return cmd
}

func pledgesQueryCommand() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "pledges",
		Short: "List pledges, optionally by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, &msg.QueryMsg{Pledges: &msg.PledgesQuery{Status: status}})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list pledges with this status")
	return cmd
}
