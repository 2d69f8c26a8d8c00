/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"os"
	"strings"

	"github.com/hyperledger-labs/finality-orchestrator/node/admin"
	"github.com/hyperledger-labs/finality-orchestrator/node/start"
	"github.com/hyperledger-labs/finality-orchestrator/node/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const CmdRoot = "core"

// NewRootCmd returns the command tree of a binary embedding the orchestrator.
// Without a factory there is no start command, since only the embedding application can provide the collaborators of a node.
func NewRootCmd(name string, factory start.Factory) *cobra.Command {
	mainCmd := &cobra.Command{Use: name}
	if factory != nil {
		mainCmd.AddCommand(start.Cmd(factory))
	}
	mainCmd.AddCommand(version.Cmd())
	mainCmd.AddCommand(admin.NewCmd())
	return mainCmd
}

// Execute runs the command tree and exits with a non-zero status on failure.
func Execute(name string, factory start.Factory) {
	// For environment variables.
	viper.SetEnvPrefix(CmdRoot)
	viper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	// On failure Cobra prints the usage message and error string, so we only
	// need to exit with a non-0 status
	if NewRootCmd(name, factory).Execute() != nil {
		os.Exit(1)
	}
}
