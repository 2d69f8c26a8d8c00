/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package admin

import (
	"context"
	"fmt"

	"github.com/hyperledger-labs/finality-orchestrator/node"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/pending"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/config"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/server/web"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// PendingCmd returns the cobra command for the pending subcommands
func PendingCmd(f *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect the pending log.",
		Long:  `Inspect the transactions submitted to the quorum and not yet finalized.`,
	}
	cmd.AddCommand(listCmd(f), removeCmd(f))
	return cmd
}

func listCmd(f *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [digest]",
		Short: "List the pending transactions.",
		Long:  `List the pending transactions, from a running node when --address is given, from the pending log otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("trailing args detected")
			}
			cmd.SilenceUsage = true
			ctx, cancel := context.WithTimeout(cmd.Context(), f.Timeout)
			defer cancel()

			var txs []web.PendingTransaction
			var err error
			if len(f.Address) != 0 {
				txs, err = listOnline(ctx, f)
			} else {
				txs, err = listOffline(ctx, f.ConfigPath)
			}
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return render(cmd.OutOrStdout(), f.Output, txs)
			}
			digest, err := driver.ParseDigest(args[0])
			if err != nil {
				return err
			}
			for _, tx := range txs {
				if tx.Digest == digest.String() {
					return render(cmd.OutOrStdout(), f.Output, tx)
				}
			}
			return errors.Errorf("transaction [%s] not pending", digest)
		},
	}
	cmd.Flags().StringVarP(&f.Output, "output", "o", JSONOutput, "output format, json or yaml")
	return cmd
}

func removeCmd(f *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <digest>",
		Short: "Remove a transaction from the pending log.",
		Long:  `Remove a transaction from the pending log so that it is not resubmitted at the next start. The node must be stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one digest")
			}
			digest, err := driver.ParseDigest(args[0])
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			ctx, cancel := context.WithTimeout(cmd.Context(), f.Timeout)
			defer cancel()
			if err := RemovePending(ctx, f.ConfigPath, digest); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed [%s]\n", digest)
			return err
		},
	}
}

func listOnline(ctx context.Context, f *Flags) ([]web.PendingTransaction, error) {
	c, err := f.client()
	if err != nil {
		return nil, err
	}
	return c.PendingTransactions(ctx)
}

func listOffline(ctx context.Context, configPath string) ([]web.PendingTransaction, error) {
	log, err := openPendingLog(configPath)
	if err != nil {
		return nil, err
	}
	defer closeLog(log)
	txs, err := log.LoadAll(ctx)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed loading pending log")
	}
	res := make([]web.PendingTransaction, 0, len(txs))
	for _, tx := range txs {
		res = append(res, web.NewPendingTransaction(tx))
	}
	return res, nil
}

// RemovePending deletes digest from the pending log configured under configPath.
func RemovePending(ctx context.Context, configPath string, digest driver.Digest) error {
	log, err := openPendingLog(configPath)
	if err != nil {
		return err
	}
	defer closeLog(log)
	return log.Remove(ctx, digest)
}

func openPendingLog(configPath string) (driver.PendingLog, error) {
	cp, err := config.NewProvider(configPath)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed loading configuration from [%s]", configPath)
	}
	opts, err := node.PendingOpts(cp)
	if err != nil {
		return nil, err
	}
	if opts.Persistence == pending.MemoryPersistence || len(opts.Persistence) == 0 {
		return nil, errors.New("the pending log of the node is in memory, use --address")
	}
	log, err := pending.Open(opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed opening pending log")
	}
	return log, nil
}

func closeLog(log driver.PendingLog) {
	if err := log.Close(); err != nil {
		logger.Warnf("failed closing pending log: %s", err)
	}
}
