/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package admin

import (
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var logger = logging.MustGetLogger("node.admin")

type statusEvent struct {
	Digest string `json:"digest"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (e statusEvent) String() string {
	if len(e.Error) == 0 {
		return fmt.Sprintf("%s %s", e.Digest, e.Status)
	}
	return fmt.Sprintf("%s %s: %s", e.Digest, e.Status, e.Error)
}

// EventsCmd returns the cobra command that tails the transaction status events of a running node
func EventsCmd(f *Flags) *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the transaction status events.",
		Long:  `Print the transaction status events of a running node, one per line, until the node closes the stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			cmd.SilenceUsage = true
			c, err := f.client()
			if err != nil {
				return err
			}
			stream, err := c.StreamEvents(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := stream.Close(); err != nil {
					logger.Debugf("failed closing event stream: %s", err)
				}
			}()
			return tail(cmd.OutOrStdout(), stream, max)
		},
	}
	cmd.Flags().IntVarP(&max, "max", "n", 0, "stop after this many events, 0 for no limit")
	return cmd
}

type receiver interface {
	Recv(v interface{}) error
}

func tail(w io.Writer, stream receiver, max int) error {
	for i := 0; max <= 0 || i < max; i++ {
		var e statusEvent
		if err := stream.Recv(&e); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrapf(err, "failed receiving event")
		}
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
	return nil
}
