/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package admin

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/web/client"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const (
	JSONOutput = "json"
	YAMLOutput = "yaml"
)

// Flags are shared by the admin subcommands.
type Flags struct {
	// ConfigPath is the directory of the node's core.yaml, used when the node is offline.
	ConfigPath string
	// Address of the admin endpoint of a running node.
	Address    string
	CACertPath string
	TLSCert    string
	TLSKey     string
	Output     string
	Timeout    time.Duration
}

// NewCmd returns the cobra command for the admin subcommands.
func NewCmd() *cobra.Command {
	f := &Flags{}
	rootCommand := &cobra.Command{
		Use:   "admin",
		Short: "Inspect an orchestrator node.",
		Long:  `Inspect the pending log and the transaction status events of an orchestrator node.`,
	}
	flags := rootCommand.PersistentFlags()
	flags.StringVarP(&f.ConfigPath, "config", "c", "./", "directory of the node configuration, used when no address is given")
	flags.StringVarP(&f.Address, "address", "a", "", "host:port of the admin endpoint of a running node")
	flags.StringVar(&f.CACertPath, "tlsCACert", "", "CA certificate of the admin endpoint")
	flags.StringVar(&f.TLSCert, "tlsCert", "", "client certificate for the admin endpoint")
	flags.StringVar(&f.TLSKey, "tlsKey", "", "client key for the admin endpoint")
	flags.DurationVar(&f.Timeout, "timeout", 30*time.Second, "timeout of requests to the admin endpoint")

	rootCommand.AddCommand(
		PendingCmd(f),
		EventsCmd(f),
	)
	return rootCommand
}

func (f *Flags) client() (*client.Client, error) {
	if len(f.Address) == 0 {
		return nil, errors.New("no admin address, use --address")
	}
	return client.NewClient(&client.Config{
		Host:        f.Address,
		CACertPath:  f.CACertPath,
		TLSCertPath: f.TLSCert,
		TLSKeyPath:  f.TLSKey,
	})
}

func render(w io.Writer, output string, v any) error {
	var raw []byte
	var err error
	switch output {
	case YAMLOutput:
		raw, err = yaml.Marshal(v)
	case JSONOutput, "":
		raw, err = json.MarshalIndent(v, "", "  ")
		raw = append(raw, '\n')
	default:
		return errors.Errorf("unknown output format [%s], expected one of [%s, %s]", output, JSONOutput, YAMLOutput)
	}
	if err != nil {
		return errors.Wrapf(err, "failed formatting output")
	}
	_, err = fmt.Fprint(w, string(raw))
	return err
}
