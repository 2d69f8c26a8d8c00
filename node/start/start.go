/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package start

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hyperledger-labs/finality-orchestrator/node/profile"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/spf13/cobra"
)

const (
	ProfilerEnv     = "ORCHESTRATOR_PROFILER"
	SighupIgnoreEnv = "ORCHESTRATOR_SIGHUP_IGNORE"
	ConfigPathEnv   = "ORCHESTRATOR_CFG_PATH"
)

var logger = logging.MustGetLogger("node.start")

type Node interface {
	Start() error
	Stop()
}

// Factory builds the node once the command runs, so that a bad configuration is reported by the command.
type Factory func() (Node, error)

// Cmd returns the cobra command that runs a node until it is signalled.
func Cmd(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Starts the orchestrator node.",
		Long:  `Starts the orchestrator node and its admin endpoint, and runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			cmd.SilenceUsage = true
			n, err := factory()
			if err != nil {
				return err
			}
			return Serve(n)
		},
	}
}

// Serve starts n and blocks until a termination signal stops it.
func Serve(n Node) error {
	configPath := os.Getenv(ConfigPathEnv)
	if configPath == "" {
		configPath = "./"
	}

	if boolEnv(ProfilerEnv) {
		logger.Infof("Profiling enabled")
		profiler, err := profile.New(profile.WithPath(configPath), profile.WithAll())
		if err != nil {
			return err
		}
		if err := profiler.Start(); err != nil {
			return err
		}
		defer profiler.Stop()
	}

	sighupIgnore := boolEnv(SighupIgnoreEnv)
	serve := make(chan error, 10)
	stop := func(sig string) func() {
		return func() {
			logger.Infof("Received %s, exiting...", sig)
			n.Stop()
			serve <- nil
		}
	}
	handlers := addPlatformSignals(map[os.Signal]func(){
		syscall.SIGINT:  stop("SIGINT"),
		syscall.SIGTERM: stop("SIGTERM"),
		syscall.SIGHUP: func() {
			if sighupIgnore {
				logger.Infof("Received SIGHUP, but ignoring it")
				return
			}
			stop("SIGHUP")()
		},
	})
	signalChan := make(chan os.Signal, 1)
	for sig := range handlers {
		signal.Notify(signalChan, sig)
	}
	defer signal.Stop(signalChan)
	go handleSignals(signalChan, handlers)

	if err := n.Start(); err != nil {
		logger.Errorf("Failed starting node [%s]", err)
		return err
	}
	return <-serve
}

func boolEnv(name string) bool {
	v := os.Getenv(name)
	if len(v) == 0 {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Infof("Error parsing boolean environment variable %s: %s", name, err)
		return false
	}
	return b
}

func handleSignals(signalChan <-chan os.Signal, handlers map[os.Signal]func()) {
	for sig := range signalChan {
		logger.Infof("Received signal: %d (%s)", sig, sig)
		handlers[sig]()
	}
}
