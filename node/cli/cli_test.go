/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"testing"

	"github.com/hyperledger-labs/finality-orchestrator/node/start"
	"github.com/stretchr/testify/assert"
)

func commands(name string, factory start.Factory) []string {
	var res []string
	for _, c := range NewRootCmd(name, factory).Commands() {
		res = append(res, c.Name())
	}
	return res
}

func TestNewRootCmd(t *testing.T) {
	assert.ElementsMatch(t, []string{"version", "admin"}, commands("orchestrator", nil))
	assert.ElementsMatch(t, []string{"start", "version", "admin"}, commands("validator", func() (start.Node, error) {
		return nil, nil
	}))
}
