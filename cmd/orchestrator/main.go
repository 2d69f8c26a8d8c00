/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/hyperledger-labs/finality-orchestrator/node/cli"
)

func main() {
	cli.Execute("orchestrator", nil)
}
