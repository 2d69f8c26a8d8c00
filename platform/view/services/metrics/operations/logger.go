/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operations

import (
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
)

// promLogger reports the failures of the metrics handler.
type promLogger struct {
	Logger
}

func (l *promLogger) Println(v ...interface{}) {
	l.Warn(v...)
}

func newPromLogger(l Logger) *promLogger {
	if l == nil {
		l = logging.MustGetLogger("operations")
	}
	return &promLogger{Logger: l}
}
