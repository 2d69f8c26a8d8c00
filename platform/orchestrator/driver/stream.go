/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrStreamClosed = errors.New("effects stream closed")

// LaggedError reports how many items a slow subscriber missed.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("subscriber lagged, skipped [%d] items", e.Skipped)
}
