/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBusy = errors.New("busy")

func TestRunSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := NewRetryRunner(5, time.Millisecond, true).Run(func() error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunJoinsErrors(t *testing.T) {
	calls := 0
	err := NewRetryRunner(3, time.Millisecond, false).Run(func() error {
		calls++
		return errBusy
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 3, calls)
}

func TestRunStopsOnPermanent(t *testing.T) {
	calls := 0
	err := NewRetryRunner(5, time.Millisecond, false).Run(func() error {
		calls++
		return Permanent(errBusy)
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}

func TestRunWithErrorsMaxRetries(t *testing.T) {
	err := NewRetryRunner(2, time.Millisecond, false).RunWithErrors(func() (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestRunWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewRetryRunner(Infinitely, time.Hour, false).RunWithContext(ctx, func(context.Context) error {
		calls++
		cancel()
		return errBusy
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)
}

func TestDelaysBackoff(t *testing.T) {
	d := NewRetryRunner(3, 10*time.Millisecond, true).delays()
	assert.Equal(t, 10*time.Millisecond, d.next())
	assert.Equal(t, 20*time.Millisecond, d.next())
	assert.Equal(t, 40*time.Millisecond, d.next())

	c := NewRetryRunner(3, 10*time.Millisecond, false).delays()
	assert.Equal(t, 10*time.Millisecond, c.next())
	assert.Equal(t, 10*time.Millisecond, c.next())
}
