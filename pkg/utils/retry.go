/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"context"
	"errors"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
)

// RetryRunner receives a function that potentially fails and retries according to the specified strategy
type RetryRunner interface {
	Run(func() error) error
	RunWithErrors(runner func() (bool, error)) error
	RunWithContext(ctx context.Context, runner func(ctx context.Context) error) error
}

var ErrMaxRetriesExceeded = errors.New("maximum number of retries exceeded")

const Infinitely = -1

var retryLogger = logging.MustGetLogger("retry-runner")

// permanentError stops the runner at the first occurrence.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type retryRunner struct {
	delay      time.Duration
	expBackoff bool
	maxTimes   int
	logger     logging.Logger
}

func NewRetryRunner(maxTimes int, delay time.Duration, expBackoff bool) *retryRunner {
	return &retryRunner{
		delay:      delay,
		expBackoff: expBackoff,
		maxTimes:   maxTimes,
		logger:     retryLogger,
	}
}

// delays is created per run so a runner can be shared across goroutines.
type delays struct {
	current    time.Duration
	expBackoff bool
}

func (f *retryRunner) delays() *delays {
	return &delays{current: f.delay, expBackoff: f.expBackoff}
}

func (d *delays) next() time.Duration {
	res := d.current
	if d.expBackoff {
		d.current = 2 * d.current
	}
	return res
}

func (f *retryRunner) Run(runner func() error) error {
	return f.RunWithErrors(func() (bool, error) {
		err := runner()
		return err == nil || isPermanent(err), err
	})
}

// RunWithErrors will retry until runner() returns true or until it returns maxTimes false.
// If it returns true, then the error or nil will be returned.
// If it returns maxTimes false, then it will always return an error: either a join of all errors it encountered or a ErrMaxRetriesExceeded.
func (f *retryRunner) RunWithErrors(runner func() (bool, error)) error {
	return f.run(context.Background(), func(context.Context) (bool, error) { return runner() })
}

// RunWithContext is Run with a context that interrupts the waits between attempts.
func (f *retryRunner) RunWithContext(ctx context.Context, runner func(ctx context.Context) error) error {
	return f.run(ctx, func(ctx context.Context) (bool, error) {
		err := runner(ctx)
		return err == nil || isPermanent(err), err
	})
}

func (f *retryRunner) run(ctx context.Context, runner func(context.Context) (bool, error)) error {
	errs := make([]error, 0)
	d := f.delays()
	for i := 0; f.maxTimes < 0 || i < f.maxTimes; i++ {
		terminate, err := runner(ctx)
		if terminate {
			return err
		}
		if err != nil {
			errs = append(errs, err)
		}
		if f.maxTimes >= 0 && i+1 == f.maxTimes {
			break
		}
		f.logger.Debugf("will retry iteration [%d] after delay, %d errors returned so far", i+1, len(errs))
		t := time.NewTimer(d.next())
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(append(errs, ctx.Err())...)
		case <-t.C:
		}
	}
	if len(errs) == 0 {
		return ErrMaxRetriesExceeded
	}
	return errors.Join(errs...)
}
