/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import "github.com/pkg/errors"

var (
	// ErrInvalidUserSignature is returned when the transaction fails verification. Never retried.
	ErrInvalidUserSignature = errors.New("invalid user signature")
	// ErrQuorumDriverInternal wraps failures of the submission path.
	ErrQuorumDriverInternal = errors.New("quorum driver internal error")
	// ErrTimeoutBeforeFinality is returned when finality is not reached within the wait bound.
	// The underlying submission keeps running.
	ErrTimeoutBeforeFinality = errors.New("timeout before finality")
	// ErrLocalExecution and ErrLocalExecutionTimeout never reach the caller of ExecuteTransaction.
	ErrLocalExecution        = errors.New("local execution failed")
	ErrLocalExecutionTimeout = errors.New("local execution timed out")
)

// ApplicationError is a failure the validators agreed on, such as an aborted transaction.
// It is final: re-submitting the transaction yields the same error.
type ApplicationError struct {
	Err error
}

func NewApplicationError(err error) *ApplicationError {
	return &ApplicationError{Err: err}
}

func (e *ApplicationError) Error() string {
	return "quorum rejected transaction: " + e.Err.Error()
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}
