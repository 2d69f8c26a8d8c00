/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestJoined(t *testing.T) {
	itoa := func(i int) string { return strconv.Itoa(i) }
	assert.Equal(t, "", Joined([]int{}, 3, itoa).String())
	assert.Equal(t, "1, 2", Joined([]int{1, 2}, 3, itoa).String())
	assert.Equal(t, "1, 2, 3, ... 2 more", Joined([]int{1, 2, 3, 4, 5}, 3, itoa).String())
	assert.Equal(t, "1, 2, 3, 4, 5", Joined([]int{1, 2, 3, 4, 5}, 0, itoa).String())
}

func TestNewTestLogger(t *testing.T) {
	l, recorder := NewTestLogger(t, Named("orchestrator"))
	l.Infof("tx [%s] submitted", "abc")
	l.Named("loop").With("digest", "abc").Warnf("skipped [%d]", 3)

	assert.Len(t, recorder.MessagesContaining("submitted"), 1)
	assert.Len(t, recorder.MessagesContaining("skipped [3]"), 1)
}

func TestInit(t *testing.T) {
	defer Init(Config{})
	Init(Config{LogSpec: "warning:orchestrator.pending=debug"})
	assert.Contains(t, Spec(), "orchestrator.pending=debug")
	assert.False(t, MustGetLogger("orchestrator").IsEnabledFor(zapcore.InfoLevel))
	assert.True(t, MustGetLogger("orchestrator.pending").IsEnabledFor(zapcore.DebugLevel))
}
