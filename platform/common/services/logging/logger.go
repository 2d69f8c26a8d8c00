/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"io"
	"net/http"
	"testing"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/hyperledger/fabric-lib-go/common/flogging/floggingtest"
	"github.com/hyperledger/fabric-lib-go/common/flogging/httpadmin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultFormat = "%{color}%{time:2006-01-02 15:04:05.000 MST} [%{module}] %{shortfunc} -> %{level:.4s} %{id:03x}%{color:reset} %{message}"

// Logger is what the orchestrator packages log with. Messages are printf style, values in brackets.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	IsEnabledFor(level zapcore.Level) bool
	Named(name string) Logger
	With(args ...interface{}) Logger
}

type Config struct {
	// Format is "json" or a flogging format, DefaultFormat when empty.
	Format string
	// LogSpec sets the levels per logger, as in "info:orchestrator.pending=debug". INFO when empty.
	LogSpec string
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// Init configures every logger, including those already obtained.
func Init(c Config) {
	if len(c.Format) == 0 {
		c.Format = DefaultFormat
	}
	flogging.Init(flogging.Config{
		Format:  c.Format,
		LogSpec: c.LogSpec,
		Writer:  c.Writer,
	})
}

// Spec returns the active log spec.
func Spec() string {
	return flogging.Global.Spec()
}

// NewSpecHandler serves GET and PUT of the log spec.
func NewSpecHandler() http.Handler {
	return httpadmin.NewSpecHandler()
}

func MustGetLogger(name string) Logger {
	return &logger{l: flogging.MustGetLogger(name)}
}

type Recorder = floggingtest.Recorder

type Option = floggingtest.Option

func Named(name string) Option {
	return func(_ *floggingtest.RecordingCore, l *zap.Logger) *zap.Logger {
		return l.Named(name)
	}
}

// NewTestLogger returns a logger whose entries are captured by the returned Recorder.
func NewTestLogger(tb testing.TB, options ...Option) (Logger, *Recorder) {
	l, r := floggingtest.NewTestLogger(tb, options...)
	return &logger{l: l}, r
}

type logger struct {
	l *flogging.FabricLogger
}

func (l *logger) Debug(args ...interface{})                 { l.l.Debug(args...) }
func (l *logger) Debugf(format string, args ...interface{}) { l.l.Debugf(format, args...) }
func (l *logger) Info(args ...interface{})                  { l.l.Info(args...) }
func (l *logger) Infof(format string, args ...interface{})  { l.l.Infof(format, args...) }
func (l *logger) Warn(args ...interface{})                  { l.l.Warn(args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.l.Warnf(format, args...) }
func (l *logger) Error(args ...interface{})                 { l.l.Error(args...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.l.Errorf(format, args...) }

func (l *logger) IsEnabledFor(level zapcore.Level) bool {
	return l.l.IsEnabledFor(level)
}

func (l *logger) Named(name string) Logger {
	return &logger{l: l.l.Named(name)}
}

func (l *logger) With(args ...interface{}) Logger {
	return &logger{l: l.l.With(args...)}
}
