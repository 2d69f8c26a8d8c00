/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("node.profile")

const DefaultMemProfileRate = 409

type Option func(*Profile) error

func WithPath(path string) Option {
	return func(p *Profile) error {
		if path == "" {
			return errors.New("path is required")
		}
		p.path = path
		return nil
	}
}

func WithAll() Option {
	return func(p *Profile) error {
		p.cpu = true
		p.memoryAllocs = true
		p.memoryHeap = true
		p.mutex = true
		p.blocker = true
		return nil
	}
}

// Profile writes pprof files under path between Start and Stop.
type Profile struct {
	path           string
	cpu            bool
	memProfileRate int
	memoryAllocs   bool
	memoryHeap     bool
	mutex          bool
	blocker        bool

	closers []func()
}

func New(opts ...Option) (*Profile, error) {
	p := &Profile{
		memProfileRate: DefaultMemProfileRate,
		cpu:            true,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.path == "" {
		return nil, errors.New("path is required")
	}
	return p, nil
}

func (p *Profile) Start() error {
	if err := os.MkdirAll(p.path, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create profile directory: %s", p.path)
	}
	steps := []struct {
		enabled bool
		name    string
		start   func() error
	}{
		{p.cpu, "cpu", p.startCPUProfile},
		{p.memoryHeap, "memory heap", func() error { return p.startMemProfile("heap") }},
		{p.memoryAllocs, "memory allocations", func() error { return p.startMemProfile("allocs") }},
		{p.mutex, "mutex contention", p.startMutexProfile},
		{p.blocker, "blocking", p.startBlockProfile},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		logger.Infof("Profiling %s", s.name)
		if err := s.start(); err != nil {
			p.Stop()
			return err
		}
	}
	return nil
}

// Stop flushes the profiles in reverse order of start.
func (p *Profile) Stop() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

func (p *Profile) create(name string) (*os.File, error) {
	f, err := os.Create(filepath.Join(p.path, name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create profile [%s]", name)
	}
	return f, nil
}

func (p *Profile) startCPUProfile() error {
	f, err := p.create("cpu.pprof")
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "failed to start cpu profile")
	}
	p.closers = append(p.closers, func() {
		pprof.StopCPUProfile()
		closeFile(f)
	})
	return nil
}

func (p *Profile) startMemProfile(memProfileType string) error {
	f, err := p.create(fmt.Sprintf("mem-%s.pprof", memProfileType))
	if err != nil {
		return err
	}
	old := runtime.MemProfileRate
	runtime.MemProfileRate = p.memProfileRate
	p.closers = append(p.closers, func() {
		writeProfile(memProfileType, f)
		runtime.MemProfileRate = old
	})
	return nil
}

func (p *Profile) startMutexProfile() error {
	f, err := p.create("mutex.pprof")
	if err != nil {
		return err
	}
	runtime.SetMutexProfileFraction(1)
	p.closers = append(p.closers, func() {
		writeProfile("mutex", f)
		runtime.SetMutexProfileFraction(0)
	})
	return nil
}

func (p *Profile) startBlockProfile() error {
	f, err := p.create("block.pprof")
	if err != nil {
		return err
	}
	runtime.SetBlockProfileRate(1)
	p.closers = append(p.closers, func() {
		writeProfile("block", f)
		runtime.SetBlockProfileRate(0)
	})
	return nil
}

func writeProfile(name string, f *os.File) {
	if prof := pprof.Lookup(name); prof != nil {
		if err := prof.WriteTo(f, 0); err != nil {
			logger.Warnf("failed writing %s profile: %s", name, err)
		}
	}
	closeFile(f)
}

func closeFile(f *os.File) {
	if err := f.Close(); err != nil {
		logger.Warnf("failed closing %s: %s", f.Name(), err)
	}
}
