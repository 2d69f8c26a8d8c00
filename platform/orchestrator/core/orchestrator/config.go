/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultWaitForFinalityTimeout = 30 * time.Second
	DefaultLocalExecutionTimeout  = 10 * time.Second
	DefaultFinalityCacheTTL       = time.Minute
	DefaultVerifierCacheTTL       = 5 * time.Minute
	DefaultRecoveryRetries        = 1
	DefaultRecoveryDelay          = 100 * time.Millisecond

	// SkipRecoveryEnv disables the replay of the pending log at start, whatever the configuration says.
	SkipRecoveryEnv = "SKIP_LOADING_FROM_PENDING_TX_LOG"

	recoveryProgressInterval = 1000
)

// ConfigProvider is the subset of the config service the orchestrator reads.
type ConfigProvider interface {
	GetDurationOrDefault(key string, def time.Duration) time.Duration
	GetIntOrDefault(key string, def int) int
	GetBool(key string) bool
}

type Config struct {
	WaitForFinalityTimeout time.Duration
	LocalExecutionTimeout  time.Duration
	FinalityCacheTTL       time.Duration
	VerifierCacheTTL       time.Duration
	SkipRecovery           bool
	RecoveryRetries        int
	RecoveryDelay          time.Duration
}

func DefaultConfig() Config {
	return Config{
		WaitForFinalityTimeout: DefaultWaitForFinalityTimeout,
		LocalExecutionTimeout:  DefaultLocalExecutionTimeout,
		FinalityCacheTTL:       DefaultFinalityCacheTTL,
		VerifierCacheTTL:       DefaultVerifierCacheTTL,
		SkipRecovery:           skipRecoveryFromEnv(),
		RecoveryRetries:        DefaultRecoveryRetries,
		RecoveryDelay:          DefaultRecoveryDelay,
	}
}

// NewConfig reads the orchestrator section of core.yaml.
func NewConfig(cp ConfigProvider) Config {
	return Config{
		WaitForFinalityTimeout: cp.GetDurationOrDefault("orchestrator.waitForFinalityTimeout", DefaultWaitForFinalityTimeout),
		LocalExecutionTimeout:  cp.GetDurationOrDefault("orchestrator.localExecutionTimeout", DefaultLocalExecutionTimeout),
		FinalityCacheTTL:       cp.GetDurationOrDefault("orchestrator.finalityCache.ttl", DefaultFinalityCacheTTL),
		VerifierCacheTTL:       cp.GetDurationOrDefault("orchestrator.verifierCache.ttl", DefaultVerifierCacheTTL),
		SkipRecovery:           cp.GetBool("orchestrator.pending.skipRecovery") || skipRecoveryFromEnv(),
		RecoveryRetries:        cp.GetIntOrDefault("orchestrator.recovery.retries", DefaultRecoveryRetries),
		RecoveryDelay:          cp.GetDurationOrDefault("orchestrator.recovery.delay", DefaultRecoveryDelay),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WaitForFinalityTimeout <= 0 {
		c.WaitForFinalityTimeout = d.WaitForFinalityTimeout
	}
	if c.LocalExecutionTimeout <= 0 {
		c.LocalExecutionTimeout = d.LocalExecutionTimeout
	}
	if c.FinalityCacheTTL <= 0 {
		c.FinalityCacheTTL = d.FinalityCacheTTL
	}
	if c.VerifierCacheTTL <= 0 {
		c.VerifierCacheTTL = d.VerifierCacheTTL
	}
	if c.RecoveryRetries <= 0 {
		c.RecoveryRetries = d.RecoveryRetries
	}
	if c.RecoveryDelay <= 0 {
		c.RecoveryDelay = d.RecoveryDelay
	}
	return c
}

func skipRecoveryFromEnv() bool {
	v, ok := os.LookupEnv(SkipRecoveryEnv)
	if !ok {
		return false
	}
	skip, err := strconv.ParseBool(v)
	// any value other than an explicit false counts, as in "SKIP_LOADING_FROM_PENDING_TX_LOG=yes"
	return err != nil || skip
}
