/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"fmt"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("orchestrator.verifier")

const DefaultTTL = 5 * time.Minute

// Cache memoizes successful verifications per (epoch, digest).
// A transaction verified in one epoch is verified again in the next.
type Cache struct {
	cache *ttlcache.Cache
}

func NewCache(ttl time.Duration, sizeLimit int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := ttlcache.NewCache()
	if err := c.SetTTL(ttl); err != nil {
		panic(err)
	}
	c.SkipTTLExtensionOnHit(true)
	if sizeLimit > 0 {
		c.SetCacheSizeLimit(sizeLimit)
	}
	return &Cache{cache: c}
}

func key(epoch uint64, digest driver.Digest) string {
	return fmt.Sprintf("%d/%s", epoch, digest)
}

// Verify returns the cached verification of tx for the epoch of epochStore,
// or asks epochStore and caches the outcome when it succeeds.
func (c *Cache) Verify(epochStore driver.EpochStore, tx *driver.Transaction) (*driver.VerifiedTransaction, error) {
	k := key(epochStore.Epoch(), tx.Digest())
	if v, err := c.cache.Get(k); err == nil {
		if cached := v.(*driver.VerifiedTransaction); cached.Equal(tx) {
			return cached, nil
		}
	} else if !errors.HasCause(err, ttlcache.ErrNotFound) {
		logger.Warnf("verification cache lookup of [%s] failed: %s", k, err)
	}

	verified, err := epochStore.VerifyTransaction(tx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(k, verified); err != nil {
		logger.Warnf("failed caching verification of [%s]: %s", k, err)
	} else if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("cached verification of [%s]", k)
	}
	return verified, nil
}

func (c *Cache) Len() int {
	return c.cache.Count()
}

func (c *Cache) Close() error {
	return c.cache.Close()
}
