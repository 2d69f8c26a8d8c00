/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package node

import (
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/pending"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/quorum"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/config"
)

const (
	pendingKey = "orchestrator.pending"
	quorumKey  = "orchestrator.quorum"
)

type ConfigProvider interface {
	GetString(key string) string
	GetPath(key string) string
	UnmarshalKey(key string, rawVal interface{}) error
}

type pendingOpts struct {
	MaxOpenConns int
	SkipPragmas  bool
	Table        string
	GCInterval   time.Duration
}

// PendingOpts reads the orchestrator.pending section. File based data sources are
// relative to the configuration file.
func PendingOpts(cp ConfigProvider) (pending.Opts, error) {
	var o pendingOpts
	if err := cp.UnmarshalKey(config.Join(pendingKey, "opts"), &o); err != nil {
		return pending.Opts{}, errors.Wrapf(err, "failed reading %s", config.Join(pendingKey, "opts"))
	}
	opts := pending.Opts{
		Persistence:  pending.PersistenceType(cp.GetString(config.Join(pendingKey, "persistence"))),
		DataSource:   cp.GetString(config.Join(pendingKey, "dataSource")),
		Table:        o.Table,
		MaxOpenConns: o.MaxOpenConns,
		SkipPragmas:  o.SkipPragmas,
		GCInterval:   o.GCInterval,
	}
	switch opts.Persistence {
	case pending.BadgerPersistence, pending.SQLitePersistence:
		opts.DataSource = cp.GetPath(config.Join(pendingKey, "dataSource"))
	}
	return opts, nil
}

func QuorumConfig(cp ConfigProvider) (quorum.Config, error) {
	var c quorum.Config
	if err := cp.UnmarshalKey(quorumKey, &c); err != nil {
		return quorum.Config{}, errors.Wrapf(err, "failed reading %s", quorumKey)
	}
	return c, nil
}
