/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	viperutil "github.com/hyperledger-labs/finality-orchestrator/platform/view/services/config/viper"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events/simple"
	"github.com/spf13/viper"
)

const (
	CmdRoot = "core"
	// IDKey is the key to retrieve the node id
	IDKey = "orchestrator.id"
	// PathEnv overrides the folders searched for core.yaml
	PathEnv = "ORCHESTRATOR_CFG_PATH"
)

const (
	OfficialPath          = "/etc/hyperledger-labs/finality-orchestrator"
	MergeConfigEventTopic = "orchestrator.mergeConfig.event.topic"
)

var logOutput = os.Stderr

var logger = logging.MustGetLogger("config")

type OnMergeConfigEventHandler interface {
	OnMergeConfig()
}

type Provider struct {
	confPath    string
	Backend     *viper.Viper
	eventSystem events.EventSystem

	mergeConfigMutex sync.Mutex
}

func NewProvider(confPath string) (*Provider, error) {
	p := &Provider{
		confPath:    confPath,
		eventSystem: simple.NewEventBus(),
	}
	if err := p.load(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) ID() string {
	return p.GetString(IDKey)
}

func (p *Provider) GetDuration(key string) time.Duration {
	return p.Backend.GetDuration(key)
}

// GetDurationOrDefault returns def when key is unset or not positive.
func (p *Provider) GetDurationOrDefault(key string, def time.Duration) time.Duration {
	if !p.Backend.IsSet(key) {
		return def
	}
	if d := p.Backend.GetDuration(key); d > 0 {
		return d
	}
	return def
}

func (p *Provider) GetBool(key string) bool {
	return p.Backend.GetBool(key)
}

func (p *Provider) GetInt(key string) int {
	return p.Backend.GetInt(key)
}

func (p *Provider) GetIntOrDefault(key string, def int) int {
	if !p.Backend.IsSet(key) {
		return def
	}
	return p.Backend.GetInt(key)
}

func (p *Provider) GetStringSlice(key string) []string {
	return p.Backend.GetStringSlice(key)
}

func (p *Provider) UnmarshalKey(key string, rawVal interface{}) error {
	return viperutil.EnhancedExactUnmarshal(p.Backend, key, rawVal)
}

func (p *Provider) IsSet(key string) bool {
	return p.Backend.IsSet(key)
}

// GetPath resolves a relative path against the folder of the config file.
func (p *Provider) GetPath(key string) string {
	path := p.Backend.GetString(key)
	if path == "" {
		return ""
	}

	return TranslatePath(filepath.Dir(p.Backend.ConfigFileUsed()), path)
}

func (p *Provider) TranslatePath(path string) string {
	if path == "" {
		return ""
	}

	return TranslatePath(filepath.Dir(p.Backend.ConfigFileUsed()), path)
}

func (p *Provider) GetString(key string) string {
	return p.Backend.GetString(key)
}

func (p *Provider) ConfigFileUsed() string {
	return p.Backend.ConfigFileUsed()
}

func (p *Provider) MergeConfig(raw []byte) error {
	// only one writer at the time
	p.mergeConfigMutex.Lock()
	defer p.mergeConfigMutex.Unlock()

	err := p.Backend.MergeConfig(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	p.eventSystem.Publish(&MergeConfigEvent{})

	return nil
}

func (p *Provider) OnMergeConfig(handler OnMergeConfigEventHandler) {
	p.eventSystem.Subscribe(MergeConfigEventTopic, &eventListener{handler: handler})
}

func (p *Provider) load() error {
	p.Backend = viper.New()
	err := p.initViper(p.Backend, CmdRoot)
	if err != nil {
		return err
	}

	err = p.Backend.ReadInConfig()
	if err != nil {
		// Viper claims the config type isn't supported when in fact the file hasn't been found
		if strings.Contains(fmt.Sprint(err), "Unsupported Config Type") {
			return errors.Errorf("Could not find config file. "+
				"Please make sure that %s is set to a path "+
				"which contains %s.yaml", PathEnv, CmdRoot)
		} else {
			return errors.WithMessagef(err, "error when reading %s config file", CmdRoot)
		}
	}

	if err := p.substituteEnv(); err != nil {
		return err
	}

	logging.Init(logging.Config{
		Format:  p.Backend.GetString("logging.format"),
		LogSpec: p.Backend.GetString("logging.spec"),
		Writer:  logOutput,
	})

	return nil
}

// Manually override keys if the respective environment variable is set, because viper doesn't do
// that for UnmarshalKey values (see https://github.com/spf13/viper/pull/1699).
// Example: CORE_LOGGING_FORMAT sets logging.format.
func (p *Provider) substituteEnv() error {
	prefix := strings.ToUpper(CmdRoot) + "_"
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, prefix) {
			continue
		}

		env := strings.Split(e, "=")
		if len(env[1]) == 0 {
			continue
		}
		key, val := env[0], strings.Join(env[1:], "=")

		noprefix := strings.TrimPrefix(key, prefix)
		key = strings.ToLower(strings.ReplaceAll(noprefix, "_", "."))

		keys := strings.Split(key, ".")
		parent := strings.Join(keys[:len(keys)-1], ".")
		if !p.Backend.IsSet(parent) {
			logger.Debugf("applying %s - parent not found in %s.yaml: %s", env[0], CmdRoot, parent)
			p.Backend.Set(key, val)
			continue
		}

		if k := p.Backend.GetStringMap(key); len(k) > 0 {
			logger.Warnf("skipping %s: cannot override maps", env[0])
			continue
		}

		root := p.Backend.GetStringMap(keys[0])
		if err := setDeepValue(root, keys, val); err != nil {
			return errors.Wrap(err, "error when substituting")
		}
		p.Backend.Set(keys[0], root)
		logger.Debugf("applying %s", env[0])
	}
	return nil
}

// setDeepValue sets the value at the deepest level of m. keys[0] names m itself.
func setDeepValue(m map[string]any, keys []string, value any) error {
	if len(keys) < 2 {
		return errors.New("can't set root key")
	}

	current := m
	for i := 1; i < len(keys)-1; i++ {
		key := keys[i]
		nextMap, ok := lookupMap(current, key)
		if !ok {
			return errors.New("expected map at key " + key)
		}
		current = nextMap
	}
	current[matchKey(current, keys[len(keys)-1])] = value

	return nil
}

// viper lowercases keys it reads but not the ones merged at runtime
func lookupMap(m map[string]any, key string) (map[string]any, bool) {
	next, ok := m[matchKey(m, key)].(map[string]any)
	return next, ok
}

func matchKey(m map[string]any, key string) string {
	if _, ok := m[key]; ok {
		return key
	}
	for k := range m {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}

// initViper establishes the folders consulted to find core.yaml.
// PathEnv, when set, replaces the defaults: the working directory and OfficialPath.
func (p *Provider) initViper(v *viper.Viper, configName string) error {
	if len(p.confPath) != 0 {
		AddConfigPath(v, p.confPath)
	}

	if altPath := os.Getenv(PathEnv); altPath != "" {
		if !dirExists(altPath) {
			return errors.Errorf("%s %s does not exist", PathEnv, altPath)
		}
		AddConfigPath(v, altPath)
	} else {
		AddConfigPath(v, "./")
		if dirExists(OfficialPath) {
			AddConfigPath(v, OfficialPath)
		}
	}

	v.SetConfigName(configName)

	return nil
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

func AddConfigPath(v *viper.Viper, p string) {
	if v != nil {
		v.AddConfigPath(p)
	} else {
		viper.AddConfigPath(p)
	}
}

func TranslatePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(base, p)
}

type eventListener struct {
	handler OnMergeConfigEventHandler
}

func (e *eventListener) OnReceive(events.Event) {
	e.handler.OnMergeConfig()
}

type MergeConfigEvent struct{}

func (m *MergeConfigEvent) Topic() string {
	return MergeConfigEventTopic
}

func (m *MergeConfigEvent) Message() interface{} {
	return nil
}
