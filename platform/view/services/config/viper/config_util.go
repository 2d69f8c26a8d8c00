/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package viperutil

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var byteSizeRegexp = regexp.MustCompile(`^(?P<size>[0-9]+)\s*(?i)(?P<unit>(k|m|g))b?$`)

// customDecodeHook parses strings of the format "[thing1, thing2, thing3]" into string slices.
// Whitespace around slice elements is removed.
func customDecodeHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}

	raw := data.(string)
	l := len(raw)
	if l > 1 && raw[0] == '[' && raw[l-1] == ']' {
		slice := strings.Split(raw[1:l-1], ",")
		for i, v := range slice {
			slice[i] = strings.TrimSpace(v)
		}
		return slice, nil
	}

	return data, nil
}

// byteSizeDecodeHook turns sizes like "16m" or "512 KB" into a byte count.
func byteSizeDecodeHook(f reflect.Kind, t reflect.Kind, data interface{}) (interface{}, error) {
	if f != reflect.String || (t != reflect.Uint32 && t != reflect.Int) {
		return data, nil
	}
	raw := data.(string)
	if raw == "" || !byteSizeRegexp.MatchString(raw) {
		return data, nil
	}
	size, err := strconv.ParseUint(byteSizeRegexp.ReplaceAllString(raw, "${size}"), 0, 64)
	if err != nil {
		return data, nil
	}
	switch strings.ToLower(byteSizeRegexp.ReplaceAllString(raw, "${unit}")) {
	case "g":
		size = size << 10
		fallthrough
	case "m":
		size = size << 10
		fallthrough
	case "k":
		size = size << 10
	}
	if size > math.MaxUint32 {
		return size, errors.Errorf("value '%s' overflows uint32", raw)
	}
	return size, nil
}

// EnhancedExactUnmarshal is intended to unmarshal a config file into a structure
// supporting the time.Duration type and human readable byte sizes
func EnhancedExactUnmarshal(v *viper.Viper, key string, output interface{}) error {
	oType := reflect.TypeOf(output)
	if oType.Kind() != reflect.Ptr {
		return errors.Errorf("supplied output argument must be a pointer to a struct but is not pointer")
	}

	config := &mapstructure.DecoderConfig{
		ErrorUnused:      false,
		Metadata:         nil,
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			customDecodeHook,
			byteSizeDecodeHook,
		),
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	return decoder.Decode(v.Get(key))
}
