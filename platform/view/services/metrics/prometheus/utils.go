/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type MetricName = string

type MetricValue struct {
	Attributes map[string]string
	Value      float64
}

// MetricsResult groups the samples of a text exposition by metric name.
type MetricsResult map[MetricName][]MetricValue

// Find returns the value of the sample of name whose labels include attrs.
func (r MetricsResult) Find(name MetricName, attrs map[string]string) (float64, bool) {
	for _, v := range r[name] {
		matches := true
		for k, val := range attrs {
			if v.Attributes[k] != val {
				matches = false
				break
			}
		}
		if matches {
			return v.Value, true
		}
	}
	return 0, false
}

type MetricsFilter func(MetricName, MetricValue) bool

var All = func(MetricName, MetricValue) bool { return true }

func ReadAll(reader io.Reader) (MetricsResult, error) {
	return ReadWithFilter(reader, All)
}

func ReadWithFilter(reader io.Reader, filter MetricsFilter) (MetricsResult, error) {
	scanner := bufio.NewScanner(reader)
	r := MetricsResult{}
	lines := 0
	for scanner.Scan() {
		lines++
		name, value, err := readLine(scanner.Text())
		if err != nil {
			return nil, err
		}
		if len(name) > 0 && filter(name, value) {
			r[name] = append(r[name], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed reading metrics")
	}
	if lines == 0 {
		return nil, io.EOF
	}
	return r, nil
}

func readLine(line string) (MetricName, MetricValue, error) {
	if strings.HasPrefix(line, "#") || len(strings.TrimSpace(line)) == 0 {
		return "", MetricValue{}, nil
	}
	typeValue := strings.Split(line, " ")
	if len(typeValue) < 2 {
		return "", MetricValue{}, errors.Errorf("invalid metric type [%s]", line)
	}
	typ := strings.TrimSpace(strings.Join(typeValue[:len(typeValue)-1], " "))
	raw := strings.TrimSpace(typeValue[len(typeValue)-1])
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", MetricValue{}, errors.Wrapf(err, "invalid metric value: %s [%s]", raw, line)
	}
	nameAttrs := strings.SplitN(strings.TrimRight(typ, "}"), "{", 2)
	name := strings.TrimSpace(nameAttrs[0])
	attrs := make(map[string]string)
	if len(nameAttrs) > 1 && len(strings.TrimSpace(nameAttrs[1])) > 0 {
		for _, attr := range strings.Split(strings.TrimSpace(nameAttrs[1]), ",") {
			keyVal := strings.SplitN(attr, "=", 2)
			if len(keyVal) != 2 {
				return "", MetricValue{}, errors.Errorf("invalid metric label [%s] in [%s]", attr, line)
			}
			attrs[keyVal[0]] = strings.Trim(keyVal[1], `"`)
		}
	}
	return name, MetricValue{Value: val, Attributes: attrs}, nil
}
