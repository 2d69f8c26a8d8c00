/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"strings"
)

// Join builds a configuration key out of its segments, as in Join("orchestrator", "pending", "opts").
// Surrounding dots and blanks are trimmed off the segments; empty segments are dropped.
func Join(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		if s = strings.Trim(s, " ."); len(s) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}
