/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"fmt"
	"strings"
)

// Joined formats items lazily, at most limit of them, followed by the count of the omitted ones.
func Joined[T any](items []T, limit int, f func(T) string) fmt.Stringer {
	return joined[T]{items: items, limit: limit, f: f}
}

type joined[T any] struct {
	items []T
	limit int
	f     func(T) string
}

func (j joined[T]) String() string {
	n := len(j.items)
	if j.limit > 0 && n > j.limit {
		n = j.limit
	}
	s := make([]string, 0, n+1)
	for _, item := range j.items[:n] {
		s = append(s, j.f(item))
	}
	if omitted := len(j.items) - n; omitted > 0 {
		s = append(s, fmt.Sprintf("... %d more", omitted))
	}
	return strings.Join(s, ", ")
}
