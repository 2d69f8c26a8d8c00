/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"github.com/google/uuid"
)

func init() {
	// request and subscription ids draw from a pooled random source
	uuid.EnableRandPool()
}

// GenerateUUID returns a random (version 4) UUID in its canonical string form.
func GenerateUUID() string {
	return uuid.NewString()
}
