// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const sessionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var sessionIDPattern = regexp.MustCompile(`^session_\d+_[0-9a-z]{9}$`)

// NewVisitorSessionID generates an anonymous visitor session identifier in the
// form session_<unix_ms>_<rand9>. It labels audit rows for correlation and
// carries no authority.
func NewVisitorSessionID() string {
	suffix := make([]byte, 9)
	max := big.NewInt(int64(len(sessionIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			n = big.NewInt(int64(i))
		}
		suffix[i] = sessionIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix)
}

// ValidVisitorSessionID reports whether s looks like a visitor session id.
func ValidVisitorSessionID(s string) bool {
	return sessionIDPattern.MatchString(s)
}
