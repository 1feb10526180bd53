// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"time"

	"github.com/ieeeucsc/codequest/internal/util"
)

// visitorCookieName carries the anonymous visitor session id. It labels
// audit rows and keys the flag-gate attempt counter; it grants nothing.
const visitorCookieName = "visitor_session"

// treasureCookieName is the puzzle cookie. Finding it IS the challenge, so
// it is deliberately readable from JavaScript and buried among decoys.
const treasureCookieName = "hidden_treasure"

const guestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ensureVisitorSession returns the request's visitor session id, issuing a
// fresh cookie when it is missing or malformed.
func ensureVisitorSession(w http.ResponseWriter, r *http.Request, isDev bool) string {
	if c, err := r.Cookie(visitorCookieName); err == nil && util.ValidVisitorSessionID(c.Value) {
		return c.Value
	}

	id := util.NewVisitorSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   !isDev,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// setTreasureCookies plants the flag cookie and the five decoys.
func setTreasureCookies(w http.ResponseWriter, flag string) {
	plant := func(name, value string) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   int((24 * time.Hour).Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
	}

	plant(treasureCookieName, flag)
	plant("session_id", "abc123def456")
	plant("user_theme", "dark")
	plant("csrf_token", "xyz789uvw012")
	plant("last_visit", time.Now().UTC().Format(time.RFC3339))
	plant("tracking_id", "guest_"+randomGuestSuffix())
}

func randomGuestSuffix() string {
	suffix := make([]byte, 9)
	max := big.NewInt(int64(len(guestIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(int64(i))
		}
		suffix[i] = guestIDAlphabet[n.Int64()]
	}
	return string(suffix)
}
