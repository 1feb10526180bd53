// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth provides admin credential verification and signed
// admin API tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended second choice: m=19456, t=2, p=1)
const (
	Argon2Time    = 2
	Argon2Memory  = 19 * 1024 // 19 MB
	Argon2Threads = 1
	Argon2KeyLen  = 32
	Argon2SaltLen = 16
)

// HashArgon2 creates an Argon2id hash of the input string.
// Returns encoded hash in format: $argon2id$v=19$m=19456,t=2,p=1$salt$hash
func HashArgon2(input string) (string, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(input), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, Argon2Memory, Argon2Time, Argon2Threads, b64Salt, b64Hash), nil
}

// VerifyArgon2 verifies an input string against an Argon2id hash.
// Uses constant-time comparison to prevent timing attacks.
func VerifyArgon2(input, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, fmt.Errorf("unsupported hash type: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parsing version: %w", err)
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false, fmt.Errorf("parsing parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}

	hash := argon2.IDKey([]byte(input), salt, timeCost, memory, threads, uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1, nil
}

// Credentials verifies admin logins against the single configured account.
// The password is stored as an Argon2id hash; a plain configured password is
// hashed once at construction so every check takes the same path.
type Credentials struct {
	username     string
	passwordHash string
}

// NewCredentials builds a Credentials verifier. passwordHash wins when both
// it and password are set.
func NewCredentials(username, password, passwordHash string) (*Credentials, error) {
	if passwordHash == "" {
		var err error
		passwordHash, err = HashArgon2(password)
		if err != nil {
			return nil, fmt.Errorf("hashing admin password: %w", err)
		}
	}
	return &Credentials{username: username, passwordHash: passwordHash}, nil
}

// Verify checks a username/password pair. The username comparison is
// constant-time and the password hash is always evaluated, so both outcomes
// cost the same.
func (c *Credentials) Verify(username, password string) (bool, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passwordOK, err := VerifyArgon2(password, c.passwordHash)
	if err != nil {
		return false, err
	}
	return usernameOK && passwordOK, nil
}

// Username returns the configured admin username.
func (c *Credentials) Username() string {
	return c.username
}
