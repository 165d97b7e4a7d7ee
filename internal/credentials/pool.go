package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Pool holds the configured provider credentials. It is loaded once at
// startup and never mutated afterwards, so it is safe for concurrent use.
type Pool struct {
	creds []string
}

// NewPool builds a pool from raw configuration values. Blank entries are
// dropped; duplicates are kept. An empty result is a valid pool.
func NewPool(raw []string) *Pool {
	creds := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		creds = append(creds, c)
	}
	return &Pool{creds: creds}
}

// ParseList splits a comma-separated credential list as found in
// environment variables.
func ParseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// All returns a copy of the credentials in configuration order.
func (p *Pool) All() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.creds))
	copy(out, p.creds)
	return out
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.creds)
}

func (p *Pool) Empty() bool { return p.Len() == 0 }

// Mask renders a credential for logs without leaking it. Keys from one
// vendor share their leading characters, so a short SHA-256 fingerprint
// tells them apart.
func Mask(cred string) string {
	const visible = 4
	sum := sha256.Sum256([]byte(cred))
	fp := hex.EncodeToString(sum[:4])
	if len(cred) <= visible*2 {
		return "****#" + fp
	}
	return cred[:visible] + "...#" + fp
}
