// Package sid generates session ids that are hard to guess.
package sid

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// UUID generates random (version 4) UUIDs. It is the default generator.
type UUID struct{}

func (UUID) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("sid: uuid: %w", err)
	}
	return id.String(), nil
}

// ULID generates lowercase ULIDs with crypto/rand entropy, optionally
// prefixed (e.g. "sess-"). ULIDs sort by creation time.
type ULID struct {
	Prefix string
}

func (g ULID) Generate() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("sid: ulid: %w", err)
	}
	return g.Prefix + strings.ToLower(id.String()), nil
}

const defaultRandomBytes = 32

// Random generates base64url ids from Bytes random bytes (0 => 32).
type Random struct {
	Bytes int
}

func (g Random) Generate() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = defaultRandomBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("sid: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
