package shortener

import (
	"context"
	"crypto/rand"
	"fmt"
)

// charset is the 62-symbol alphanumeric alphabet for short codes.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxAttempts caps the collision-retry loop. At 7 characters (62^7 ≈ 3.5
// trillion codes) collisions are vanishingly rare, so hitting the cap means
// the store is misbehaving and we should fail loudly rather than spin.
const maxAttempts = 10

// CodeStore is the slice of the mapping store the generator needs.
type CodeStore interface {
	IsCodeUnique(ctx context.Context, code string) (bool, error)
}

// Generator produces short codes and verifies them against the store. The
// existence check here is advisory only: the store's unique index on code is
// the authoritative enforcement, and insert-time duplicates are handled by
// the caller retrying with a fresh code.
type Generator struct {
	store  CodeStore
	length int
}

// NewGenerator creates a code generator producing codes of the given length.
func NewGenerator(store CodeStore, length int) *Generator {
	return &Generator{
		store:  store,
		length: length,
	}
}

// GenerateUniqueCode draws random codes until one passes the uniqueness
// check, up to maxAttempts. Each attempt is a fresh independent draw; no
// backoff between attempts since collisions carry no contention.
func (g *Generator) GenerateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := g.randomCode()
		if err != nil {
			return "", fmt.Errorf("failed to draw random code: %w", err)
		}

		unique, err := g.store.IsCodeUnique(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}

		if unique {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique code after %d attempts", maxAttempts)
}

// randomCode draws one code from crypto/rand. Rejection sampling keeps the
// distribution uniform over the 62-symbol alphabet.
func (g *Generator) randomCode() (string, error) {
	const max = byte(248) // largest multiple of 62 that fits in a byte

	code := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)

	for len(code) < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			code = append(code, charset[int(b)%len(charset)])
			if len(code) == g.length {
				break
			}
		}
	}

	return string(code), nil
}
