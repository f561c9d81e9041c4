package company

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/frahmantamala/expense-claims/internal"
)

const (
	// InviteAlphabet has 32 symbols and leaves out I, O, 0 and 1.
	InviteAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	InviteCodeLength  = 6
	MaxInviteAttempts = 10
)

// CodeStore answers whether an invite code is already assigned.
type CodeStore interface {
	InviteCodeExists(ctx context.Context, code string) (bool, error)
}

type InviteGenerator struct {
	store  CodeStore
	random io.Reader
}

func NewInviteGenerator(store CodeStore) *InviteGenerator {
	return &InviteGenerator{store: store, random: rand.Reader}
}

// WithRandom swaps the entropy source.
func (g *InviteGenerator) WithRandom(r io.Reader) *InviteGenerator {
	g.random = r
	return g
}

// Generate draws one code. len(InviteAlphabet) divides 256, so taking each
// byte modulo 32 keeps the draw uniform.
func (g *InviteGenerator) Generate() (string, error) {
	buf := make([]byte, InviteCodeLength)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read invite entropy: %w", err)
	}
	for i, b := range buf {
		buf[i] = InviteAlphabet[int(b)%len(InviteAlphabet)]
	}
	return string(buf), nil
}

// CreateUnique returns a code not yet present in the store. The unique index
// on companies.invite_code remains the real guarantee; this loop is the
// pre-check that makes a collision there unlikely.
func (g *InviteGenerator) CreateUnique(ctx context.Context) (string, error) {
	for attempt := 0; attempt < MaxInviteAttempts; attempt++ {
		code, err := g.Generate()
		if err != nil {
			return "", internal.NewInternalError("failed to generate invite code", err)
		}
		exists, err := g.store.InviteCodeExists(ctx, code)
		if err != nil {
			return "", internal.NewInternalError("failed to check invite code", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", internal.ErrInviteCodeExhausted
}

// NormalizeInviteCode trims and upper-cases user input before lookup.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
