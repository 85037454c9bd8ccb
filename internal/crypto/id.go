// Package crypto generates the short random ids that key exchange records.
package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	DefaultAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	DefaultLength   = 6
)

var ErrInvalidGenerator = errors.New("invalid id generator parameters")

// Generator draws fixed-length ids from an alphabet using crypto/rand.
type Generator struct {
	alphabet string
	length   int
	// bytes >= limit are rejected so every symbol is equally likely
	limit int
	index [256]bool
}

func NewGenerator(alphabet string, length int) (*Generator, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidGenerator, length)
	}
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return nil, fmt.Errorf("%w: alphabet must have 2-256 symbols", ErrInvalidGenerator)
	}

	g := &Generator{
		alphabet: alphabet,
		length:   length,
		limit:    256 - 256%len(alphabet),
	}
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if g.index[c] {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidGenerator, c)
		}
		g.index[c] = true
	}
	return g, nil
}

// MustGenerator is NewGenerator for compile-time constant parameters.
func MustGenerator(alphabet string, length int) *Generator {
	g, err := NewGenerator(alphabet, length)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Generator) Generate() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)
	for len(out) < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("crypto/rand failed: %w", err)
		}
		for _, b := range buf {
			if int(b) >= g.limit {
				continue
			}
			out = append(out, g.alphabet[int(b)%len(g.alphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}

// Valid reports whether id could have been produced by g.
func (g *Generator) Valid(id string) bool {
	if len(id) != g.length {
		return false
	}
	for i := 0; i < len(id); i++ {
		if !g.index[id[i]] {
			return false
		}
	}
	return true
}

func (g *Generator) Length() int { return g.length }
