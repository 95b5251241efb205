// Package ident generates lobby codes and player handles.
package ident

import (
	"crypto/rand"
	"math/big"
)

const (
	// codeAlphabet matches what players type from a friend's screen.
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// handleAlphabet drops 0/O/1/I/L so handles survive being read aloud.
	handleAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	HandleLength = 8
)

// Code draws a random lobby code of length n. Uniqueness is the caller's
// problem: the registry retries against its live index on collision.
func Code(n int) (string, error) {
	return draw(codeAlphabet, n)
}

// Handle draws player handles until one is free in taken. Handles only need to
// be unique within a single lobby, so the space never comes close to full and
// the retry loop terminates quickly in practice.
func Handle(taken map[string]bool) (string, error) {
	return handleFrom(handleAlphabet, HandleLength, taken)
}

func handleFrom(alphabet string, n int, taken map[string]bool) (string, error) {
	for {
		h, err := draw(alphabet, n)
		if err != nil {
			return "", err
		}
		if !taken[h] {
			return h, nil
		}
	}
}

func draw(alphabet string, n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
