package utils

import (
	"crypto/rand"
	"fmt"
)

// CodeLength is the length of generated access code strings.
const CodeLength = 10

// codeAlphabet excludes 0/O and 1/I so codes survive being read out loud or
// copied from a printed card.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateAccessCode returns a random human-enterable code string.
// Uniqueness is enforced by the database; callers retry on conflict.
func GenerateAccessCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
