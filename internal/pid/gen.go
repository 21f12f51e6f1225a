package pid

import (
	"crypto/rand"
	"fmt"
)

// V3Len is the fixed length of a canonical v3 code.
const V3Len = 23

// v3Alphabet deliberately leaves out 0/1/l/I/O-style lookalikes so codes
// survive manual transcription.
const v3Alphabet = "23456789abcdefghjkmnopqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

// Generator produces one opaque fixed-length token per call. The engine
// treats it as an external collaborator and never assumes anything about the
// token beyond its uniqueness being checked separately.
type Generator func() (string, error)

// NewV3 is the default Generator: a 23-character random code drawn from
// v3Alphabet using crypto/rand.
func NewV3() (string, error) {
	buf := make([]byte, V3Len)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating v3: %w", err)
	}
	for i, b := range buf {
		buf[i] = v3Alphabet[int(b)%len(v3Alphabet)]
	}
	return string(buf), nil
}
