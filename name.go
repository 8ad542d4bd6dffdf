package relay

import (
	"math/rand"
	"sync"
)

// DefaultNameLength is the length of generated names when none is configured.
const DefaultNameLength = 20

// Alphabet holds every symbol a generated name may contain.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Namer generates file names, drawing each symbol uniformly from Alphabet.
// A Namer is safe for concurrent use.
type Namer struct {
	mu     sync.Mutex
	rng    *rand.Rand
	length int
}

// NewNamer returns a Namer that draws from src and generates names of the
// given length. A length below one means DefaultNameLength.
func NewNamer(src rand.Source, length int) *Namer {
	if length < 1 {
		length = DefaultNameLength
	}
	return &Namer{
		rng:    rand.New(src),
		length: length,
	}
}

// Length returns the length of the names n generates.
func (n *Namer) Length() int {
	return n.length
}

// Next returns a freshly generated name.
func (n *Namer) Next() string {
	b := make([]byte, n.length)
	n.mu.Lock()
	for i := range b {
		b[i] = Alphabet[n.rng.Intn(len(Alphabet))]
	}
	n.mu.Unlock()
	return string(b)
}

// ValidName reports whether name could have been generated by a Namer with
// the given length.
func ValidName(name string, length int) bool {
	if length < 1 || len(name) != length {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isAlphanumeric(name[i]) {
			return false
		}
	}
	return true
}

func isAlphanumeric(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
