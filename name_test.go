package relay_test

import (
	"math/rand"
	"strings"
	"testing"

	"impractical.co/relay"
)

func TestNamerDeterministic(t *testing.T) {
	t.Parallel()
	a := relay.NewNamer(rand.NewSource(1), 0)
	b := relay.NewNamer(rand.NewSource(1), 0)
	for i := 0; i < 10; i++ {
		x, y := a.Next(), b.Next()
		if x != y {
			t.Fatalf("Expected identically seeded namers to agree, got %q and %q", x, y)
		}
	}
}

func TestNamerShape(t *testing.T) {
	t.Parallel()
	for _, length := range []int{0, 1, 20, 64} {
		names := relay.NewNamer(rand.NewSource(int64(length)), length)
		want := length
		if want == 0 {
			want = relay.DefaultNameLength
		}
		if names.Length() != want {
			t.Errorf("Expected length %d, got %d", want, names.Length())
		}
		for i := 0; i < 100; i++ {
			name := names.Next()
			if !relay.ValidName(name, want) {
				t.Fatalf("Generated invalid name %q for length %d", name, want)
			}
		}
	}
}

func TestNamerUsesWholeAlphabet(t *testing.T) {
	t.Parallel()
	names := relay.NewNamer(rand.NewSource(99), 0)
	seen := map[rune]int{}
	for i := 0; i < 1000; i++ {
		for _, r := range names.Next() {
			seen[r]++
		}
	}
	if len(seen) != len(relay.Alphabet) {
		t.Errorf("Expected all %d symbols to be drawn, saw %d", len(relay.Alphabet), len(seen))
	}
	for r := range seen {
		if !strings.ContainsRune(relay.Alphabet, r) {
			t.Errorf("Drew %q, which isn't in the alphabet", r)
		}
	}
}

func TestValidName(t *testing.T) {
	t.Parallel()
	table := map[string]struct {
		name   string
		length int
		valid  bool
	}{
		"generated":  {name: "k3F9zAbCdEfGhIjKlMn0", length: 20, valid: true},
		"zeros":      {name: "00000000000000000000", length: 20, valid: true},
		"short":      {name: "short", length: 20},
		"long":       {name: "k3F9zAbCdEfGhIjKlMn01", length: 20},
		"empty":      {name: "", length: 20},
		"dash":       {name: "k3F9zAbCdEfGhIjKlMn-", length: 20},
		"newline":    {name: "k3F9zAbCdEfGhIjKlMn\n", length: 20},
		"unicode":    {name: "k3F9zAbCdEfGhIjKlMé", length: 20},
		"zerolength": {name: "", length: 0},
	}
	for id, row := range table {
		id, row := id, row
		t.Run(id, func(t *testing.T) {
			t.Parallel()
			if got := relay.ValidName(row.name, row.length); got != row.valid {
				t.Errorf("Expected ValidName(%q, %d) to be %v, got %v", row.name, row.length, row.valid, got)
			}
		})
	}
}
