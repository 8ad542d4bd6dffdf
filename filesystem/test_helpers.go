package filesystem

import (
	"context"
	"os"
	"sync"

	"impractical.co/relay"
)

// Factory creates Storers in fresh temporary directories for storer-agnostic
// tests, and removes them all on TeardownStorers.
type Factory struct {
	mu   sync.Mutex
	dirs []string
}

func (f *Factory) NewStorer(ctx context.Context) (relay.Storer, error) {
	dir, err := os.MkdirTemp("", "relay-filesystem-")
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.dirs = append(f.dirs, dir)
	f.mu.Unlock()
	return NewStorer(dir)
}

func (f *Factory) TeardownStorers() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, dir := range f.dirs {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	f.dirs = nil
	return nil
}
