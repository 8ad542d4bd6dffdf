package memory

import (
	"context"

	"impractical.co/relay"
)

// Factory creates empty Storers for storer-agnostic tests.
type Factory struct{}

func (f Factory) NewStorer(ctx context.Context) (relay.Storer, error) {
	return NewStorer()
}

func (f Factory) TeardownStorers() error {
	return nil
}
