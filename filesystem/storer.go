// Package filesystem provides a relay.Storer that keeps each file as a
// regular file in a single flat directory, named after the file.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"impractical.co/relay"
	"yall.in"
)

var _ relay.Storer = &Storer{}

// ErrInvalidName is returned for names that would escape the directory.
var ErrInvalidName = errors.New("invalid file name")

// Storer is a relay.Storer rooted at a directory.
type Storer struct {
	dir string
}

// NewStorer returns a Storer rooted at dir, creating dir if it doesn't exist
// yet.
func NewStorer(dir string) (*Storer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not ensure directory %q exists: %w", dir, err)
	}
	return &Storer{dir: dir}, nil
}

// Dir returns the directory files are stored in.
func (s *Storer) Dir() string {
	return s.dir
}

// Upload creates the file for name, failing with relay.ErrFileExists rather
// than truncating a file that is already there.
func (s *Storer) Upload(ctx context.Context, name string) (io.WriteCloser, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%q: %w", name, relay.ErrFileExists)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create %q: %w", path, err)
	}
	yall.FromContext(ctx).WithField("relay.path", path).Debug("[relay] created file")
	return f, nil
}

// Download opens the file for name. Anything that can't be opened as a
// regular file is reported as relay.ErrFileNotFound.
func (s *Storer) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, relay.ErrFileNotFound)
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", name, relay.ErrFileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%q: %w", name, relay.ErrFileNotFound)
	}
	return f, nil
}

// Delete removes the file for name. Deleting a name that doesn't exist is
// not an error.
func (s *Storer) Delete(ctx context.Context, name string) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not remove %q: %w", path, err)
	}
	return nil
}

func (s *Storer) pathFor(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.Join(s.dir, name), nil
}
