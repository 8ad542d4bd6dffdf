// Package relay streams uploaded files into a Storer under randomly generated
// names, and streams them back out when asked for by name.
package relay

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrFileNotFound is returned when a File is requested and can't be found.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileExists is returned by a Storer when asked to create a file
	// under a name that is already taken.
	ErrFileExists = errors.New("file already exists")

	// ErrNoFreeName is returned by Upload when every generated name it
	// tried was already taken.
	ErrNoFreeName = errors.New("could not generate an unused name")
)

// File represents an uploaded file.
type File struct {
	Name        string
	Size        int64
	ContentType string
}

// Storer represents a destination for uploaded files.
//
// Upload must create the file exclusively, returning ErrFileExists if name is
// already in use. Download must return ErrFileNotFound if name does not
// exist.
type Storer interface {
	Upload(ctx context.Context, name string) (io.WriteCloser, error)
	Download(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}
