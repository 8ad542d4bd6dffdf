// Package memory provides a relay.Storer that keeps files in memory, indexed
// by go-memdb. Nothing stored in it survives the process.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	memdb "github.com/hashicorp/go-memdb"
	"impractical.co/relay"
)

var _ relay.Storer = &Storer{}

const table = "file"

var (
	schema = &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			table: &memdb.TableSchema{
				Name: table,
				Indexes: map[string]*memdb.IndexSchema{
					"id": &memdb.IndexSchema{
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}
)

// File is a stored file. Its contents only ever grow, so readers can take a
// snapshot of what has been written so far without copying it.
type File struct {
	ID string

	mu       sync.RWMutex
	contents []byte
}

// Write appends p to the file.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	f.contents = append(f.contents, p...)
	f.mu.Unlock()
	return len(p), nil
}

// Close is a no-op; the file is visible from the moment it was created.
func (f *File) Close() error {
	return nil
}

func (f *File) reader() io.ReadCloser {
	f.mu.RLock()
	snapshot := f.contents[:len(f.contents):len(f.contents)]
	f.mu.RUnlock()
	return io.NopCloser(bytes.NewReader(snapshot))
}

// Storer is a relay.Storer backed by an in-memory database.
type Storer struct {
	db *memdb.MemDB
}

// Upload reserves name and returns a writer for its contents.
func (s *Storer) Upload(ctx context.Context, name string) (io.WriteCloser, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	exists, err := txn.First(table, "id", name)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, relay.ErrFileExists
	}
	f := &File{ID: name}
	err = txn.Insert(table, f)
	if err != nil {
		return nil, err
	}
	txn.Commit()
	return f, nil
}

// Download returns a reader over the contents name had when it was called.
func (s *Storer) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	txn := s.db.Txn(false)
	res, err := txn.First(table, "id", name)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, relay.ErrFileNotFound
	}
	return res.(*File).reader(), nil
}

// Delete removes name. Deleting a name that doesn't exist is not an error.
func (s *Storer) Delete(ctx context.Context, name string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	exists, err := txn.First(table, "id", name)
	if err != nil {
		return err
	}
	if exists == nil {
		return nil
	}
	err = txn.Delete(table, exists)
	if err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// NewStorer returns an empty Storer.
func NewStorer() (*Storer, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, err
	}
	return &Storer{
		db: db,
	}, nil
}
