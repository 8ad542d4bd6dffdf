package objectstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/minio/minio-go/v7"
	"impractical.co/relay"
)

// Factory creates Storers in fresh buckets on the object store named by the
// RELAY_TEST_S3_* environment variables, and removes them on
// TeardownStorers.
type Factory struct {
	opts Options

	mu       sync.Mutex
	storers  []*Storer
	sequence int64
}

// FactoryFromEnv returns a Factory if RELAY_TEST_S3_ENDPOINT is set.
func FactoryFromEnv() (*Factory, bool) {
	endpoint := os.Getenv("RELAY_TEST_S3_ENDPOINT")
	if endpoint == "" {
		return nil, false
	}
	return &Factory{opts: Options{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("RELAY_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("RELAY_TEST_S3_SECRET_KEY"),
		Region:    os.Getenv("RELAY_TEST_S3_REGION"),
	}}, true
}

func (f *Factory) NewStorer(ctx context.Context) (relay.Storer, error) {
	opts := f.opts
	opts.Bucket = fmt.Sprintf("relay-test-%d-%d", os.Getpid(), atomic.AddInt64(&f.sequence, 1))
	s, err := NewStorer(ctx, opts)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.storers = append(f.storers, s)
	f.mu.Unlock()
	return s, nil
}

func (f *Factory) TeardownStorers() error {
	ctx := context.Background()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.storers {
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				return obj.Err
			}
			if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
				return err
			}
		}
		if err := s.client.RemoveBucket(ctx, s.bucket); err != nil {
			return err
		}
	}
	f.storers = nil
	return nil
}
