// Package objectstore provides a relay.Storer backed by an S3-compatible
// object store, using minio-go.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"impractical.co/relay"
	"yall.in"
)

var _ relay.Storer = &Storer{}

// Options describes how to reach the object store.
type Options struct {
	// Endpoint is either host:port, or a URL with an http or https
	// scheme and no path. host:port endpoints are reached over plain
	// HTTP.
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// Storer is a relay.Storer that keeps each file as an object in a bucket.
type Storer struct {
	client *minio.Client
	bucket string
}

// NewStorer connects to the object store described by opts, creating the
// bucket if it doesn't exist yet.
func NewStorer(ctx context.Context, opts Options) (*Storer, error) {
	endpoint, secure, err := normaliseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket must be set")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating client for %s: %w", endpoint, err)
	}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		yall.FromContext(ctx).WithField("relay.bucket", opts.Bucket).Debug("[relay] creating bucket")
		err = client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region})
		if err != nil {
			return nil, fmt.Errorf("error creating bucket %s: %w", opts.Bucket, err)
		}
	}
	return &Storer{client: client, bucket: opts.Bucket}, nil
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}
	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q", raw)
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, fmt.Errorf("endpoint %q must not contain a path", raw)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q in endpoint", u.Scheme)
	}
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func isPreconditionFailed(err error) bool {
	return err != nil && minio.ToErrorResponse(err).Code == minio.PreconditionFailed
}

// Upload starts a streaming PutObject for name. Writes to the returned
// writer feed the request body directly; Close waits for the object store to
// acknowledge the object.
//
// An existing object is detected with a StatObject first, so a taken name
// fails here and the caller can draw another. The put itself is sent with
// If-None-Match: *, so when two uploads race for the same name the second
// one to finish fails on Close with relay.ErrFileExists instead of
// replacing the first.
func (s *Storer) Upload(ctx context.Context, name string) (io.WriteCloser, error) {
	_, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return nil, fmt.Errorf("%q: %w", name, relay.ErrFileExists)
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("error checking for %s in %s: %w", name, s.bucket, err)
	}

	pr, pw := io.Pipe()
	w := &objectWriter{pw: pw, done: make(chan error, 1)}
	go func() {
		opts := minio.PutObjectOptions{ContentType: "application/octet-stream"}
		opts.SetMatchETagExcept("*")
		_, err := s.client.PutObject(ctx, s.bucket, name, pr, -1, opts)
		if isPreconditionFailed(err) {
			err = fmt.Errorf("%q: %w", name, relay.ErrFileExists)
		}
		// unblock any pending Write if the put gave up early
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// objectWriter is the writing end of an in-flight PutObject.
type objectWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close finishes the object and returns the result of the put.
func (w *objectWriter) Close() error {
	w.pw.Close()
	return <-w.done
}

// CloseWithError abandons the object; nothing is stored.
func (w *objectWriter) CloseWithError(cause error) error {
	w.pw.CloseWithError(cause)
	<-w.done
	return nil
}

// Download opens the object for name. The object is stat'ed before
// returning so a missing object is reported as relay.ErrFileNotFound here
// rather than on the first Read.
func (s *Storer) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("error getting %s from %s: %w", name, s.bucket, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, fmt.Errorf("%q: %w", name, relay.ErrFileNotFound)
		}
		return nil, fmt.Errorf("error getting %s from %s: %w", name, s.bucket, err)
	}
	return obj, nil
}

// Delete removes the object for name. Removing a missing object is not an
// error.
func (s *Storer) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("error removing %s from %s: %w", name, s.bucket, err)
	}
	return nil
}
