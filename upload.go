package relay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"impractical.co/relay/magicnumber"
	"yall.in"
)

// ErrTooLarge is returned when an upload is bigger than
// UploadOptions.MaxBytes.
var ErrTooLarge = errors.New("file too large")

// DefaultMaxAttempts is how many names Upload tries when UploadOptions
// doesn't say.
const DefaultMaxAttempts = 5

// UploadOptions represents configuration parameters for optional behaviors of
// Upload.
type UploadOptions struct {
	// AcceptedMIMEs, if set, will only accept files with a MIME type in
	// the list.
	AcceptedMIMEs []string

	// MaxBytes, if positive, rejects files larger than this many bytes.
	MaxBytes int64

	// MaxAttempts is how many generated names are tried before giving up
	// with ErrNoFreeName. Zero means DefaultMaxAttempts.
	MaxAttempts int
}

// Upload performs a streaming upload of the data in the provided io.Reader,
// writing it to the provided Storer under a name drawn from names. Each chunk
// read from source is written before the next one is read, so Upload never
// holds more than one chunk in memory.
//
// Names that are already taken in the Storer are never overwritten; a new
// name is drawn instead, up to opts.MaxAttempts times.
//
// If source fails part way through, the partially written file is left in
// the Storer and the error is returned. Files rejected because of
// opts.MaxBytes or opts.AcceptedMIMEs are deleted.
//
// If source is also an io.ReadCloser, its Close method will be called by
// Upload.
func Upload(ctx context.Context, s Storer, names *Namer, source io.Reader, opts UploadOptions) (File, error) {
	log := yall.FromContext(ctx)
	log = log.WithField("relay.storer", fmt.Sprintf("%T", s))
	log = log.WithField("relay.source", fmt.Sprintf("%T", source))

	// if we can, close the source when we're done
	if rc, ok := source.(io.ReadCloser); ok {
		defer rc.Close()
	}

	name, storer, err := create(yall.InContext(ctx, log), s, names, opts.MaxAttempts)
	if err != nil {
		return File{}, err
	}
	log = log.WithField("relay.name", name)

	var writers []io.Writer
	var ctw *magicnumber.Checker

	if len(opts.AcceptedMIMEs) > 0 {
		// set up a writer that'll ensure we're only accepting files of
		// types we can support
		ctw = &magicnumber.Checker{
			SupportedMIMEs: opts.AcceptedMIMEs,
		}
		writers = append(writers, ctw)
	}
	writers = append(writers, storer)

	w := io.MultiWriter(writers...)

	var src io.Reader = contextReader{ctx: ctx, r: source}
	if opts.MaxBytes > 0 {
		src = &capReader{r: src, left: opts.MaxBytes}
	}

	log.Debug("[relay] starting upload")

	size, err := io.Copy(w, src)
	if err != nil {
		log = log.WithField("relay.size", size)
		if cerr := abort(storer, err); cerr != nil {
			log.WithField("error", cerr.Error()).Debug("[relay] error closing aborted upload")
		}
		if errors.Is(err, ErrTooLarge) || errors.Is(err, magicnumber.ErrUnsupportedFile) {
			log.Debug("[relay] upload rejected, deleting")
			return File{}, reject(yall.InContext(ctx, log), s, name, err)
		}
		log.Debug("[relay] upload interrupted, leaving partial file")
		return File{}, fmt.Errorf("error uploading file %s to %T: %w", name, s, err)
	}

	err = storer.Close()
	if err != nil {
		return File{}, fmt.Errorf("error finishing upload of %s to %T: %w", name, s, err)
	}

	log = log.WithField("relay.size", size)
	log.Debug("[relay] upload written")

	var contentType string
	if ctw != nil {
		err = ctw.Close()
		if err != nil {
			log.Debug("[relay] file type not detected, deleting")
			return File{}, reject(yall.InContext(ctx, log), s, name, err)
		}
		contentType = ctw.MatchedMIME
	}

	log.Debug("[relay] completed upload")
	return File{
		Name:        name,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// create opens a writer for a name nothing else is using yet.
func create(ctx context.Context, s Storer, names *Namer, attempts int) (string, io.WriteCloser, error) {
	log := yall.FromContext(ctx)
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	for i := 0; i < attempts; i++ {
		name := names.Next()
		w, err := s.Upload(ctx, name)
		if errors.Is(err, ErrFileExists) {
			log.WithField("relay.name", name).Debug("[relay] name already taken, generating another")
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("error starting upload to %T: %w", s, err)
		}
		return name, w, nil
	}
	return "", nil, fmt.Errorf("%w after %d attempts", ErrNoFreeName, attempts)
}

// reject deletes a file the upload refused and returns why it was refused.
func reject(ctx context.Context, s Storer, name string, cause error) error {
	err := s.Delete(ctx, name)
	if err != nil {
		return fmt.Errorf("%w (error deleting rejected file %s: %v)", cause, name, err)
	}
	yall.FromContext(ctx).Debug("[relay] successfully deleted")
	return cause
}
