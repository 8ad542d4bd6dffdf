package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"impractical.co/relay/magicnumber"
	"yall.in"
)

// ContentTypeSetter is implemented by destinations that want to know the
// detected MIME type of a file before any of it is written to them.
type ContentTypeSetter interface {
	SetContentType(mime string)
}

// Download writes the file with the provided name inside the provided Storer
// to the provided io.Writer, returning an ErrFileNotFound error if the name
// does not exist inside the Storer. The file is streamed in chunks; it is
// never held in memory in full.
//
// If dst is a ContentTypeSetter, it is told the sniffed MIME type of the file
// before the first Write.
//
// If the provided io.Writer is also an io.WriteCloser, its Close method will
// be called by Download.
func Download(ctx context.Context, s Storer, dst io.Writer, name string) (int64, error) {
	log := yall.FromContext(ctx)
	log = log.WithField("relay.storer", fmt.Sprintf("%T", s))
	log = log.WithField("relay.destination", fmt.Sprintf("%T", dst))
	log = log.WithField("relay.name", name)

	log.Debug("[relay] downloading")

	// if our destination can be closed, close it when we're done
	if wc, ok := dst.(io.WriteCloser); ok {
		defer wc.Close()
	}

	// get a reader from our Storer
	rc, err := s.Download(yall.InContext(ctx, log), name)
	if err != nil {
		return 0, fmt.Errorf("error starting download from %T: %w", s, err)
	}
	defer rc.Close()

	br := bufio.NewReaderSize(contextReader{ctx: ctx, r: rc}, chunkSize)

	if cs, ok := dst.(ContentTypeSetter); ok {
		head, err := br.Peek(magicnumber.HeadSize)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("error reading %s from %T: %w", name, s, err)
		}
		mime := magicnumber.Sniff(head)
		log = log.WithField("relay.content_type", mime)
		cs.SetContentType(mime)
	}

	log.Debug("[relay] starting data copy")
	n, err := io.Copy(dst, br)
	if err != nil {
		return n, fmt.Errorf("error copying information from %T to %T: %w", rc, dst, err)
	}

	log.WithField("relay.size", n).Debug("[relay] download complete")
	return n, nil
}
