// Package magicnumber detects the MIME type of a file from the magic number
// bytes at its start.
package magicnumber

import (
	"errors"

	"github.com/h2non/filetype"
)

// HeadSize is the number of bytes at the start of a file needed to
// determine its MIME type.
const HeadSize = 261

// DefaultMIME is reported by Sniff when the type of a file can't be
// detected.
const DefaultMIME = "application/octet-stream"

// ErrUnsupportedFile is returned when the detected MIME type of the file isn't
// in the SupportedMIMEs list or the file is not large enough for us to detect
// a MIME type on it.
var ErrUnsupportedFile = errors.New("unsupported file")

// Checker is an io.WriteCloser that will check to see if the data passed to it
// is for a file with a MIME type in SupportedMIMEs. If so, MatchedMIME will be
// set to the MIME type matched and Write and Close will return no error.
// Otherwise, ErrUnsupportedFile is returned, either from Write as soon as we
// can tell what MIME type the file is, or from Close if no MIME type has been
// detected.
type Checker struct {
	buf            []byte
	SupportedMIMEs []string
	MatchedMIME    string
}

// Write checks the incoming data for magic number bytes that will indicate the
// MIME type of the data. At most HeadSize bytes are ever held in memory; once
// a MIME type is matched the function is a no-op. If a MIME type is detected
// that isn't in SupportedMIMEs, ErrUnsupportedFile is returned.
func (m *Checker) Write(b []byte) (int, error) {
	if m.MatchedMIME != "" {
		return len(b), nil
	}
	need := HeadSize - len(m.buf)
	if need > len(b) {
		need = len(b)
	}
	m.buf = append(m.buf, b[:need]...)
	if len(m.buf) < HeadSize {
		return len(b), nil
	}
	if m.match() {
		return len(b), nil
	}
	return len(b), ErrUnsupportedFile
}

// Close returns ErrUnsupportedFile if no MIME type was detected. Files shorter
// than HeadSize are checked here against whatever was written, so a short
// file is only accepted if its magic number is recognisable on its own.
func (m *Checker) Close() error {
	if m.MatchedMIME != "" {
		return nil
	}
	if len(m.buf) > 0 && len(m.buf) < HeadSize && m.match() {
		return nil
	}
	return ErrUnsupportedFile
}

func (m *Checker) match() bool {
	for _, mime := range m.SupportedMIMEs {
		if filetype.IsMIME(m.buf, mime) {
			m.MatchedMIME = mime
			m.buf = nil
			return true
		}
	}
	return false
}

// Sniff returns the MIME type of the file starting with head, or DefaultMIME
// if it can't be told.
func Sniff(head []byte) string {
	if len(head) > HeadSize {
		head = head[:HeadSize]
	}
	t, err := filetype.Match(head)
	if err != nil || t == filetype.Unknown || t.MIME.Value == "" {
		return DefaultMIME
	}
	return t.MIME.Value
}
