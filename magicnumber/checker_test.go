package magicnumber

import "testing"

// testgif is the header of a 1x1 GIF followed by enough padding to be
// sniffed.
var testgif = append([]byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00!\xf9\x04"), make([]byte, 1024)...)

// testpng is a PNG signature and the start of its IHDR chunk.
var testpng = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testCase struct {
	in          [][]byte
	writeErr    []error
	closeErr    error
	MatchedMIME string
}

func padBytes(in []byte) []byte {
	for len(in) < 300 {
		in = append(in, in...)
	}
	return in
}

var testCases = map[string]testCase{
	"Empty": {
		closeErr: ErrUnsupportedFile,
	},
	"ShortUnknown": {
		in:       [][]byte{[]byte("hello world")},
		closeErr: ErrUnsupportedFile,
	},
	"ShortPNG": {
		in:          [][]byte{testpng},
		MatchedMIME: "image/png",
	},
	"FileTypeNotSupported": {
		in:       [][]byte{padBytes([]byte("this is a text/plain file, which is a real MIME type but isn't one of the supported mimes."))},
		writeErr: []error{ErrUnsupportedFile},
		closeErr: ErrUnsupportedFile,
	},
	"GIF": {
		in:          [][]byte{testgif},
		MatchedMIME: "image/gif",
	},
	"GIFMultiWrites": {
		in:          [][]byte{testgif[:100], testgif[100:512], testgif[512:]},
		MatchedMIME: "image/gif",
	},
	"GIFByteAtATime": {
		in:          splitEvery(testgif[:300], 1),
		MatchedMIME: "image/gif",
	},
}

func splitEvery(in []byte, n int) [][]byte {
	var out [][]byte
	for len(in) > n {
		out = append(out, in[:n])
		in = in[n:]
	}
	return append(out, in)
}

func TestChecker(t *testing.T) {
	t.Parallel()
	for l, c := range testCases {
		label := l
		testCase := c
		t.Run(label, func(t *testing.T) {
			t.Parallel()
			checker := &Checker{
				SupportedMIMEs: []string{
					"image/gif", "image/jpeg", "image/png",
				},
			}
			for pos, in := range testCase.in {
				n, err := checker.Write(in)
				if n != len(in) {
					t.Errorf("Expected write of %d bytes to report %d, got %d", len(in), len(in), n)
				}
				var expected error
				if len(testCase.writeErr) > pos {
					expected = testCase.writeErr[pos]
				}
				if err != expected {
					t.Errorf("Expected error on write to be %q, got %q with detected MIME type %q", expected, err, checker.MatchedMIME)
					return
				}
			}
			err := checker.Close()
			if err != testCase.closeErr {
				t.Errorf("Expected error on close to be %q, got %q with detected MIME type %q", testCase.closeErr, err, checker.MatchedMIME)
				return
			}
			if checker.MatchedMIME != testCase.MatchedMIME {
				t.Errorf("Expected matched MIME to be %q, got %q", testCase.MatchedMIME, checker.MatchedMIME)
			}
			if len(checker.buf) > HeadSize {
				t.Errorf("Expected at most %d bytes buffered, got %d", HeadSize, len(checker.buf))
			}
		})
	}
}

func TestSniff(t *testing.T) {
	t.Parallel()
	table := map[string]struct {
		head []byte
		mime string
	}{
		"empty": {head: nil, mime: DefaultMIME},
		"text":  {head: []byte("hello world"), mime: DefaultMIME},
		"gif":   {head: testgif, mime: "image/gif"},
		"png":   {head: testpng, mime: "image/png"},
	}
	for id, row := range table {
		id, row := id, row
		t.Run(id, func(t *testing.T) {
			t.Parallel()
			if got := Sniff(row.head); got != row.mime {
				t.Errorf("Expected %q, got %q", row.mime, got)
			}
		})
	}
}
