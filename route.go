package relay

import (
	"net/http"
	"strings"
)

// IntentKind is what a request is asking the relay to do.
type IntentKind int

const (
	IntentNotFound IntentKind = iota
	IntentIndex
	IntentUpload
	IntentDownload
)

func (k IntentKind) String() string {
	switch k {
	case IntentIndex:
		return "index"
	case IntentUpload:
		return "upload"
	case IntentDownload:
		return "download"
	default:
		return "not_found"
	}
}

// Intent is the classification of a single request. Name is only set for
// IntentDownload.
type Intent struct {
	Kind IntentKind
	Name string
}

// downloadPrefix is the path every download request starts with.
const downloadPrefix = "/download/"

type rule struct {
	method string
	match  func(path string) (name string, ok bool)
	kind   IntentKind
}

// Router classifies requests by method and path. Rules are tried in order
// and the first one that matches wins; a request no rule matches is
// IntentNotFound.
type Router struct {
	rules []rule
}

// NewRouter returns a Router that accepts download names of the given
// length. A length below one means DefaultNameLength.
func NewRouter(nameLength int) *Router {
	if nameLength < 1 {
		nameLength = DefaultNameLength
	}
	return &Router{
		rules: []rule{
			{method: http.MethodGet, match: exactly("/"), kind: IntentIndex},
			{method: http.MethodGet, match: downloadName(nameLength), kind: IntentDownload},
			{method: http.MethodPost, match: exactly("/upload"), kind: IntentUpload},
		},
	}
}

// Classify returns the Intent for a request with the given method and path.
// It never fails.
func (r *Router) Classify(method, path string) Intent {
	for _, rl := range r.rules {
		if rl.method != method {
			continue
		}
		name, ok := rl.match(path)
		if !ok {
			continue
		}
		return Intent{Kind: rl.kind, Name: name}
	}
	return Intent{Kind: IntentNotFound}
}

func exactly(want string) func(string) (string, bool) {
	return func(path string) (string, bool) {
		return "", path == want
	}
}

func downloadName(length int) func(string) (string, bool) {
	return func(path string) (string, bool) {
		if !strings.HasPrefix(path, downloadPrefix) {
			return "", false
		}
		name := path[len(downloadPrefix):]
		if !ValidName(name, length) {
			return "", false
		}
		return name, true
	}
}
