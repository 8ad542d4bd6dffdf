// Package server exposes a relay over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"impractical.co/relay"
	"impractical.co/relay/magicnumber"
	"impractical.co/relay/metrics"
	"yall.in"
)

// Index is the body served for GET /.
const Index = "Index to images service."

const textPlain = "text/plain; charset=utf-8"

// Handler classifies requests with a relay.Router and streams uploads and
// downloads between the request and a relay.Storer.
type Handler struct {
	storer  relay.Storer
	names   *relay.Namer
	router  *relay.Router
	upload  relay.UploadOptions
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that stores files in s under names drawn from
// names. Download paths are matched against names' length.
func NewHandler(s relay.Storer, names *relay.Namer, upload relay.UploadOptions, m *metrics.Metrics) *Handler {
	return &Handler{
		storer:  s,
		names:   names,
		router:  relay.NewRouter(names.Length()),
		upload:  upload,
		metrics: m,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// route on the path as sent, so percent-encoded names don't match
	intent := h.router.Classify(r.Method, r.URL.EscapedPath())
	log := yall.FromContext(r.Context()).WithField("relay.intent", intent.Kind.String())
	ctx := yall.InContext(r.Context(), log)

	rec := &statusRecorder{ResponseWriter: w}
	start := time.Now()
	defer func() {
		h.metrics.Requests.WithLabelValues(intent.Kind.String(), strconv.Itoa(rec.Status())).Inc()
		h.metrics.RequestDuration.WithLabelValues(intent.Kind.String()).Observe(time.Since(start).Seconds())
	}()

	switch intent.Kind {
	case relay.IntentIndex:
		rec.Header().Set("Content-Type", textPlain)
		rec.WriteHeader(http.StatusOK)
		io.WriteString(rec, Index)
	case relay.IntentUpload:
		h.serveUpload(ctx, rec, r)
	case relay.IntentDownload:
		h.serveDownload(ctx, rec, intent.Name)
	default:
		writeStatus(rec, http.StatusNotFound, "")
	}
}

func (h *Handler) serveUpload(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := yall.FromContext(ctx)

	h.metrics.InFlight.Inc()
	f, err := relay.Upload(ctx, h.storer, h.names, r.Body, h.upload)
	h.metrics.InFlight.Dec()
	if err != nil {
		status, result, msg := uploadFailure(err)
		h.metrics.Uploads.WithLabelValues(result).Inc()
		log.WithField("error", err.Error()).WithField("relay.result", result).Error("[relay] upload failed")
		writeStatus(w, status, msg)
		return
	}

	h.metrics.Uploads.WithLabelValues("ok").Inc()
	h.metrics.UploadBytes.Add(float64(f.Size))
	log.WithField("relay.name", f.Name).WithField("relay.size", f.Size).Debug("[relay] stored upload")

	w.Header().Set("Content-Type", textPlain)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, f.Name)
}

// uploadFailure maps an error from relay.Upload to a status code, a metrics
// label, and the body to respond with.
func uploadFailure(err error) (status int, result, msg string) {
	switch {
	case errors.Is(err, relay.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large", "file too large"
	case errors.Is(err, magicnumber.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType, "unsupported", "unsupported file type"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, "canceled", ""
	default:
		return http.StatusInternalServerError, "error", ""
	}
}

func (h *Handler) serveDownload(ctx context.Context, w http.ResponseWriter, name string) {
	log := yall.FromContext(ctx).WithField("relay.name", name)

	sw := &streamWriter{w: w, rc: http.NewResponseController(w)}
	h.metrics.InFlight.Inc()
	n, err := relay.Download(ctx, h.storer, sw, name)
	h.metrics.InFlight.Dec()
	h.metrics.DownloadBytes.Add(float64(n))

	if err != nil && !sw.started {
		// a name that can't be opened looks exactly like one that was
		// never handed out
		h.metrics.Downloads.WithLabelValues("not_found").Inc()
		log.WithField("error", err.Error()).Debug("[relay] download not found")
		writeStatus(w, http.StatusNotFound, "")
		return
	}
	if err != nil {
		// headers are gone already; all we can do is cut the
		// connection so the client sees a truncated body
		h.metrics.Downloads.WithLabelValues("aborted").Inc()
		log.WithField("error", err.Error()).WithField("relay.size", n).Error("[relay] download aborted")
		panic(http.ErrAbortHandler)
	}
	if !sw.started {
		// empty file
		sw.start()
	}
	h.metrics.Downloads.WithLabelValues("ok").Inc()
	log.WithField("relay.size", n).Debug("[relay] download sent")
}

// writeStatus writes a plain-text response with no body beyond msg.
func writeStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", textPlain)
	w.WriteHeader(status)
	if msg != "" {
		io.WriteString(w, msg)
	}
}

// streamWriter sends the response headers on the first Write and flushes
// after every Write, so the client receives each chunk as soon as it has
// been read from storage.
type streamWriter struct {
	w           http.ResponseWriter
	rc          *http.ResponseController
	contentType string
	started     bool
}

var _ relay.ContentTypeSetter = &streamWriter{}

func (s *streamWriter) SetContentType(mime string) {
	s.contentType = mime
}

func (s *streamWriter) start() {
	contentType := s.contentType
	if contentType == "" {
		contentType = magicnumber.DefaultMIME
	}
	s.w.Header().Set("Content-Type", contentType)
	s.w.Header().Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

func (s *streamWriter) Write(p []byte) (int, error) {
	if !s.started {
		s.start()
	}
	n, err := s.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(p)
}

// Status returns the status code sent, or 200 if nothing was sent yet.
func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
