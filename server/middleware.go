package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
	"yall.in"
)

// Options configures the middleware wrapped around a Handler.
type Options struct {
	// Logger is put in every request's context, with the request's ID,
	// method, and path attached.
	Logger *yall.Logger

	// RateLimit is the number of requests per second allowed across all
	// clients. Zero or less disables rate limiting.
	RateLimit float64

	// Burst is how many requests may arrive at once when RateLimit is
	// set. Values below one are treated as one.
	Burst int
}

// Wrap returns h with request IDs, request-scoped logging, panic recovery,
// and the rate limit described by opts.
func Wrap(h http.Handler, opts Options) http.Handler {
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		h = limit(h, rate.NewLimiter(rate.Limit(opts.RateLimit), burst))
	}
	h = middleware.Recoverer(h)
	h = requestLogger(h, opts.Logger)
	return middleware.RequestID(h)
}

func requestLogger(next http.Handler, logger *yall.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logger == nil {
			next.ServeHTTP(w, r)
			return
		}
		log := logger.WithField("relay.request_id", middleware.GetReqID(r.Context()))
		log = log.WithField("relay.method", r.Method)
		log = log.WithField("relay.path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(yall.InContext(r.Context(), log)))
	})
}

func limit(next http.Handler, limiter *rate.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Content-Type", textPlain)
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
