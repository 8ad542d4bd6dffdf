package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"yall.in"
)

// Server runs the relay listener and, optionally, a separate listener for
// Prometheus metrics.
type Server struct {
	relay   *http.Server
	metrics *http.Server
}

// New returns a Server that serves h on addr. If metricsAddr is not empty,
// GET /metrics on metricsAddr serves whatever gatherer collects.
func New(addr string, h http.Handler, metricsAddr string, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		relay: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		s.metrics = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Run listens and serves until ctx is done, then shuts down gracefully,
// giving in-flight transfers up to shutdownTimeout to finish.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	log := yall.FromContext(ctx)

	servers := []*http.Server{s.relay}
	if s.metrics != nil {
		servers = append(servers, s.metrics)
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			s.shutdown(shutdownTimeout, servers...)
			return fmt.Errorf("error listening on %s: %w", srv.Addr, err)
		}
		log.WithField("relay.addr", ln.Addr().String()).Info("[relay] listening")
		go func(srv *http.Server, ln net.Listener) {
			err := srv.Serve(ln)
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			errCh <- err
		}(srv, ln)
	}

	select {
	case <-ctx.Done():
		log.Info("[relay] shutting down")
	case err := <-errCh:
		if err != nil {
			s.shutdown(shutdownTimeout, servers...)
			return fmt.Errorf("error serving: %w", err)
		}
	}
	return s.shutdown(shutdownTimeout, servers...)
}

func (s *Server) shutdown(timeout time.Duration, servers ...*http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var firstErr error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("error shutting down %s: %w", srv.Addr, err)
		}
	}
	return firstErr
}
