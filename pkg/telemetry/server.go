package telemetry

import (
	"context"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /metrics for a gatherer.
type Server struct {
	srv   *http.Server
	ln    net.Listener
	errCh chan error
}

// Serve binds addr and starts serving in the background. Bind errors are
// returned here; later serve errors are reported by Close.
func Serve(addr string, g prometheus.Gatherer) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "could not listen on %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	s := &Server{
		srv:   &http.Server{Handler: mux},
		ln:    ln,
		errCh: make(chan error, 1),
	}

	go func() {
		defer close(s.errCh)

		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.errCh <- err
		}
	}()

	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close shuts the server down and returns the first error seen while
// serving or shutting down.
func (s *Server) Close(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)

	for serveErr := range s.errCh {
		if err == nil {
			err = errors.Wrap(serveErr, "telemetry server failed")
		}
	}

	return err
}
