// Package server serves built sites over HTTP and HTTPS, dispatching on the
// Host header to per-vhost file mounts and redirects.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lemmi/compress"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	smw "git.home.luguber.info/inful/sitebuilder/internal/server/middleware"
)

const readHeaderTimeout = 10 * time.Second

// Options carries the server's collaborators.
type Options struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder
	// Registry backs the metrics listener; nil uses the default registry.
	Registry *prom.Registry
}

type listenerKind string

const (
	kindHTTP    listenerKind = "http"
	kindTLS     listenerKind = "tls"
	kindMetrics listenerKind = "metrics"
)

type binding struct {
	kind listenerKind
	addr string
	ln   net.Listener
	srv  *http.Server
}

// Server owns every configured listener.
type Server struct {
	cfg      config.ServerConfig
	logger   *slog.Logger
	httpH    http.Handler
	tlsH     http.Handler
	metricsH http.Handler
	certs    *certStore
	bindings []*binding
}

// New prepares handlers and certificates. Nothing is bound until Start.
func New(cfg config.ServerConfig, vhosts []config.VHost, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chain := smw.Chain(smw.Options{
		Logger:      logger,
		Recorder:    opts.Recorder,
		Headers:     cfg.Headers,
		LogRequests: cfg.LogRequests,
	})
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		httpH:    chain(compress.New(newHostMux(vhosts, false))),
		tlsH:     chain(compress.New(newHostMux(vhosts, true))),
		metricsH: metrics.HTTPHandler(opts.Registry),
	}
	if len(cfg.TLSBind) > 0 {
		certs, err := loadCertificates(vhosts)
		if err != nil {
			return nil, err
		}
		if certs.empty() {
			return nil, errors.ConfigError("tls_bind requires at least one vhost with tls").Build()
		}
		s.certs = certs
	}
	return s, nil
}

// Handler returns the plain HTTP handler.
func (s *Server) Handler() http.Handler { return s.httpH }

// TLSHandler returns the handler used behind TLS listeners.
func (s *Server) TLSHandler() http.Handler { return s.tlsH }

// Start binds every listener before serving any, so a single busy port fails
// the whole start and nothing is left half running.
func (s *Server) Start(ctx context.Context) error {
	var binds []*binding
	for _, a := range s.cfg.HTTPBind {
		binds = append(binds, &binding{kind: kindHTTP, addr: a})
	}
	for _, a := range s.cfg.TLSBind {
		binds = append(binds, &binding{kind: kindTLS, addr: a})
	}
	if s.cfg.MetricsBind != "" {
		binds = append(binds, &binding{kind: kindMetrics, addr: s.cfg.MetricsBind})
	}
	if len(binds) == 0 {
		return errors.ConfigError("no listeners configured").Build()
	}

	var bindErrs []error
	lc := net.ListenConfig{}
	for _, b := range binds {
		ln, err := lc.Listen(ctx, "tcp", b.addr)
		if err != nil {
			bindErrs = append(bindErrs, fmt.Errorf("%s %s: %w", b.kind, b.addr, err))
			continue
		}
		b.ln = ln
	}
	if len(bindErrs) > 0 {
		for _, b := range binds {
			if b.ln != nil {
				_ = b.ln.Close()
			}
		}
		return errors.NetworkError("http startup failed").WithCause(stderrors.Join(bindErrs...)).Build()
	}

	for _, b := range binds {
		s.serve(b)
	}
	s.bindings = binds
	return nil
}

func (s *Server) serve(b *binding) {
	b.srv = &http.Server{
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	switch b.kind {
	case kindHTTP:
		b.srv.Handler = s.httpH
	case kindTLS:
		b.srv.Handler = s.tlsH
		b.srv.TLSConfig = s.certs.tlsConfig()
	case kindMetrics:
		b.srv.Handler = s.metricsH
	}
	s.logger.Info("Listening", slog.String("listener", string(b.kind)), slog.String("addr", b.ln.Addr().String()))
	go func() {
		var err error
		if b.kind == kindTLS {
			err = b.srv.ServeTLS(b.ln, "", "")
		} else {
			err = b.srv.Serve(b.ln)
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Listener stopped", slog.String("listener", string(b.kind)), logfields.Error(err))
		}
	}()
}

// Addrs returns the bound addresses in start order.
func (s *Server) Addrs() []net.Addr {
	out := make([]net.Addr, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, b.ln.Addr())
	}
	return out
}

// Stop gracefully shuts every listener down.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	for i := len(s.bindings) - 1; i >= 0; i-- {
		b := s.bindings[i]
		if err := b.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s %s shutdown: %w", b.kind, b.addr, err))
		}
	}
	s.bindings = nil
	if len(errs) > 0 {
		return errors.NetworkError("shutdown errors").WithCause(stderrors.Join(errs...)).Build()
	}
	return nil
}
