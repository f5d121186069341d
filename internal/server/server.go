// Package server exposes board catalogs and the allocator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/OpenTraceLab/pinplan/internal/logging"
	"github.com/OpenTraceLab/pinplan/internal/metrics"
	"github.com/OpenTraceLab/pinplan/pkg/alloc"
	"github.com/OpenTraceLab/pinplan/pkg/board"
	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and planner logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry sets the Prometheus registry that backs planner metrics and
// the metrics endpoint.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// Server serves the pin planning API.
type Server struct {
	cfg      *Config
	repo     board.Repository
	logger   logging.Logger
	registry *prometheus.Registry
	metrics  metrics.Collector
	parser   *requirement.Parser
	planners *xsync.Map[string, *alloc.Planner]
	router   chi.Router
}

// New builds a server over repo.
func New(cfg *Config, repo board.Repository, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, errors.New("server: board repository is required")
	}
	parser, err := requirement.NewParser()
	if err != nil {
		return nil, fmt.Errorf("server: build parser: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		repo:     repo,
		logger:   logging.NewNop(),
		registry: prometheus.NewRegistry(),
		parser:   parser,
		planners: xsync.NewMap[string, *alloc.Planner](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = metrics.NewPrometheus(s.registry, "pinplan")
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/boards", func(r chi.Router) {
		r.Get("/", s.listBoards)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.getBoard)
			r.Post("/validate", s.validate)
			r.Post("/optimize", s.optimize)
		})
	})

	if s.cfg.MetricsPath != "" {
		r.Method(http.MethodGet, s.cfg.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("server listening", "addr", ln.Addr().String(), "boards", len(s.repo.Names()))

	select {
	case err := <-errCh:
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// planner returns the cached planner for the named board.
func (s *Server) planner(name string) (*alloc.Planner, error) {
	b, err := s.repo.Lookup(name)
	if err != nil {
		return nil, err
	}
	if p, ok := s.planners.Load(name); ok && p.Board() == b {
		return p, nil
	}
	p := alloc.NewPlanner(b, alloc.WithLogger(s.logger), alloc.WithMetrics(s.metrics))
	s.planners.Store(name, p)
	return p, nil
}

type boardSummary struct {
	Name       string   `json:"name"`
	Pins       int      `json:"pins"`
	Interfaces []string `json:"interfaces"`
}

func (s *Server) listBoards(w http.ResponseWriter, _ *http.Request) {
	out := struct {
		Boards []boardSummary `json:"boards"`
	}{Boards: []boardSummary{}}

	for _, name := range s.repo.Names() {
		b, err := s.repo.Lookup(name)
		if err != nil {
			continue
		}
		out.Boards = append(out.Boards, boardSummary{Name: b.Name, Pins: len(b.Pins), Interfaces: b.Interfaces})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.repo.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type validateResponse struct {
	Valid  bool                   `json:"valid"`
	Errors alloc.ValidationErrors `json:"errors"`
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	p, err := s.planner(chi.URLParam(r, "name"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	reqs, err := s.decodeRequirements(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	errs := p.Validate(reqs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, validateResponse{Errors: errs})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Errors: alloc.ValidationErrors{}})
}

func (s *Server) optimize(w http.ResponseWriter, r *http.Request) {
	p, err := s.planner(chi.URLParam(r, "name"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	reqs, err := s.decodeRequirements(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := p.Plan(reqs)
	var verrs alloc.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusUnprocessableEntity, validateResponse{Errors: verrs})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeRequirements reads either the text DSL or a JSON document
// {"requirements": [...]} depending on the request content type.
func (s *Server) decodeRequirements(w http.ResponseWriter, r *http.Request) ([]requirement.Requirement, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		return s.parser.Parse(body)
	}

	var doc struct {
		Requirements requirement.List `json:"requirements"`
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	return doc.Requirements, nil
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, board.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Error("board lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
