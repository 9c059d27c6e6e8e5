package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/config"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/export"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/metrics"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/pipeline"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

const (
	defaultRequestTimeout = 60 * time.Second
	maxBodyBytes          = 1 << 20
)

// Crawler runs crawl, rescore and mapping requests.
type Crawler interface {
	Crawl(ctx context.Context, req pipeline.CrawlRequest) pipeline.CrawlResult
	CrawlBatch(ctx context.Context, reqs []pipeline.CrawlRequest) (pipeline.BatchResult, error)
	Rescore(ctx context.Context, id string) (sourcing.ProductRecord, error)
	RescoreBatch(ctx context.Context, ids []string) (pipeline.RescoreBatchResult, error)
	Preview(ctx context.Context, req pipeline.PreviewRequest) (sourcing.Mapping, error)
}

// Exporter renders bulk-upload workbooks.
type Exporter interface {
	Export(ctx context.Context, sel export.Selection) (export.Artifact, error)
}

// ReadyFunc reports whether downstream dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// Server wires HTTP handlers to the pipeline, record store and exporter.
type Server struct {
	router   chi.Router
	crawler  Crawler
	products sourcing.ProductStore
	exporter Exporter
	ready    ReadyFunc
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. ready may be nil.
func NewServer(
	crawler Crawler,
	products sourcing.ProductStore,
	exporter Exporter,
	ready ReadyFunc,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		crawler:  crawler,
		products: products,
		exporter: exporter,
		ready:    ready,
		logger:   logger,
	}
	timeout := defaultRequestTimeout
	if cfg.Server.RequestTimeoutSecs > 0 {
		timeout = time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Use(timeoutMiddleware(timeout))

		r.Post("/crawl", s.crawl)
		r.Post("/crawl/batch", s.crawlBatch)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/score", s.rescoreBatch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getProduct)
				r.Delete("/", s.deleteProduct)
				r.Post("/score", s.rescore)
			})
		})
		r.Post("/mapping/preview", s.previewMapping)
		r.Post("/export", s.export)
		r.Get("/export/template", s.exportTemplate)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", requestID(r.Context())),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", requestID(r.Context())),
					)
					writeError(w, http.StatusInternalServerError, sourcing.KindInternal, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"ok":false,"error":"request timed out"}`)
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "", "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return sourcing.Invalid("body", "invalid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	OK        bool          `json:"ok"`
	Error     string        `json:"error"`
	ErrorKind sourcing.Kind `json:"error_kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind sourcing.Kind, msg string) {
	writeJSON(w, status, errorBody{Error: msg, ErrorKind: kind})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind sourcing.Kind) int {
	switch kind {
	case sourcing.KindValidation:
		return http.StatusBadRequest
	case sourcing.KindParse:
		return http.StatusUnprocessableEntity
	case sourcing.KindFetch:
		return http.StatusBadGateway
	case sourcing.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its classified status. Internal errors are logged and
// replaced with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := sourcing.ErrorKind(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	writeError(w, status, kind, msg)
}
