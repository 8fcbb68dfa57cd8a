package proxy

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/config"
	"github.com/gatehouse-dev/gatehouse/internal/endpoint"
	"github.com/gatehouse-dev/gatehouse/internal/telemetry"
)

// Server terminates the single exposed port. It evaluates the routing table
// in order, proxies backend rules to the supervised API process and serves
// the UI bundle for the rest.
type Server struct {
	router   chi.Router
	rules    []Rule
	handlers []http.Handler
	static   *StaticHandler
	logger   *zap.Logger
	cfg      config.Config
}

// NewServer constructs a Server with middleware and the compiled routing
// table. The table is validated up front; a table that cannot satisfy
// same-origin clients is rejected.
func NewServer(cfg config.Config, rules []Rule, logger *zap.Logger) (*Server, error) {
	if err := Validate(rules); err != nil {
		return nil, err
	}
	// Unless an explicit API base override points clients elsewhere, the UI
	// reaches the API through this router and the table must cover it.
	if cfg.Resolver.Production || cfg.Resolver.APIBase == "" {
		if err := EnsureAPIRoute(rules); err != nil {
			return nil, err
		}
	} else if err := EnsureAPIRoute(rules); err != nil {
		logger.Warn("routing table has no backend API route, clients depend on the configured base override",
			zap.String("api_base", cfg.Resolver.APIBase),
			zap.Error(err),
		)
	}

	backendURL, err := url.Parse(cfg.BackendURL())
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}

	s := &Server{
		rules:  rules,
		static: NewStaticHandler(cfg.Server.StaticDir, logger),
		logger: logger,
		cfg:    cfg,
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout(),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: cfg.ResponseTimeout(),
		IdleConnTimeout:       cfg.IdleTimeout(),
		MaxIdleConnsPerHost:   32,
	}

	for _, rule := range rules {
		switch rule.Target {
		case TargetBackend:
			s.handlers = append(s.handlers, s.newBackendProxy(backendURL, rule, transport))
		case TargetStatic:
			s.handlers = append(s.handlers, s.static)
		}
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(telemetry.Middleware)
	r.Use(s.recoverMiddleware)

	r.Get("/runtime/config", s.runtimeConfig)
	r.Handle("/*", http.HandlerFunc(s.dispatch))

	s.router = r
	return s, nil
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// dispatch sends the request to the first matching rule. Validate guarantees
// a catch-all, so a valid table never falls through.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	for i, rule := range s.rules {
		if rule.Matches(r.URL.Path) {
			telemetry.SetRoute(r.Context(), rule.Prefix)
			s.handlers[i].ServeHTTP(w, r)
			return
		}
	}
	writeError(w, http.StatusNotFound, "no route")
}

// runtimeConfig tells the UI where to reach the API, resolved for the page
// that loaded it.
func (s *Server) runtimeConfig(w http.ResponseWriter, r *http.Request) {
	page := endpoint.PageFromRequest(r)
	resolved := endpoint.Resolve(s.cfg.ResolverEnvironment(page))
	s.logger.Debug("endpoint resolved",
		zap.String("page_host", page.Hostname),
		zap.String("base_url", resolved.BaseURL),
		zap.String("mode", string(resolved.Mode)),
		zap.String("source", string(resolved.Source)),
	)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resolved)
}

func (s *Server) newBackendProxy(target *url.URL, rule Rule, transport http.RoundTripper) http.Handler {
	proxy := &httputil.ReverseProxy{
		Transport: transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			// The backend sees the Host the client used, as a fronting
			// nginx would send it.
			pr.Out.Host = pr.In.Host
			pr.SetXForwarded()
			if ip, _, err := net.SplitHostPort(pr.In.RemoteAddr); err == nil {
				pr.Out.Header.Set("X-Real-IP", ip)
			}
			if !rule.PreservePrefix {
				pr.Out.URL.Path = stripPrefix(pr.In.URL.Path, rule.Prefix)
				pr.Out.URL.RawPath = ""
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Warn("backend round trip failed",
				zap.String("route", rule.Prefix),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			telemetry.ObserveUpstreamError(rule.Prefix)
			writeError(w, http.StatusBadGateway, "backend unavailable")
		},
	}
	if rule.Streaming {
		// Negative interval flushes after every write so server-sent
		// events reach the client immediately.
		proxy.FlushInterval = -1
	}
	return proxy
}

// stripPrefix removes the matched rule prefix from the path, keeping the
// result rooted.
func stripPrefix(path, prefix string) string {
	rest := strings.TrimPrefix(path, strings.TrimSuffix(prefix, "/"))
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
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

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
