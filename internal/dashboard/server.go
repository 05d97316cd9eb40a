// Package dashboard serves reconciliation reports over a read-only JSON API.
package dashboard

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/scranton_spreads/internal/feed"
	"github.com/eddiefleurent/scranton_spreads/internal/models"
	"github.com/eddiefleurent/scranton_spreads/internal/orders"
	"github.com/eddiefleurent/scranton_spreads/internal/reconcile"
	"github.com/eddiefleurent/scranton_spreads/internal/report"
)

// Source produces a fresh report for every request.
type Source interface {
	Load(ctx context.Context) (*report.Document, error)
}

// FileSource reconciles an order history file.
type FileSource struct {
	Path  string
	Match reconcile.SignatureMatch
}

// Load reads the file and reconciles it.
func (f FileSource) Load(ctx context.Context) (*report.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := feed.Load(f.Path)
	if err != nil {
		return nil, err
	}
	r, err := reconcile.Reconcile(data.Records, reconcile.WithSignatureMatch(f.Match))
	if err != nil {
		return nil, err
	}
	return report.NewDocument(r, f.Path, time.Now()).WithCost(orders.SummarizeCost(data.Records, data.Events)), nil
}

type Server struct {
	router    *chi.Mux
	server    *http.Server
	source    Source
	logger    logrus.FieldLogger
	addr      string
	authToken string
}

type Config struct {
	Addr      string
	AuthToken string
}

func NewServer(cfg Config, source Source, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		router:    chi.NewRouter(),
		source:    source,
		logger:    logger,
		addr:      cfg.Addr,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/report", s.handleReport)
	s.router.Get("/api/report/{symbol}", s.handleSymbol)
	s.router.Get("/api/cost", s.handleCost)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("handled request")
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("starting report API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	doc, ok := s.load(w, r)
	if !ok {
		return
	}
	sr, found := doc.Report.Symbol(symbol)
	if !found {
		writeError(w, http.StatusNotFound, "no orders for "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, sr)
}

func (s *Server) handleCost(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.load(w, r)
	if !ok {
		return
	}
	if doc.Cost == nil {
		writeJSON(w, http.StatusOK, orders.CostSummary{})
		return
	}
	writeJSON(w, http.StatusOK, doc.Cost)
}

// load builds the report and writes an error response on failure. Bad input
// data maps to 422, anything else to 500.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*report.Document, bool) {
	doc, err := s.source.Load(r.Context())
	if err == nil {
		return doc, true
	}

	log := s.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context()))
	if errors.Is(err, models.ErrParse) || errors.Is(err, models.ErrValidation) {
		log.Warn("order history rejected")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	log.Error("failed to build report")
	writeError(w, http.StatusInternalServerError, "failed to build report")
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
