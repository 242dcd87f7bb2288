// Package api is the HTTP boundary: the provider webhook that accepts new
// SMS messages, the admin view of today's reports, and a health endpoint.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/donsalieri1930/school-bus-api/internal/processor"
	"github.com/donsalieri1930/school-bus-api/internal/store"
)

// Inbox accepts one inbound message for background processing.
type Inbox interface {
	Handle(msg processor.InboundSMS)
}

// ReportLister serves the admin view.
type ReportLister interface {
	TodaysReports(ctx context.Context) ([]store.ReportRow, error)
}

type Config struct {
	Port             int
	WhitelistEnabled bool
	IPWhitelist      []string
	AdminUsername    string
	AdminPassword    string
}

type Server struct {
	router    *chi.Mux
	cfg       Config
	inbox     Inbox
	reports   ReportLister
	whitelist map[string]bool
	logger    *slog.Logger
}

func NewServer(cfg Config, inbox Inbox, reports ReportLister, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	wl := make(map[string]bool, len(cfg.IPWhitelist))
	for _, ip := range cfg.IPWhitelist {
		wl[ip] = true
	}

	s := &Server{
		router:    router,
		cfg:       cfg,
		inbox:     inbox,
		reports:   reports,
		whitelist: wl,
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Post("/sms", s.newSMS)
	router.Get("/admin", s.basicAuth(s.admin))

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// newSMS acks the provider immediately and runs the pipeline in the
// background. The provider retries on non-2xx, so only whitelist rejections
// and malformed bodies get an error status.
func (s *Server) newSMS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WhitelistEnabled && !s.whitelist[clientIP(r)] {
		s.logger.Warn("sms webhook from unlisted address", "ip", clientIP(r))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var body processor.InboundSMS
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	go s.inbox.Handle(body)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) admin(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.TodaysReports(r.Context())
	if err != nil {
		s.logger.Error("failed to load todays reports", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

// basicAuth guards the admin view with constant-time credential checks.
func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.AdminUsername)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.AdminPassword)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// clientIP returns the original client address, honouring the first
// X-Forwarded-For entry when the service sits behind a proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
