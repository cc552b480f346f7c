// internal/httpserver/server.go
//
// HTTP server wiring for the arcade backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     access log).
//   - Public endpoints: "/", "/health", "/games", "/achievements", "/leaderboard".
//   - Session command API (optional auth): /sessions/*.
//   - Daily challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile endpoints: /auth/*, /players/me/summary.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Guests play under an anonymous cookie id; signing up or logging in
//     claims their sessions and daily entries.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/arcade/internal/clock"
	"github.com/robalobadob/arcade/internal/config"
	"github.com/robalobadob/arcade/internal/daily"
	"github.com/robalobadob/arcade/internal/games"
	"github.com/robalobadob/arcade/internal/session"
	"github.com/robalobadob/arcade/internal/store"
)

// Deps are the collaborators a Server routes requests to.
type Deps struct {
	Config   config.Config
	Engine   *session.Engine
	Catalog  *games.Catalog
	Sessions store.Sessions
	Users    *store.Users
	Daily    *daily.Store
	Clock    clock.Clock
}

// Server bundles the router and its dependencies.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	engine   *session.Engine
	catalog  *games.Catalog
	sessions store.Sessions
	users    *store.Users
	daily    *daily.Store
	clock    clock.Clock
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      d.Config,
		engine:   d.Engine,
		catalog:  d.Catalog,
		sessions: d.Sessions,
		users:    d.Users,
		daily:    d.Daily,
		clock:    d.Clock,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)      // add X-Request-ID
	s.r.Use(chimw.RealIP)         // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)            // one zerolog line per request
	s.r.Use(chimw.Recoverer)      // recover from panics
	s.r.Use(chimw.Timeout(timeout))
	s.r.Use(jsonContentType)
	s.r.Use(cors(s.cfg.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "arcade",
			"endpoints": []string{"/health", "/games", "POST /sessions", "/daily/{kind}/start", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	// --- catalog & boards (public) ---
	s.r.Get("/games", s.handleGames)
	s.r.Get("/achievements", s.handleAchievements)
	s.r.Get("/leaderboard", s.handleLeaderboard)

	// Sessions: OPTIONAL AUTH (guests can play)
	s.r.With(s.withOptionalAuth()).Route("/sessions", s.mountSessions)

	// Daily challenge: OPTIONAL AUTH
	s.mountDaily(s.r.With(s.withOptionalAuth()))

	// Auth + profile
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one debug line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("requestId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}

// ------------------------------ catalog ------------------------------------

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.List())
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Achievements().Registry())
}

// handleLeaderboard lists top finished sessions, optionally for one kind.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" {
		if _, err := s.catalog.Lookup(kind); err != nil {
			writeError(w, http.StatusBadRequest, session.CodeUnknownKind, err.Error())
			return
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.sessions.Leaderboard(r.Context(), kind, limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, session.CodeInternal, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "top": rows})
}

// ------------------------------ helpers ------------------------------------

// writeJSON encodes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error":..., "code":...} body.
func writeError(w http.ResponseWriter, status int, code session.Code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": string(code)})
}

// statusFor maps a command error code to its HTTP status. time_expired is
// a game outcome, not a transport failure, so it stays 200.
func statusFor(code session.Code) int {
	switch code {
	case session.CodeOK, session.CodeTimeExpired:
		return http.StatusOK
	case session.CodeNotFound:
		return http.StatusNotFound
	case session.CodeNotActive, session.CodeCompleted, session.CodeConflict:
		return http.StatusConflict
	case session.CodeInvalidConfig, session.CodeUnknownKind:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body; an empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
