// internal/httpserver/sessions.go
//
// Session command API:
//   - POST /sessions               → start
//   - GET  /sessions/{id}          → state
//   - POST /sessions/{id}/attempts → submit an attempt
//   - POST /sessions/{id}/hints    → request a hint
//   - POST /sessions/{id}/pause    → pause
//   - POST /sessions/{id}/resume   → resume
//   - POST /sessions/{id}/complete → force completion
//
// Client seeds are ignored; power-ups are refused in production.
//
// Every response carries "code": "ok" for ordinary play, including wrong
// guesses; error codes come from session.CodeOf.

package httpserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/session"
)

type attemptReq struct {
	Value      string `json:"value"`
	ReactionMs int64  `json:"reactionMs"`
}

type hintReq struct {
	Type  hints.Type `json:"type"`
	Force bool       `json:"force"`
}

type completeReq struct {
	Reason string `json:"reason"`
}

type viewRes struct {
	Code session.Code `json:"code"`
	session.View
}

type attemptRes struct {
	Code session.Code `json:"code"`
	session.AttemptResult
}

type hintRes struct {
	Code session.Code `json:"code"`
	session.HintResult
}

func (s *Server) mountSessions(r chi.Router) {
	r.Post("/", s.handleStart)
	r.Route("/{id}", func(r chi.Router) {
		r.Use(s.ownSession)
		r.Get("/", s.handleState)
		r.Post("/attempts", s.handleAttempt)
		r.Post("/hints", s.handleHint)
		r.Post("/pause", s.viewCommand(s.engine.Pause))
		r.Post("/resume", s.viewCommand(s.engine.Resume))
		r.Post("/complete", s.handleComplete)
	})
}

// ownSession 404s sessions that belong to someone else, so ids reveal nothing
// about other players.
func (s *Server) ownSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, err := s.engine.State(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.commandError(w, err)
			return
		}
		if v.PlayerID != "" && v.PlayerID != s.playerID(w, r) {
			writeError(w, http.StatusNotFound, session.CodeNotFound, "not_found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req session.StartRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, session.CodeInvalidConfig, "bad_json")
		return
	}
	if len(req.PowerUps) > 0 && s.cfg.Production {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "power-ups are disabled"})
		return
	}
	// Targets derive from the seed, so only the server picks one.
	req.Seed = ""
	req.PlayerID = s.playerID(w, r)
	v, err := s.engine.Start(r.Context(), req)
	if err != nil {
		s.commandError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewRes{Code: session.CodeOK, View: v})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.State(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.commandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRes{Code: session.CodeOK, View: v})
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, session.CodeInvalidConfig, "bad_json")
		return
	}
	res, err := s.engine.SubmitAttempt(r.Context(), chi.URLParam(r, "id"), req.Value, req.ReactionMs)
	code := session.CodeOf(err)
	if code != session.CodeOK && code != session.CodeTimeExpired {
		s.commandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptRes{Code: code, AttemptResult: res})
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	var req hintReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, session.CodeInvalidConfig, "bad_json")
		return
	}
	if req.Force && s.cfg.Production {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forced hints are disabled"})
		return
	}
	res, err := s.engine.RequestHint(r.Context(), chi.URLParam(r, "id"), req.Type, req.Force)
	code := session.CodeOf(err)
	if code != session.CodeOK && code != session.CodeTimeExpired {
		s.commandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hintRes{Code: code, HintResult: res})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, session.CodeInvalidConfig, "bad_json")
		return
	}
	v, err := s.engine.ForceComplete(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.commandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRes{Code: session.CodeOK, View: v})
}

// viewCommand adapts a View-returning engine command to a handler.
func (s *Server) viewCommand(cmd func(ctx context.Context, id string) (session.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := cmd(r.Context(), chi.URLParam(r, "id"))
		code := session.CodeOf(err)
		if code != session.CodeOK && code != session.CodeTimeExpired {
			s.commandError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewRes{Code: code, View: v})
	}
}

// commandError maps a command error to a status and {"error","code"} body.
func (s *Server) commandError(w http.ResponseWriter, err error) {
	code := session.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("session command")
		writeError(w, status, code, "internal_error")
		return
	}
	writeError(w, status, code, err.Error())
}
