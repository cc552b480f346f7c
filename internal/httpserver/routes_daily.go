// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily challenge.
// Exposes two endpoints per game under /daily/{kind}:
//   - POST /daily/{kind}/start       → start (or resume) today's session
//   - GET  /daily/{kind}/leaderboard → top results for today (or ?date=)
//
// Everyone gets the same targets for a kind on a given UTC day (seeded
// from HMAC(salt, kind|date)). A player's first daily session of the day
// is the only one that counts; the completion hook records its result.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/arcade/internal/daily"
	"github.com/robalobadob/arcade/internal/session"
	"github.com/robalobadob/arcade/internal/store"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily/{kind}", func(r chi.Router) {
		r.Post("/start", s.handleDailyStart)
		r.Get("/leaderboard", s.handleDailyLeaderboard)
	})
}

// dailyStartRes is returned by /daily/{kind}/start.
type dailyStartRes struct {
	Code      session.Code  `json:"code"`
	Date      string        `json:"date"`
	Played    bool          `json:"played"`
	NextReset string        `json:"nextReset"`
	Entry     *daily.Entry  `json:"entry,omitempty"`
	Session   *session.View `json:"session,omitempty"`
}

// handleDailyStart returns today's session for the caller, creating it on
// first call. Once finished, it reports Played=true with the recorded entry.
func (s *Server) handleDailyStart(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if _, err := s.catalog.Lookup(kind); err != nil {
		s.commandError(w, err)
		return
	}
	uid := s.playerID(w, r)
	now := s.clock.Now()
	date := daily.DateKey(now)
	res := dailyStartRes{Code: session.CodeOK, Date: date, NextReset: daily.NextReset(now).Format("2006-01-02T15:04:05Z")}

	entry, ok, err := s.daily.Lookup(r.Context(), uid, kind, date)
	if err != nil {
		log.Error().Err(err).Msg("daily lookup")
		writeError(w, http.StatusInternalServerError, session.CodeInternal, "db_error")
		return
	}
	if ok && entry.Finished {
		res.Played = true
		res.Entry = &entry
		writeJSON(w, http.StatusOK, res)
		return
	}
	if ok {
		v, err := s.engine.State(r.Context(), entry.SessionID)
		if err == nil {
			res.Entry = &entry
			res.Session = &v
			writeJSON(w, http.StatusOK, res)
			return
		}
		// The entry outlived its session (memory store restart); start over.
		if !errors.Is(err, session.ErrNotFound) {
			s.commandError(w, err)
			return
		}
		log.Warn().Str("session", entry.SessionID).Msg("daily entry without session, restarting")
	}

	v, err := s.engine.Start(r.Context(), session.StartRequest{
		Kind:     kind,
		PlayerID: uid,
		Seed:     daily.Seed(now, s.cfg.DailySalt, kind),
	})
	if err != nil {
		s.commandError(w, err)
		return
	}
	if ok {
		entry, err = s.daily.Replace(r.Context(), uid, kind, date, v.ID)
	} else {
		entry, err = s.daily.Begin(r.Context(), uid, kind, date, v.ID)
	}
	if err != nil {
		log.Error().Err(err).Msg("daily begin")
		writeError(w, http.StatusInternalServerError, session.CodeInternal, "db_error")
		return
	}
	if entry.SessionID != v.ID {
		// Lost a race with a concurrent start; hand back the winner.
		if v2, err := s.engine.State(r.Context(), entry.SessionID); err == nil {
			v = v2
		}
	}
	res.Entry = &entry
	res.Session = &v
	writeJSON(w, http.StatusOK, res)
}

// lbRes is returned by /daily/{kind}/leaderboard.
type lbRes struct {
	Kind string        `json:"kind"`
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleDailyLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.clock.Now())
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.daily.Leaderboard(r.Context(), kind, date, limit)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, session.CodeInternal, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Kind: kind, Date: date, Top: rows})
}

// RecordFinish returns the engine completion hook that books finished
// sessions: the daily entry (if the session is one) and, for registered
// players, the account counters. Failures are logged, never surfaced.
func RecordFinish(users *store.Users, days *daily.Store) session.CompletionHook {
	return func(ctx context.Context, v session.View) {
		if v.Result == nil {
			return
		}
		if days != nil {
			if _, err := days.Finish(ctx, v.ID, v.Result.Score, v.Result.Accuracy, v.ElapsedMs); err != nil {
				log.Warn().Err(err).Str("session", v.ID).Msg("record daily result")
			}
		}
		if users == nil || v.PlayerID == "" || strings.HasPrefix(v.PlayerID, anonPrefix) {
			return
		}
		won := v.Result.CompletionPct == 100
		if err := users.RecordFinish(ctx, v.PlayerID, won); err != nil {
			log.Warn().Err(err).Str("user", v.PlayerID).Msg("bump stats")
		}
	}
}
