package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/arcade/internal/config"
	"github.com/robalobadob/arcade/internal/session"
	"github.com/robalobadob/arcade/internal/store"
)

func TestPrintLeaderboard(t *testing.T) {
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := printLeaderboard(cmd, nil); err != nil {
		t.Fatalf("print empty: %v", err)
	}
	if !strings.Contains(buf.String(), "no finished sessions") {
		t.Fatalf("empty output = %q", buf.String())
	}

	buf.Reset()
	rows := []store.LeaderRow{
		{Username: "ada", Kind: "wordguess", Score: 420, Rating: "Good", Accuracy: 0.8, BestStreak: 3},
		{Kind: "tiles", Score: 90, Rating: "Beginner", Accuracy: 1},
	}
	if err := printLeaderboard(cmd, rows); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PLAYER", "ada", "420", "80%", "guest", "100%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildAppServesEmbeddedCatalog(t *testing.T) {
	cfg := config.Config{
		Port:           "0",
		LogLevel:       "error",
		DatabaseURL:    filepath.Join(t.TempDir(), "arcade.db"),
		Store:          config.StoreSQLite,
		JWTSecret:      "test",
		JWTExpiresDays: 1,
		CookieName:     "arcade_token",
		AnonCookieName: "arcade_anon",
		DailySalt:      "salt",
		SaveRetries:    2,
		SaveRetryBase:  time.Millisecond,
		RequestTimeout: time.Second,
	}
	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer a.db.Close()

	rec := httptest.NewRecorder()
	a.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/games = %d", rec.Code)
	}
	for _, kind := range []string{"wordguess", "whackamole", "tiles"} {
		if !strings.Contains(rec.Body.String(), `"kind":"`+kind+`"`) {
			t.Fatalf("catalog missing %s: %s", kind, rec.Body.String())
		}
	}

	v, err := a.engine.Start(context.Background(), session.StartRequest{Kind: "whackamole", Seed: "fixed"})
	if err != nil {
		t.Fatalf("start on sqlite: %v", err)
	}
	if v.TargetsTotal == 0 || v.Status != session.StatusActive {
		t.Fatalf("view = %+v", v)
	}
}
