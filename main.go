// main.go
//
// CLI entrypoint for the arcade session server.
//   - serve:       run the HTTP API.
//   - migrate:     apply embedded SQLite migrations and exit.
//   - leaderboard: print top finished sessions from the database.
//
// Configuration comes from the environment (and .env); see internal/config.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/arcade/internal/config"
	"github.com/robalobadob/arcade/internal/content"
	"github.com/robalobadob/arcade/internal/daily"
	"github.com/robalobadob/arcade/internal/games"
	"github.com/robalobadob/arcade/internal/httpserver"
	"github.com/robalobadob/arcade/internal/session"
	"github.com/robalobadob/arcade/internal/store"
)

var (
	boardKind  string
	boardLimit int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "arcade",
		Short:         "Session and scoring server for casual mini-games",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE:  runMigrate,
	})

	boardCmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print top finished sessions",
		RunE:  runLeaderboard,
	}
	boardCmd.Flags().StringVar(&boardKind, "kind", "", "game kind (default: all)")
	boardCmd.Flags().IntVar(&boardLimit, "limit", 10, "rows to print")
	rootCmd.AddCommand(boardCmd)

	return rootCmd
}

// loadConfig reads settings and applies the global log level.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}

// openDB opens and migrates the SQLite database.
func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// app is everything serve wires together.
type app struct {
	db     *sql.DB
	engine *session.Engine
	server *httpserver.Server
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	words, err := content.LoadWordBank(cfg.WordsFile)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load word list: %w", err)
	}
	catalog, err := games.LoadCatalog(cfg.GamesFile, words)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load games: %w", err)
	}

	var sessions store.Sessions
	switch cfg.Store {
	case config.StoreMemory:
		sessions = store.NewMemory()
	default:
		sessions = store.NewSQLite(db)
	}
	users := store.NewUsers(db)
	days := daily.NewStore(db)

	engine := session.NewEngine(sessions, catalog,
		session.WithLogger(log.Logger),
		session.WithRetry(cfg.SaveRetries, cfg.SaveRetryBase),
		session.OnComplete(httpserver.RecordFinish(users, days)),
	)
	srv := httpserver.New(httpserver.Deps{
		Config:   cfg,
		Engine:   engine,
		Catalog:  catalog,
		Sessions: sessions,
		Users:    users,
		Daily:    days,
	})
	total, lengths := words.Stats()
	log.Info().Int("words", total).Ints("lengths", lengths).Int("games", len(catalog.List())).Str("store", cfg.Store).Msg("catalog loaded")
	return &app{db: db, engine: engine, server: srv}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.db.Close()

	log.Info().Str("port", cfg.Port).Msg("starting arcade server")
	if err := a.server.Start(cfg.Addr()); err != nil {
		log.Error().Err(err).Msg("server exited")
		return err
	}
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	applied, err := store.Migrate(cmd.Context(), db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
	for _, name := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
	}
	return nil
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store == config.StoreMemory {
		return fmt.Errorf("leaderboard needs STORE=%s; memory sessions do not outlive the server", config.StoreSQLite)
	}
	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := store.NewSQLite(db).Leaderboard(cmd.Context(), boardKind, boardLimit)
	if err != nil {
		return fmt.Errorf("query leaderboard: %w", err)
	}
	return printLeaderboard(cmd, rows)
}

func printLeaderboard(cmd *cobra.Command, rows []store.LeaderRow) error {
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "no finished sessions yet")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tGAME\tSCORE\tRATING\tACCURACY\tBEST STREAK")
	for i, r := range rows {
		player := r.Username
		if player == "" {
			player = "guest"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%.0f%%\t%d\n",
			i+1, player, r.Kind, r.Score, r.Rating, r.Accuracy*100, r.BestStreak)
	}
	return tw.Flush()
}
