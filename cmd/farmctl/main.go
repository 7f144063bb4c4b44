package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"sbr_farm/internal/app"
	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/db"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// env is opened lazily so that --help works without a database.
type env struct {
	verbose bool

	cfg  *config.Config
	pool *pgxpool.Pool
	svc  *app.Services
}

func (e *env) open() *app.Services {
	if e.svc != nil {
		return e.svc
	}
	e.cfg = config.Load()
	logger.Init(e.cfg.LogLevel, e.cfg.LogJSON)
	if e.verbose {
		logger.SetLevel("debug")
	}
	e.pool = db.Connect(e.cfg.DatabaseURL, e.cfg.DBMaxConns)
	store := repository.NewPGStore(e.pool, e.cfg.StoreTimeout)
	e.svc = app.Build(store, e.cfg.Game, clock.Real(), e.cfg.WithdrawalReservation)
	return e.svc
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func main() {
	e := &env{}
	defer e.close()

	root := &cobra.Command{
		Use:          "farmctl",
		Short:        "Operator CLI for the SBR farm",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newMigrateCmd(e),
		newUserCmd(e),
		newAdjustCmd(e),
		newVIPCmd(e),
		newPaymentsCmd(e),
		newJobCmd(e),
		newTokenCmd(e),
		newStatsCmd(e),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		e.close()
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
