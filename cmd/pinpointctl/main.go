package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/geo"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/internal/repositories"
	"github.com/anonto42/pinpoint/backend/internal/router"
	"github.com/anonto42/pinpoint/backend/pkg/config"
	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	matchLat float64
	matchLon float64
)

var rootCmd = &cobra.Command{
	Use:   "pinpointctl",
	Short: "Operator tooling for the PinPoint backend",
	Long:  `Runs schema migrations, the retention sweep and dry-run proximity matches against the configured stores.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logging.Init(logging.Config{Level: level, Format: "console"})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create PostgreSQL tables and MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *config.DB) error {
			pins := repositories.NewMongoPinRepository(db.Mongo.Database(cfg.MongoDatabase))
			if err := router.Migrate(ctx, db.Postgres, pins); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired pins and watch zones",
	Long:  `Deletes pins older than PIN_TTL and watch zones older than WATCHER_TTL. Meant to run from cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *config.DB) error {
			pins := repositories.NewMongoPinRepository(db.Mongo.Database(cfg.MongoDatabase))
			watchers := repositories.NewPostgresWatcherRepository(db.Postgres)
			return runSweep(ctx, cmd.OutOrStdout(), pins, watchers, time.Now().UTC(), cfg.PinTTL, cfg.WatcherTTL)
		})
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Show which watch zones a point would match right now",
	Long:  `Dry run of the proximity matcher against the live zone set. Nothing is stored and nobody is notified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		point := models.Point{Latitude: matchLat, Longitude: matchLon}
		if err := point.Validate(); err != nil {
			return err
		}
		return withStores(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *config.DB) error {
			index := geo.NewIndex(repositories.NewPostgresWatcherRepository(db.Postgres))
			return runMatch(ctx, cmd.OutOrStdout(), index, geo.NewMatcher(), point)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	matchCmd.Flags().Float64Var(&matchLat, "lat", 0, "Latitude of the point")
	matchCmd.Flags().Float64Var(&matchLon, "lon", 0, "Longitude of the point")
	_ = matchCmd.MarkFlagRequired("lat")
	_ = matchCmd.MarkFlagRequired("lon")

	rootCmd.AddCommand(migrateCmd, sweepCmd, matchCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withStores(ctx context.Context, fn func(context.Context, *config.Config, *config.DB) error) error {
	cfg := config.Load()
	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseDB()
	return fn(ctx, cfg, db)
}

type pinSweeper interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type watcherSweeper interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func runSweep(ctx context.Context, out io.Writer, pins pinSweeper, watchers watcherSweeper, now time.Time, pinTTL, watcherTTL time.Duration) error {
	removedPins, err := pins.DeleteOlderThan(ctx, now.Add(-pinTTL))
	if err != nil {
		return err
	}
	removedZones, err := watchers.DeleteOlderThan(ctx, now.Add(-watcherTTL))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %d pins older than %s\n", removedPins, pinTTL)
	fmt.Fprintf(out, "removed %d watch zones older than %s\n", removedZones, watcherTTL)
	return nil
}

type zoneSnapshotter interface {
	ActiveZones(ctx context.Context) ([]models.WatchZone, error)
}

type matcher interface {
	Match(pinID string, point models.Point, zones []models.WatchZone) []models.MatchResult
}

func runMatch(ctx context.Context, out io.Writer, zones zoneSnapshotter, m matcher, point models.Point) error {
	snapshot, err := zones.ActiveZones(ctx)
	if err != nil {
		return err
	}

	matches := m.Match("dry-run", point, snapshot)
	fmt.Fprintf(out, "%d of %d active zones contain (%.6f, %.6f)\n", len(matches), len(snapshot), point.Latitude, point.Longitude)
	if len(matches) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ZONE\tOWNER\tCATEGORY\tDISTANCE_M")
	for _, mr := range matches {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%.1f\n", mr.ZoneID, mr.OwnerID, mr.ZoneCategory, mr.DistanceMeters)
	}
	return tw.Flush()
}
