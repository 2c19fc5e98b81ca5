// Command migrate drives the legacy-data migration from a terminal: plan
// prints source row counts, run executes the full four-phase pipeline using a
// YAML activity-mapping file.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"example.com/migration/internal/config"
	"example.com/migration/internal/migration"
	"example.com/migration/internal/notecrypt"
	persistence "example.com/migration/internal/persistence/postgres"
	"example.com/migration/internal/source"
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Migrate activity-tracking data from the legacy store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	email        string
	password     string
	timezone     string
	mappingsPath string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Connect to the legacy store and print per-table row counts",
	RunE:  runPlan,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all four migration phases in dependency order",
	RunE:  runFull,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "Legacy account email")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Legacy account password (or LEGACY_PASSWORD)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA zone for timestamp conversion (default: system zone)")
	runCmd.Flags().StringVarP(&mappingsPath, "mappings", "m", "", "YAML file of activity mappings")
	_ = runCmd.MarkFlagRequired("mappings")
	rootCmd.AddCommand(planCmd, runCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, orchestrator, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := orchestrator.Initialize(ctx, email, credential()); err != nil {
		return err
	}
	defer func() { _ = orchestrator.Cleanup(ctx) }()

	counts, err := orchestrator.DryRun(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("activities: %d\n", counts.Activities)
	fmt.Printf("timeslices: %d\n", counts.Timeslices)
	fmt.Printf("notes:      %d\n", counts.Notes)
	fmt.Printf("states:     %d\n", counts.States)
	return nil
}

func runFull(cmd *cobra.Command, args []string) error {
	mappings, err := loadMappings(mappingsPath)
	if err != nil {
		return err
	}

	ctx, orchestrator, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := orchestrator.Initialize(ctx, email, credential()); err != nil {
		return err
	}
	defer func() { _ = orchestrator.Cleanup(ctx) }()

	progress, err := orchestrator.RunFull(ctx, mappings, printProgress)
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("activities: %d migrated, %d skipped\n", progress.Activities.MigratedCount, progress.Activities.SkippedCount)
	fmt.Printf("timeslices: %d migrated, %d skipped\n", progress.Timeslices.MigratedCount, progress.Timeslices.SkippedCount)
	fmt.Printf("notes:      %d migrated, %d skipped, %d encrypted\n",
		progress.Notes.MigratedCount, progress.Notes.SkippedCount, progress.Notes.EncryptedCount)
	fmt.Printf("states:     %d migrated, %d skipped\n", progress.States.MigratedCount, progress.States.SkippedCount)
	return nil
}

// setup builds the orchestrator from environment configuration. The returned
// cleanup closes the target pool.
func setup() (context.Context, *migration.Orchestrator, func(), error) {
	cfg := config.Load()
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if cfg.Timezone != "" && !migration.IsValidTimezone(cfg.Timezone) {
		return nil, nil, nil, fmt.Errorf("unknown timezone %q", cfg.Timezone)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	key, err := notecrypt.LoadKey(cfg.SecretsDir)
	if err != nil {
		pool.Close()
		cancel()
		return nil, nil, nil, fmt.Errorf("read encryption key: %w", err)
	}
	if key == "" {
		log.Printf("no encryption key found in %s; encrypted notes will be replaced with a sentinel", cfg.SecretsDir)
	}

	repos := persistence.New(pool)
	src := source.New(cfg.LegacyURL, cfg.LegacyAPIKey,
		source.WithHealthWindow(cfg.HealthCheckWindow))

	migrator := migration.NewMigrator(migration.MigratorParams{
		Source:     src,
		Activities: repos.Activities,
		Timeslices: repos.Timeslices,
		Notes:      repos.Notes,
		States:     repos.States,
		Processor:  notecrypt.NewProcessor(key),
		Timezone:   cfg.Timezone,
		Sizes: migration.Sizes{
			TimeslicePage:  cfg.TimeslicePageSize,
			NotePage:       cfg.NotePageSize,
			StatePage:      cfg.StatePageSize,
			TimesliceBatch: cfg.TimesliceBatchSize,
			NoteBatch:      cfg.NoteBatchSize,
			StateBatch:     cfg.StateBatchSize,
		},
	})

	cleanup := func() {
		pool.Close()
		cancel()
	}
	return ctx, migration.NewOrchestrator(migrator), cleanup, nil
}

func credential() string {
	if password != "" {
		return password
	}
	return os.Getenv("LEGACY_PASSWORD")
}

func loadMappings(path string) ([]migration.ActivityMapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings file: %w", err)
	}
	var mappings []migration.ActivityMapping
	if err := yaml.Unmarshal(raw, &mappings); err != nil {
		return nil, fmt.Errorf("parse mappings file: %w", err)
	}
	if len(mappings) == 0 {
		return nil, fmt.Errorf("mappings file %s contains no entries", path)
	}
	return mappings, nil
}

func printProgress(current, total int) {
	if total == 0 {
		return
	}
	fmt.Printf("\rmigrating: %d/%d", current, total)
}
