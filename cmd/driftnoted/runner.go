package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/driftnote/driftnote/internal/config"
	"github.com/driftnote/driftnote/internal/drive"
	"github.com/driftnote/driftnote/internal/shared"
	"github.com/driftnote/driftnote/internal/storage"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{logger: opts.Logger, output: opts.Output}
}

// register returns all top-level commands.
func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		serveCommand(r),
		syncCommand(r),
		playCommand(r),
		ctlCommand(r),
		migrateCommand(r),
		configCommand(r),
	}
}

// loadConfig reads the config file named by the command's --config flag.
func (r *Runner) loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// openDatabase opens the configured sqlite database and applies pending
// migrations.
func (r *Runner) openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	storage.Configure(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)

	if err := storage.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// buildDrive constructs the drive client from config credentials.
func (r *Runner) buildDrive(ctx context.Context, cfg *config.Config) (*drive.GoogleDrive, error) {
	return drive.NewGoogleDrive(ctx, drive.GoogleDriveOptions{
		ClientID:     cfg.Drive.ClientID,
		ClientSecret: cfg.Drive.ClientSecret,
		RefreshToken: cfg.Drive.RefreshToken,
		FolderID:     cfg.Drive.FolderID,
	})
}
