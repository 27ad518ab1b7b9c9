package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/driftnote/driftnote/internal/config"
	"github.com/driftnote/driftnote/internal/library"
	"github.com/driftnote/driftnote/internal/server"
	"github.com/driftnote/driftnote/internal/storage"
)

// Serve runs the streaming API server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	driveClient, err := r.buildDrive(ctx, cfg)
	if err != nil {
		return err
	}

	songs := storage.NewSongRepository(db)
	playlists := storage.NewPlaylistRepository(db)
	syncer := library.NewSyncer(driveClient, songs, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger), server.CORS())
	router.Handler(server.NewHealthHandler(db))
	router.Handler(server.NewSongsHandler(songs, r.logger))
	router.Handler(server.NewPlaylistsHandler(playlists, r.logger))
	router.Handler(server.NewStreamHandler(driveClient, r.logger))
	router.Handler(server.NewDriveHandler(driveClient, syncer, r.logger))

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Sync refreshes the song catalog from the cloud drive once.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	driveClient, err := r.buildDrive(ctx, cfg)
	if err != nil {
		return err
	}

	syncer := library.NewSyncer(driveClient, storage.NewSongRepository(db), r.logger)
	synced, err := syncer.Sync(ctx, cmd.String("folder"))
	if err != nil {
		return err
	}

	fmt.Fprintf(r.output, "synced %d songs\n", synced)
	return nil
}

// Migrate applies pending migrations, or rolls one back with --down.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("down") {
		if err := storage.Rollback(db); err != nil {
			return err
		}
		fmt.Fprintln(r.output, "rolled back")
		return nil
	}

	if err := storage.Migrate(db); err != nil {
		return err
	}
	fmt.Fprintln(r.output, "migrations applied")
	return nil
}

// ConfigInit writes the example configuration file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := config.CreateFile(path); err != nil {
		return err
	}
	fmt.Fprintf(r.output, "wrote %s\n", path)
	return nil
}
