package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/driftnote/driftnote/internal/client"
	"github.com/driftnote/driftnote/internal/control"
	"github.com/driftnote/driftnote/internal/media"
	"github.com/driftnote/driftnote/internal/player"
	"github.com/driftnote/driftnote/internal/queue"
	"github.com/driftnote/driftnote/internal/track"
)

// Play runs the headless player. It queues a playlist or search results from
// a running driftnote server and then hands control to the OS media session
// until interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	api := client.New(cfg.Player.ServerURL)

	element := player.NewBeepElement(nil, r.logger)
	engine := player.NewEngine(element, func(t track.Track) string {
		return api.StreamURL(t.DriveFileID)
	}, r.logger)
	defer engine.Close()

	q := queue.NewManager(engine)
	engine.SetOnTrackEnd(func(t track.Track) { q.HandleTrackEnd() })

	session, err := media.NewSession()
	if err != nil {
		r.logger.Warn("media session unavailable", "error", err)
		session = media.NewNoOpSession()
	}
	defer session.Close()

	bridge := media.NewBridge(session, q, engine, r.logger)

	store := queue.NewStore(cfg.Player.StateDir)
	saved, err := store.Load(cfg.Player.DefaultVolume)
	if err != nil {
		r.logger.Warn("failed to load saved state", "error", err)
	}

	engine.SetVolume(saved.Volume)
	if saved.Muted {
		engine.ToggleMute()
	}

	persist := func() {
		state := queue.PersistentState{State: q.Snapshot()}
		status := engine.Status()
		state.Volume = status.Volume
		state.Muted = status.Muted
		if err := store.Save(state); err != nil {
			r.logger.Warn("failed to save state", "error", err)
		}
	}

	engine.SetOnStateChange(func(s player.State) {
		bridge.PublishPlayerState(s)
	})
	q.SetOnChange(func() {
		bridge.PublishQueueState(q.Snapshot())
		persist()
	})

	tracks, err := r.resolveTracks(ctx, cmd, api)
	if err != nil {
		return err
	}

	switch {
	case len(tracks) > 0:
		q.SetQueue(tracks, 0)
		if cmd.Bool("shuffle") {
			q.ToggleShuffle()
		}
	case len(saved.Queue) > 0:
		r.logger.Info("restoring saved queue", "tracks", len(saved.Queue))
		q.Restore(saved.State)
	default:
		return fmt.Errorf("nothing to play: pass --playlist or --search, or play something first")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := control.NewServer(control.SocketPath(cfg.Player.StateDir), q, engine, r.logger)
	go func() {
		if err := ctrl.Start(ctx); err != nil {
			r.logger.Warn("control socket unavailable", "error", err)
		}
	}()

	r.logger.Info("player running", "server", cfg.Player.ServerURL)
	<-ctx.Done()

	persist()
	r.logger.Info("player stopped")
	return nil
}

// resolveTracks fetches the queue contents named by the command's flags. No
// flags means no fetch; the caller falls back to the saved queue.
func (r *Runner) resolveTracks(ctx context.Context, cmd *cli.Command, api *client.Client) ([]track.Track, error) {
	if playlistID := cmd.String("playlist"); playlistID != "" {
		tracks, err := api.PlaylistTracks(ctx, playlistID, cmd.String("password"))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch playlist: %w", err)
		}
		return tracks, nil
	}

	if search := cmd.String("search"); search != "" {
		tracks, _, err := api.Songs(ctx, search, int(cmd.Int("limit")), 0)
		if err != nil {
			return nil, fmt.Errorf("failed to search songs: %w", err)
		}
		return tracks, nil
	}

	return nil, nil
}
