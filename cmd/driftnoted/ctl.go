package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/driftnote/driftnote/internal/control"
)

// ctlCommand sends commands to a running player over its control socket.
func ctlCommand(r *Runner) *cli.Command {
	simple := func(name, usage string, cmd control.CommandType) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Flags: []cli.Flag{configFlag()},
			Action: func(ctx context.Context, c *cli.Command) error {
				return r.ctlSend(c, cmd, nil)
			},
		}
	}

	return &cli.Command{
		Name:  "ctl",
		Usage: "Control a running player",
		Commands: []*cli.Command{
			simple("play", "Resume playback", control.CmdPlay),
			simple("pause", "Pause playback", control.CmdPause),
			simple("toggle", "Toggle play/pause", control.CmdToggle),
			simple("stop", "Stop playback", control.CmdStop),
			simple("next", "Skip to the next track", control.CmdNext),
			simple("prev", "Go back to the previous track", control.CmdPrev),
			simple("mute", "Toggle mute", control.CmdMute),
			simple("shuffle", "Toggle shuffle", control.CmdShuffle),
			simple("repeat", "Cycle the repeat mode", control.CmdRepeat),
			simple("clear", "Clear the queue", control.CmdQueueClear),
			{
				Name:  "seek",
				Usage: "Seek to a position in seconds",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					var pos float64
					if _, err := fmt.Sscanf(c.Args().First(), "%f", &pos); err != nil {
						return fmt.Errorf("usage: driftnoted ctl seek <seconds>")
					}
					return r.ctlSend(c, control.CmdSeek, control.SeekData{Position: pos})
				},
			},
			{
				Name:  "volume",
				Usage: "Set the volume, 0.0 to 1.0",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					var vol float64
					if _, err := fmt.Sscanf(c.Args().First(), "%f", &vol); err != nil {
						return fmt.Errorf("usage: driftnoted ctl volume <0.0-1.0>")
					}
					return r.ctlSend(c, control.CmdVolume, control.VolumeData{Volume: vol})
				},
			},
			{
				Name:  "jump",
				Usage: "Jump to a queue index",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					var index int
					if _, err := fmt.Sscanf(c.Args().First(), "%d", &index); err != nil {
						return fmt.Errorf("usage: driftnoted ctl jump <index>")
					}
					return r.ctlSend(c, control.CmdQueueJump, control.IndexData{Index: index})
				},
			},
			{
				Name:  "status",
				Usage: "Show current playback status",
				Flags: []cli.Flag{configFlag()},
				Action: r.CtlStatus,
			},
			{
				Name:  "queue",
				Usage: "Show the current queue",
				Flags: []cli.Flag{configFlag()},
				Action: r.CtlQueue,
			},
		},
	}
}

// ctlDial connects to the control socket of the configured player.
func (r *Runner) ctlDial(cmd *cli.Command) (*control.Client, error) {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return control.Dial(control.SocketPath(cfg.Player.StateDir))
}

func (r *Runner) ctlSend(cmd *cli.Command, cmdType control.CommandType, data any) error {
	client, err := r.ctlDial(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	_, err = client.Send(cmdType, data)
	return err
}

// CtlStatus prints the running player's status.
func (r *Runner) CtlStatus(ctx context.Context, cmd *cli.Command) error {
	client, err := r.ctlDial(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return err
	}

	state := "stopped"
	switch {
	case status.Player.IsPlaying:
		state = "playing"
	case status.Player.Track != nil:
		state = "paused"
	}

	if status.Player.Track != nil {
		fmt.Fprintf(r.output, "%s: %s\n", state, status.Player.Track.DisplayTitle())
		fmt.Fprintf(r.output, "position: %.0fs / %.0fs\n", status.Player.Position, status.Player.Duration)
	} else {
		fmt.Fprintf(r.output, "%s\n", state)
	}
	fmt.Fprintf(r.output, "queue: %d/%d  shuffle: %v  repeat: %s  volume: %.0f%%\n",
		status.CurrentIndex+1, status.QueueLength, status.IsShuffled, status.RepeatMode, status.Player.Volume*100)
	return nil
}

// CtlQueue prints the running player's queue.
func (r *Runner) CtlQueue(ctx context.Context, cmd *cli.Command) error {
	client, err := r.ctlDial(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	data, err := client.Queue()
	if err != nil {
		return err
	}

	for i, t := range data.State.Queue {
		marker := "  "
		if i == data.State.CurrentIndex {
			marker = "> "
		}
		fmt.Fprintf(r.output, "%s%3d. %s\n", marker, i+1, t.DisplayTitle())
	}
	return nil
}
