// submodule commands contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "driftnote.toml",
	}
}

// serveCommand runs the streaming API server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the streaming API server",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: r.Serve,
	}
}

// syncCommand refreshes the song catalog from the cloud drive
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync the song catalog from the cloud drive",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "folder",
				Usage: "Drive folder ID to sync (defaults to the configured folder)",
			},
		},
		Action: r.Sync,
	}
}

// playCommand runs the headless player against a driftnote server
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play music from a driftnote server, controlled via OS media keys",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Playlist ID to play",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Playlist password, for protected playlists",
			},
			&cli.StringFlag{
				Name:    "search",
				Aliases: []string{"s"},
				Usage:   "Play catalog songs matching a search instead of a playlist",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum songs to queue from a search",
				Value: 100,
			},
			&cli.BoolFlag{
				Name:  "shuffle",
				Usage: "Shuffle the queue before playing",
			},
		},
		Action: r.Play,
	}
}

// migrateCommand applies or rolls back database migrations
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "down",
				Usage: "Roll back the most recent migration",
			},
		},
		Action: r.Migrate,
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration helpers",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a commented example configuration file",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.ConfigInit,
			},
		},
	}
}
