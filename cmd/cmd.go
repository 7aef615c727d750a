// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// app returns the root command. --config and --verbose are inherited by every subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "hitx",
		Usage:   "Scan song cards with a camera and play them on Spotify",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("HITX_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example configuration file",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand logs in to Spotify
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "auth",
		Aliases: []string{"login"},
		Usage:   "Authenticate with Spotify using OAuth2 + PKCE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// whoamiCommand shows the logged in account
func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged in Spotify account",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Whoami,
	}
}

// devicesCommand lists remote playback devices
func devicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List Spotify Connect devices",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Devices,
	}
}

// playCommand runs a game session
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"scan"},
		Usage:   "Scan cards and play them (interactive unless --headless)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "Run without the TUI, logging each scan",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Playback mode for --headless: local or remote (defaults to player.mode)",
			},
			&cli.StringFlag{
				Name:  "device",
				Usage: "Remote device name or id for --headless (defaults to player.device_id, then the active device)",
			},
			&cli.StringFlag{
				Name:  "camera",
				Usage: "Capture device (defaults to camera.device)",
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "Scan a still image instead of the camera",
			},
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "Print the track of every scan in --headless mode",
			},
		},
		Action: r.Play,
	}
}

// decodeCommand decodes a card image
func decodeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "Decode the QR code in an image file",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "image",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "lookup",
				Usage: "Fetch track metadata from Spotify",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Decode,
	}
}

// cardsCommand generates printable cards from a playlist
func cardsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cards",
		Usage: "Generate QR card images for every track in a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "playlist",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   "cards",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "Image edge in pixels",
				Value: 512,
			},
			&cli.BoolFlag{
				Name:  "invert",
				Usage: "Light code on a dark background",
			},
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "Decode every card after writing it",
				Value: true,
			},
		},
		Action: r.Cards,
	}
}

// historyCommand lists recorded scans
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recently scanned cards",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of scans to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Only show scans from this session id",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, markdown, csv or json",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Write the history to this CSV file",
			},
		},
		Action: r.History,
	}
}
