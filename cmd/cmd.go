// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize config file, database, and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles Dropbox authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Dropbox authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Dropbox using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check current authentication state",
				Action: r.AuthStatus,
			},
		},
	}
}

// browseCommand lists and verifies videos in a folder
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "List videos in a Dropbox folder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Folder path to browse",
			},
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "Probe each video for browser playability before printing",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Browse,
	}
}

// probeCommand verifies playability and emits a report
func probeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Check browser playability for every video in a folder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Folder path to probe",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format: csv, markdown, or json",
				Value: "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to this file instead of printing",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Probe,
	}
}

// reelCommand manages saved reels
func reelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reel",
		Usage: "Manage saved reels",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a reel from a folder's playable videos",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Reel title",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "folder",
						Aliases: []string{"f"},
						Usage:   "Folder path to pull videos from",
					},
				},
				Action: r.ReelCreate,
			},
			{
				Name:  "list",
				Usage: "List saved reels",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "folder",
						Usage: "Only reels built from this folder",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ReelList,
			},
			{
				Name:      "show",
				Usage:     "Show a reel's items in playback order",
				ArgsUsage: "<reel-id>",
				Flags:     []cli.Flag{configFlag()},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.ReelShow,
			},
			{
				Name:      "export",
				Usage:     "Export a reel to CSV, Markdown, or JSON",
				ArgsUsage: "<reel-id>",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, markdown, or json",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file or directory path",
					},
				},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.ReelExport,
			},
			{
				Name:      "delete",
				Usage:     "Delete a saved reel",
				ArgsUsage: "<reel-id>",
				Flags:     []cli.Flag{configFlag()},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.ReelDelete,
			},
		},
	}
}

// tuiCommand launches the interactive two-panel interface
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive two-panel curation interface",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Folder path to curate",
			},
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Title for the saved reel",
				Value:   "Untitled Reel",
			},
		},
		Action: r.TUI,
	}
}
