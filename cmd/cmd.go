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

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.IntFlag{
			Name:  "tracks",
			Usage: "Maximum tracks to pull from the catalog",
		},
		&cli.IntFlag{
			Name:    "clusters",
			Aliases: []string{"k"},
			Usage:   "Number of style clusters",
		},
		&cli.IntFlag{
			Name:  "seed",
			Usage: "Clustering RNG seed",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory for playlist and report files",
		},
		&cli.BoolFlag{
			Name:  "skip-lastfm",
			Usage: "Skip metadata enrichment",
		},
	}
}

// generateCommand runs the full curation pipeline and writes the playlist.
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate an AI-curated party playlist from your library",
		Flags: append(pipelineFlags(),
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Tracks per AI scoring batch",
			},
			&cli.FloatFlag{
				Name:  "min-score",
				Usage: "Minimum party score for inclusion",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist name",
				Value: "Party Playlist",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the playlist document as JSON",
			},
		),
		Action: r.Generate,
	}
}

// analyzeCommand runs the pipeline without AI validation.
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "analyze",
		Usage:  "Cluster and profile your library without AI scoring",
		Flags:  pipelineFlags(),
		Action: r.Analyze,
	}
}

// authCommand handles the Spotify OAuth2 flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Auth,
	}
}

// setupCommand initializes the config file and enrichment cache.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the enrichment cache",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// playlistCommand handles playlist operations on the catalog service.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Playlist operations on Spotify",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a Spotify playlist from a generated playlist JSON file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the playlist JSON export",
						Required: true,
					},
				},
				Action: r.PlaylistCreate,
			},
		},
	}
}

// checkCommand reports which services are configured.
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "Show which credentials and services are configured",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Check,
	}
}
