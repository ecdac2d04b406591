// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/catx/internal/formatter"
	"github.com/desertthunder/catx/internal/server"
)

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml from the default template",
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the authenticated session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the issued credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username",
						Sources: cli.EnvVars("CATX_USERNAME"),
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("CATX_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Revoke the session and clear stored credentials",
				Action: r.AuthLogout,
			},
			{
				Name:   "refresh",
				Usage:  "Trade the refresh credential for a new access token",
				Action: r.AuthRefresh,
			},
			{
				Name:  "status",
				Usage: "Show the stored session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

func pathArgs() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "path"}}
}

func apiFlags(withData bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
	if withData {
		flags = append(flags, &cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "JSON body to send",
		})
	}
	return flags
}

// apiCommand handles raw authenticated API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated calls to the catalog API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "GET a path, prints the response body",
				Arguments: pathArgs(),
				Flags:     apiFlags(false),
				Action:    r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "POST a JSON body",
				Arguments: pathArgs(),
				Flags:     apiFlags(true),
				Action:    r.APIPost,
			},
			{
				Name:      "put",
				Usage:     "PUT a JSON body",
				Arguments: pathArgs(),
				Flags:     apiFlags(true),
				Action:    r.APIPut,
			},
			{
				Name:      "delete",
				Usage:     "DELETE a path",
				Arguments: pathArgs(),
				Flags:     apiFlags(false),
				Action:    r.APIDelete,
			},
		},
	}
}

func listingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "Zero-based page number",
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "Entries per page",
			Value: 10,
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort expression, e.g. nome,asc",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, csv, markdown, json",
			Value:   formatter.FormatText,
		},
	}
}

// catalogCommand handles catalog listings
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Browse the catalog",
		Commands: []*cli.Command{
			{
				Name:  "artists",
				Usage: "List artists",
				Flags: append(listingFlags(), &cli.StringFlag{
					Name:  "search",
					Usage: "Only artists whose name contains this text",
				}),
				Action: r.CatalogArtists,
			},
			{
				Name:      "artist",
				Usage:     "Show one artist with its albums",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.CatalogArtist,
			},
			{
				Name:   "albums",
				Usage:  "List albums",
				Flags:  listingFlags(),
				Action: r.CatalogAlbums,
			},
			{
				Name:   "regionals",
				Usage:  "List regionals",
				Flags:  listingFlags(),
				Action: r.CatalogRegionals,
			},
			{
				Name:  "snapshot",
				Usage: "Fetch every listing concurrently and write them to disk",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pages",
						Usage: "Pages to fetch per listing",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "Entries per page",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent requests",
						Value: 3,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, markdown, json",
						Value:   formatter.FormatMarkdown,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: catalog_export_{timestamp})",
					},
					&cli.BoolFlag{
						Name:  "stop-on-error",
						Usage: "Abort remaining requests after the first failure",
					},
				},
				Action: r.CatalogSnapshot,
			},
		},
	}
}

// watchCommand returns the session monitor TUI command.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"ui"},
		Usage:   "Monitor the session interactively, with expiry warnings and renewal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/catx-tui.log",
			},
		},
		Action: r.Watch,
	}
}

// serveCommand runs the local sandbox backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local sandbox of the catalog backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: ":8080",
			},
			&cli.StringFlag{
				Name:  "username",
				Usage: "Accepted username",
				Value: "admin",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Accepted password",
				Value: "admin",
			},
			&cli.DurationFlag{
				Name:  "access-ttl",
				Usage: "Lifetime of issued access tokens",
				Value: server.DefaultAccessTTL,
			},
			&cli.DurationFlag{
				Name:  "refresh-wait",
				Usage: "Artificial latency of the refresh endpoint",
				Value: 0 * time.Second,
			},
		},
		Action: r.Serve,
	}
}
