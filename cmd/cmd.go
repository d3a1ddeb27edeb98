// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand writes the config template and prepares the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the session
func authCommand(r *Runner) *cli.Command {
	credentials := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account email",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password (or ZIPDROP_PASSWORD)",
				Sources: cli.EnvVars("ZIPDROP_PASSWORD"),
			},
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out and inspect the session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in with email and password",
				Flags:  credentials(),
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account and sign in",
				Flags: append(credentials(), &cli.StringFlag{
					Name:  "confirm",
					Usage: "Password confirmation (defaults to --password)",
				}),
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the stored token for a fresh one",
				Action: r.AuthRefresh,
			},
			{
				Name:  "status",
				Usage: "Show whether a session is stored",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// projectsCommand handles project operations
func projectsCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:    "projects",
		Aliases: []string{"p"},
		Usage:   "Manage uploaded projects",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List projects",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, markdown, json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the export to a file instead of stdout",
					},
				},
				Action: r.ProjectsList,
			},
			{
				Name:      "get",
				Usage:     "Show one project",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ProjectsGet,
			},
			{
				Name:  "upload",
				Usage: "Create a project from a .zip or .zipx archive",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Custom project name",
					},
				},
				Action: r.ProjectsUpload,
			},
			{
				Name:      "push",
				Usage:     "Upload every archive in the given files and directories",
				ArgsUsage: "<path>...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent uploads",
						Value:   3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Uploads started per second",
						Value: 2,
					},
				},
				Action: r.ProjectsPush,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a project",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Confirm deletion",
					},
				},
				Action: r.ProjectsDelete,
			},
			{
				Name:      "toggle",
				Usage:     "Publish a private project or hide a public one",
				Arguments: idArg,
				Action:    r.ProjectsToggle,
			},
			{
				Name:      "view",
				Usage:     "Record a view of a project",
				Arguments: idArg,
				Action:    r.ProjectsView,
			},
			{
				Name:      "rename",
				Usage:     "Set a local name and/or slug for a project",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Custom name",
					},
					&cli.StringFlag{
						Name:  "slug",
						Usage: "Custom slug",
					},
				},
				Action: r.ProjectsRename,
			},
			{
				Name:      "open",
				Usage:     "Open a public project in the browser",
				Arguments: idArg,
				Action:    r.ProjectsOpen,
			},
		},
	}
}

// apiCommand handles direct API calls through the gateway
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls, authenticated with the stored session",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the raw response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body to send",
						Value:   "{}",
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// mockCommand runs the mock API as a standalone server
func mockCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "Mock ZipDrop API",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the mock API over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "Listen host (defaults to server.host)",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (defaults to server.port)",
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Path the API is mounted at (defaults to the path of api.base_url)",
					},
					&cli.BoolFlag{
						Name:  "latency",
						Usage: "Simulate response times (defaults to mock.simulate_latency)",
					},
				},
				Action: r.MockServe,
			},
		},
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}
