package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	applog "github.com/dukex/comfypack/pkg/log"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:                  "comfypack",
		Usage:                 "Package workflows with their plugin and model dependencies",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("COMFYPACK_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "package",
				Aliases: []string{"p"},
				Usage:   "Manage workflow packages",
				Commands: []*cli.Command{
					{
						Name:    "create",
						Aliases: []string{"c"},
						Usage:   "Create a package from a workflow file",
						Flags:   createFlags(),
						Action: func(ctx context.Context, cmd *cli.Command) error {
							applog.Setup(cmd.String("log-level"))

							return runCreate(ctx, cmd)
						},
					},
				},
			},
			{
				Name:    "workflow",
				Aliases: []string{"w"},
				Usage:   "Inspect workflows",
				Commands: []*cli.Command{
					{
						Name:  "deps",
						Usage: "Report the plugin and model dependencies of a workflow",
						Flags: depsFlags(),
						Action: func(ctx context.Context, cmd *cli.Command) error {
							applog.Setup(cmd.String("log-level"))

							return runDeps(ctx, cmd)
						},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
