package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/justmytwospence/blog/internal"
	"github.com/justmytwospence/blog/pkg/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "blog",
		Usage: "notebook and markdown publishing server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/config.yaml",
				Usage:   "path to the configuration file",
				Sources: cli.EnvVars("BLOG_CONFIG_FILE"),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return internal.Run(ctx, internal.WithConfig(cfg))
		},
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "reindex the content directory once and exit",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return internal.RunSync(ctx, internal.WithConfig(cfg))
				},
			},
			{
				Name:  "mcp",
				Usage: "serve read-only blog tools over MCP on stdio",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return internal.RunMCP(ctx, internal.WithConfig(cfg))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Command) (*internal.Config, error) {
	return config.LoadWithDefaults(c.String("config"), internal.NewDefaultConfig())
}
