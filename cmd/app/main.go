package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/papernotes/internal"
	pkgconfig "github.com/starford/papernotes/pkg/config"
)

type entry func(ctx context.Context, opts ...internal.Option) error

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if key := cmd.String("openai-api-key"); key != "" {
		cfg.Tagging.APIKey = key
	}
	if p := cmd.String("source"); p != "" {
		cfg.Source.Path = p
	}
	if root := cmd.String("archive"); root != "" {
		cfg.Archive.Root = root
	}
	return cfg, nil
}

func action(run entry) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithForce(cmd.Bool("force")),
		}
		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

func main() {
	forceFlag := &cli.BoolFlag{
		Name:  "force",
		Usage: "Process every row even if the source table is unchanged",
	}

	cmd := &cli.Command{
		Name:    "papernotes",
		Usage:   "Turn a reading list of arXiv papers into a tagged Markdown archive",
		Version: internal.Version,
		Action:  action(internal.RunAll),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "Credential for the tagging service",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Override source.path",
			},
			&cli.StringFlag{
				Name:  "archive",
				Usage: "Override archive.root",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Create notes for new rows of the source table (pass 1)",
				Flags:  []cli.Flag{forceFlag},
				Action: action(internal.RunGenerate),
			},
			{
				Name:   "tag",
				Usage:  "Fill in tags for notes that have none (pass 2)",
				Action: action(internal.RunTag),
			},
			{
				Name:   "run",
				Usage:  "Run pass 1 then pass 2",
				Flags:  []cli.Flag{forceFlag},
				Action: action(internal.RunAll),
			},
			{
				Name:   "watch",
				Usage:  "Re-run pass 1 whenever the source table changes",
				Action: action(internal.RunWatch),
			},
			{
				Name:   "serve",
				Usage:  "Serve the archive over HTTP with live updates",
				Action: action(internal.RunServe),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the archive to MCP clients over stdio",
				Action: action(internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
