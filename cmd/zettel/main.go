package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/zettel/internal"
	pkgconfig "github.com/starford/zettel/pkg/config"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "zettel",
		Usage:   "Index a markdown wiki into SQLite and query it by text, tag and backlink",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("ZETTEL_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Result format: text, json or alfred",
				Value:   "text",
				Sources: cli.EnvVars("ZETTEL_FORMAT"),
			},
		},
		Commands: []*cli.Command{
			createCommand(),
			updateCommand(),
			watchCommand(),
			queryCommand("fulltext", "Search all documents in the wiki", fullText),
			queryCommand("tags", "Find notes with a matching tag", tags),
			queryCommand("links", "Find notes linking to a matching target (backlinks)", links),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openApp loads the config and opens the wiki with a text logger on stderr.
func openApp(cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel, false)
	slog.SetDefault(logger)
	return internal.Open(cfg, logger)
}
