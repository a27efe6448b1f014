package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/starford/zettel/internal"
	"github.com/starford/zettel/internal/index"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/noteservice"
	"github.com/starford/zettel/internal/output"
)

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create the store and index the wiki on first run",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			rep, indexed, err := app.Create(ctx)
			if err != nil {
				return err
			}
			if indexed {
				printReport(os.Stderr, rep)
			}
			return nil
		},
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Re-index all notes or only the given paths",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Re-index every note and prune records whose file is gone",
			},
			&cli.StringSliceFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Note to re-index (repeatable)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := append(cmd.StringSlice("path"), cmd.Args().Slice()...)
			if !cmd.Bool("all") && len(paths) == 0 {
				return fmt.Errorf("update: pass --all or at least one --path")
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.Bound(ctx)
			defer cancel()

			var rep index.Report
			if cmd.Bool("all") {
				rep, err = app.Service().IndexAll(ctx)
			} else {
				rep, err = app.Service().IndexPaths(ctx, paths)
			}
			if err != nil {
				return err
			}
			printReport(os.Stderr, rep)
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the store in sync with the wiki until interrupted",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "catch-up",
				Usage: "Index notes created since the last run before watching",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Bool("catch-up") {
				cfg.Watch.CatchUp = true
			}
			logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel, false)
			slog.SetDefault(logger)

			app, err := internal.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Watch(ctx, func(ev index.Event) {
				if ev.OldPath != "" {
					fmt.Fprintf(os.Stdout, "%s %s -> %s\n", ev.Kind, ev.OldPath, ev.Path)
					return
				}
				fmt.Fprintf(os.Stdout, "%s %s\n", ev.Kind, ev.Path)
			})
		},
	}
}

type queryFunc func(ctx context.Context, svc *noteservice.Service, cmd *cli.Command, q string) ([]models.Projection, error)

func fullText(ctx context.Context, svc *noteservice.Service, cmd *cli.Command, q string) ([]models.Projection, error) {
	return svc.FullText(ctx, q, int(cmd.Int("limit")))
}

func tags(ctx context.Context, svc *noteservice.Service, _ *cli.Command, q string) ([]models.Projection, error) {
	return svc.Tags(ctx, q)
}

func links(ctx context.Context, svc *noteservice.Service, _ *cli.Command, q string) ([]models.Projection, error) {
	return svc.Links(ctx, q)
}

func queryCommand(name, usage string, run queryFunc) *cli.Command {
	c := &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "QUERY",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q := cmd.Args().First()
			if q == "" {
				return fmt.Errorf("%s: a query argument is required", name)
			}
			format, err := output.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.Bound(ctx)
			defer cancel()

			results, err := run(ctx, app.Service(), cmd, q)
			if err != nil {
				return err
			}
			return output.Render(os.Stdout, format, app.Root(), results)
		},
	}
	if name == "fulltext" {
		c.Flags = []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results (0 for all)",
			},
		}
	}
	return c
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP query API and watch the wiki",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve query tools over the Model Context Protocol on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
		},
	}
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

// printReport lists the run summary and every failed note. Failures never
// change the exit status.
func printReport(w io.Writer, rep index.Report) {
	okColor.Fprintf(w, "indexed %d notes", rep.Indexed)
	if rep.Pruned > 0 {
		fmt.Fprintf(w, ", pruned %d", rep.Pruned)
	}
	fmt.Fprintln(w)
	for _, f := range rep.Failures {
		warnColor.Fprintf(w, "skipped %s: %v\n", f.Path, f.Err)
	}
}
