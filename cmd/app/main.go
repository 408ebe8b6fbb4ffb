package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/starford/now/internal"
	"github.com/starford/now/internal/termview"
	pkgconfig "github.com/starford/now/pkg/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithVersion(version),
	); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

// viewAction opens the workspace, then prints one view either as
// JSON or styled for the terminal.
func viewAction(render func(ws *internal.Workspace, p *termview.Printer) any) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.App.LogFile = ""
		cfg.App.LogLevel = max(cfg.App.LogLevel, slog.LevelWarn)
		logger := internal.NewLogger(cfg, os.Stderr)

		ws, err := internal.OpenWorkspace(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		width := 0
		fd := int(os.Stdout.Fd())
		if term.IsTerminal(fd) {
			if w, _, err := term.GetSize(fd); err == nil {
				width = w
			}
		}

		if cmd.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(render(ws, nil))
		}
		render(ws, termview.New(os.Stdout, width))
		return nil
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Print the view as JSON"}
}

func main() {
	cmd := &cli.Command{
		Name:    "now",
		Usage:   "Note graph indexer: @references, #contexts and bookmarks over a Markdown vault",
		Version: version,
		Action:  serve,
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
				Name:    "vault",
				Usage:   "Override the vault directory",
				Sources: cli.EnvVars("NOW_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live events (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP protocol on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:  "graph",
				Usage: "Print the note graph",
				Flags: []cli.Flag{jsonFlag()},
				Action: viewAction(func(ws *internal.Workspace, p *termview.Printer) any {
					v := ws.Service.GraphView()
					if p != nil {
						p.Graph(v)
					}
					return v
				}),
			},
			{
				Name:  "toc",
				Usage: "Print all notes in title order and the unreferenced ones",
				Flags: []cli.Flag{jsonFlag()},
				Action: viewAction(func(ws *internal.Workspace, p *termview.Printer) any {
					v := ws.Service.TOC()
					if p != nil {
						p.TOC(v)
					}
					return v
				}),
			},
			{
				Name:  "contexts",
				Usage: "Print the contexts tree",
				Flags: []cli.Flag{jsonFlag()},
				Action: viewAction(func(ws *internal.Workspace, p *termview.Printer) any {
					v := ws.Service.Contexts()
					if p != nil {
						p.Contexts(v)
					}
					return v
				}),
			},
			{
				Name:  "board",
				Usage: "Print the task board",
				Flags: []cli.Flag{jsonFlag()},
				Action: viewAction(func(ws *internal.Workspace, p *termview.Printer) any {
					v := ws.Service.Board()
					if p != nil {
						p.Board(v)
					}
					return v
				}),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
