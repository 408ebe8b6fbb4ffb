package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/now/internal/index"
	"github.com/starford/now/internal/noteservice"
	"github.com/starford/now/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// NewLogger builds the JSON logger. With cfg.App.LogFile set, records are
// also written to a size-rotated file.
func NewLogger(cfg *Config, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if cfg.App.LogFile != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.App.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Workspace is an opened vault with its index and note service.
type Workspace struct {
	Service *noteservice.Service
	Root    string
	db      *index.DB
}

// Close releases the SQLite index.
func (w *Workspace) Close() error {
	return w.db.Close()
}

// OpenWorkspace opens the vault and index described by cfg and loads every
// note. pub may be nil.
func OpenWorkspace(ctx context.Context, cfg *Config, logger *slog.Logger, pub noteservice.Publisher) (*Workspace, error) {
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := noteservice.New(store, db, logger, noteservice.Options{
		Graph:     cfg.Graph.Options(),
		Collation: cfg.Graph.Language(),
		Style:     cfg.Graph.Style,
		Board:     cfg.Board,
		Enricher:  cfg.Enrich.Enricher(),
		Publisher: pub,
	})
	if err := svc.Load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load vault: %w", err)
	}
	return &Workspace{Service: svc, Root: store.Root(), db: db}, nil
}
