// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/recall"
	"github.com/poiesic/recall/config"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, newApp(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// run loads the dotenv file named on the command line before the app parses
// its flags, so variables from the file can populate flag EnvVars.
func run(ctx context.Context, app *cli.App, args []string) error {
	if err := loadEnv(envFileFromArgs(args)); err != nil {
		return err
	}
	return app.RunContext(ctx, args)
}

// envFileFromArgs returns the last --env-file value in args, or ".env".
func envFileFromArgs(args []string) string {
	path := ".env"
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if value, ok := strings.CutPrefix(name, "env-file="); ok {
			path = value
			continue
		}
		if name == "env-file" && i+1 < len(args) {
			path = args[i+1]
			i++
		}
	}
	return path
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "recall",
		Usage: "Retrieval-augmented assistant with per-session memory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (default: ./recall.yaml, then ~/.config/recall/recall.yaml)",
				EnvVars: []string{"RECALL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file to load before reading the environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "Storage backend (badger, redis, memory)",
				EnvVars: []string{"RECALL_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"RECALL_DB"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis Stack URL, e.g. redis://localhost:6379/0",
				EnvVars: []string{"REDIS_URL"},
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "Vector index name",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Session history time-to-live",
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "OpenAI-compatible API base URL",
				EnvVars: []string{"OPENAI_BASE_URL"},
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.IntFlag{
				Name:  "embedding-dimension",
				Usage: "Embedding vector length; must match the embedding model",
			},
			&cli.StringFlag{
				Name:  "generation-model",
				Usage: "Chat model name",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the OpenAI-compatible service",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
		},
		Before:   setupLogger,
		Commands: commands(),
	}
}

// loadEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadSettings reads the config file and applies the global flags on top.
func loadSettings(c *cli.Context) (*config.File, error) {
	var (
		cfg *config.File
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		var path string
		cfg, path, err = config.LoadDefault()
		if path != "" {
			slog.Debug("loaded config file", "path", path)
		}
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("backend") {
		cfg.Store.Backend = c.String("backend")
	}
	if c.IsSet("db") {
		cfg.Store.BadgerPath = c.String("db")
	}
	if c.IsSet("redis-url") {
		cfg.Store.RedisURL = c.String("redis-url")
	}
	if c.IsSet("index") {
		cfg.Store.Index = c.String("index")
	}
	if c.IsSet("ttl") {
		cfg.Store.TTL = c.Duration("ttl")
	}
	if c.IsSet("host") {
		cfg.AI.Host = c.String("host")
		cfg.AI.EmbeddingHost = ""
		cfg.AI.GenerationHost = ""
	}
	if c.IsSet("embedding-model") {
		cfg.AI.EmbeddingModel = c.String("embedding-model")
	}
	if c.IsSet("embedding-dimension") {
		cfg.AI.EmbeddingDimension = c.Int("embedding-dimension")
	}
	if c.IsSet("generation-model") {
		cfg.AI.GenerationModel = c.String("generation-model")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openEngine opens the engine described by cfg. Tests replace it.
var openEngine = func(c *cli.Context, cfg *config.File) (*recall.Engine, error) {
	aiCfg := cfg.AIConfig()
	if c.IsSet("api-key") {
		aiCfg.APIKey = c.String("api-key")
	}

	opts := []recall.Option{
		recall.WithTTL(cfg.Store.TTL),
		recall.WithIndex(cfg.IndexSpec()),
		recall.WithAIConfig(aiCfg),
	}
	switch cfg.Store.Backend {
	case config.BackendBadger:
		opts = append(opts, recall.WithBadger(cfg.Store.BadgerPath))
	case config.BackendRedis:
		opts = append(opts, recall.WithRedis(cfg.Store.RedisURL))
	case config.BackendMemory:
		opts = append(opts, recall.WithMemory())
	}

	engine, err := recall.Open(c.Context, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Store.Backend, err)
	}
	return engine, nil
}
