// Copyright 2025 JPVia Labs
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/jpvia/normabot"
	"github.com/jpvia/normabot/ai"
	"github.com/jpvia/normabot/reindex"
)

func main() {
	// Flags read their EnvVars during parsing, so the .env file must be
	// loaded before the app runs. A missing file is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "normabot",
		Usage: "Asistente de consultas sobre el Reglamento Conjunto",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest regulatory source documents",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source id for the ingested text (defaults to each file's base name)",
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Submit a query through the full pipeline",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Conversation session id (minted when omitted)",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-query deadline",
						Value: 60 * time.Second,
					},
				),
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed the whole corpus and publish a new index generation",
				Action: reindexCommand,
				Flags: append(engineFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed batches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
			{
				Name:   "consolidate",
				Usage:  "Run one memory consolidation pass",
				Action: consolidateCommand,
				Flags:  engineFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// engineFlags are the flags every engine-backed command shares.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
			EnvVars:  []string{"NORMABOT_DB"},
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "OpenAI-compatible service host URL (embedding and generation)",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"NORMABOT_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"NORMABOT_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "generation-model",
			Usage:   "Generation model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"NORMABOT_GENERATION_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Bearer token for the AI services",
			EnvVars: []string{"NORMABOT_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "profiles",
			Usage:   "Specialist profile YAML file (built-in taxonomy when missing)",
			EnvVars: []string{"NORMABOT_PROFILES"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Engine tuning YAML file",
			Value:   "normabot.yaml",
			EnvVars: []string{"NORMABOT_CONFIG"},
		},
	}
}

// openEngine builds an Engine from the shared flags.
func openEngine(c *cli.Context) (*normabot.Engine, error) {
	config := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGenerationModel(c.String("generation-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	tuning, err := normabot.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	opts := append([]normabot.EngineOption{
		normabot.WithAIConfig(config),
		normabot.WithProfilePath(c.String("profiles")),
	}, tuning...)

	engine, err := normabot.NewEngine(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one input file is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewIngestPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingest pipeline: %w", err)
	}
	defer pipeline.Release()

	ctx := context.Background()
	for _, path := range c.Args().Slice() {
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		source := c.String("source")
		if source == "" {
			source = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		count, err := pipeline.Ingest(ctx, source, string(text))
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "Ingested %s as %q: %d chunks\n", path, source, count)
	}

	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one question is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	session := c.String("session")
	if session == "" {
		session = uuid.NewString()
		fmt.Fprintf(os.Stderr, "Session: %s\n", session)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	resp, err := engine.Submit(ctx, c.Args().First(), session)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if resp.SpecialistId != nil {
		fmt.Fprintf(os.Stderr, "Especialista: %s (confianza %.2f)\n", *resp.SpecialistId, resp.Confidence)
	} else {
		fmt.Fprintf(os.Stderr, "Especialista: general (confianza %.2f)\n", resp.Confidence)
	}
	if resp.Degraded {
		fmt.Fprintf(os.Stderr, "Respuesta degradada: %s\n", resp.Reason)
	}
	fmt.Fprintln(os.Stderr)

	fmt.Println(resp.Answer)

	if len(resp.SourceChunkIds) > 0 {
		fmt.Fprintf(os.Stderr, "\nFuentes: %d extractos del reglamento\n", len(resp.SourceChunkIds))
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	config := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reindexer, err := engine.NewReindexer(config, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create reindexer: %w", err)
	}

	generation, err := reindexer.Run(context.Background())
	if err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Published generation %d\n", uint64(generation))
	return nil
}

func consolidateCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	consolidator, err := engine.NewConsolidator()
	if err != nil {
		return fmt.Errorf("failed to create consolidator: %w", err)
	}
	defer consolidator.Release()

	report, err := consolidator.Consolidate(context.Background())
	if err != nil {
		return fmt.Errorf("consolidation failed: %w", err)
	}

	fmt.Fprintf(os.Stderr,
		"Scanned %d turns: %d clusters, %d entries created, %d merged, %d turns consolidated\n",
		report.Scanned, report.Clusters, report.Created, report.Merged, report.Consolidated)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
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
