package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/markdave123-py/Learnify/internal/app"
	"github.com/markdave123-py/Learnify/internal/config"
	db "github.com/markdave123-py/Learnify/internal/core/database"
	"github.com/markdave123-py/Learnify/internal/core/generation_engine"
	"github.com/markdave123-py/Learnify/internal/logger"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		logger.Error("learnify exited with error", "err", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "learnify",
		Usage:   "Turn PDFs into quizzes and slide summaries",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Path to a .env file (defaults to ./.env when present)",
				EnvVars: []string{"ENV_FILE"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override LOG_LEVEL (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Override LOG_FORMAT (text or json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and static site",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema and exit",
				Action: migrate,
			},
			{
				Name:      "generate",
				Usage:     "Generate a quiz or summary from a local PDF and print it as JSON",
				ArgsUsage: "FILE.pdf",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Value: "quiz",
						Usage: "What to generate: quiz or summary",
					},
				},
				Action: generate,
			},
		},
		Action: serve,
	}
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.LoadConfig(c.String("env-file"))
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if f := c.String("log-format"); f != "" {
		cfg.LogFormat = f
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	return cfg
}

func serve(c *cli.Context) error {
	cfg := loadConfig(c)

	application, err := app.NewApp(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer application.Close()

	logger.Info("learnify is running", "port", cfg.Port, "web_dir", cfg.WebDir)
	if err := application.Run(c.Context); err != nil {
		return err
	}
	logger.Info("shut down cleanly")
	return nil
}

func migrate(c *cli.Context) error {
	cfg := loadConfig(c)
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(c.Context, 2*time.Minute)
	defer cancel()

	client, err := db.NewDatabaseClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info("database schema is up to date")
	return nil
}

func generate(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one PDF path", 2)
	}
	kind := c.String("kind")
	if kind != "quiz" && kind != "summary" {
		return cli.Exit(fmt.Sprintf("unknown kind %q, want quiz or summary", kind), 2)
	}

	cfg := loadConfig(c)
	path := c.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	useReadability := false
	text, err := generation_engine.NewPDFExtractor(useReadability).ExtractText(c.Context, data, "application/pdf")
	if err != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}

	provider, closeLLM, err := app.NewLLM(c.Context, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLLM() }()

	gen := app.NewGenerator(cfg, provider)
	var out any
	if kind == "summary" {
		out, err = gen.GenerateSummary(c.Context, text)
	} else {
		out, err = gen.GenerateQuiz(c.Context, text)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
