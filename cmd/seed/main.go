package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/astrocub/prompt-service/internal/core/services/directory"
	"github.com/astrocub/prompt-service/internal/infrastructure/database"
	"github.com/astrocub/prompt-service/internal/infrastructure/database/repositories"
	"github.com/astrocub/prompt-service/internal/infrastructure/parsers"
	"github.com/astrocub/prompt-service/internal/pkg/config"
	"github.com/astrocub/prompt-service/internal/pkg/logger"
)

// Loads prompt documents from a JSON or JSONL file into the directory.
// Invalid documents are reported and skipped, the rest are saved.
func main() {
	var (
		filePath = flag.String("file", "", "path to a JSON or JSONL file of prompt documents")
		editor   = flag.String("editor", "", "editor identity stamped on each save (defaults to DIRECTORY_DEFAULT_EDITOR)")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -file <path> [-editor <name>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.Initialize(cfg.Environment)

	if *editor == "" {
		*editor = cfg.Directory.DefaultEditor
	}

	db, err := database.NewPostgresDB(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.AutoMigrate(&domain.Prompt{}, &domain.PipelineEvent{}); err != nil {
		appLogger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	promptRepo := repositories.NewPromptRepository(db.DB, logger.NewServiceLogger("prompt-repository"))
	directoryService := directory.NewService(directory.Config{}, promptRepo, nil, logger.NewServiceLogger("prompt-directory"))

	ctx := context.Background()
	start := time.Now()

	factory := parsers.NewParserFactory(nil)
	result, err := factory.ParseFile(ctx, *filePath)
	if err != nil {
		appLogger.Error("failed to parse file", slog.String("file", *filePath), slog.Any("error", err))
		os.Exit(1)
	}

	var saved, skipped int
	for i, doc := range result.Documents {
		prompt, err := domain.FromDocument(doc)
		if err != nil {
			appLogger.Warn("skipping document",
				slog.Int("index", i),
				slog.Any("error", err))
			skipped++
			continue
		}
		if !prompt.Validate() {
			appLogger.Warn("skipping invalid document",
				slog.Int("index", i),
				slog.String("name", prompt.Name))
			skipped++
			continue
		}

		saveResult, err := directoryService.Save(ctx, prompt, *editor)
		if err != nil {
			appLogger.Error("failed to save prompt",
				slog.String("name", prompt.Name),
				slog.Any("error", err))
			os.Exit(1)
		}

		appLogger.Info("saved prompt",
			slog.String("name", saveResult.Name),
			slog.Int("version", saveResult.Version))
		saved++
	}

	appLogger.Info("seed complete",
		slog.String("file", *filePath),
		slog.Int("saved", saved),
		slog.Int("skipped", skipped),
		slog.Duration("elapsed", time.Since(start)))
}
