// Command topicseek indexes video transcripts and answers topic queries
// with timestamped deep links.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/ai"
	"github.com/custodia-labs/topicseek/internal/adapters/driven/config/file"
	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/topicseek/internal/adapters/driven/tenant/channels"
	"github.com/custodia-labs/topicseek/internal/adapters/driven/tokens/tiktoken"
	"github.com/custodia-labs/topicseek/internal/adapters/driven/transcript/filesystem"
	"github.com/custodia-labs/topicseek/internal/adapters/driving/cli"
	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/core/services"
	"github.com/custodia-labs/topicseek/internal/logger"
	"github.com/custodia-labs/topicseek/internal/postprocessors"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("loading .env: %v", err)
	}

	configDir, err := file.DefaultDir()
	if err != nil {
		return report(err)
	}
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return report(err)
	}
	settingsService := services.NewSettingsService(configStore)

	cli.SetVersion(version)

	settings, err := settingsService.Get()
	if err != nil {
		// Config commands still work so the settings can be repaired.
		logger.Warn("%v", err)
		cli.SetServices(cli.Services{Settings: settingsService})
		return cli.Execute(ctx)
	}

	stores, closeStores, err := openStores(ctx, settings.Storage)
	if err != nil {
		return report(err)
	}
	defer closeStores()

	manifests := file.NewManifestStore(settings.Storage.VectorstoreDir)
	source := filesystem.NewSource(settings.Storage.TranscriptsDir)
	tenants := channels.NewRegistry(settings.Storage.ChannelsFile)

	var (
		embedder driven.EmbeddingService
		llm      driven.LLMService
		warnings []string
	)
	aiServices, err := ai.Init(settings, false)
	if err != nil {
		warnings = append(warnings, err.Error())
	} else {
		defer aiServices.Close()
		embedder = aiServices.EmbeddingService
		llm = aiServices.LLMService
		warnings = append(warnings, aiServices.Warnings...)
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Index)
	if err != nil {
		return report(err)
	}

	opts := services.BatcherOptionsFromSettings(settings.Index)
	opts = append(opts, services.WithTokenEstimator(tiktoken.New(settings.Embedding.Model)))
	batcher := services.NewEmbeddingBatcher(embedder, opts...)

	builder := services.NewIndexBuilder(source, tenants, stores, manifests, pipeline, batcher, settings.Index)

	var summarizer *services.Summarizer
	if settings.Retrieval.Summaries {
		summarizer = services.NewSummarizer(llm, settings.Retrieval.SummaryMaxLength, settings.LLM.Temperature)
		if prompts, err := file.NewPromptStore(""); err == nil {
			summarizer.SetPromptStore(prompts)
		}
	}
	catalog := services.NewUnitCatalog(source, manifests)
	search := services.NewSearchService(stores, embedder, tenants, summarizer, catalog, settings.Retrieval)

	cli.SetServices(cli.Services{
		Index:    builder,
		Search:   search,
		Tenants:  tenants,
		Settings: settingsService,
		Watcher:  filesystem.NewWatcher(settings.Storage.TranscriptsDir),
		Warnings: warnings,
	})

	return cli.Execute(ctx)
}

// openStores returns the similarity store provider for the configured backend.
func openStores(ctx context.Context, s domain.StorageSettings) (driven.StoreProvider, func(), error) {
	switch s.Backend {
	case domain.StoragePostgres:
		p, err := postgres.NewProvider(ctx, s.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		p, err := sqlite.NewProvider(s.VectorstoreDir)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	}
}

func report(err error) error {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return err
}
