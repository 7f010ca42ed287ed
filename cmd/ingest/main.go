package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"docchat/internal/app"
	"docchat/internal/models"
	"docchat/pkg/config"
	"docchat/pkg/parser"
	"docchat/pkg/processor"
	"docchat/pkg/store"
)

func main() {
	var configPath, dataDir string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&dataDir, "dir", "", "Directory with source documents (defaults to configured data_dir)")
	flag.Parse()

	if err := run(configPath, dataDir); err != nil {
		color.Red("Ingestion failed: %v", err)
		os.Exit(1)
	}
	color.Green("\n✓ Ingestion completed successfully. Database is ready!")
}

func run(configPath, dataDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = cfg.Ingestion.DataDir
	}

	ctx := context.Background()

	var parsedCount int32
	loader, err := parser.NewWithConfig(parser.LoaderConfig{
		APIKey: cfg.Credentials.LlamaCloudAPIKey,
		OnProgress: func(string) {
			atomic.AddInt32(&parsedCount, 1)
		},
	})
	if err != nil {
		return err
	}

	color.Blue("\nStarting ingestion from directory: %s\n", dataDir)

	parseBar := spinner("📄 Parsing documents...")
	docs, err := loader.Load(ctx, dataDir)
	parseBar.Finish()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no readable documents found in %s", dataDir)
	}
	color.Green("\n✓ Parsed %d documents (%d files)\n", len(docs), atomic.LoadInt32(&parsedCount))

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Ingestion.ChunkSize,
		ChunkOverlap: cfg.Ingestion.ChunkOverlap,
	})
	chunks, err := proc.Process(docs)
	if err != nil {
		return err
	}
	color.Green("✓ Split into %d chunks\n", len(chunks))

	embedder, err := app.BuildEmbedder(cfg)
	if err != nil {
		return err
	}

	embedBar := progressBar(len(chunks), "🧮 Embedding chunks...")
	records := make([]models.IndexRecord, 0, len(chunks))

	batchSize := cfg.LLM.EmbedBatchSize
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, chunk := range batch {
			texts[j] = chunk.Text
		}

		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return err
		}

		for j, chunk := range batch {
			records = append(records, models.IndexRecord{
				ID:        store.RecordID(chunk.Source, chunk.PageLabel, chunk.Text),
				Text:      chunk.Text,
				Embedding: vectors[j],
				Metadata: map[string]any{
					"document_id": chunk.DocumentID,
					"source":      chunk.Source,
					"page_label":  chunk.PageLabel,
					"chunk_index": chunk.Index,
				},
			})
		}
		embedBar.Add(len(batch))
	}

	vs, err := app.BuildStore(ctx, cfg, embedder.Dimension())
	if err != nil {
		return err
	}
	defer vs.Close()

	storeBar := progressBar(len(records), "💾 Storing in vector database...")
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := vs.Upsert(ctx, records[i:end]); err != nil {
			return err
		}
		storeBar.Add(end - i)
	}

	log.Printf("ingested %d records into collection %q", len(records), cfg.Qdrant.Collection)
	return nil
}

func progressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func spinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
