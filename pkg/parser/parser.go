package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docchat/internal/models"
	"docchat/internal/types"
)

type LoaderConfig struct {
	APIKey      string
	BaseURL     string
	RateLimit   float64
	Concurrency int
	OnProgress  func(source string)
}

// Loader reads every file under a directory and turns it into
// normalized Documents. PDF files go through the remote parsing
// delegate; everything else is loaded as plain text. A file that cannot
// be read or parsed is logged and skipped, it does not fail the run.
type Loader struct {
	config  LoaderConfig
	remote  *ParseClient
	limiter *rate.Limiter
}

func NewWithConfig(config LoaderConfig) (*Loader, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("parser: missing parsing delegate API key")
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2.0
	}
	if config.Concurrency == 0 {
		config.Concurrency = 4
	}

	return &Loader{
		config:  config,
		remote:  NewParseClient(config.BaseURL, config.APIKey),
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

func (l *Loader) Load(ctx context.Context, dir string) ([]models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var (
		mu   sync.Mutex
		docs []models.Document
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Concurrency)

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		g.Go(func() error {
			loaded, err := l.loadFile(ctx, path)
			if err != nil {
				var perr *types.ParseError
				if errors.As(err, &perr) {
					log.Printf("WARN: skipping %s: %v", path, err)
					return nil
				}
				return err
			}

			mu.Lock()
			docs = append(docs, loaded...)
			mu.Unlock()

			if l.config.OnProgress != nil {
				l.config.OnProgress(path)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) ([]models.Document, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return l.loadPDF(ctx, path)
	}
	return l.loadPlaintext(path)
}

func (l *Loader) loadPDF(ctx context.Context, path string) ([]models.Document, error) {
	pages, err := l.remote.Parse(ctx, path)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(pages))
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		docs = append(docs, models.Document{
			ID:        documentID(path, page.Label),
			Source:    path,
			PageLabel: page.Label,
			Content:   page.Text,
		})
	}
	return docs, nil
}

func (l *Loader) loadPlaintext(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ParseError{Source: path, Err: err}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	return []models.Document{{
		ID:        documentID(path, "1"),
		Source:    path,
		PageLabel: "1",
		Content:   string(data),
	}}, nil
}

func documentID(source, page string) string {
	sum := sha256.Sum256([]byte(source + "#" + page))
	return hex.EncodeToString(sum[:8])
}
