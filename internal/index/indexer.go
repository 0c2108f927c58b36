package index

import (
	"context"
	"fmt"

	"newswire/internal/article"
	"newswire/internal/search"
)

const defaultBatchSize = 500

type ArticleSource interface {
	ScanUpdatedSince(ctx context.Context, since string, fn func(article.Record) error) error
}

type DocumentImporter interface {
	ImportDocuments(ctx context.Context, docs []search.Document) error
}

type Encoder interface {
	Encode(text string) []float64
}

// Indexer mirrors newly updated article records into the search engine. Each
// tick does bounded work: only records past the persisted watermark are
// scanned, embedded, and bulk-upserted; the watermark advances only after
// every batch of the tick imported successfully.
type Indexer struct {
	store     ArticleSource
	engine    DocumentImporter
	encoder   Encoder
	watermark *Watermark
	batchSize int
}

func New(store ArticleSource, engine DocumentImporter, encoder Encoder, watermark *Watermark) *Indexer {
	return &Indexer{
		store:     store,
		engine:    engine,
		encoder:   encoder,
		watermark: watermark,
		batchSize: defaultBatchSize,
	}
}

type TickResult struct {
	Indexed   int
	Watermark string
	Advanced  bool
}

// Tick runs one scan-embed-import pass. Replays are idempotent: imports use
// upsert and a failed tick leaves the watermark untouched so the next tick
// re-scans the same records.
func (ix *Indexer) Tick(ctx context.Context) (TickResult, error) {
	last, err := ix.watermark.Load()
	if err != nil {
		return TickResult{}, fmt.Errorf("load watermark: %w", err)
	}

	res := TickResult{Watermark: last}
	newLast := last
	batch := make([]search.Document, 0, ix.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.engine.ImportDocuments(ctx, batch); err != nil {
			return fmt.Errorf("import batch: %w", err)
		}
		res.Indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	err = ix.store.ScanUpdatedSince(ctx, last, func(rec article.Record) error {
		batch = append(batch, ix.buildDocument(rec))
		newLast = rec.Updated
		if len(batch) >= ix.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	if err := flush(); err != nil {
		return res, err
	}

	if newLast != last {
		if err := ix.watermark.Save(newLast); err != nil {
			return res, fmt.Errorf("save watermark: %w", err)
		}
		res.Watermark = newLast
		res.Advanced = true
	}
	return res, nil
}

func (ix *Indexer) buildDocument(rec article.Record) search.Document {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return search.Document{
		ID:          rec.ID,
		Title:       rec.Title,
		Body:        rec.Body,
		Source:      rec.Source,
		Tags:        tags,
		PublishedAt: article.PublishedEpoch(rec.PublishedAt),
		Vec:         ix.encoder.Encode(rec.Title + "\n" + rec.Body),
	}
}
