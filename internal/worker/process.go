package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/notionflow-ai/internal/classifier"
	"github.com/thebtf/notionflow-ai/internal/clustering"
	"github.com/thebtf/notionflow-ai/internal/embedding"
	"github.com/thebtf/notionflow-ai/internal/extract"
	"github.com/thebtf/notionflow-ai/internal/keyword"
	"github.com/thebtf/notionflow-ai/internal/summarizer"
	"github.com/thebtf/notionflow-ai/pkg/models"
)

const (
	processTagCount      = 10
	processSummaryLength = summarizer.DefaultMaxLength
)

// Pipeline turns the plain text of a page into its processing result.
type Pipeline struct {
	encoder    embedding.Encoder
	summarizer summarizer.Summarizer
	keywords   *keyword.Extractor
	clusters   *clustering.Service
	classifier *classifier.Classifier
	entities   *extract.EntityExtractor
}

// Process runs every analysis stage over text. Text stages run in parallel
// with encoding; cluster assignment and classification wait for the vector.
// Without an encoder the result carries no embedding, no cluster and a
// keyword-only classification.
func (p *Pipeline) Process(ctx context.Context, pageID, text string) (*models.ProcessingResult, error) {
	result := &models.ProcessingResult{PageID: pageID}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var vector []float32
		if p.encoder != nil {
			v, err := p.encoder.Encode(gctx, text)
			if err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			vector = v
		}
		result.Embedding = vector
		if vector == nil {
			result.Embedding = []float32{}
		}

		if vector != nil && p.clusters.HasModel() {
			id, err := p.clusters.Assign(gctx, vector)
			if err != nil {
				return fmt.Errorf("assign cluster: %w", err)
			}
			if id != clustering.Noise {
				result.ClusterID = &id
			}
		}

		result.NoteType, result.Confidence = p.classifier.Classify(text, vector)
		return nil
	})

	g.Go(func() error {
		result.Tags = p.keywords.Extract(text, processTagCount)
		return nil
	})

	g.Go(func() error {
		summary, err := p.summarizer.Summarize(gctx, text, processSummaryLength)
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
		result.Summary = summary
		return nil
	})

	g.Go(func() error {
		result.Entities = p.entities.Extract(text)
		result.Todos = extract.ExtractTodos(text)
		result.StatusSignals = extract.DetectStatus(text)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().
		Str("page_id", pageID).
		Stringer("type", result.NoteType).
		Int("entities", len(result.Entities)).
		Int("todos", len(result.Todos)).
		Int("signals", len(result.StatusSignals)).
		Msg("Processed page")
	return result, nil
}
