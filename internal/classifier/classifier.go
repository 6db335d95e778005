// Package classifier assigns one of the fixed note types to a note by
// combining keyword pattern hits with similarity to per-type prototype
// embeddings.
package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/notionflow-ai/internal/embedding"
	"github.com/thebtf/notionflow-ai/internal/scoring"
	"github.com/thebtf/notionflow-ai/pkg/models"
	"github.com/thebtf/notionflow-ai/pkg/similarity"
)

const (
	// Fallback is returned when no note type clears the confidence floor.
	Fallback = models.NoteTypeLog
	// ConfidenceFloor is the minimum combined score for a non-fallback label.
	ConfidenceFloor = 0.15
	// hitScore is the keyword score added per pattern match.
	hitScore = 0.3
)

var (
	combined = scoring.MustNew(scoring.Weights{
		scoring.SignalKeyword:   0.4,
		scoring.SignalEmbedding: 0.6,
	}, ConfidenceFloor, scoring.PolicyFallback)

	keywordOnly = scoring.MustNew(scoring.Weights{
		scoring.SignalKeyword: 1,
	}, ConfidenceFloor, scoring.PolicyFallback)
)

type prototypes [noteTypeCount][]float32

// Classifier labels notes. It is safe for concurrent use.
type Classifier struct {
	taxonomy   *Taxonomy
	prototypes atomic.Pointer[prototypes]
}

// New creates a classifier. Without prototypes it classifies on keywords only.
func New(taxonomy *Taxonomy) *Classifier {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &Classifier{taxonomy: taxonomy}
}

// BuildPrototypes encodes the prototype sentence of every note type. On
// failure the classifier keeps running on keywords only.
func (c *Classifier) BuildPrototypes(ctx context.Context, enc embedding.Encoder) error {
	types := models.NoteTypes()
	sentences := make([]string, len(types))
	for i, nt := range types {
		sentences[i] = c.taxonomy.Prototype(nt)
	}

	vectors, err := enc.EncodeBatch(ctx, sentences)
	if err != nil {
		return fmt.Errorf("encode prototypes: %w", err)
	}
	if len(vectors) != len(types) {
		return fmt.Errorf("encode prototypes: got %d vectors, want %d", len(vectors), len(types))
	}

	var p prototypes
	for i, nt := range types {
		p[nt] = similarity.Normalize(vectors[i])
	}
	c.prototypes.Store(&p)
	log.Info().Int("count", len(types)).Str("model", enc.ModelName()).Msg("Built note type prototype vectors")
	return nil
}

// HasPrototypes reports whether prototype vectors are available.
func (c *Classifier) HasPrototypes() bool {
	return c.prototypes.Load() != nil
}

// Classify returns the note type of text and its confidence in [0,1],
// rounded to four decimals. Blank text is the fallback type with confidence 0.
// A missing embedding, one whose dimension differs from the prototypes, or
// missing prototypes leave only the keyword signal.
func (c *Classifier) Classify(text string, vector []float32) (models.NoteType, float64) {
	if strings.TrimSpace(text) == "" {
		return Fallback, 0
	}

	protos := c.prototypes.Load()
	var unit []float32
	if protos != nil && len(vector) == len(protos[0]) && len(vector) > 0 && similarity.IsFinite(vector) {
		unit = similarity.Normalize(vector)
	}

	types := models.NoteTypes()
	candidates := make([]scoring.Candidate[models.NoteType], len(types))
	for i, nt := range types {
		candidates[i].Key = nt
		candidates[i].Scores.Set(scoring.SignalKeyword, c.keywordScore(nt, text))
		if unit != nil {
			candidates[i].Scores.Set(scoring.SignalEmbedding, similarity.UnitInterval(similarity.Dot(unit, protos[nt])))
		}
	}

	scorer := keywordOnly
	if unit != nil {
		scorer = combined
	}
	best := scoring.Decide(scorer, candidates, Fallback)
	return best.Key, scoring.Round(best.Score)
}

func (c *Classifier) keywordScore(nt models.NoteType, text string) float64 {
	hits := 0
	for _, p := range c.taxonomy.Patterns(nt) {
		hits += len(p.FindAllStringIndex(text, -1))
	}
	return math.Min(float64(hits)*hitScore, 1)
}
