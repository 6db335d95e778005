package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/notionflow-ai/pkg/models"
)

// axisEncoder maps each known sentence to its own axis.
type axisEncoder struct {
	axes map[string]int
	dim  int
	err  error
}

func newAxisEncoder(t *Taxonomy) *axisEncoder {
	e := &axisEncoder{axes: map[string]int{}, dim: noteTypeCount}
	for _, nt := range models.NoteTypes() {
		e.axes[t.Prototype(nt)] = int(nt)
	}
	return e
}

func (e *axisEncoder) vector(axis int) []float32 {
	v := make([]float32, e.dim)
	v[axis] = 1
	return v
}

func (e *axisEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *axisEncoder) EncodeBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(e.axes[text])
	}
	return out, nil
}

func (e *axisEncoder) ModelName() string { return "axis" }

type ClassifierSuite struct {
	suite.Suite
	clf *Classifier
	enc *axisEncoder
}

func (s *ClassifierSuite) SetupTest() {
	tax := DefaultTaxonomy()
	s.clf = New(tax)
	s.enc = newAxisEncoder(tax)
	s.Require().NoError(s.clf.BuildPrototypes(context.Background(), s.enc))
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) TestBlankText() {
	for _, text := range []string{"", "   ", "\n\t"} {
		label, conf := s.clf.Classify(text, s.enc.vector(0))
		s.Equal(models.NoteTypeLog, label)
		s.Equal(0.0, conf)
	}
}

func (s *ClassifierSuite) TestMeetingNoteWithEmbedding() {
	label, conf := s.clf.Classify("회의록 참석자 안건", s.enc.vector(int(models.NoteTypeMeetingNote)))
	s.Equal(models.NoteTypeMeetingNote, label)
	s.Greater(conf, 0.5)
	s.InDelta(0.96, conf, 1e-9)
}

func (s *ClassifierSuite) TestKeywordOnlyWithoutEmbedding() {
	label, conf := s.clf.Classify("결정 사항: 예산 확정: 승인: 3분기", nil)
	s.Equal(models.NoteTypeDecision, label)
	s.Equal(0.9, conf)
}

func (s *ClassifierSuite) TestEmbeddingDominatesWithoutKeywords() {
	label, conf := s.clf.Classify("오늘은 날씨가 좋았다", s.enc.vector(int(models.NoteTypeIdea)))
	s.Equal(models.NoteTypeIdea, label)
	s.Equal(0.6, conf)
}

func (s *ClassifierSuite) TestWeakSignalFallsBackWithScore() {
	label, conf := s.clf.Classify("오늘은 날씨가 좋았다", nil)
	s.Equal(models.NoteTypeLog, label)
	s.Equal(0.0, conf)

	clf := New(nil)
	label, conf = clf.Classify("그냥 참고만", []float32{1, 0, 0})
	s.Equal(models.NoteTypeLog, label)
	s.Equal(0.0, conf)
}

func (s *ClassifierSuite) TestConfidenceBoundsAndRounding() {
	texts := []string{
		"TODO 할 일 체크리스트 [ ] [ ] [x] 해야 할 작업 목록",
		"아이디어 제안 https://example.com 참고 자료",
		"2026-01-02 작업 일지 기록",
		"plain english text",
	}
	for _, text := range texts {
		for axis := 0; axis < noteTypeCount; axis++ {
			_, conf := s.clf.Classify(text, s.enc.vector(axis))
			s.GreaterOrEqual(conf, 0.0)
			s.LessOrEqual(conf, 1.0)
			s.InDelta(conf, float64(int64(conf*1e4+0.5))/1e4, 1e-12)
		}
	}
}

func (s *ClassifierSuite) TestMismatchedEmbeddingIgnoresPrototypes() {
	label, conf := s.clf.Classify("회의록", []float32{1, 0})
	s.Equal(models.NoteTypeMeetingNote, label)
	s.Equal(0.3, conf)
}

func TestBuildPrototypes_Failure(t *testing.T) {
	clf := New(nil)
	enc := newAxisEncoder(DefaultTaxonomy())
	enc.err = errors.New("offline")

	require.Error(t, clf.BuildPrototypes(context.Background(), enc))
	assert.False(t, clf.HasPrototypes())

	label, conf := clf.Classify("회의록 참석자", []float32{1, 0, 0, 0, 0, 0})
	assert.Equal(t, models.NoteTypeMeetingNote, label)
	assert.Equal(t, 0.6, conf)
}

func TestLoadTaxonomy(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file keeps defaults", func(t *testing.T) {
		tax, err := LoadTaxonomy(filepath.Join(dir, "nope.yml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultTaxonomy().Prototype(models.NoteTypeIdea), tax.Prototype(models.NoteTypeIdea))
	})

	t.Run("empty path keeps defaults", func(t *testing.T) {
		tax, err := LoadTaxonomy("")
		require.NoError(t, err)
		assert.Len(t, tax.Patterns(models.NoteTypeTodo), 3)
	})

	t.Run("overrides", func(t *testing.T) {
		path := filepath.Join(dir, "taxonomy.yml")
		require.NoError(t, os.WriteFile(path, []byte(`
note_types:
  - name: idea
    prototype: "new idea sentence"
  - name: reference
    keywords: ["wiki", "spec sheet"]
`), 0600))

		tax, err := LoadTaxonomy(path)
		require.NoError(t, err)
		assert.Equal(t, "new idea sentence", tax.Prototype(models.NoteTypeIdea))
		require.Len(t, tax.Patterns(models.NoteTypeReference), 2)
		assert.True(t, tax.Patterns(models.NoteTypeReference)[0].MatchString("WIKI page"))
		assert.Len(t, tax.Patterns(models.NoteTypeMeetingNote), 2)

		label, conf := New(tax).Classify("team wiki and spec sheet", nil)
		assert.Equal(t, models.NoteTypeReference, label)
		assert.Equal(t, 0.6, conf)
	})

	t.Run("unknown type", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.yml")
		require.NoError(t, os.WriteFile(path, []byte("note_types:\n  - name: memo\n    prototype: x\n"), 0600))
		_, err := LoadTaxonomy(path)
		assert.Error(t, err)
	})

	t.Run("bad pattern", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("note_types:\n  - name: todo\n    keywords: [\"(unclosed\"]\n"), 0600))
		_, err := LoadTaxonomy(path)
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yml")
		require.NoError(t, os.WriteFile(path, []byte(":\tinvalid:\tyaml:\t[unclosed"), 0600))
		_, err := LoadTaxonomy(path)
		assert.Error(t, err)
	})
}
