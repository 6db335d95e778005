// Package keyword extracts keyword tags from note text with an unsupervised,
// YAKE-style statistical scorer. Lower raw scores mean more relevant terms.
package keyword

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/thebtf/notionflow-ai/internal/scoring"
	"github.com/thebtf/notionflow-ai/pkg/models"
	"github.com/thebtf/notionflow-ai/pkg/similarity"
)

// Defaults.
const (
	DefaultMaxNGram       = 2
	DefaultDedupThreshold = 0.3
	DefaultTop            = 20
	DefaultTopN           = 10
)

// Extractor ranks candidate keywords.
type Extractor struct {
	maxNGram int
	dedup    float64
	top      int
}

// New creates an extractor with the default settings.
func New() *Extractor {
	return &Extractor{maxNGram: DefaultMaxNGram, dedup: DefaultDedupThreshold, top: DefaultTop}
}

type termStats struct {
	tf        int
	upper     int
	acronym   int
	sentences map[int]bool
	positions []int
	left      map[string]int
	right     map[string]int
}

type candidate struct {
	surface string
	key     string
	terms   []string
	tf      int
	order   int
	score   float64
}

// Extract returns at most topN tags, most relevant first. Each score is
// 1 minus the raw YAKE score clamped to [0,1], rounded to four decimals.
func (e *Extractor) Extract(text string, topN int) []models.Tag {
	if strings.TrimSpace(text) == "" {
		return []models.Tag{}
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	sentences := splitSentences(text)
	stats := make(map[string]*termStats)
	cands := make(map[string]*candidate)
	var order []*candidate

	for si, sentence := range sentences {
		tokens := similarity.Tokenize(sentence)
		for ti, tok := range tokens {
			key := strings.ToLower(tok)
			if !isTerm(key) {
				continue
			}
			st := stats[key]
			if st == nil {
				st = &termStats{sentences: map[int]bool{}, left: map[string]int{}, right: map[string]int{}}
				stats[key] = st
			}
			st.tf++
			st.sentences[si] = true
			st.positions = append(st.positions, si)
			switch {
			case isAcronym(tok):
				st.acronym++
			case ti > 0 && startsUpper(tok):
				st.upper++
			}
			if ti > 0 {
				if prev := strings.ToLower(tokens[ti-1]); isTerm(prev) {
					st.left[prev]++
				}
			}
			if ti+1 < len(tokens) {
				if next := strings.ToLower(tokens[ti+1]); isTerm(next) {
					st.right[next]++
				}
			}
		}

		for n := 1; n <= e.maxNGram; n++ {
			for i := 0; i+n <= len(tokens); i++ {
				gram := tokens[i : i+n]
				keys := make([]string, n)
				ok := true
				for j, tok := range gram {
					keys[j] = strings.ToLower(tok)
					if !isTerm(keys[j]) {
						ok = false
						break
					}
				}
				if !ok {
					continue
				}
				key := strings.Join(keys, " ")
				if c, seen := cands[key]; seen {
					c.tf++
					continue
				}
				c := &candidate{surface: strings.Join(gram, " "), key: key, terms: keys, tf: 1, order: len(order)}
				cands[key] = c
				order = append(order, c)
			}
		}
	}

	if len(order) == 0 {
		return []models.Tag{}
	}

	termScores := scoreTerms(stats, len(sentences))
	for _, c := range order {
		prod, sum := 1.0, 0.0
		for _, t := range c.terms {
			prod *= termScores[t]
			sum += termScores[t]
		}
		c.score = prod / (float64(c.tf) * (1 + sum))
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].score < order[j].score
	})

	kept := make([]*candidate, 0, e.top)
	keptTerms := make([]map[string]bool, 0, e.top)
	for _, c := range order {
		if len(kept) == e.top {
			break
		}
		set := make(map[string]bool, len(c.terms))
		for _, t := range c.terms {
			set[t] = true
		}
		duplicate := false
		for _, k := range keptTerms {
			if similarity.JaccardSimilarity(set, k) > e.dedup {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, c)
		keptTerms = append(keptTerms, set)
	}

	if len(kept) > topN {
		kept = kept[:topN]
	}
	tags := make([]models.Tag, len(kept))
	for i, c := range kept {
		tags[i] = models.Tag{Name: c.surface, Score: scoring.Round(1 - clamp01(c.score))}
	}
	return tags
}

// scoreTerms computes the single-term YAKE score from casing, position,
// frequency, relatedness and sentence spread.
func scoreTerms(stats map[string]*termStats, numSentences int) map[string]float64 {
	var tfs []float64
	maxTF := 0.0
	for _, st := range stats {
		tf := float64(st.tf)
		tfs = append(tfs, tf)
		maxTF = math.Max(maxTF, tf)
	}
	sort.Float64s(tfs)
	mean, std := meanStd(tfs)

	scores := make(map[string]float64, len(stats))
	for key, st := range stats {
		tf := float64(st.tf)

		tCase := float64(max(st.upper, st.acronym)) / (1 + math.Log(tf))
		tPos := math.Log(math.Log(3 + median(st.positions)))
		tNorm := tf / (mean + std)
		tRel := 1 + (dispersion(st.left)+dispersion(st.right))*(tf/maxTF)
		tSent := float64(len(st.sentences)) / float64(numSentences)

		scores[key] = (tPos * tRel) / (tCase + tNorm/tRel + tSent/tRel)
	}
	return scores
}

// dispersion is the ratio of distinct neighbours to neighbour occurrences.
func dispersion(neighbours map[string]int) float64 {
	total := 0
	for _, n := range neighbours {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(len(neighbours)) / float64(total)
}

func median(values []int) float64 {
	s := append([]int(nil), values...)
	sort.Ints(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return float64(s[mid])
	}
	return float64(s[mid-1]+s[mid]) / 2
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func isTerm(lower string) bool {
	if utf8.RuneCountInString(lower) < 2 || similarity.IsStopWord(lower) {
		return false
	}
	for _, r := range lower {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func startsUpper(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsUpper(r)
}

func isAcronym(tok string) bool {
	letters := 0
	for _, r := range tok {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= 2
}

func splitSentences(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == '。'
	})
	out := sentences[:0]
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
