// Package extract pulls structured entities, todos and status signals out of
// note text with regular expressions.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/thebtf/notionflow-ai/pkg/models"
)

const (
	isoDate    = `\d{4}[-/.]\d{1,2}[-/.]\d{1,2}`
	koreanDate = `\d{1,2}월\s*\d{1,2}일`
	slashDate  = `\d{1,2}/\d{1,2}`
	// nameEnd stands in for a Unicode word boundary after a Hangul name.
	nameEnd = `(?:[^\p{L}\p{N}_]|$)`
)

var (
	personPattern     = regexp.MustCompile(`@([가-힣]{2,4})` + nameEnd)
	isoDatePattern    = regexp.MustCompile(`\b(` + isoDate + `)\b`)
	slashDatePattern  = regexp.MustCompile(`\b(` + slashDate + `)\b`)
	koreanDatePattern = regexp.MustCompile(`(` + koreanDate + `)`)
	deadlinePattern   = regexp.MustCompile(`(?i)(?:마감|기한|~까지|deadline|due)\s*[:\s]*(` +
		isoDate + `|` + koreanDate + `|` + slashDate + `)`)
	urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
)

// EntityExtractor finds people, dates, deadlines, URLs and known project
// names. It is safe for concurrent use.
type EntityExtractor struct {
	mu       sync.RWMutex
	projects []string
}

// NewEntityExtractor creates an extractor that recognises the given project names.
func NewEntityExtractor(knownProjects []string) *EntityExtractor {
	e := &EntityExtractor{}
	e.SetKnownProjects(knownProjects)
	return e
}

// SetKnownProjects replaces the recognised project names.
func (e *EntityExtractor) SetKnownProjects(projects []string) {
	cp := make([]string, len(projects))
	copy(cp, projects)
	e.mu.Lock()
	e.projects = cp
	e.mu.Unlock()
}

type entitySet struct {
	seen     map[[2]string]bool
	entities []models.Entity
}

func (s *entitySet) add(t models.EntityType, value string) {
	key := [2]string{string(t), value}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.entities = append(s.entities, models.Entity{Type: t, Value: value})
}

// Extract returns the entities in text, de-duplicated on (type, value) and in
// first-seen order per entity kind.
func (e *EntityExtractor) Extract(text string) []models.Entity {
	set := &entitySet{seen: make(map[[2]string]bool), entities: []models.Entity{}}
	if strings.TrimSpace(text) == "" {
		return set.entities
	}

	for _, m := range personPattern.FindAllStringSubmatch(text, -1) {
		set.add(models.EntityPerson, m[1])
	}

	var deadlineSpans [][2]int
	for _, m := range deadlinePattern.FindAllStringSubmatchIndex(text, -1) {
		set.add(models.EntityDeadline, strings.TrimSpace(text[m[2]:m[3]]))
		deadlineSpans = append(deadlineSpans, [2]int{m[2], m[3]})
	}

	for _, m := range isoDatePattern.FindAllStringSubmatchIndex(text, -1) {
		if wordBounded(text, m[2], m[3]) && !within(deadlineSpans, m[2], m[3]) {
			set.add(models.EntityDate, text[m[2]:m[3]])
		}
	}
	for _, m := range koreanDatePattern.FindAllStringSubmatch(text, -1) {
		set.add(models.EntityDate, m[1])
	}
	for _, m := range slashDatePattern.FindAllStringSubmatchIndex(text, -1) {
		if v := text[m[2]:m[3]]; wordBounded(text, m[2], m[3]) && validMonthDay(v) {
			set.add(models.EntityDate, v)
		}
	}

	for _, u := range urlPattern.FindAllString(text, -1) {
		set.add(models.EntityURL, u)
	}

	e.mu.RLock()
	projects := e.projects
	e.mu.RUnlock()
	for _, name := range projects {
		if name != "" && strings.Contains(text, name) {
			set.add(models.EntityProject, name)
		}
	}

	return set.entities
}

func within(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start >= s[0] && end <= s[1] {
			return true
		}
	}
	return false
}

// wordBounded reports whether text[start:end] is not glued to a letter or
// digit on either side. \b only knows ASCII word characters, so a date
// followed by Hangul such as "2024-01-15까지" still matches it.
func wordBounded(text string, start, end int) bool {
	if r, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && isWordRune(r) {
		return false
	}
	if r, _ := utf8.DecodeRuneInString(text[end:]); end < len(text) && isWordRune(r) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func validMonthDay(v string) bool {
	month, day, ok := strings.Cut(v, "/")
	if !ok {
		return false
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return false
	}
	return m >= 1 && m <= 12 && d >= 1 && d <= 31
}
