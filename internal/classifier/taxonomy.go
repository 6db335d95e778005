package classifier

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/notionflow-ai/pkg/models"
)

// TypeOverride replaces the prototype sentence and/or keyword patterns of one
// note type.
type TypeOverride struct {
	Name      string   `yaml:"name"`
	Prototype string   `yaml:"prototype"`
	Keywords  []string `yaml:"keywords"`
}

// TaxonomyFile is the top-level YAML structure.
type TaxonomyFile struct {
	NoteTypes []TypeOverride `yaml:"note_types"`
}

// Taxonomy holds the prototype sentence and keyword patterns of every note type.
type Taxonomy struct {
	prototypes [noteTypeCount]string
	patterns   [noteTypeCount][]*regexp.Regexp
}

const noteTypeCount = int(models.NoteTypeLog) + 1

// DefaultTaxonomy returns the built-in prototypes and patterns.
func DefaultTaxonomy() *Taxonomy {
	t := &Taxonomy{}
	for _, nt := range models.NoteTypes() {
		t.prototypes[nt] = defaultPrototypes[nt]
		t.patterns[nt] = defaultPatterns[nt]
	}
	return t
}

// LoadTaxonomy reads overrides from the YAML file at path on top of the
// defaults. A missing file yields the defaults. Unknown note type names and
// invalid patterns are errors.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	t := DefaultTaxonomy()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, err
	}

	var file TaxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}

	for _, o := range file.NoteTypes {
		nt, err := models.ParseNoteType(o.Name)
		if err != nil {
			return nil, fmt.Errorf("taxonomy %s: %w", path, err)
		}
		if o.Prototype != "" {
			t.prototypes[nt] = o.Prototype
		}
		if len(o.Keywords) == 0 {
			continue
		}
		patterns := make([]*regexp.Regexp, 0, len(o.Keywords))
		for _, k := range o.Keywords {
			re, err := regexp.Compile("(?i)" + k)
			if err != nil {
				return nil, fmt.Errorf("taxonomy %s: %s keyword %q: %w", path, nt, k, err)
			}
			patterns = append(patterns, re)
		}
		t.patterns[nt] = patterns
	}
	return t, nil
}

// Prototype returns the prototype sentence of nt.
func (t *Taxonomy) Prototype(nt models.NoteType) string {
	if !nt.Valid() {
		return ""
	}
	return t.prototypes[nt]
}

// Patterns returns the keyword patterns of nt.
func (t *Taxonomy) Patterns(nt models.NoteType) []*regexp.Regexp {
	if !nt.Valid() {
		return nil
	}
	return t.patterns[nt]
}

var defaultPrototypes = map[models.NoteType]string{
	models.NoteTypeMeetingNote: "회의록 참석자 안건 논의사항 결정사항 다음 회의 일정",
	models.NoteTypeTodo:        "할 일 목록 체크리스트 작업 완료 미완료 우선순위 마감일",
	models.NoteTypeDecision:    "결정사항 합의 내용 최종 결론 승인 확정 방향 선택",
	models.NoteTypeIdea:        "아이디어 제안 브레인스토밍 새로운 시도 가능성 개선",
	models.NoteTypeReference:   "참고자료 문서 가이드 링크 출처 레퍼런스 설명",
	models.NoteTypeLog:         "작업 일지 진행 상황 기록 날짜별 개발 로그 변경사항",
}

var defaultPatterns = map[models.NoteType][]*regexp.Regexp{
	models.NoteTypeMeetingNote: {
		regexp.MustCompile(`(?i)회의록|회의\s*내용|미팅\s*노트|참석자|meeting\s*note`),
		regexp.MustCompile(`(?i)회의\s*일시|안건|논의\s*사항|회의\s*결과`),
	},
	models.NoteTypeTodo: {
		regexp.MustCompile(`(?i)TODO|할\s*일|체크리스트|해야\s*할|작업\s*목록`),
		regexp.MustCompile(`(?i)\[\s*\]|\[x\]|☐|☑|✅|⬜`),
		regexp.MustCompile(`(?i)~해야\s*함|~필요|~할\s*것`),
	},
	models.NoteTypeDecision: {
		regexp.MustCompile(`(?i)결정\s*사항|의사\s*결정|결론|합의|decision`),
		regexp.MustCompile(`(?i)결정:|확정:|승인:|최종\s*결정`),
	},
	models.NoteTypeIdea: {
		regexp.MustCompile(`(?i)아이디어|브레인스토밍|제안|발상|idea|proposal`),
		regexp.MustCompile(`(?i)생각해\s*보면|어떨까|해보면|시도해`),
	},
	models.NoteTypeReference: {
		regexp.MustCompile(`(?i)참고\s*자료|레퍼런스|reference|문서|가이드|매뉴얼`),
		regexp.MustCompile(`(?i)https?://|참조|출처|인용`),
	},
	models.NoteTypeLog: {
		regexp.MustCompile(`(?i)일지|로그|기록|일기|작업\s*일지|개발\s*일지|log|journal`),
		regexp.MustCompile(`(?i)\d{4}[-/]\d{2}[-/]\d{2}.*기록|진행\s*상황`),
	},
}
