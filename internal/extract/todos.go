package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/thebtf/notionflow-ai/pkg/models"
)

var (
	todoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*[-*]\s*\[\s*\]\s*(.+)`),
		regexp.MustCompile(`(?mi)^\s*TODO[:\s]+(.+)`),
		regexp.MustCompile(`(?m)^\s*[-*]\s*(.+(?:해야\s*함|필요|할\s*것|하기))`),
	}

	priorityPatterns = []struct {
		priority models.Priority
		pattern  *regexp.Regexp
	}{
		{models.PriorityUrgent, regexp.MustCompile(`(?i)긴급|urgent|ASAP|즉시|바로`)},
		{models.PriorityHigh, regexp.MustCompile(`(?i)중요|높음|high|important|critical`)},
		{models.PriorityLow, regexp.MustCompile(`(?i)낮음|나중에|low|later|eventually`)},
	}

	dueDatePattern  = regexp.MustCompile(`(?i)(?:~까지|마감|by|due|기한)\s*[:\s]*(` + isoDate + `|` + koreanDate + `)`)
	assigneePattern = regexp.MustCompile(`@([가-힣]{2,4})` + nameEnd)
)

// ExtractTodos finds todo items in plain text: unchecked markdown boxes,
// TODO lines and Korean obligation bullets. Titles are unique.
func ExtractTodos(text string) []models.Todo {
	todos := []models.Todo{}
	if strings.TrimSpace(text) == "" {
		return todos
	}

	seen := make(map[string]bool)
	for _, p := range todoPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			raw := strings.TrimSpace(m[1])
			title := cleanTitle(raw)
			if utf8.RuneCountInString(title) < 2 || seen[title] {
				continue
			}
			seen[title] = true
			todos = append(todos, newTodo(title, raw))
		}
	}
	return todos
}

type blockNoteInline struct {
	Text string `json:"text"`
}

type blockNoteBlock struct {
	Type  string `json:"type"`
	Props struct {
		Checked bool `json:"checked"`
	} `json:"props"`
	Content  json.RawMessage  `json:"content"`
	Children []blockNoteBlock `json:"children"`
}

// TodosFromBlockNote returns the unchecked checklist items of a BlockNote
// document, walking nested children depth-first. Malformed JSON yields none.
func TodosFromBlockNote(content []byte) []models.Todo {
	todos := []models.Todo{}
	var blocks []blockNoteBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return todos
	}
	walkBlocks(blocks, &todos)
	return todos
}

func walkBlocks(blocks []blockNoteBlock, todos *[]models.Todo) {
	for _, b := range blocks {
		if b.Type == "checkListItem" && !b.Props.Checked {
			if text := blockText(b.Content); utf8.RuneCountInString(text) >= 2 {
				*todos = append(*todos, newTodo(text, text))
			}
		}
		walkBlocks(b.Children, todos)
	}
}

func blockText(raw json.RawMessage) string {
	var inlines []blockNoteInline
	if len(raw) == 0 || json.Unmarshal(raw, &inlines) != nil {
		return ""
	}
	var b strings.Builder
	for _, in := range inlines {
		b.WriteString(in.Text)
	}
	return strings.TrimSpace(b.String())
}

func newTodo(title, raw string) models.Todo {
	return models.Todo{
		Title:    title,
		Priority: detectPriority(raw),
		DueDate:  firstGroup(dueDatePattern, raw),
		Assignee: firstGroup(assigneePattern, raw),
	}
}

func cleanTitle(title string) string {
	title = strings.TrimSpace(dueDatePattern.ReplaceAllString(title, ""))
	title = strings.TrimSpace(assigneePattern.ReplaceAllStringFunc(title, func(m string) string {
		// Keep the delimiter consumed after the name.
		sub := assigneePattern.FindStringSubmatch(m)
		return strings.TrimPrefix(m, "@"+sub[1])
	}))
	return strings.TrimRight(title, "- :,;")
}

func detectPriority(text string) models.Priority {
	for _, p := range priorityPatterns {
		if p.pattern.MatchString(text) {
			return p.priority
		}
	}
	return models.PriorityMedium
}

func firstGroup(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	return &v
}
