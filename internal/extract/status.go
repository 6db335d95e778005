package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/thebtf/notionflow-ai/pkg/models"
)

const contextRunes = 40

var statusPatterns = []struct {
	kind    models.StatusKind
	pattern *regexp.Regexp
}{
	{models.StatusDone, regexp.MustCompile(`(?i)완료|끝남|끝냄|마무리|done|closed|finished|resolved|해결`)},
	{models.StatusInProgress, regexp.MustCompile(`(?i)시작|착수|started|진행\s*중|작업\s*중|in\s*progress`)},
	{models.StatusBlocked, regexp.MustCompile(`(?i)보류|대기|blocked|on\s*hold|중단|막힘`)},
}

// DetectStatus returns every status keyword hit with up to 40 characters of
// context on each side. Signals are grouped by kind: done, in progress, blocked.
func DetectStatus(text string) []models.StatusSignal {
	signals := []models.StatusSignal{}
	if strings.TrimSpace(text) == "" {
		return signals
	}

	for _, sp := range statusPatterns {
		for _, loc := range sp.pattern.FindAllStringIndex(text, -1) {
			signals = append(signals, models.StatusSignal{
				Signal:  sp.kind,
				Keyword: text[loc[0]:loc[1]],
				Context: strings.TrimSpace(surrounding(text, loc[0], loc[1], contextRunes)),
			})
		}
	}
	return signals
}

// surrounding widens the byte range [start,end) by n runes on each side.
func surrounding(text string, start, end, n int) string {
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}
