package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/notionflow-ai/pkg/models"
)

func strp(s string) *string { return &s }

func TestEntityExtractor_Extract(t *testing.T) {
	ex := NewEntityExtractor([]string{"노션플로우", ""})

	tests := []struct {
		name string
		text string
		want []models.Entity
	}{
		{name: "empty", text: "  ", want: []models.Entity{}},
		{
			name: "person",
			text: "@김철수 님과 @이영희, 그리고 @홍길동전기전 참석",
			want: []models.Entity{
				{Type: models.EntityPerson, Value: "김철수"},
				{Type: models.EntityPerson, Value: "이영희"},
			},
		},
		{
			name: "deadline is not also a date",
			text: "마감: 2026-03-15 이후 회고는 2026-03-20",
			want: []models.Entity{
				{Type: models.EntityDeadline, Value: "2026-03-15"},
				{Type: models.EntityDate, Value: "2026-03-20"},
			},
		},
		{
			name: "korean and slash dates",
			text: "3월 5일 회의, 12/25 휴무, 13/40 은 무시",
			want: []models.Entity{
				{Type: models.EntityDate, Value: "3월 5일"},
				{Type: models.EntityDate, Value: "12/25"},
			},
		},
		{
			name: "urls and projects deduplicated",
			text: "노션플로우 문서 https://example.com/a) 참고, 다시 https://example.com/a 노션플로우",
			want: []models.Entity{
				{Type: models.EntityURL, Value: "https://example.com/a"},
				{Type: models.EntityProject, Value: "노션플로우"},
			},
		},
		{
			name: "dates glued to hangul are not dates",
			text: "2024-01-15까지 제출, 3/4분기 계획, 회고 2024-02-01 진행",
			want: []models.Entity{
				{Type: models.EntityDate, Value: "2024-02-01"},
			},
		},
		{
			name: "english deadline",
			text: "Deadline 4/30 for the draft",
			want: []models.Entity{
				{Type: models.EntityDeadline, Value: "4/30"},
				{Type: models.EntityDate, Value: "4/30"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.Extract(tt.text))
		})
	}
}

func TestEntityExtractor_SetKnownProjects(t *testing.T) {
	ex := NewEntityExtractor(nil)
	assert.Empty(t, ex.Extract("알파 프로젝트 진행"))

	ex.SetKnownProjects([]string{"알파"})
	assert.Equal(t, []models.Entity{{Type: models.EntityProject, Value: "알파"}}, ex.Extract("알파 프로젝트 진행"))
}

func TestExtractTodos(t *testing.T) {
	text := strings.Join([]string{
		"- [ ] 배포 스크립트 정리 @김철수 마감 2026-04-01",
		"* [ ] 긴급 로그인 버그 수정",
		"TODO: 나중에 문서 업데이트",
		"- 테스트 코드 작성해야 함",
		"- [ ] 배포 스크립트 정리",
		"- [x] 끝난 일",
		"- [ ] a",
	}, "\n")

	got := ExtractTodos(text)
	require.Len(t, got, 4)

	assert.Equal(t, models.Todo{
		Title:    "배포 스크립트 정리",
		Priority: models.PriorityMedium,
		DueDate:  strp("2026-04-01"),
		Assignee: strp("김철수"),
	}, got[0])
	assert.Equal(t, "긴급 로그인 버그 수정", got[1].Title)
	assert.Equal(t, models.PriorityUrgent, got[1].Priority)
	assert.Equal(t, "나중에 문서 업데이트", got[2].Title)
	assert.Equal(t, models.PriorityLow, got[2].Priority)
	assert.Equal(t, "테스트 코드 작성해야 함", got[3].Title)
	assert.Nil(t, got[3].DueDate)
	assert.Nil(t, got[3].Assignee)
}

func TestExtractTodos_Empty(t *testing.T) {
	assert.Empty(t, ExtractTodos(""))
	assert.Empty(t, ExtractTodos("그냥 메모"))
}

func TestTodosFromBlockNote(t *testing.T) {
	doc := `[
		{"type":"paragraph","content":[{"type":"text","text":"intro"}]},
		{"type":"checkListItem","props":{"checked":false},"content":[{"type":"text","text":"중요 "},{"type":"text","text":"리뷰 요청"}],
		 "children":[
			{"type":"checkListItem","props":{"checked":true},"content":[{"type":"text","text":"완료된 항목"}]},
			{"type":"checkListItem","props":{"checked":false},"content":[{"type":"text","text":"하위 작업 @이영희"}]}
		 ]},
		{"type":"checkListItem","props":{"checked":false},"content":[{"type":"text","text":"x"}]},
		{"type":"table","content":{"type":"tableContent","rows":[]}}
	]`

	got := TodosFromBlockNote([]byte(doc))
	require.Len(t, got, 2)
	assert.Equal(t, "중요 리뷰 요청", got[0].Title)
	assert.Equal(t, models.PriorityHigh, got[0].Priority)
	assert.Equal(t, "하위 작업 @이영희", got[1].Title)
	assert.Equal(t, strp("이영희"), got[1].Assignee)

	assert.Empty(t, TodosFromBlockNote([]byte("not json")))
}

func TestDetectStatus(t *testing.T) {
	text := "로그인 기능 개발 완료. 결제 모듈은 진행 중이고 배포는 보류 상태"
	got := DetectStatus(text)
	require.Len(t, got, 3)

	assert.Equal(t, models.StatusDone, got[0].Signal)
	assert.Equal(t, "완료", got[0].Keyword)
	assert.Equal(t, models.StatusInProgress, got[1].Signal)
	assert.Equal(t, "진행 중", got[1].Keyword)
	assert.Equal(t, models.StatusBlocked, got[2].Signal)
	assert.Equal(t, "보류", got[2].Keyword)
	for _, s := range got {
		assert.Contains(t, s.Context, s.Keyword)
	}

	assert.Empty(t, DetectStatus(""))
}

func TestSurrounding_RuneWindow(t *testing.T) {
	text := strings.Repeat("가", 50) + "완료" + strings.Repeat("나", 50)
	start := strings.Index(text, "완료")
	ctx := surrounding(text, start, start+len("완료"), 40)
	assert.Equal(t, strings.Repeat("가", 40)+"완료"+strings.Repeat("나", 40), ctx)
}
