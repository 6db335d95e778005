package models

// Report types.
const (
	ReportDaily  = "daily"
	ReportWeekly = "weekly"
)

// ChangeItem is one page change included in a report.
type ChangeItem struct {
	PageID  string `json:"page_id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Action  string `json:"action"`
}

// Report is the payload posted for a generated change report.
type Report struct {
	Type         string       `json:"type"`
	PeriodStart  string       `json:"period_start"`
	PeriodEnd    string       `json:"period_end"`
	Summary      string       `json:"summary"`
	Changes      []ChangeItem `json:"changes"`
	TotalChanges int          `json:"total_changes"`
}
