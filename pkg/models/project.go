package models

// ProjectCandidate is a project a page may belong to.
type ProjectCandidate struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	MilestoneNames []string  `json:"milestone_names"`
	Centroid       []float32 `json:"centroid"`
}

// ProjectSuggestion is a ranked project match.
type ProjectSuggestion struct {
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Confidence  float64 `json:"confidence"`
}

// MilestoneStatusCompleted marks a finished milestone.
const MilestoneStatusCompleted = "completed"

// Milestone is a project milestone as sent by the web application.
type Milestone struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ProjectPage is a page summary attached to a project.
type ProjectPage struct {
	MilestoneID *string `json:"milestone_id"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
}

// MilestoneUpdate is the computed progress of one milestone.
type MilestoneUpdate struct {
	MilestoneID string `json:"milestoneId"`
	AISummary   string `json:"aiSummary"`
	AIProgress  int    `json:"aiProgress"`
}

// ProjectAnalysis is the payload posted after a project analysis.
type ProjectAnalysis struct {
	ProjectID        string            `json:"projectId"`
	AISummary        string            `json:"aiSummary"`
	MilestoneUpdates []MilestoneUpdate `json:"milestoneUpdates"`
	OverallProgress  int               `json:"overallProgress"`
}
