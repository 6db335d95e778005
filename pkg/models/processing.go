package models

// EntityType classifies an extracted entity.
type EntityType string

// Entity types.
const (
	EntityPerson   EntityType = "person"
	EntityDate     EntityType = "date"
	EntityURL      EntityType = "url"
	EntityProject  EntityType = "project"
	EntityDeadline EntityType = "deadline"
)

// Priority is the urgency of an extracted todo.
type Priority string

// Todo priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// StatusKind is the kind of progress signal detected in a note.
type StatusKind string

// Status signal kinds.
const (
	StatusDone       StatusKind = "done"
	StatusInProgress StatusKind = "in_progress"
	StatusBlocked    StatusKind = "blocked"
)

// Tag is a keyword with its relevance score in [0,1].
type Tag struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Entity is a structured value found in note text.
type Entity struct {
	Metadata map[string]string `json:"metadata"`
	Type     EntityType        `json:"type"`
	Value    string            `json:"value"`
}

// Todo is an action item found in note text.
type Todo struct {
	DueDate  *string  `json:"dueDate"`
	Assignee *string  `json:"assignee"`
	Title    string   `json:"title"`
	Priority Priority `json:"priority"`
}

// StatusSignal is a progress keyword with surrounding context.
type StatusSignal struct {
	Signal  StatusKind `json:"signal"`
	Keyword string     `json:"keyword"`
	Context string     `json:"context"`
}

// ProcessingResult is the payload posted to the web application after a page
// has been processed. Field names follow the web application's camelCase API.
type ProcessingResult struct {
	ClusterID     *int           `json:"clusterId"`
	PageID        string         `json:"pageId"`
	NoteType      NoteType       `json:"noteType"`
	Summary       string         `json:"summary"`
	Tags          []Tag          `json:"tags"`
	Embedding     []float32      `json:"embedding"`
	Entities      []Entity       `json:"entities"`
	Todos         []Todo         `json:"todos"`
	StatusSignals []StatusSignal `json:"statusSignals"`
	Confidence    float64        `json:"confidence"`
}
