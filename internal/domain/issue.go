package domain

import "time"

// Issue mirrors an upstream issue. Issues are the record of work: they stay
// around even when their project or team context decays, with the dangling
// references nulled instead of the row being deleted.
type Issue struct {
	ID                string
	Title             string
	State             string
	AssigneeName      string
	Priority          string
	DueDate           *time.Time
	ProjectID         *string
	ProjectName       string
	TeamKey           *string
	TeamName          *string
	UpstreamCreatedAt time.Time
	UpstreamUpdatedAt time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Label is wholly owned by its issue. On every issue update the complete
// label set is replaced rather than diffed.
type Label struct {
	ID       string
	IssueID  string
	Name     string
	Color    string
	ParentID *string
}

// IssueEventAction enumerates publish-sink actions.
type IssueEventAction string

const (
	IssueCreated IssueEventAction = "create"
	IssueUpdated IssueEventAction = "update"
	IssueRemoved IssueEventAction = "remove"
)

// IssueEvent is emitted to the real-time fan-out collaborator after an issue
// mutation has been committed.
type IssueEvent struct {
	ID          string           `json:"id"`
	Action      IssueEventAction `json:"action"`
	Title       string           `json:"title,omitempty"`
	State       string           `json:"state,omitempty"`
	ProjectID   *string          `json:"projectId,omitempty"`
	ProjectName string           `json:"projectName,omitempty"`
	TeamKey     *string          `json:"teamKey,omitempty"`
	TeamName    *string          `json:"teamName,omitempty"`
}
