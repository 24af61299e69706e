package upstream

// Untrusted payload shapes as the upstream serves them. Everything here goes
// through the sanitizer before it reaches storage.

// Team is an upstream team record.
type Team struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Project is an upstream project record. TeamID is only populated on change
// notification payloads; paginated listings resolve ownership from the team
// whose listing the project appeared under.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	State       string `json:"state"`
	StartDate   string `json:"startDate"`
	TargetDate  string `json:"targetDate"`
	TeamID      string `json:"teamId,omitempty"`
}

// State is an upstream workflow state.
type State struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// User is an upstream user, seen here only as an issue assignee.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Label is an upstream label owned by an issue.
type Label struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	ParentID string `json:"parentId,omitempty"`
}

// LabelConnection wraps the nodes array of a labels field.
type LabelConnection struct {
	Nodes []Label `json:"nodes"`
}

// ProjectRef is the embedded project reference on an issue.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issue is an upstream issue record. ProjectID is the top-level reference on
// notification payloads; listings embed the project object instead.
type Issue struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	State         *State           `json:"state,omitempty"`
	Assignee      *User            `json:"assignee,omitempty"`
	PriorityLabel string           `json:"priorityLabel"`
	DueDate       string           `json:"dueDate,omitempty"`
	Project       *ProjectRef      `json:"project,omitempty"`
	ProjectID     string           `json:"projectId,omitempty"`
	Team          *Team            `json:"team,omitempty"`
	Labels        *LabelConnection `json:"labels,omitempty"`
	CreatedAt     string           `json:"createdAt"`
	UpdatedAt     string           `json:"updatedAt"`
}
