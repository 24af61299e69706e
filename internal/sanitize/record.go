package sanitize

import (
	"time"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
)

const (
	maxNameLength  = 255
	maxTitleLength = 500
	maxStateLength = 64
)

// TeamRecord sanitizes a full upstream team. Any leaf failure rejects the
// whole record.
func TeamRecord(in upstream.Team, now time.Time) (domain.Team, error) {
	id, err := ID(in.ID)
	if err != nil {
		return domain.Team{}, fieldErr("team id", err)
	}
	key, err := ID(in.Key)
	if err != nil {
		return domain.Team{}, fieldErr("team key", err)
	}
	name, err := PlainText(in.Name, maxNameLength)
	if err != nil {
		return domain.Team{}, fieldErr("team name", err)
	}
	return domain.Team{ID: id, Key: key, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// ProjectRecord sanitizes a full upstream project, binding it to the team the
// caller resolved from the upstream listing.
func ProjectRecord(in upstream.Project, teamID string, now time.Time) (domain.Project, error) {
	id, err := ID(in.ID)
	if err != nil {
		return domain.Project{}, fieldErr("project id", err)
	}
	name, err := PlainText(in.Name, maxNameLength)
	if err != nil {
		return domain.Project{}, fieldErr("project name", err)
	}
	state, err := PlainText(in.State, maxStateLength)
	if err != nil {
		return domain.Project{}, fieldErr("project state", err)
	}
	startDate, err := ISODate(in.StartDate)
	if err != nil {
		return domain.Project{}, fieldErr("project start date", err)
	}
	targetDate, err := ISODate(in.TargetDate)
	if err != nil {
		return domain.Project{}, fieldErr("project target date", err)
	}
	return domain.Project{
		ID:          id,
		TeamID:      teamID,
		Name:        name,
		Description: RichText(in.Description),
		State:       state,
		StartDate:   startDate,
		TargetDate:  targetDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IssueRecord sanitizes a full upstream issue. A failing required leaf
// rejects the whole issue; labels and the assignee are sanitized
// independently, with failures collected in skipped so a single bad nested
// object never takes the record down with it.
func IssueRecord(in upstream.Issue, now time.Time) (issue domain.Issue, labels []domain.Label, skipped []error, err error) {
	id, err := ID(in.ID)
	if err != nil {
		return domain.Issue{}, nil, nil, fieldErr("issue id", err)
	}
	title, err := PlainText(in.Title, maxTitleLength)
	if err != nil {
		return domain.Issue{}, nil, nil, fieldErr("issue title", err)
	}
	priority, err := PlainText(in.PriorityLabel, maxStateLength)
	if err != nil {
		return domain.Issue{}, nil, nil, fieldErr("issue priority", err)
	}
	dueDate, err := ISODate(in.DueDate)
	if err != nil {
		return domain.Issue{}, nil, nil, fieldErr("issue due date", err)
	}
	createdAt, err := Timestamp(in.CreatedAt)
	if err != nil {
		return domain.Issue{}, nil, nil, fieldErr("issue createdAt", err)
	}
	updatedAt, err := Timestamp(in.UpdatedAt)
	if err != nil {
		return domain.Issue{}, nil, nil, fieldErr("issue updatedAt", err)
	}

	issue = domain.Issue{
		ID:                id,
		Title:             title,
		Priority:          priority,
		DueDate:           dueDate,
		UpstreamCreatedAt: createdAt,
		UpstreamUpdatedAt: updatedAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if in.State != nil {
		state, err := PlainText(in.State.Name, maxStateLength)
		if err != nil {
			return domain.Issue{}, nil, nil, fieldErr("issue state", err)
		}
		issue.State = state
	}

	if in.Project != nil {
		projectID, err := ID(in.Project.ID)
		if err != nil {
			return domain.Issue{}, nil, nil, fieldErr("issue project id", err)
		}
		projectName, err := PlainText(in.Project.Name, maxNameLength)
		if err != nil {
			return domain.Issue{}, nil, nil, fieldErr("issue project name", err)
		}
		issue.ProjectID = &projectID
		issue.ProjectName = projectName
	}

	if in.Team != nil {
		teamKey, err := ID(in.Team.Key)
		if err != nil {
			return domain.Issue{}, nil, nil, fieldErr("issue team key", err)
		}
		teamName, err := PlainText(in.Team.Name, maxNameLength)
		if err != nil {
			return domain.Issue{}, nil, nil, fieldErr("issue team name", err)
		}
		issue.TeamKey = &teamKey
		issue.TeamName = &teamName
	}

	if in.Assignee != nil {
		if name, err := assigneeName(in.Assignee); err != nil {
			skipped = append(skipped, err)
		} else {
			issue.AssigneeName = name
		}
	}

	if in.Labels != nil {
		for _, raw := range in.Labels.Nodes {
			label, err := LabelRecord(raw, id)
			if err != nil {
				skipped = append(skipped, err)
				continue
			}
			labels = append(labels, label)
		}
	}

	return issue, labels, skipped, nil
}

// LabelRecord sanitizes a single upstream label for the owning issue.
func LabelRecord(in upstream.Label, issueID string) (domain.Label, error) {
	id, err := ID(in.ID)
	if err != nil {
		return domain.Label{}, fieldErr("label id", err)
	}
	name, err := PlainText(in.Name, maxNameLength)
	if err != nil {
		return domain.Label{}, fieldErr("label name", err)
	}
	color, err := Color(in.Color)
	if err != nil {
		return domain.Label{}, fieldErr("label color", err)
	}
	label := domain.Label{ID: id, IssueID: issueID, Name: name, Color: color}
	if in.ParentID != "" {
		parentID, err := ID(in.ParentID)
		if err != nil {
			return domain.Label{}, fieldErr("label parent id", err)
		}
		label.ParentID = &parentID
	}
	return label, nil
}

func assigneeName(in *upstream.User) (string, error) {
	name, err := PlainText(in.Name, maxNameLength)
	if err != nil {
		return "", fieldErr("assignee name", err)
	}
	if in.Email != "" {
		if _, err := Email(in.Email); err != nil {
			return "", fieldErr("assignee email", err)
		}
	}
	return name, nil
}
