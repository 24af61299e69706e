package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
	"github.com/Robert-d-s/enablment-back-sub000/internal/repository"
	"github.com/Robert-d-s/enablment-back-sub000/internal/sanitize"
	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
)

// Notification is a verified upstream change notification. The engine
// assumes the transport already checked its authenticity.
type Notification struct {
	Action string          `json:"action"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// Notification actions and entity types.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionRemove = "remove"

	TypeProject = "Project"
	TypeIssue   = "Issue"
)

// ApplyDelta applies a single-entity change in its own transaction. Failures
// are isolated to this one notification; a delta racing a full run may be
// overwritten by the run's cleanup pass and reconverges on the next pass.
func (s *Syncer) ApplyDelta(ctx context.Context, n Notification) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delta transaction: %w", err)
	}

	var event *domain.IssueEvent
	switch n.Type {
	case TypeProject:
		err = s.applyProjectDelta(ctx, tx, n)
	case TypeIssue:
		event, err = s.applyIssueDelta(ctx, tx, n)
	default:
		err = fmt.Errorf("unsupported notification type %q", n.Type)
	}
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error("delta rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delta transaction: %w", err)
	}

	if event != nil && s.publisher != nil {
		s.publisher.Publish(*event)
	}
	return nil
}

func (s *Syncer) applyProjectDelta(ctx context.Context, tx repository.Tx, n Notification) error {
	var payload upstream.Project
	if err := json.Unmarshal(n.Data, &payload); err != nil {
		return fmt.Errorf("decode project payload: %w", err)
	}

	switch n.Action {
	case ActionCreate, ActionUpdate:
		if payload.TeamID == "" {
			s.logger.Warn("dropping project delta without team reference", "project_id", payload.ID)
			return nil
		}
		exists, err := tx.TeamExists(ctx, payload.TeamID)
		if err != nil {
			return fmt.Errorf("check team %s: %w", payload.TeamID, err)
		}
		if !exists {
			s.logger.Warn("dropping project delta referencing unknown team",
				"project_id", payload.ID, "team_id", payload.TeamID)
			return nil
		}
		project, err := sanitize.ProjectRecord(payload, payload.TeamID, s.now())
		if err != nil {
			s.logger.Warn("dropping project delta failing sanitization", "project_id", payload.ID, "error", err)
			return nil
		}
		if err := tx.UpsertProject(ctx, &project); err != nil {
			return fmt.Errorf("upsert project %s: %w", project.ID, err)
		}
		s.logger.Info("project delta applied", "project_id", project.ID, "action", n.Action)
		return nil

	case ActionRemove:
		if err := tx.DeleteProject(ctx, payload.ID); err != nil {
			return fmt.Errorf("delete project %s: %w", payload.ID, err)
		}
		s.logger.Info("project delta applied", "project_id", payload.ID, "action", n.Action)
		return nil

	default:
		return fmt.Errorf("unsupported notification action %q", n.Action)
	}
}

func (s *Syncer) applyIssueDelta(ctx context.Context, tx repository.Tx, n Notification) (*domain.IssueEvent, error) {
	var payload upstream.Issue
	if err := json.Unmarshal(n.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode issue payload: %w", err)
	}

	switch n.Action {
	case ActionCreate, ActionUpdate:
		ref, ok, err := s.resolveIssueProject(ctx, tx, &payload)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Warn("dropping issue delta: no project resolvable", "issue_id", payload.ID)
			return nil, nil
		}
		payload.Project = ref

		issue, labels, skippedFields, err := sanitize.IssueRecord(payload, s.now())
		if err != nil {
			s.logger.Warn("dropping issue delta failing sanitization", "issue_id", payload.ID, "error", err)
			return nil, nil
		}
		for _, fieldErr := range skippedFields {
			s.logger.Warn("dropping invalid nested issue field", "issue_id", issue.ID, "error", fieldErr)
		}

		existed, err := tx.IssueExists(ctx, issue.ID)
		if err != nil {
			return nil, fmt.Errorf("check issue %s: %w", issue.ID, err)
		}
		if err := tx.UpsertIssue(ctx, &issue); err != nil {
			return nil, fmt.Errorf("upsert issue %s: %w", issue.ID, err)
		}
		if err := tx.ReplaceIssueLabels(ctx, issue.ID, labels); err != nil {
			return nil, fmt.Errorf("replace labels for issue %s: %w", issue.ID, err)
		}

		action := domain.IssueUpdated
		if !existed {
			action = domain.IssueCreated
		}
		event := issueEvent(issue, action)
		return &event, nil

	case ActionRemove:
		err := tx.DeleteIssue(ctx, payload.ID)
		if errors.Is(err, repository.ErrNotFound) {
			// Removing an already-removed issue is a no-op.
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("delete issue %s: %w", payload.ID, err)
		}
		event := domain.IssueEvent{ID: payload.ID, Action: domain.IssueRemoved}
		return &event, nil

	default:
		return nil, fmt.Errorf("unsupported notification action %q", n.Action)
	}
}

// resolveIssueProject repairs a missing or unresolvable project reference on
// an issue delta: the payload's embedded project id, then the newest project
// on the payload's team, then the newest project anywhere, then a lazily
// created fallback project. Heuristic by design; it can misfile an issue
// under the wrong project, which a later full run corrects.
func (s *Syncer) resolveIssueProject(ctx context.Context, tx repository.Tx, payload *upstream.Issue) (*upstream.ProjectRef, bool, error) {
	candidate := ""
	if payload.Project != nil && payload.Project.ID != "" {
		candidate = payload.Project.ID
	} else if payload.ProjectID != "" {
		candidate = payload.ProjectID
	}
	if candidate != "" {
		exists, err := tx.ProjectExists(ctx, candidate)
		if err != nil {
			return nil, false, fmt.Errorf("check project %s: %w", candidate, err)
		}
		if exists {
			name := ""
			if payload.Project != nil {
				name = payload.Project.Name
			}
			return &upstream.ProjectRef{ID: candidate, Name: name}, true, nil
		}
		s.logger.Warn("issue delta references unknown project, falling back",
			"issue_id", payload.ID, "project_id", candidate)
	}

	if payload.Team != nil && payload.Team.Key != "" {
		project, err := tx.LatestProjectByTeamKey(ctx, payload.Team.Key)
		if err == nil {
			return &upstream.ProjectRef{ID: project.ID, Name: project.Name}, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, fmt.Errorf("latest project for team %s: %w", payload.Team.Key, err)
		}
	}

	project, err := tx.LatestProject(ctx)
	if err == nil {
		return &upstream.ProjectRef{ID: project.ID, Name: project.Name}, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("latest project: %w", err)
	}

	return s.fallbackProjectRef(ctx, tx, payload)
}

// fallbackProjectRef finds or lazily creates the designated fallback project.
func (s *Syncer) fallbackProjectRef(ctx context.Context, tx repository.Tx, payload *upstream.Issue) (*upstream.ProjectRef, bool, error) {
	existing, err := tx.GetProjectByName(ctx, s.fallbackProject)
	if err == nil {
		return &upstream.ProjectRef{ID: existing.ID, Name: existing.Name}, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("look up fallback project: %w", err)
	}

	team, err := s.fallbackTeam(ctx, tx, payload)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	now := s.now()
	project := domain.Project{
		ID:        uuid.NewString(),
		TeamID:    team.ID,
		Name:      s.fallbackProject,
		State:     "backlog",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.UpsertProject(ctx, &project); err != nil {
		return nil, false, fmt.Errorf("create fallback project: %w", err)
	}
	s.logger.Info("created fallback project", "project_id", project.ID, "team_id", team.ID)
	return &upstream.ProjectRef{ID: project.ID, Name: project.Name}, true, nil
}

func (s *Syncer) fallbackTeam(ctx context.Context, tx repository.Tx, payload *upstream.Issue) (*domain.Team, error) {
	if payload.Team != nil && payload.Team.Key != "" {
		team, err := tx.GetTeamByKey(ctx, payload.Team.Key)
		if err == nil {
			return team, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return tx.LatestTeam(ctx)
}
