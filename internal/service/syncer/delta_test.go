package syncer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
)

func notification(t *testing.T, typ, action string, data any) Notification {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal notification payload: %v", err)
	}
	return Notification{Type: typ, Action: action, Data: raw}
}

func TestApplyDeltaProjectCreate(t *testing.T) {
	store := newFakeStore()
	store.seedTeam(domain.Team{ID: "t1", Key: "CORE", Name: "Core"})
	s := newTestSyncer(store, &fakeUpstream{}, nil)

	n := notification(t, TypeProject, ActionCreate, map[string]string{
		"id": "p1", "name": "Platform", "state": "started", "teamId": "t1",
	})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}
	project, ok := store.state.projects["p1"]
	if !ok || project.TeamID != "t1" || project.Name != "Platform" {
		t.Fatalf("project = %+v", project)
	}
	if store.committed != 1 {
		t.Fatalf("committed = %d, want 1", store.committed)
	}
}

func TestApplyDeltaProjectDropsUnknownTeam(t *testing.T) {
	store := newFakeStore()
	s := newTestSyncer(store, &fakeUpstream{}, nil)

	n := notification(t, TypeProject, ActionCreate, map[string]string{
		"id": "p1", "name": "Platform", "teamId": "t-missing",
	})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}
	if len(store.state.projects) != 0 {
		t.Fatalf("project referencing unknown team was stored: %+v", store.state.projects)
	}
}

func TestApplyDeltaProjectRemove(t *testing.T) {
	store := newFakeStore()
	store.seedTeam(domain.Team{ID: "t1", Key: "CORE", Name: "Core"})
	store.seedProject(domain.Project{ID: "p1", TeamID: "t1", Name: "Platform"})
	s := newTestSyncer(store, &fakeUpstream{}, nil)

	n := notification(t, TypeProject, ActionRemove, map[string]string{"id": "p1"})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}
	if _, ok := store.state.projects["p1"]; ok {
		t.Fatal("removed project still stored")
	}
}

func TestApplyDeltaIssueAnchorsToKnownProject(t *testing.T) {
	store := newFakeStore()
	store.seedTeam(domain.Team{ID: "t1", Key: "CORE", Name: "Core"})
	store.seedProject(domain.Project{ID: "p1", TeamID: "t1", Name: "Platform"})
	publisher := &recordingPublisher{}
	s := newTestSyncer(store, &fakeUpstream{}, publisher)

	n := notification(t, TypeIssue, ActionCreate, map[string]any{
		"id": "i1", "title": "Fix login",
		"createdAt": "2026-01-01T00:00:00Z", "updatedAt": "2026-01-02T00:00:00Z",
		"project": map[string]string{"id": "p1", "name": "Platform"},
	})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}
	issue, ok := store.state.issues["i1"]
	if !ok || issue.ProjectID == nil || *issue.ProjectID != "p1" {
		t.Fatalf("issue = %+v", issue)
	}
	if len(publisher.events) != 1 || publisher.events[0].Action != domain.IssueCreated {
		t.Fatalf("events = %+v", publisher.events)
	}
}

func TestApplyDeltaIssueFallsBackToTeamProject(t *testing.T) {
	store := newFakeStore()
	store.seedTeam(domain.Team{ID: "t1", Key: "CORE", Name: "Core"})
	store.seedProject(domain.Project{ID: "p-core-1", TeamID: "t1", Name: "Old"})
	store.seedProject(domain.Project{ID: "p-core-2", TeamID: "t1", Name: "Current"})
	s := newTestSyncer(store, &fakeUpstream{}, nil)

	n := notification(t, TypeIssue, ActionCreate, map[string]any{
		"id": "i1", "title": "Misfiled",
		"createdAt": "2026-01-01T00:00:00Z", "updatedAt": "2026-01-02T00:00:00Z",
		"projectId": "p-unknown",
		"team":      map[string]string{"id": "t1", "key": "CORE", "name": "Core"},
	})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}
	issue := store.state.issues["i1"]
	if issue.ProjectID == nil || *issue.ProjectID != "p-core-2" {
		t.Fatalf("issue anchored to %v, want newest team project p-core-2", issue.ProjectID)
	}
}

func TestApplyDeltaIssueCreatesFallbackProject(t *testing.T) {
	store := newFakeStore()
	store.seedTeam(domain.Team{ID: "t1", Key: "CORE", Name: "Core"})
	s := newTestSyncer(store, &fakeUpstream{}, nil)

	n := notification(t, TypeIssue, ActionCreate, map[string]any{
		"id": "i1", "title": "Homeless",
		"createdAt": "2026-01-01T00:00:00Z", "updatedAt": "2026-01-02T00:00:00Z",
		"team": map[string]string{"id": "t1", "key": "CORE", "name": "Core"},
	})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}

	var fallback *domain.Project
	for _, project := range store.state.projects {
		if project.Name == "Unassigned" {
			p := project
			fallback = &p
		}
	}
	if fallback == nil {
		t.Fatalf("fallback project not created: %+v", store.state.projects)
	}
	if fallback.TeamID != "t1" {
		t.Fatalf("fallback project team = %q, want t1", fallback.TeamID)
	}
	issue := store.state.issues["i1"]
	if issue.ProjectID == nil || *issue.ProjectID != fallback.ID {
		t.Fatalf("issue not anchored to fallback project: %+v", issue)
	}
}

func TestApplyDeltaIssueDroppedWhenNoTeamAnywhere(t *testing.T) {
	store := newFakeStore()
	s := newTestSyncer(store, &fakeUpstream{}, nil)

	n := notification(t, TypeIssue, ActionCreate, map[string]any{
		"id": "i1", "title": "Void",
		"createdAt": "2026-01-01T00:00:00Z", "updatedAt": "2026-01-02T00:00:00Z",
	})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}
	if len(store.state.issues) != 0 {
		t.Fatalf("unanchorable issue was stored: %+v", store.state.issues)
	}
}

func TestApplyDeltaIssueRemoveIsIdempotent(t *testing.T) {
	store := newFakeStore()
	publisher := &recordingPublisher{}
	s := newTestSyncer(store, &fakeUpstream{}, publisher)

	n := notification(t, TypeIssue, ActionRemove, map[string]string{"id": "i-gone"})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("removing an absent issue errored: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("no-op removal published %d events", len(publisher.events))
	}
	if store.committed != 1 {
		t.Fatalf("committed = %d, want 1", store.committed)
	}
}

func TestApplyDeltaIssueRemovePublishesEvent(t *testing.T) {
	store := newFakeStore()
	p1 := "p1"
	store.seedIssue(domain.Issue{ID: "i1", Title: "Fix login", ProjectID: &p1})
	publisher := &recordingPublisher{}
	s := newTestSyncer(store, &fakeUpstream{}, publisher)

	n := notification(t, TypeIssue, ActionRemove, map[string]string{"id": "i1"})
	if err := s.ApplyDelta(context.Background(), n); err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}
	if _, ok := store.state.issues["i1"]; ok {
		t.Fatal("removed issue still stored")
	}
	if len(publisher.events) != 1 || publisher.events[0].Action != domain.IssueRemoved {
		t.Fatalf("events = %+v", publisher.events)
	}
}

func TestApplyDeltaRejectsUnknownType(t *testing.T) {
	store := newFakeStore()
	s := newTestSyncer(store, &fakeUpstream{}, nil)

	n := notification(t, "Comment", ActionCreate, map[string]string{"id": "c1"})
	if err := s.ApplyDelta(context.Background(), n); err == nil {
		t.Fatal("unsupported type accepted")
	}
	if store.rolledBack != 1 {
		t.Fatalf("rolledBack = %d, want 1", store.rolledBack)
	}
}
