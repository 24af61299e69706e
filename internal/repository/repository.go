package repository

import (
	"context"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
)

// TeamStore persists mirrored teams.
type TeamStore interface {
	UpsertTeam(ctx context.Context, team *domain.Team) error
	ListTeamIDs(ctx context.Context) ([]string, error)
	TeamExists(ctx context.Context, teamID string) (bool, error)
	GetTeamByKey(ctx context.Context, key string) (*domain.Team, error)
	LatestTeam(ctx context.Context) (*domain.Team, error)
	DeleteTeam(ctx context.Context, teamID string) error
	CountTeamProjects(ctx context.Context, teamID string) (int, error)
	CountTeamRates(ctx context.Context, teamID string) (int, error)
}

// ProjectStore persists mirrored projects.
type ProjectStore interface {
	UpsertProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, projectID string) error
	ListProjectIDs(ctx context.Context) ([]string, error)
	ProjectExists(ctx context.Context, projectID string) (bool, error)
	GetProjectByName(ctx context.Context, name string) (*domain.Project, error)
	LatestProjectByTeamKey(ctx context.Context, teamKey string) (*domain.Project, error)
	LatestProject(ctx context.Context) (*domain.Project, error)
}

// IssueStore persists mirrored issues and their labels.
type IssueStore interface {
	UpsertIssue(ctx context.Context, issue *domain.Issue) error
	IssueExists(ctx context.Context, issueID string) (bool, error)
	DeleteIssue(ctx context.Context, issueID string) error
	ReplaceIssueLabels(ctx context.Context, issueID string, labels []domain.Label) error
	DetachIssuesFromMissingTeams(ctx context.Context) (int64, error)
}

// RateStore is the billing collaborator's surface. Reconciliation only ever
// deletes orphans; creating and listing rates belongs to billing management.
type RateStore interface {
	CreateRate(ctx context.Context, rate *domain.Rate) error
	ListRatesByTeam(ctx context.Context, teamID string) ([]domain.Rate, error)
	DeleteRate(ctx context.Context, rateID string) error
	DeleteOrphanRates(ctx context.Context) (int64, error)
}

// SyncStore bundles every operation the reconciliation engine performs
// against local storage.
type SyncStore interface {
	TeamStore
	ProjectStore
	IssueStore
	RateStore
}

// Tx is a transaction-bound SyncStore. The orchestrator threads one Tx
// through every reconciler call, keeping the transaction boundary an
// explicit, testable contract.
type Tx interface {
	SyncStore
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens transactions over the underlying database.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}
