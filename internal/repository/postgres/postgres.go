package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
	"github.com/Robert-d-s/enablment-back-sub000/internal/repository"
)

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	queries
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, queries: queries{db: pool}}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.SyncStore = (*Repository)(nil)
	_ repository.Store     = (*Repository)(nil)
	_ repository.Tx        = (*txStore)(nil)
)

// Begin opens a transaction-bound store.
func (r *Repository) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, queries: queries{db: tx}}, nil
}

// txStore executes every query on a single pgx transaction.
type txStore struct {
	tx pgx.Tx
	queries
}

// Commit finalizes the transaction.
func (t *txStore) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction. Rolling back after a commit is a no-op.
func (t *txStore) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// queries holds the SQL shared between pool-backed and tx-backed stores.
type queries struct {
	db DBTX
}

// UpsertTeam inserts a team or refreshes its upstream-owned fields.
func (q queries) UpsertTeam(ctx context.Context, team *domain.Team) error {
	const query = `INSERT INTO teams (id, key, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET key = EXCLUDED.key, name = EXCLUDED.name, updated_at = EXCLUDED.updated_at`
	_, err := q.db.Exec(ctx, query, team.ID, team.Key, team.Name, team.CreatedAt, team.UpdatedAt)
	return err
}

// ListTeamIDs returns every locally known team id.
func (q queries) ListTeamIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM teams ORDER BY created_at`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TeamExists reports whether a team id is stored.
func (q queries) TeamExists(ctx context.Context, teamID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`
	var exists bool
	if err := q.db.QueryRow(ctx, query, teamID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GetTeamByKey fetches a team by its upstream key.
func (q queries) GetTeamByKey(ctx context.Context, key string) (*domain.Team, error) {
	const query = `SELECT id, key, name, created_at, updated_at FROM teams WHERE key = $1`
	return q.scanTeam(q.db.QueryRow(ctx, query, key))
}

// LatestTeam returns the most recently mirrored team.
func (q queries) LatestTeam(ctx context.Context) (*domain.Team, error) {
	const query = `SELECT id, key, name, created_at, updated_at FROM teams ORDER BY created_at DESC LIMIT 1`
	return q.scanTeam(q.db.QueryRow(ctx, query))
}

func (q queries) scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	if err := row.Scan(&t.ID, &t.Key, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// DeleteTeam removes a team row.
func (q queries) DeleteTeam(ctx context.Context, teamID string) error {
	const query = `DELETE FROM teams WHERE id = $1`
	_, err := q.db.Exec(ctx, query, teamID)
	return err
}

// CountTeamProjects counts projects owned by a team.
func (q queries) CountTeamProjects(ctx context.Context, teamID string) (int, error) {
	const query = `SELECT COUNT(1) FROM projects WHERE team_id = $1`
	var count int
	if err := q.db.QueryRow(ctx, query, teamID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountTeamRates counts billing rates attached to a team.
func (q queries) CountTeamRates(ctx context.Context, teamID string) (int, error) {
	const query = `SELECT COUNT(1) FROM rates WHERE team_id = $1`
	var count int
	if err := q.db.QueryRow(ctx, query, teamID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UpsertProject inserts a project or refreshes it, always taking the team
// ownership the caller resolved from the upstream listing.
func (q queries) UpsertProject(ctx context.Context, project *domain.Project) error {
	const query = `INSERT INTO projects (id, team_id, name, description, state, start_date, target_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			state = EXCLUDED.state,
			start_date = EXCLUDED.start_date,
			target_date = EXCLUDED.target_date,
			updated_at = EXCLUDED.updated_at`
	_, err := q.db.Exec(ctx, query, project.ID, project.TeamID, project.Name, project.Description,
		project.State, project.StartDate, project.TargetDate, project.CreatedAt, project.UpdatedAt)
	return err
}

// DeleteProject removes a project; issues referencing it are detached by the
// schema's ON DELETE SET NULL.
func (q queries) DeleteProject(ctx context.Context, projectID string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	_, err := q.db.Exec(ctx, query, projectID)
	return err
}

// ListProjectIDs returns every locally known project id.
func (q queries) ListProjectIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM projects ORDER BY created_at`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProjectExists reports whether a project id is stored.
func (q queries) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`
	var exists bool
	if err := q.db.QueryRow(ctx, query, projectID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

const projectColumns = `id, team_id, name, description, state, start_date, target_date, created_at, updated_at`

// GetProjectByName returns the newest project with the given name.
func (q queries) GetProjectByName(ctx context.Context, name string) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE name = $1 ORDER BY created_at DESC LIMIT 1`
	return q.scanProject(q.db.QueryRow(ctx, query, name))
}

// LatestProjectByTeamKey returns the newest project on the team with the
// given upstream key.
func (q queries) LatestProjectByTeamKey(ctx context.Context, teamKey string) (*domain.Project, error) {
	const query = `SELECT p.id, p.team_id, p.name, p.description, p.state, p.start_date, p.target_date, p.created_at, p.updated_at
		FROM projects p
		INNER JOIN teams t ON t.id = p.team_id
		WHERE t.key = $1
		ORDER BY p.created_at DESC LIMIT 1`
	return q.scanProject(q.db.QueryRow(ctx, query, teamKey))
}

// LatestProject returns the newest project system-wide.
func (q queries) LatestProject(ctx context.Context) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC LIMIT 1`
	return q.scanProject(q.db.QueryRow(ctx, query))
}

func (q queries) scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.TeamID, &p.Name, &p.Description, &p.State,
		&p.StartDate, &p.TargetDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpsertIssue inserts an issue or refreshes it, including the denormalized
// project and team fields.
func (q queries) UpsertIssue(ctx context.Context, issue *domain.Issue) error {
	const query = `INSERT INTO issues (id, title, state, assignee_name, priority, due_date,
			project_id, project_name, team_key, team_name,
			upstream_created_at, upstream_updated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			state = EXCLUDED.state,
			assignee_name = EXCLUDED.assignee_name,
			priority = EXCLUDED.priority,
			due_date = EXCLUDED.due_date,
			project_id = EXCLUDED.project_id,
			project_name = EXCLUDED.project_name,
			team_key = EXCLUDED.team_key,
			team_name = EXCLUDED.team_name,
			upstream_created_at = EXCLUDED.upstream_created_at,
			upstream_updated_at = EXCLUDED.upstream_updated_at,
			updated_at = EXCLUDED.updated_at`
	_, err := q.db.Exec(ctx, query, issue.ID, issue.Title, issue.State, issue.AssigneeName,
		issue.Priority, issue.DueDate, issue.ProjectID, issue.ProjectName, issue.TeamKey,
		issue.TeamName, issue.UpstreamCreatedAt, issue.UpstreamUpdatedAt, issue.CreatedAt, issue.UpdatedAt)
	return err
}

// IssueExists reports whether an issue id is stored.
func (q queries) IssueExists(ctx context.Context, issueID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM issues WHERE id = $1)`
	var exists bool
	if err := q.db.QueryRow(ctx, query, issueID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteIssue removes an issue; labels cascade. Returns ErrNotFound when the
// id was not stored so callers can decide whether that matters.
func (q queries) DeleteIssue(ctx context.Context, issueID string) error {
	const query = `DELETE FROM issues WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, issueID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ReplaceIssueLabels swaps the complete label set of an issue.
func (q queries) ReplaceIssueLabels(ctx context.Context, issueID string, labels []domain.Label) error {
	const deleteQuery = `DELETE FROM labels WHERE issue_id = $1`
	if _, err := q.db.Exec(ctx, deleteQuery, issueID); err != nil {
		return err
	}
	const insertQuery = `INSERT INTO labels (id, issue_id, name, color, parent_id)
		VALUES ($1, $2, $3, $4, $5)`
	for _, label := range labels {
		if _, err := q.db.Exec(ctx, insertQuery, label.ID, issueID, label.Name, label.Color, label.ParentID); err != nil {
			return err
		}
	}
	return nil
}

// DetachIssuesFromMissingTeams nulls denormalized team fields that no longer
// resolve to a mirrored team.
func (q queries) DetachIssuesFromMissingTeams(ctx context.Context) (int64, error) {
	const query = `UPDATE issues SET team_key = NULL, team_name = NULL
		WHERE team_key IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM teams t WHERE t.key = issues.team_key)`
	tag, err := q.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CreateRate inserts a locally-assigned billing rate.
func (q queries) CreateRate(ctx context.Context, rate *domain.Rate) error {
	const query = `INSERT INTO rates (id, team_id, name, hourly_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := q.db.Exec(ctx, query, rate.ID, rate.TeamID, rate.Name, rate.HourlyCents, rate.CreatedAt)
	return err
}

// ListRatesByTeam returns rates attached to a team.
func (q queries) ListRatesByTeam(ctx context.Context, teamID string) ([]domain.Rate, error) {
	const query = `SELECT id, team_id, name, hourly_cents, created_at FROM rates WHERE team_id = $1 ORDER BY created_at`
	rows, err := q.db.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make([]domain.Rate, 0)
	for rows.Next() {
		var r domain.Rate
		if err := rows.Scan(&r.ID, &r.TeamID, &r.Name, &r.HourlyCents, &r.CreatedAt); err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// DeleteRate removes a single rate.
func (q queries) DeleteRate(ctx context.Context, rateID string) error {
	const query = `DELETE FROM rates WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, rateID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteOrphanRates removes rates whose team no longer resolves.
func (q queries) DeleteOrphanRates(ctx context.Context) (int64, error) {
	const query = `DELETE FROM rates WHERE NOT EXISTS (SELECT 1 FROM teams t WHERE t.id = rates.team_id)`
	tag, err := q.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
