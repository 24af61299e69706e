package syncer

import (
	"context"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
	"github.com/Robert-d-s/enablment-back-sub000/internal/repository"
	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
)

// fakeStore is an in-memory Store with real transaction semantics: Begin
// snapshots state, Commit writes it back, Rollback discards it.
type fakeStore struct {
	state      storeState
	begun      int
	committed  int
	rolledBack int
	beginErr   error
}

type storeState struct {
	seq      int
	teams    map[string]domain.Team
	teamSeq  map[string]int
	projects map[string]domain.Project
	projSeq  map[string]int
	issues   map[string]domain.Issue
	labels   map[string][]domain.Label
	rates    map[string]domain.Rate
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newStoreState()}
}

func newStoreState() storeState {
	return storeState{
		teams:    map[string]domain.Team{},
		teamSeq:  map[string]int{},
		projects: map[string]domain.Project{},
		projSeq:  map[string]int{},
		issues:   map[string]domain.Issue{},
		labels:   map[string][]domain.Label{},
		rates:    map[string]domain.Rate{},
	}
}

func (st storeState) clone() storeState {
	out := newStoreState()
	out.seq = st.seq
	for k, v := range st.teams {
		out.teams[k] = v
	}
	for k, v := range st.teamSeq {
		out.teamSeq[k] = v
	}
	for k, v := range st.projects {
		out.projects[k] = v
	}
	for k, v := range st.projSeq {
		out.projSeq[k] = v
	}
	for k, v := range st.issues {
		out.issues[k] = v
	}
	for k, v := range st.labels {
		out.labels[k] = append([]domain.Label(nil), v...)
	}
	for k, v := range st.rates {
		out.rates[k] = v
	}
	return out
}

func (f *fakeStore) Begin(ctx context.Context) (repository.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begun++
	return &fakeTx{parent: f, state: f.state.clone()}, nil
}

// Seed helpers mutate committed state directly.

func (f *fakeStore) seedTeam(team domain.Team) {
	f.state.seq++
	f.state.teams[team.ID] = team
	f.state.teamSeq[team.ID] = f.state.seq
}

func (f *fakeStore) seedProject(project domain.Project) {
	f.state.seq++
	f.state.projects[project.ID] = project
	f.state.projSeq[project.ID] = f.state.seq
}

func (f *fakeStore) seedIssue(issue domain.Issue, labels ...domain.Label) {
	f.state.issues[issue.ID] = issue
	if len(labels) > 0 {
		f.state.labels[issue.ID] = labels
	}
}

func (f *fakeStore) seedRate(rate domain.Rate) {
	f.state.rates[rate.ID] = rate
}

type fakeTx struct {
	parent *fakeStore
	state  storeState
	done   bool

	upsertIssueErr error
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.done = true
	t.parent.committed++
	t.parent.state = t.state
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.parent.rolledBack++
	return nil
}

func (t *fakeTx) UpsertTeam(ctx context.Context, team *domain.Team) error {
	if _, ok := t.state.teams[team.ID]; !ok {
		t.state.seq++
		t.state.teamSeq[team.ID] = t.state.seq
	}
	t.state.teams[team.ID] = *team
	return nil
}

func (t *fakeTx) ListTeamIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(t.state.teams))
	for id := range t.state.teams {
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *fakeTx) TeamExists(ctx context.Context, teamID string) (bool, error) {
	_, ok := t.state.teams[teamID]
	return ok, nil
}

func (t *fakeTx) GetTeamByKey(ctx context.Context, key string) (*domain.Team, error) {
	for _, team := range t.state.teams {
		if team.Key == key {
			out := team
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *fakeTx) LatestTeam(ctx context.Context) (*domain.Team, error) {
	best, bestSeq := "", -1
	for id, seq := range t.state.teamSeq {
		if _, ok := t.state.teams[id]; ok && seq > bestSeq {
			best, bestSeq = id, seq
		}
	}
	if best == "" {
		return nil, repository.ErrNotFound
	}
	out := t.state.teams[best]
	return &out, nil
}

func (t *fakeTx) DeleteTeam(ctx context.Context, teamID string) error {
	delete(t.state.teams, teamID)
	return nil
}

func (t *fakeTx) CountTeamProjects(ctx context.Context, teamID string) (int, error) {
	count := 0
	for _, project := range t.state.projects {
		if project.TeamID == teamID {
			count++
		}
	}
	return count, nil
}

func (t *fakeTx) CountTeamRates(ctx context.Context, teamID string) (int, error) {
	count := 0
	for _, rate := range t.state.rates {
		if rate.TeamID == teamID {
			count++
		}
	}
	return count, nil
}

func (t *fakeTx) UpsertProject(ctx context.Context, project *domain.Project) error {
	if _, ok := t.state.projects[project.ID]; !ok {
		t.state.seq++
		t.state.projSeq[project.ID] = t.state.seq
	}
	t.state.projects[project.ID] = *project
	return nil
}

// DeleteProject mirrors the schema's ON DELETE SET NULL on issues.project_id.
func (t *fakeTx) DeleteProject(ctx context.Context, projectID string) error {
	delete(t.state.projects, projectID)
	for id, issue := range t.state.issues {
		if issue.ProjectID != nil && *issue.ProjectID == projectID {
			issue.ProjectID = nil
			t.state.issues[id] = issue
		}
	}
	return nil
}

func (t *fakeTx) ListProjectIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(t.state.projects))
	for id := range t.state.projects {
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *fakeTx) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	_, ok := t.state.projects[projectID]
	return ok, nil
}

func (t *fakeTx) GetProjectByName(ctx context.Context, name string) (*domain.Project, error) {
	for _, project := range t.state.projects {
		if project.Name == name {
			out := project
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *fakeTx) LatestProjectByTeamKey(ctx context.Context, teamKey string) (*domain.Project, error) {
	best, bestSeq := "", -1
	for id, project := range t.state.projects {
		team, ok := t.state.teams[project.TeamID]
		if !ok || team.Key != teamKey {
			continue
		}
		if seq := t.state.projSeq[id]; seq > bestSeq {
			best, bestSeq = id, seq
		}
	}
	if best == "" {
		return nil, repository.ErrNotFound
	}
	out := t.state.projects[best]
	return &out, nil
}

func (t *fakeTx) LatestProject(ctx context.Context) (*domain.Project, error) {
	best, bestSeq := "", -1
	for id, seq := range t.state.projSeq {
		if _, ok := t.state.projects[id]; ok && seq > bestSeq {
			best, bestSeq = id, seq
		}
	}
	if best == "" {
		return nil, repository.ErrNotFound
	}
	out := t.state.projects[best]
	return &out, nil
}

func (t *fakeTx) UpsertIssue(ctx context.Context, issue *domain.Issue) error {
	if t.upsertIssueErr != nil {
		return t.upsertIssueErr
	}
	t.state.issues[issue.ID] = *issue
	return nil
}

func (t *fakeTx) IssueExists(ctx context.Context, issueID string) (bool, error) {
	_, ok := t.state.issues[issueID]
	return ok, nil
}

func (t *fakeTx) DeleteIssue(ctx context.Context, issueID string) error {
	if _, ok := t.state.issues[issueID]; !ok {
		return repository.ErrNotFound
	}
	delete(t.state.issues, issueID)
	delete(t.state.labels, issueID)
	return nil
}

func (t *fakeTx) ReplaceIssueLabels(ctx context.Context, issueID string, labels []domain.Label) error {
	if len(labels) == 0 {
		delete(t.state.labels, issueID)
		return nil
	}
	t.state.labels[issueID] = append([]domain.Label(nil), labels...)
	return nil
}

func (t *fakeTx) DetachIssuesFromMissingTeams(ctx context.Context) (int64, error) {
	keys := map[string]struct{}{}
	for _, team := range t.state.teams {
		keys[team.Key] = struct{}{}
	}
	var detached int64
	for id, issue := range t.state.issues {
		if issue.TeamKey == nil {
			continue
		}
		if _, ok := keys[*issue.TeamKey]; ok {
			continue
		}
		issue.TeamKey = nil
		issue.TeamName = nil
		t.state.issues[id] = issue
		detached++
	}
	return detached, nil
}

func (t *fakeTx) CreateRate(ctx context.Context, rate *domain.Rate) error {
	t.state.rates[rate.ID] = *rate
	return nil
}

func (t *fakeTx) ListRatesByTeam(ctx context.Context, teamID string) ([]domain.Rate, error) {
	var out []domain.Rate
	for _, rate := range t.state.rates {
		if rate.TeamID == teamID {
			out = append(out, rate)
		}
	}
	return out, nil
}

func (t *fakeTx) DeleteRate(ctx context.Context, rateID string) error {
	if _, ok := t.state.rates[rateID]; !ok {
		return repository.ErrNotFound
	}
	delete(t.state.rates, rateID)
	return nil
}

func (t *fakeTx) DeleteOrphanRates(ctx context.Context) (int64, error) {
	var removed int64
	for id, rate := range t.state.rates {
		if _, ok := t.state.teams[rate.TeamID]; !ok {
			delete(t.state.rates, id)
			removed++
		}
	}
	return removed, nil
}

var _ repository.Store = (*fakeStore)(nil)
var _ repository.Tx = (*fakeTx)(nil)

// fakeUpstream serves canned fixtures over the UpstreamAPI surface.
type fakeUpstream struct {
	teams    []upstream.Team
	projects map[string][]upstream.Project
	issues   []upstream.Issue

	teamsErr  error
	issuesErr error
}

func (f *fakeUpstream) Teams(ctx context.Context) ([]upstream.Team, error) {
	if f.teamsErr != nil {
		return nil, f.teamsErr
	}
	return f.teams, nil
}

func (f *fakeUpstream) TeamProjects(ctx context.Context, teamID, cursor string) (upstream.Page[upstream.Project], error) {
	return upstream.Page[upstream.Project]{Nodes: f.projects[teamID]}, nil
}

func (f *fakeUpstream) Issues(ctx context.Context, cursor string) (upstream.Page[upstream.Issue], error) {
	if f.issuesErr != nil {
		return upstream.Page[upstream.Issue]{}, f.issuesErr
	}
	return upstream.Page[upstream.Issue]{Nodes: f.issues}, nil
}

func (f *fakeUpstream) ProjectIDs(ctx context.Context, cursor string) (upstream.Page[string], error) {
	var ids []string
	for _, projects := range f.projects {
		for _, project := range projects {
			ids = append(ids, project.ID)
		}
	}
	return upstream.Page[string]{Nodes: ids}, nil
}

type recordingPublisher struct {
	events []domain.IssueEvent
}

func (p *recordingPublisher) Publish(event domain.IssueEvent) {
	p.events = append(p.events, event)
}
