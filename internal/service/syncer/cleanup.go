package syncer

import (
	"context"
	"fmt"

	"github.com/Robert-d-s/enablment-back-sub000/internal/repository"
	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
)

// syncCleanup removes local rows the upstream no longer justifies. The id
// sets are re-fetched here rather than reused from earlier phases so the
// pass reflects any upstream drift during the run. Order matters: projects
// before teams (a team's dependent count must see current project state)
// before rates (rate cleanup must see current team state).
func (s *Syncer) syncCleanup(ctx context.Context, tx repository.Tx) error {
	upstreamTeams, err := s.upstream.Teams(ctx)
	if err != nil {
		return fmt.Errorf("fetch upstream teams for cleanup: %w", err)
	}
	teamSet := make(map[string]struct{}, len(upstreamTeams))
	for _, team := range upstreamTeams {
		teamSet[team.ID] = struct{}{}
	}

	upstreamProjects, err := upstream.Collect(ctx, s.upstream.ProjectIDs, s.pageDelay)
	if err != nil {
		return fmt.Errorf("fetch upstream project ids for cleanup: %w", err)
	}
	projectSet := make(map[string]struct{}, len(upstreamProjects))
	for _, id := range upstreamProjects {
		projectSet[id] = struct{}{}
	}

	localProjects, err := tx.ListProjectIDs(ctx)
	if err != nil {
		return fmt.Errorf("list local projects: %w", err)
	}
	removedProjects := 0
	for _, id := range localProjects {
		if _, ok := projectSet[id]; ok {
			continue
		}
		if err := tx.DeleteProject(ctx, id); err != nil {
			return fmt.Errorf("delete orphan project %s: %w", id, err)
		}
		removedProjects++
	}

	localTeams, err := tx.ListTeamIDs(ctx)
	if err != nil {
		return fmt.Errorf("list local teams: %w", err)
	}
	removedTeams, retainedTeams := 0, 0
	for _, id := range localTeams {
		if _, ok := teamSet[id]; ok {
			continue
		}
		projects, err := tx.CountTeamProjects(ctx, id)
		if err != nil {
			return fmt.Errorf("count projects for team %s: %w", id, err)
		}
		rates, err := tx.CountTeamRates(ctx, id)
		if err != nil {
			return fmt.Errorf("count rates for team %s: %w", id, err)
		}
		if projects > 0 || rates > 0 {
			retainedTeams++
			s.logger.Info("retaining team absent upstream: local dependents attached",
				"team_id", id, "projects", projects, "rates", rates)
			continue
		}
		if err := tx.DeleteTeam(ctx, id); err != nil {
			return fmt.Errorf("delete orphan team %s: %w", id, err)
		}
		removedTeams++
	}

	removedRates, err := tx.DeleteOrphanRates(ctx)
	if err != nil {
		return fmt.Errorf("delete orphan rates: %w", err)
	}

	detachedIssues, err := tx.DetachIssuesFromMissingTeams(ctx)
	if err != nil {
		return fmt.Errorf("detach issues from missing teams: %w", err)
	}

	s.logger.Info("cleanup complete",
		"projects_removed", removedProjects,
		"teams_removed", removedTeams,
		"teams_retained", retainedTeams,
		"rates_removed", removedRates,
		"issues_detached", detachedIssues)
	return nil
}
