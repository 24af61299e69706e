package syncer

import (
	"context"
	"fmt"

	"github.com/Robert-d-s/enablment-back-sub000/internal/repository"
	"github.com/Robert-d-s/enablment-back-sub000/internal/sanitize"
	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
)

// syncProjects pages through every team's upstream project listing. Team
// ownership comes from which listing a project appeared under, never from a
// field on the project itself. A project failing sanitization is skipped,
// not fatal; a project orphaned mid-run is caught by the next cleanup pass.
func (s *Syncer) syncProjects(ctx context.Context, tx repository.Tx) error {
	teamIDs, err := tx.ListTeamIDs(ctx)
	if err != nil {
		return fmt.Errorf("list local teams: %w", err)
	}

	total := 0
	for _, teamID := range teamIDs {
		fetch := func(ctx context.Context, cursor string) (upstream.Page[upstream.Project], error) {
			return s.upstream.TeamProjects(ctx, teamID, cursor)
		}
		err := upstream.EachPage(ctx, fetch, s.pageDelay, func(items []upstream.Project) error {
			now := s.now()
			for _, record := range items {
				project, err := sanitize.ProjectRecord(record, teamID, now)
				if err != nil {
					s.logger.Warn("skipping project failing sanitization",
						"project_id", record.ID, "team_id", teamID, "error", err)
					continue
				}
				if err := tx.UpsertProject(ctx, &project); err != nil {
					return fmt.Errorf("upsert project %s: %w", project.ID, err)
				}
				total++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("sync projects for team %s: %w", teamID, err)
		}
	}

	s.logger.Info("projects synchronized", "teams", len(teamIDs), "projects", total)
	return nil
}
