package syncer

import (
	"context"
	"fmt"

	"github.com/Robert-d-s/enablment-back-sub000/internal/repository"
	"github.com/Robert-d-s/enablment-back-sub000/internal/sanitize"
)

// syncTeams mirrors the full upstream team set. Teams are structurally too
// important to partially apply: a single sanitization failure aborts the
// whole phase. Teams missing upstream are left for the cleanup phase.
func (s *Syncer) syncTeams(ctx context.Context, tx repository.Tx) error {
	raw, err := s.upstream.Teams(ctx)
	if err != nil {
		return fmt.Errorf("fetch upstream teams: %w", err)
	}

	now := s.now()
	upstreamIDs := make(map[string]struct{}, len(raw))
	for _, record := range raw {
		team, err := sanitize.TeamRecord(record, now)
		if err != nil {
			return fmt.Errorf("sanitize team %q: %w", record.ID, err)
		}
		if err := tx.UpsertTeam(ctx, &team); err != nil {
			return fmt.Errorf("upsert team %s: %w", team.ID, err)
		}
		upstreamIDs[team.ID] = struct{}{}
	}

	localIDs, err := tx.ListTeamIDs(ctx)
	if err != nil {
		return fmt.Errorf("list local teams: %w", err)
	}
	stale := 0
	for _, id := range localIDs {
		if _, ok := upstreamIDs[id]; !ok {
			stale++
		}
	}

	s.logger.Info("teams synchronized", "upstream", len(raw), "stale_local", stale)
	return nil
}
