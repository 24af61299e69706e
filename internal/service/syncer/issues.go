package syncer

import (
	"context"
	"fmt"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
	"github.com/Robert-d-s/enablment-back-sub000/internal/repository"
	"github.com/Robert-d-s/enablment-back-sub000/internal/sanitize"
	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
)

// syncIssues pages through the global upstream issue listing. An issue must
// anchor to a locally stored project: unanchored issues are skipped with a
// warning, an accepted loss. The complete label set is replaced on every
// upsert so stale labels never need diffing.
func (s *Syncer) syncIssues(ctx context.Context, tx repository.Tx) ([]domain.IssueEvent, error) {
	var events []domain.IssueEvent
	applied, skipped := 0, 0

	err := upstream.EachPage(ctx, s.upstream.Issues, s.pageDelay, func(items []upstream.Issue) error {
		for _, record := range items {
			event, ok, err := s.applyIssue(ctx, tx, record)
			if err != nil {
				return err
			}
			if !ok {
				skipped++
				continue
			}
			applied++
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync issues: %w", err)
	}

	s.logger.Info("issues synchronized", "applied", applied, "skipped", skipped)
	return events, nil
}

// applyIssue upserts a single upstream issue record inside the run's
// transaction. The bool result reports whether the record was stored; only
// storage errors propagate.
func (s *Syncer) applyIssue(ctx context.Context, tx repository.Tx, record upstream.Issue) (domain.IssueEvent, bool, error) {
	if record.Project == nil || record.Project.ID == "" {
		s.logger.Warn("skipping issue without project reference", "issue_id", record.ID)
		return domain.IssueEvent{}, false, nil
	}

	exists, err := tx.ProjectExists(ctx, record.Project.ID)
	if err != nil {
		return domain.IssueEvent{}, false, fmt.Errorf("check project %s: %w", record.Project.ID, err)
	}
	if !exists {
		s.logger.Warn("skipping issue referencing unknown project",
			"issue_id", record.ID, "project_id", record.Project.ID)
		return domain.IssueEvent{}, false, nil
	}

	issue, labels, skippedFields, err := sanitize.IssueRecord(record, s.now())
	if err != nil {
		s.logger.Warn("skipping issue failing sanitization", "issue_id", record.ID, "error", err)
		return domain.IssueEvent{}, false, nil
	}
	for _, fieldErr := range skippedFields {
		s.logger.Warn("dropping invalid nested issue field", "issue_id", issue.ID, "error", fieldErr)
	}

	existed, err := tx.IssueExists(ctx, issue.ID)
	if err != nil {
		return domain.IssueEvent{}, false, fmt.Errorf("check issue %s: %w", issue.ID, err)
	}
	if err := tx.UpsertIssue(ctx, &issue); err != nil {
		return domain.IssueEvent{}, false, fmt.Errorf("upsert issue %s: %w", issue.ID, err)
	}
	if err := tx.ReplaceIssueLabels(ctx, issue.ID, labels); err != nil {
		return domain.IssueEvent{}, false, fmt.Errorf("replace labels for issue %s: %w", issue.ID, err)
	}

	action := domain.IssueUpdated
	if !existed {
		action = domain.IssueCreated
	}
	return issueEvent(issue, action), true, nil
}
