// Package syncer reconciles the local relational mirror with upstream state.
// A full run is one transaction walking teams, projects, issues and cleanup
// in that fixed order; deltas apply single-entity changes between runs.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
	"github.com/Robert-d-s/enablment-back-sub000/internal/repository"
	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
	"github.com/Robert-d-s/enablment-back-sub000/pkg/config"
)

// ErrRunInFlight is returned when a full run is triggered while another is
// still running. Full runs never overlap.
var ErrRunInFlight = errors.New("sync: full run already in flight")

// UpstreamAPI is the slice of the upstream client the reconcilers consume.
type UpstreamAPI interface {
	Teams(ctx context.Context) ([]upstream.Team, error)
	TeamProjects(ctx context.Context, teamID, cursor string) (upstream.Page[upstream.Project], error)
	Issues(ctx context.Context, cursor string) (upstream.Page[upstream.Issue], error)
	ProjectIDs(ctx context.Context, cursor string) (upstream.Page[string], error)
}

// Publisher fans issue events out to real-time subscribers. Publishing is
// fire-and-forget; a failing publisher must never fail reconciliation.
type Publisher interface {
	Publish(event domain.IssueEvent)
}

// Syncer owns the transaction boundary of a full reconciliation run and the
// per-notification transactions of delta application.
type Syncer struct {
	store     repository.Store
	upstream  UpstreamAPI
	publisher Publisher
	logger    *slog.Logger

	pageDelay       time.Duration
	fallbackProject string

	running atomic.Bool
	now     func() time.Time
}

// New constructs a Syncer.
func New(store repository.Store, api UpstreamAPI, publisher Publisher, logger *slog.Logger, cfg config.MirrorConfig) *Syncer {
	if logger != nil {
		logger = logger.With("component", "syncer")
	}
	return &Syncer{
		store:           store,
		upstream:        api,
		publisher:       publisher,
		logger:          logger,
		pageDelay:       cfg.PageDelay,
		fallbackProject: cfg.FallbackProject,
		now:             time.Now,
	}
}

// RunFull executes one complete reconciliation: teams, projects, issues,
// cleanup, in that order, inside a single transaction. Any propagated error
// rolls the whole run back; nothing partial ever becomes visible and no
// events are published for rolled-back work.
func (s *Syncer) RunFull(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInFlight
	}
	defer s.running.Store(false)

	started := s.now()
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sync transaction: %w", err)
	}

	events, err := s.runPhases(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sync transaction: %w", err)
	}

	s.publish(events)
	s.logger.Info("full reconciliation complete",
		"duration", s.now().Sub(started).String(),
		"issue_events", len(events))
	return nil
}

func (s *Syncer) runPhases(ctx context.Context, tx repository.Tx) ([]domain.IssueEvent, error) {
	if err := s.syncTeams(ctx, tx); err != nil {
		return nil, err
	}
	if err := s.syncProjects(ctx, tx); err != nil {
		return nil, err
	}
	events, err := s.syncIssues(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := s.syncCleanup(ctx, tx); err != nil {
		return nil, err
	}
	return events, nil
}

// publish emits committed issue events. Failures inside the publisher are
// its own business.
func (s *Syncer) publish(events []domain.IssueEvent) {
	if s.publisher == nil {
		return
	}
	for _, event := range events {
		s.publisher.Publish(event)
	}
}

func issueEvent(issue domain.Issue, action domain.IssueEventAction) domain.IssueEvent {
	return domain.IssueEvent{
		ID:          issue.ID,
		Action:      action,
		Title:       issue.Title,
		State:       issue.State,
		ProjectID:   issue.ProjectID,
		ProjectName: issue.ProjectName,
		TeamKey:     issue.TeamKey,
		TeamName:    issue.TeamName,
	}
}
