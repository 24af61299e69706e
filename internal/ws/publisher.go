package ws

import (
	"encoding/json"

	"log/slog"

	"github.com/Robert-d-s/enablment-back-sub000/internal/domain"
)

// TopicIssues is the stream carrying issue mutation events.
const TopicIssues = "issues"

// IssuePublisher fans committed issue events out over the hub. Publishing is
// fire-and-forget: a marshalling or subscriber failure never propagates back
// into reconciliation.
type IssuePublisher struct {
	hub *Hub
	log *slog.Logger
}

// NewIssuePublisher constructs an IssuePublisher.
func NewIssuePublisher(hub *Hub, logger *slog.Logger) *IssuePublisher {
	return &IssuePublisher{hub: hub, log: logger}
}

// Publish broadcasts one issue event to every subscriber.
func (p *IssuePublisher) Publish(event domain.IssueEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		if p.log != nil {
			p.log.Warn("failed to encode issue event", "issue_id", event.ID, "error", err)
		}
		return
	}
	p.hub.Broadcast(TopicIssues, payload)
}
