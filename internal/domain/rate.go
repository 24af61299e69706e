package domain

import "time"

// Rate is a locally-assigned billing rate attached to a team. Reconciliation
// never writes rates except to cascade-delete orphans whose team is gone.
type Rate struct {
	ID          string
	TeamID      string
	Name        string
	HourlyCents int
	CreatedAt   time.Time
}
