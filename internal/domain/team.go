package domain

import "time"

// Team mirrors an upstream team. The id and key are upstream-assigned and
// stable; rates hang off teams locally and are never known to the upstream.
type Team struct {
	ID        string
	Key       string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
