package domain

import "time"

// Project mirrors an upstream project. Team ownership is resolved by which
// team's listing the project appeared under, not by a field on the project.
type Project struct {
	ID          string
	TeamID      string
	Name        string
	Description string
	State       string
	StartDate   *time.Time
	TargetDate  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
