package models

import "github.com/google/uuid"

// Player is an entry in the draftable player catalog.
type Player struct {
	ID       uuid.UUID `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	TeamAbbr string    `json:"team_abbr" yaml:"team_abbr"`
	Role     string    `json:"role,omitempty" yaml:"role"`
}
