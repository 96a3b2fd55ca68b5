package models

import "github.com/google/uuid"

// League is the scoping unit for one draft session.
type League struct {
	ID             uuid.UUID `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	CommissionerID uuid.UUID `json:"commissioner_id" yaml:"commissioner_id"`
}

// Participant is a league member eligible to pick.
type Participant struct {
	UserID      uuid.UUID `json:"user_id" yaml:"user_id"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
}
