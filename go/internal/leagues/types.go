package leagues

import (
	"errors"

	"github.com/mcdev12/livedraft/go/internal/models"
)

// ErrLeagueNotFound is returned when a league id has no record
var ErrLeagueNotFound = errors.New("league not found")

// Record is a league together with its members in join order
type Record struct {
	League  models.League        `yaml:",inline"`
	Members []models.Participant `yaml:"members"`
}
