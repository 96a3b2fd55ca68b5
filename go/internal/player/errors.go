package player

import "errors"

// ErrPlayerNotFound is returned when a player id is not in the catalog
var ErrPlayerNotFound = errors.New("player not found")
