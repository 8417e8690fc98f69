package game

import "errors"

var (
	// ErrRoomNotFound is returned when joining an unknown, started or closed room
	ErrRoomNotFound = errors.New("room not found")
	// ErrNilCatalog is returned when a session is created without cards
	ErrNilCatalog = errors.New("session requires a catalog")
)
