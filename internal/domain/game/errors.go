package game

import "errors"

var (
	ErrNotFound       = errors.New("game not found")
	ErrInvalidSpec    = errors.New("invalid game spec")
	ErrDuplicateGame  = errors.New("duplicate game")
	ErrAlreadyJoined  = errors.New("already joined")
	ErrGameFull       = errors.New("game is full")
	ErrNotParticipant = errors.New("not a participant")
	ErrNotOrganizer   = errors.New("not the organizer")
	ErrGameCancelled  = errors.New("game is cancelled")
)
