package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a device has not started a trail.
	ErrSessionNotFound = errors.New("trail session not found")
	// ErrNationNotFound indicates a nation code outside the catalog.
	ErrNationNotFound = errors.New("nation not found")
	// ErrCheckpointNotFound indicates a checkpoint id outside the trail.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrEmptySelection is returned when a submission carries no options.
	ErrEmptySelection = errors.New("empty selection")
)
