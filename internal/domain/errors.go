package domain

import "errors"

// Frame validation errors
var (
	ErrEmptyFrame    = errors.New("no landmarks provided")
	ErrFrameTooShort = errors.New("frame holds fewer than 33 landmarks")
)

// Lookup errors
var (
	ErrUnknownExercise = errors.New("unknown exercise kind")
	ErrUnknownJoint    = errors.New("unknown joint name")
)
