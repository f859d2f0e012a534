package domain

import "errors"

var (
	ErrGenerationTimeout       = errors.New("generation timed out")
	ErrGenerationFailure       = errors.New("generation failed")
	ErrInvalidGenerationOutput = errors.New("invalid generation output")
	ErrCooldownActive          = errors.New("cooldown active")
	ErrAlreadyGenerating       = errors.New("generation already in flight")
	ErrUnknownEventType        = errors.New("unknown event type")
	ErrResponseRollMissed      = errors.New("response roll missed")
	ErrSessionNotFound         = errors.New("session not found")
)
