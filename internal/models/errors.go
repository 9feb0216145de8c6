package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrNameRequired indicates a required name field is empty.
	ErrNameRequired = errors.New("name is required")

	// ErrChannelNumberRequired indicates the channel number is missing or zero.
	ErrChannelNumberRequired = errors.New("channel number is required")

	// ErrStartTimeRequired indicates a required start time field is empty.
	ErrStartTimeRequired = errors.New("start time is required")

	// ErrInvalidOfflineMode indicates an invalid channel offline mode.
	ErrInvalidOfflineMode = errors.New("invalid offline mode: must be 'clip' or 'pic'")

	// ErrInvalidProgramType indicates an invalid program type.
	ErrInvalidProgramType = errors.New("invalid program type: must be 'movie', 'episode' or 'track'")

	// ErrExternalKeyRequired indicates the composite program key is incomplete.
	ErrExternalKeyRequired = errors.New("source type, external source id and external key are required")

	// ErrInvalidLineupItemType indicates an invalid lineup item type.
	ErrInvalidLineupItemType = errors.New("invalid lineup item type: must be 'content', 'redirect' or 'offline'")

	// ErrProgramIDRequired indicates a content lineup item without a program.
	ErrProgramIDRequired = errors.New("program id is required for content items")

	// ErrRedirectChannelRequired indicates a redirect lineup item without a target.
	ErrRedirectChannelRequired = errors.New("redirect channel id is required for redirect items")

	// ErrDurationNotPositive indicates a non-positive duration.
	ErrDurationNotPositive = errors.New("duration must be positive")

	// ErrNegativeCooldown indicates a negative filler cooldown.
	ErrNegativeCooldown = errors.New("cooldown must be non-negative")

	// ErrWeightNotPositive indicates a non-positive filler collection weight.
	ErrWeightNotPositive = errors.New("weight must be positive")

	// ErrInvalidWatermarkPosition indicates an invalid watermark corner.
	ErrInvalidWatermarkPosition = errors.New("invalid watermark position")

	// ErrNegativeChannelDuration indicates a channel duration below zero.
	ErrNegativeChannelDuration = errors.New("channel duration must not be negative")

	// ErrLineupDurationMismatch indicates the lineup items do not sum to the
	// channel duration.
	ErrLineupDurationMismatch = errors.New("lineup item durations do not sum to channel duration")
)
