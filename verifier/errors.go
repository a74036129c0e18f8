package verifier

import "errors"

var (
	// ErrInvalidProof is returned when the header or receipt proof does not check out
	ErrInvalidProof = errors.New("invalid proof")
	// ErrInvalidEventFormat is returned when the proven log is not a well formed Ping
	ErrInvalidEventFormat = errors.New("invalid event format")
	// ErrAlreadyProcessed is returned when the event was verified before
	ErrAlreadyProcessed = errors.New("event already processed")
	// ErrTrustedHashUnavailable is returned while the oracle has no hash for the block
	ErrTrustedHashUnavailable = errors.New("trusted hash unavailable")
)
