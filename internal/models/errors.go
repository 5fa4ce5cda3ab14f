package models

import "errors"

// Error taxonomy shared by the engine, the repositories and the HTTP layer.
var (
	ErrConfig             = errors.New("invalid configuration")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidRange       = errors.New("invalid time range")
	ErrUnknownWorker      = errors.New("unknown worker")
	ErrWakeSignal         = errors.New("wake signal failed")
	ErrInvalidAddress     = errors.New("invalid hardware address")
)
