package model

import "errors"

// Failure kinds. Adapters, the resampler and the cache wrap one of these so
// callers can classify with errors.Is.
var (
	ErrNetwork     = errors.New("network failure")
	ErrProtocol    = errors.New("protocol failure")
	ErrPayload     = errors.New("payload failure")
	ErrData        = errors.New("data failure")
	ErrPersistence = errors.New("persistence failure")
)
