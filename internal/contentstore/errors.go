package contentstore

import "errors"

var (
	// ErrRemoteUnavailable is returned when the remote store cannot be reached
	// or its circuit breaker is open.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrRemoteMiss is returned by a RemoteStore when the id is not stored there.
	ErrRemoteMiss = errors.New("record not found in remote store")

	// ErrCorruptStore is returned when the local file is not a valid record map.
	ErrCorruptStore = errors.New("local store file is corrupt")
)
