package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoCredential is returned when no API key is configured.
	ErrNoCredential = errors.New("no credential")
	// ErrNoDomain is returned when the account has no usable domain.
	ErrNoDomain = errors.New("no domain available")
	// ErrNoKey is returned when a mutation is triggered without a key.
	ErrNoKey = errors.New("missing cache key")
	// ErrNoLink is returned when a link operation has no created link to act on.
	ErrNoLink = errors.New("no link")
	// ErrDomainsUnavailable marks a failed domain list fetch.
	// It is treated like a missing credential.
	ErrDomainsUnavailable = errors.New("domains unavailable")
)

// RemoteError is returned when the API answers with an error payload.
type RemoteError struct {
	Payload json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: %s", string(e.Payload))
}

// TransportError wraps network and decoding failures below the API layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err should send the user back to settings.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoCredential) || errors.Is(err, ErrDomainsUnavailable)
}

// RemotePayload returns the raw error payload carried by err, if any.
func RemotePayload(err error) (json.RawMessage, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Payload, true
	}
	return nil, false
}
