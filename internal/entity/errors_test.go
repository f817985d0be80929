package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "no credential",
			err:  ErrNoCredential,
			want: true,
		},
		{
			name: "wrapped domains unavailable",
			err:  fmt.Errorf("usecase.Home: %w", ErrDomainsUnavailable),
			want: true,
		},
		{
			name: "remote error",
			err:  &RemoteError{Payload: json.RawMessage(`"bad"`)},
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthError(tt.err))
		})
	}
}

func TestRemotePayload(t *testing.T) {
	t.Run("wrapped remote error", func(t *testing.T) {
		err := fmt.Errorf("op: %w", &RemoteError{Payload: json.RawMessage(`{"message":"Unauthorized"}`)})

		payload, ok := RemotePayload(err)

		assert.True(t, ok)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, string(payload))
	})

	t.Run("other error", func(t *testing.T) {
		payload, ok := RemotePayload(errors.New("unknown error"))

		assert.False(t, ok)
		assert.Nil(t, payload)
	})
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Op: "shortio.Client.do", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "shortio.Client.do")
}

func TestFindDomain(t *testing.T) {
	domains := []Domain{
		{ID: 1, Hostname: "ex.am"},
		{ID: 2, Hostname: "sho.rt"},
	}

	tests := []struct {
		name     string
		domains  []Domain
		hostname string
		want     Domain
		wantOK   bool
	}{
		{name: "empty list", domains: nil, hostname: "ex.am", wantOK: false},
		{name: "default to first", domains: domains, hostname: "", want: domains[0], wantOK: true},
		{name: "exact match", domains: domains, hostname: "sho.rt", want: domains[1], wantOK: true},
		{name: "unknown hostname", domains: domains, hostname: "nope.io", want: domains[0], wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindDomain(tt.domains, tt.hostname)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
